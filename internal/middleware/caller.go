package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CallerHeader carries the authenticated user id. Authentication itself
// happens upstream (gateway or session layer); this service only trusts the
// header it is given.
const CallerHeader = "X-User-ID"

const callerKey contextKey = "caller"

// RequireCaller rejects requests without a valid caller id with 401 and puts
// the parsed id in the request context.
// Learning: there is no fallback user. A missing identity is an error, never
// an anonymous default.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := uuid.Parse(callerID(r))
		if err != nil || userID == uuid.Nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid " + CallerHeader + " header"})
			return
		}

		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("user.id", userID.String()))

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), userID)))
	})
}

// CallerQueryParam is accepted in place of the header on WebSocket handshakes,
// which browsers cannot send custom headers with.
const CallerQueryParam = "user_id"

func callerID(r *http.Request) string {
	if id := r.Header.Get(CallerHeader); id != "" {
		return id
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get(CallerQueryParam)
	}
	return ""
}

// WithCaller stores the caller id in ctx. Handlers read it with CallerFromContext.
func WithCaller(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey, userID)
}

// CallerFromContext returns the caller id set by RequireCaller.
func CallerFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(callerKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
