package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"brd-generator/internal/extractor"
	"brd-generator/internal/middleware"
	"brd-generator/internal/models"
	"brd-generator/internal/services"
	"brd-generator/internal/vectorindex"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake services ---

type fakeProjectService struct {
	projects map[string]*models.Project
}

func (f *fakeProjectService) Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, services.ErrNameRequired
	}
	p := &models.Project{ID: "p-new", UserID: userID, Name: in.Name}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeProjectService) Get(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

func (f *fakeProjectService) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectService) Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error) {
	p, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	return p, nil
}

func (f *fakeProjectService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeProjectService) Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error) {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return &models.ProjectStats{TotalDocuments: 3, ProcessedDocuments: 2}, nil
}

type fakeDocumentService struct {
	uploaded  []byte
	filename  string
	uploadDoc *models.Document
	uploadErr error
	processFn func(id string) (*models.Document, error)
}

func (f *fakeDocumentService) Upload(ctx context.Context, req services.UploadRequest) (*models.Document, error) {
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}
	f.uploaded, f.filename = data, req.Filename
	return f.uploadDoc, f.uploadErr
}

func (f *fakeDocumentService) Process(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error) {
	return f.processFn(id)
}

func (f *fakeDocumentService) Get(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error) {
	return nil, models.ErrNotFound
}

func (f *fakeDocumentService) List(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error) {
	msg := "bad pdf"
	return []*models.Document{
		{ID: "d2", Filename: "b.pdf", Error: &msg},
		{ID: "d1", Filename: "a.txt", Processed: true},
	}, nil
}

func (f *fakeDocumentService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	return nil
}

type fakeSearchService struct{}

func (fakeSearchService) SearchProject(ctx context.Context, userID uuid.UUID, projectID, query string) ([]models.ChunkMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, services.ErrQueryRequired
	}
	return nil, nil
}

func (fakeSearchService) Answer(ctx context.Context, userID uuid.UUID, projectID, question string) (string, *services.RetrievedContext, error) {
	return "42", &services.RetrievedContext{Sources: []models.Source{{DocumentID: "d1", Filename: "a.txt", ChunkIDs: []string{"c1"}}}}, nil
}

type fakeBRDService struct {
	generateErr error
}

func (f *fakeBRDService) Generate(ctx context.Context, userID uuid.UUID, projectID string) (string, error) {
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return "# BRD\n\n- item", nil
}

func (f *fakeBRDService) Save(ctx context.Context, userID uuid.UUID, projectID string, in *models.BRDCreate) (*models.BRD, error) {
	return &models.BRD{ID: "b1", ProjectID: projectID, UserID: userID, Title: in.Title, MarkdownContent: in.MarkdownContent}, nil
}

func (f *fakeBRDService) List(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.BRD, error) {
	return nil, nil
}

func (f *fakeBRDService) Get(ctx context.Context, userID uuid.UUID, id string) (*models.BRD, error) {
	return &models.BRD{ID: id, Title: "Saved", MarkdownContent: "# Saved"}, nil
}

func (f *fakeBRDService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	return models.ErrNotFound
}

func (f *fakeBRDService) ExportDOCX(ctx context.Context, md, title string) ([]byte, error) {
	if strings.TrimSpace(md) == "" {
		return nil, services.ErrContentRequired
	}
	return []byte("PK-docx:" + title), nil
}

// --- chat wiring (real ChatService over in-memory repositories) ---

type memProjects struct{ owner uuid.UUID }

func (m memProjects) Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error) {
	return nil, errors.New("not used")
}
func (m memProjects) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error) {
	if id != "p1" || userID != m.owner {
		return nil, models.ErrNotFound
	}
	return &models.Project{ID: id, UserID: userID}, nil
}
func (m memProjects) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return nil, nil
}
func (m memProjects) Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error) {
	return nil, errors.New("not used")
}
func (m memProjects) Delete(ctx context.Context, userID uuid.UUID, id string) error { return nil }
func (m memProjects) Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error) {
	return nil, nil
}

type memConversations struct {
	mu       sync.Mutex
	convs    map[string]*models.Conversation
	messages []*models.Message
}

func (m *memConversations) Create(ctx context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.ID = fmt.Sprintf("conv-%d", len(m.convs)+1)
	m.convs[conv.ID] = conv
	return nil
}
func (m *memConversations) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	return c, nil
}
func (m *memConversations) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Conversation, error) {
	return nil, nil
}
func (m *memConversations) AddMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}
func (m *memConversations) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}
func (m *memConversations) assistantMessages() []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.Role == models.RoleAssistant {
			out = append(out, msg)
		}
	}
	return out
}

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (constEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

type scriptedGenerator struct {
	fragments []string
	err       error
}

func (g scriptedGenerator) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	return strings.Join(g.fragments, ""), g.err
}
func (g scriptedGenerator) CompleteStream(ctx context.Context, req models.CompletionRequest, onFragment func(string) error) error {
	for _, f := range g.fragments {
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return g.err
}

// --- harness ---

type harness struct {
	user   uuid.UUID
	server *httptest.Server
	docs   *fakeDocumentService
	brds   *fakeBRDService
	convs  *memConversations
}

func newHarness(t *testing.T, gen scriptedGenerator) *harness {
	t.Helper()
	user := uuid.New()

	convs := &memConversations{convs: make(map[string]*models.Conversation)}
	projects := memProjects{owner: user}
	rag := services.NewRAGService(projects, constEmbedder{}, vectorindex.NewMemoryIndex(), gen, 8, 0.7)
	chat := services.NewChatService(projects, convs, rag, gen)

	h := &harness{
		user:  user,
		docs:  &fakeDocumentService{},
		brds:  &fakeBRDService{},
		convs: convs,
	}
	handler := NewHandler(
		&fakeProjectService{projects: map[string]*models.Project{"p1": {ID: "p1", UserID: user, Name: "Payments"}}},
		h.docs,
		fakeSearchService{},
		chat,
		h.brds,
		1024,
	)
	h.server = httptest.NewServer(SetupRoutes(handler))
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set(middleware.CallerHeader, h.user.String())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) doJSON(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return h.do(t, method, path, r, "application/json")
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// --- tests ---

func TestHealth_NoCallerNeeded(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})
	resp, err := http.Get(h.server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_RequireCaller(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})
	resp, err := http.Get(h.server.URL + "/api/projects")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProjects(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	resp := h.doJSON(t, http.MethodPost, "/api/projects", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "project name is required", decodeBody(t, resp)["error"])

	resp = h.doJSON(t, http.MethodPost, "/api/projects", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/projects", `{"name":"Onboarding"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.doJSON(t, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decodeBody(t, resp)["count"])

	resp = h.doJSON(t, http.MethodGet, "/api/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.doJSON(t, http.MethodGet, "/api/projects/p1/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), decodeBody(t, resp)["total_documents"])

	resp = h.doJSON(t, http.MethodPut, "/api/projects/p1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", decodeBody(t, resp)["name"])

	resp = h.doJSON(t, http.MethodDelete, "/api/projects/p1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})
	h.docs.uploadDoc = &models.Document{ID: "d1", Filename: "notes.txt", Processed: true}

	body, ct := multipartBody(t, "file", "notes.txt", []byte("hello"))
	resp := h.do(t, http.MethodPost, "/api/projects/p1/documents", body, ct)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody(t, resp)
	assert.Equal(t, "processed", out["status"])
	assert.Equal(t, "d1", out["id"])
	assert.Equal(t, []byte("hello"), h.docs.uploaded)
	assert.Equal(t, "notes.txt", h.docs.filename)
}

func TestUploadDocument_Failures(t *testing.T) {
	msg := "empty"
	tests := []struct {
		name       string
		field      string
		size       int
		doc        *models.Document
		err        error
		wantStatus int
	}{
		{"missing file field", "other", 5, nil, nil, http.StatusBadRequest},
		{"unsupported type", "file", 5, nil, fmt.Errorf("%w: x.pptx", models.ErrUnsupportedFileType), http.StatusBadRequest},
		{"service says too large", "file", 5, nil, services.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"foreign project", "file", 5, nil, models.ErrNotFound, http.StatusNotFound},
		{
			"extraction failed", "file", 5,
			&models.Document{ID: "d9", Error: &msg},
			&extractor.ExtractionError{FileType: models.FileTypePDF, Filename: "x.pdf", Err: extractor.ErrEmptyContent},
			http.StatusUnprocessableEntity,
		},
		{
			"embedding outage", "file", 5,
			&models.Document{ID: "d9", Error: &msg},
			&models.EmbeddingServiceError{StatusCode: 503, Err: errors.New("down")},
			http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, scriptedGenerator{})
			h.docs.uploadDoc, h.docs.uploadErr = tt.doc, tt.err

			body, ct := multipartBody(t, tt.field, "x.txt", bytes.Repeat([]byte("a"), tt.size))
			resp := h.do(t, http.MethodPost, "/api/projects/p1/documents", body, ct)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			out := decodeBody(t, resp)
			assert.NotEmpty(t, out["error"])
			if tt.doc != nil {
				doc := out["document"].(map[string]any)
				assert.Equal(t, "error", doc["status"])
			}
		})
	}
}

func TestProcessDocument(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})
	h.docs.processFn = func(id string) (*models.Document, error) {
		if id == "done" {
			return &models.Document{ID: id, Processed: true}, services.ErrAlreadyProcessed
		}
		return &models.Document{ID: id, Processed: true}, nil
	}

	resp := h.doJSON(t, http.MethodPost, "/api/documents/done/process", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/documents/d1/process", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments_IncludesStatus(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	resp := h.doJSON(t, http.MethodGet, "/api/projects/p1/documents", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	docs := decodeBody(t, resp)["documents"].([]any)
	require.Len(t, docs, 2)
	assert.Equal(t, "error", docs[0].(map[string]any)["status"])
	assert.Equal(t, "processed", docs[1].(map[string]any)["status"])
}

func TestSearchAndAsk(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	resp := h.doJSON(t, http.MethodPost, "/api/projects/p1/search", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/projects/p1/search", `{"query":"billing"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, decodeBody(t, resp)["results"])

	resp = h.doJSON(t, http.MethodPost, "/api/projects/p1/ask", `{"query":"meaning?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody(t, resp)
	assert.Equal(t, "42", out["answer"])
	assert.Len(t, out["sources"], 1)
}

func TestChat_StreamsPlainText(t *testing.T) {
	h := newHarness(t, scriptedGenerator{fragments: []string{"Hel", "lo"}})

	resp := h.doJSON(t, http.MethodPost, "/api/projects/p1/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "conv-1", resp.Header.Get(ConversationHeader))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(body))

	saved := h.convs.assistantMessages()
	require.Len(t, saved, 1)
	assert.Equal(t, "Hello", saved[0].Content)
}

func TestChat_Rejects(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	resp := h.doJSON(t, http.MethodPost, "/api/projects/p1/chat", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/projects/other/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func wsURL(h *harness, path string) string {
	return "ws" + strings.TrimPrefix(h.server.URL, "http") + path + "?" + middleware.CallerQueryParam + "=" + h.user.String()
}

func TestChatWebSocket(t *testing.T) {
	h := newHarness(t, scriptedGenerator{fragments: []string{"a", "b"}})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(h, "/api/projects/p1/chat/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "hi"}))

	var frames []wsFrame
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		if f.Type != frameDelta {
			break
		}
	}

	require.Len(t, frames, 3)
	assert.Equal(t, wsFrame{Type: frameDelta, Content: "a"}, frames[0])
	assert.Equal(t, wsFrame{Type: frameDelta, Content: "b"}, frames[1])
	assert.Equal(t, frameDone, frames[2].Type)
	assert.Equal(t, "conv-1", frames[2].ConversationID)

	// a second question on the same socket continues the conversation
	require.NoError(t, conn.WriteJSON(chatRequest{Message: "more", ConversationID: "conv-1"}))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, frameDelta, f.Type)
}

func TestChatWebSocket_ErrorFrame(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(h, "/api/projects/p1/chat/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: ""}))

	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, frameError, f.Type)
	assert.Equal(t, "message is required", f.Error)
}

func TestBRDEndpoints(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	resp := h.doJSON(t, http.MethodPost, "/api/projects/p1/brd/preview", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "# BRD\n\n- item", decodeBody(t, resp)["markdown"])

	resp = h.doJSON(t, http.MethodPost, "/api/projects/p1/brd/generate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, docxContentType, resp.Header.Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="BRD_\d+\.docx"$`, resp.Header.Get("Content-Disposition"))

	resp = h.doJSON(t, http.MethodPost, "/api/brd/export", `{"markdown":"","title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/projects/p1/brds", `{"title":"v1","markdown_content":"# v1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "v1", decodeBody(t, resp)["title"])

	resp = h.doJSON(t, http.MethodGet, "/api/projects/p1/brds", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, decodeBody(t, resp)["brds"])

	resp = h.doJSON(t, http.MethodGet, "/api/brds/b7/docx", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK-docx:Saved", string(data))

	resp = h.doJSON(t, http.MethodDelete, "/api/brds/b7", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateBRD_NoDocuments(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})
	h.brds.generateErr = services.ErrNoDocuments

	resp := h.doJSON(t, http.MethodPost, "/api/projects/p1/brd/generate", "")
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, services.ErrNoDocuments.Error(), decodeBody(t, resp)["error"])
}

func TestGenerateBRD_InternalErrorKeepsCause(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})
	h.brds.generateErr = errors.New("failed to load chunks of d1: dial tcp: connection refused")

	for _, path := range []string{"/api/projects/p1/brd/preview", "/api/projects/p1/brd/generate"} {
		resp := h.doJSON(t, http.MethodPost, path, "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Equal(t, h.brds.generateErr.Error(), decodeBody(t, resp)["error"], path)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrMessageRequired, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", models.ErrNotFound), http.StatusNotFound},
		{services.ErrAlreadyProcessed, http.StatusConflict},
		{services.ErrNoDocuments, http.StatusPreconditionFailed},
		{services.ErrCorpusBudget, http.StatusUnprocessableEntity},
		{&extractor.ExtractionError{Err: models.ErrUnsupportedFileType}, http.StatusUnprocessableEntity},
		{&models.TranscriptionError{Filename: "a.mp3", Err: errors.New("x")}, http.StatusBadGateway},
		{&models.GenerationError{Provider: "openai", Err: errors.New("x")}, http.StatusBadGateway},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	writeError(rec, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	h := newHarness(t, scriptedGenerator{})

	req, err := http.NewRequest(http.MethodOptions, h.server.URL+"/api/projects/p1/documents", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), middleware.CallerHeader)
}
