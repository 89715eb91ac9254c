package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"brd-generator/internal/chunker"
	"brd-generator/internal/extractor"
	"brd-generator/internal/models"
	"brd-generator/internal/storage"
	"brd-generator/internal/vectorindex"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// --- projects ---

type fakeProjects struct {
	mu       sync.Mutex
	projects map[string]*models.Project
	seq      int
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{projects: make(map[string]*models.Project)}
}

func (f *fakeProjects) Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p := &models.Project{ID: fmt.Sprintf("proj-%d", f.seq), UserID: userID, Name: in.Name, Description: in.Description}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeProjects) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

func (f *fakeProjects) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error) {
	p, err := f.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	return p, nil
}

func (f *fakeProjects) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := f.GetByID(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, id)
	return nil
}

func (f *fakeProjects) Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error) {
	if _, err := f.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	return &models.ProjectStats{}, nil
}

// --- documents ---

type fakeDocs struct {
	mu      sync.Mutex
	docs    []*models.Document // upload order
	seq     int
	updates []models.DocumentStatusUpdate
	clock   time.Time
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{clock: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeDocs) Create(ctx context.Context, in *models.DocumentCreate) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.clock = f.clock.Add(time.Minute)
	doc := &models.Document{
		ID:          fmt.Sprintf("doc-%d", f.seq),
		ProjectID:   in.ProjectID,
		UserID:      in.UserID,
		Filename:    in.Filename,
		FileType:    in.FileType,
		StoragePath: in.StoragePath,
		FileSize:    in.FileSize,
		UploadedAt:  f.clock,
	}
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeDocs) find(id string) *models.Document {
	for _, d := range f.docs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (f *fakeDocs) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.find(id)
	if d == nil || d.UserID != userID {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocs) filter(keep func(*models.Document) bool) []*models.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for i := len(f.docs) - 1; i >= 0; i-- {
		if keep(f.docs[i]) {
			cp := *f.docs[i]
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeDocs) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error) {
	return f.filter(func(d *models.Document) bool { return d.UserID == userID && d.ProjectID == projectID }), nil
}

func (f *fakeDocs) ListProcessed(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error) {
	return f.filter(func(d *models.Document) bool {
		return d.UserID == userID && d.ProjectID == projectID && d.Processed
	}), nil
}

func (f *fakeDocs) ListUnprocessed(ctx context.Context) ([]*models.Document, error) {
	out := f.filter(func(d *models.Document) bool { return !d.Processed })
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (f *fakeDocs) UpdateStatus(ctx context.Context, id string, status models.DocumentStatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.find(id)
	if d == nil {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	f.updates = append(f.updates, status)
	d.Processed = status.Processed
	d.Error = status.Error
	return nil
}

func (f *fakeDocs) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.docs {
		if d.ID == id && d.UserID == userID {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
}

func (f *fakeDocs) stored(id string) *models.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(id)
}

// --- conversations ---

type fakeConversations struct {
	mu       sync.Mutex
	convs    map[string]*models.Conversation
	messages map[string][]*models.Message
	seq      int
	addErr   error
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		convs:    make(map[string]*models.Conversation),
		messages: make(map[string][]*models.Message),
	}
}

func (f *fakeConversations) Create(ctx context.Context, conv *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	conv.ID = fmt.Sprintf("conv-%d", f.seq)
	f.convs[conv.ID] = conv
	return nil
}

func (f *fakeConversations) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
	}
	return c, nil
}

func (f *fakeConversations) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.convs {
		if c.UserID == userID && c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversations) AddMessage(ctx context.Context, msg *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil && msg.Role == models.RoleAssistant {
		return f.addErr
	}
	f.seq++
	msg.ID = fmt.Sprintf("msg-%d", f.seq)
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], msg)
	return nil
}

func (f *fakeConversations) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Message(nil), f.messages[conversationID]...), nil
}

// --- BRDs ---

type fakeBRDs struct {
	mu   sync.Mutex
	brds map[string]*models.BRD
	seq  int
}

func newFakeBRDs() *fakeBRDs { return &fakeBRDs{brds: make(map[string]*models.BRD)} }

func (f *fakeBRDs) Create(ctx context.Context, brd *models.BRD) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	brd.ID = fmt.Sprintf("brd-%d", f.seq)
	f.brds[brd.ID] = brd
	return nil
}

func (f *fakeBRDs) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.BRD, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.brds[id]
	if !ok || b.UserID != userID {
		return nil, fmt.Errorf("brd %s: %w", id, models.ErrNotFound)
	}
	return b, nil
}

func (f *fakeBRDs) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.BRD, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BRD
	for _, b := range f.brds {
		if b.UserID == userID && b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBRDs) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	if _, err := f.GetByID(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.brds, id)
	return nil
}

// --- blobs ---

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{objects: make(map[string][]byte)} }

func (f *fakeBlobs) Put(ctx context.Context, path string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = b
	return nil
}

func (f *fakeBlobs) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[path]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBlobs) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// --- embedder ---

// keywordEmbedder maps text onto a tiny vocabulary so similarity is
// predictable: texts sharing a keyword score close to 1, others close to 0.
// The last dimension is constant so no vector is ever zero.
type keywordEmbedder struct {
	err   error
	calls int
	mu    sync.Mutex
}

var vocabulary = []string{"billing", "security", "login", "deadline", "budget"}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		v[i] = float32(strings.Count(lower, word))
	}
	v[len(vocabulary)] = 0.1
	return v
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

// --- generator ---

type fakeGenerator struct {
	mu        sync.Mutex
	answer    string
	fragments []string
	err       error // returned after all fragments are sent
	requests  []models.CompletionRequest
}

func (g *fakeGenerator) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) CompleteStream(ctx context.Context, req models.CompletionRequest, onFragment func(string) error) error {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	for _, f := range g.fragments {
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// --- wiring ---

type testEnv struct {
	user     uuid.UUID
	project  *models.Project
	projects *fakeProjects
	docs     *fakeDocs
	convs    *fakeConversations
	brds     *fakeBRDs
	blobs    *fakeBlobs
	index    *vectorindex.MemoryIndex
	embedder *keywordEmbedder
	gen      *fakeGenerator

	processor *DocumentProcessor
	documents *DocumentService
	rag       *RAGService
	chat      *ChatService
	brd       *BRDService
	corpus    *CorpusAggregator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		user:     uuid.New(),
		projects: newFakeProjects(),
		docs:     newFakeDocs(),
		convs:    newFakeConversations(),
		brds:     newFakeBRDs(),
		blobs:    newFakeBlobs(),
		index:    vectorindex.NewMemoryIndex(),
		embedder: &keywordEmbedder{},
		gen:      &fakeGenerator{},
	}

	project, err := env.projects.Create(context.Background(), env.user, &models.ProjectCreate{Name: "Payments"})
	require.NoError(t, err)
	env.project = project

	chk := chunker.New(chunker.WithChunkTokens(25), chunker.WithOverlapTokens(5))
	env.processor = NewDocumentProcessor(env.docs, env.index, env.blobs, extractor.New(nil), chk, env.embedder)
	env.documents = NewDocumentService(env.projects, env.docs, env.index, env.blobs, env.processor, 1024)
	env.rag = NewRAGService(env.projects, env.embedder, env.index, env.gen, 8, 0.7)
	env.chat = NewChatService(env.projects, env.convs, env.rag, env.gen)
	env.corpus = NewCorpusAggregator(env.projects, env.docs, env.index, 4000)
	env.brd = NewBRDService(env.projects, env.brds, env.corpus, env.gen)
	return env
}

// upload stores a text file through the full pipeline.
func (e *testEnv) upload(t *testing.T, filename, content string) *models.Document {
	t.Helper()
	doc, err := e.documents.Upload(context.Background(), UploadRequest{
		UserID:    e.user,
		ProjectID: e.project.ID,
		Filename:  filename,
		Content:   strings.NewReader(content),
	})
	require.NoError(t, err)
	return doc
}

// seedProcessed registers a processed document whose chunks are exactly texts,
// bypassing extraction and chunking.
func (e *testEnv) seedProcessed(t *testing.T, projectID, filename string, texts ...string) *models.Document {
	t.Helper()
	ctx := context.Background()

	doc, err := e.docs.Create(ctx, &models.DocumentCreate{
		ProjectID: projectID, UserID: e.user, Filename: filename,
		FileType: models.FileTypeText, StoragePath: "seed/" + filename,
	})
	require.NoError(t, err)

	meta := datatypes.NewJSONType(models.ChunkMetadata{Filename: filename, FileType: models.FileTypeText})
	chunks := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &models.Chunk{
			DocumentID: doc.ID,
			ProjectID:  projectID,
			ChunkIndex: i,
			Content:    text,
			Embedding:  pgvector.NewVector(keywordVector(text)),
			Metadata:   meta,
		}
	}
	require.NoError(t, e.index.InsertChunks(ctx, chunks))
	require.NoError(t, e.docs.UpdateStatus(ctx, doc.ID, models.DocumentStatusUpdate{Processed: true}))
	return doc
}

var errProvider = errors.New("provider unavailable")
