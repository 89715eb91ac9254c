package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"brd-generator/internal/docx"
	"brd-generator/internal/markdown"
	"brd-generator/internal/middleware"
	"brd-generator/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const brdMaxTokens = 8192

const brdPromptHeader = `Analyze the following documents and create a comprehensive Business Requirements Document (BRD).

Documents:
`

const brdPromptSections = `

Generate a detailed BRD with these sections:

1. EXECUTIVE SUMMARY
   - Brief overview of the project
   - Key objectives and expected outcomes

2. BUSINESS OBJECTIVES
   - List the main business goals
   - Expected business value

3. STAKEHOLDER ANALYSIS
   - Create a table with columns: Name/Role, Responsibilities, Level of Involvement
   - Include all stakeholders mentioned or implied in the documents

4. FUNCTIONAL REQUIREMENTS
   - List all functional requirements in numbered format
   - Each requirement should have: ID, Description, Priority (High/Medium/Low)
   - Format as: FR-001: [Description] - Priority: [High/Medium/Low]

5. NON-FUNCTIONAL REQUIREMENTS
   - Performance requirements
   - Security requirements
   - Scalability requirements
   - Usability requirements

6. ASSUMPTIONS AND CONSTRAINTS
   - List assumptions made
   - List constraints and limitations

7. SUCCESS CRITERIA
   - Define measurable success metrics
   - Acceptance criteria

Format the output in markdown with proper headings, tables, and bullet points. Be thorough and professional.`

// BRDPrompt embeds the corpus in the seven-section BRD instructions.
func BRDPrompt(corpus string) string {
	return brdPromptHeader + corpus + brdPromptSections
}

// BRDService generates, stores and exports Business Requirements Documents.
type BRDService struct {
	projects  ProjectRepository
	brds      BRDRepository
	corpus    *CorpusAggregator
	generator Generator
	now       func() time.Time
}

func NewBRDService(projects ProjectRepository, brds BRDRepository, corpus *CorpusAggregator, generator Generator) *BRDService {
	return &BRDService{
		projects:  projects,
		brds:      brds,
		corpus:    corpus,
		generator: generator,
		now:       time.Now,
	}
}

// Generate returns BRD markdown synthesised from every processed document of
// the project. Nothing is persisted; Save does that.
func (s *BRDService) Generate(ctx context.Context, userID uuid.UUID, projectID string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "BRD.Generate", attribute.String("project.id", projectID))
	defer span.End()

	if projectID == "" {
		return "", ErrProjectRequired
	}

	corpus, err := s.corpus.Aggregate(ctx, userID, projectID)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return "", err
	}

	start := time.Now()
	md, err := s.generator.Complete(ctx, models.CompletionRequest{
		Turns:     []models.ChatTurn{{Role: models.RoleUser, Content: BRDPrompt(corpus.Text)}},
		MaxTokens: brdMaxTokens,
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return "", err
	}

	middleware.AddSpanEvent(ctx, "brd_generated",
		attribute.Int("documents", corpus.Documents),
		attribute.Int("markdown_length", len(md)),
	)
	log.Printf("✓ Generated BRD for project %s from %d documents in %dms", projectID, corpus.Documents, time.Since(start).Milliseconds())

	return md, nil
}

// Save stores a generated (possibly edited) BRD.
func (s *BRDService) Save(ctx context.Context, userID uuid.UUID, projectID string, in *models.BRDCreate) (*models.BRD, error) {
	ctx, span := middleware.StartSpan(ctx, "BRD.Save", attribute.String("project.id", projectID))
	defer span.End()

	if strings.TrimSpace(in.MarkdownContent) == "" {
		return nil, ErrContentRequired
	}
	if _, err := s.projects.GetByID(ctx, userID, projectID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = docx.DefaultTitle
	}

	brd := &models.BRD{
		ProjectID:       projectID,
		UserID:          userID,
		Title:           title,
		MarkdownContent: in.MarkdownContent,
	}
	if err := s.brds.Create(ctx, brd); err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to save BRD: %w", err)
	}
	return brd, nil
}

func (s *BRDService) List(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.BRD, error) {
	if _, err := s.projects.GetByID(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.brds.ListByProject(ctx, userID, projectID)
}

func (s *BRDService) Get(ctx context.Context, userID uuid.UUID, id string) (*models.BRD, error) {
	return s.brds.GetByID(ctx, userID, id)
}

func (s *BRDService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	return s.brds.Delete(ctx, userID, id)
}

// ExportDOCX renders markdown as a Word document.
func (s *BRDService) ExportDOCX(ctx context.Context, md, title string) ([]byte, error) {
	_, span := middleware.StartSpan(ctx, "BRD.ExportDOCX", attribute.Int("markdown_length", len(md)))
	defer span.End()

	if strings.TrimSpace(md) == "" {
		return nil, ErrContentRequired
	}

	data, err := docx.Render(title, markdown.Parse(md), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to render docx: %w", err)
	}
	return data, nil
}

// DOCXFilename is the download name of an exported BRD: BRD_<unix millis>.docx.
func DOCXFilename(now time.Time) string {
	return fmt.Sprintf("BRD_%d.docx", now.UnixMilli())
}
