package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coreybb/storybook/models"
)

// Status messages streamed to the client.
const (
	msgStarting         = "Starting book creation..."
	msgGeneratingStory  = "Generating story..."
	msgStoryDone        = "Story generated successfully."
	msgModerating       = "Moderating content..."
	msgModerationDone   = "Content moderation completed."
	msgGeneratingImages = "Generating images..."
	msgImagesDone       = "Images generated successfully."
	msgRendering        = "Generating PDF..."
	msgRendered         = "PDF generated successfully."
	msgSaved            = "PDF saved successfully."
	msgCompleted        = "Book created successfully!"

	MsgStoryFailed     = "An error occurred while generating the story. Please try again."
	MsgContentRejected = "The generated content was not appropriate. Please try again with different inputs."
	MsgImagesFailed    = "Failed to generate images. Please try again."
	MsgRenderFailed    = "Failed to generate the PDF. Please try again."
	MsgSaveFailed      = "Failed to save the book. Please try again."
	MsgInvalidRequest  = "Invalid book request. Please check your inputs."
)

// maxEvents bounds the number of events a single run emits.
const maxEvents = 11

// State is the furthest point a run reached.
type State int

const (
	StateStarted State = iota
	StateStoryGenerated
	StateModerated
	StateImagesGenerated
	StateDocumentRendered
	StatePersisted
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateStoryGenerated:
		return "story_generated"
	case StateModerated:
		return "moderated"
	case StateImagesGenerated:
		return "images_generated"
	case StateDocumentRendered:
		return "document_rendered"
	case StatePersisted:
		return "persisted"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StoryGenerator produces a title and pages for a request.
type StoryGenerator interface {
	Generate(ctx context.Context, req models.BookRequest) (string, []models.StoryPage, error)
}

// ContentModerator reports whether text may be published.
type ContentModerator interface {
	Moderate(ctx context.Context, text string) bool
}

// ImageGenerator returns one image URL per description, in order.
type ImageGenerator interface {
	Generate(ctx context.Context, descriptions []string, age int) ([]string, error)
}

// DocumentRenderer lays out a finished story.
type DocumentRenderer interface {
	Render(ctx context.Context, title string, pages []models.StoryPage, age int) ([]byte, error)
}

// ArtifactStorer persists rendered documents.
type ArtifactStorer interface {
	Store(ctx context.Context, ownerID, bookID, title string, data []byte) (string, error)
	Remove(relativePath string) error
}

// BookCreator inserts book records.
type BookCreator interface {
	CreateBook(ctx context.Context, book *models.Book) error
}

// Result is the outcome of one run. Book is set only when State is
// StateCompleted; Err only when State is StateFailed.
type Result struct {
	State State
	Book  *models.Book
	Err   error
	// FailedAt is the last state reached before a failure.
	FailedAt State
}

// BookProcessor sequences story, moderation, illustration, rendering and
// persistence for one book request.
type BookProcessor struct {
	stories   StoryGenerator
	moderator ContentModerator
	images    ImageGenerator
	renderer  DocumentRenderer
	storer    ArtifactStorer
	books     BookCreator
	logger    *zap.Logger
}

// NewBookProcessor creates a BookProcessor. All collaborators are required.
func NewBookProcessor(
	stories StoryGenerator,
	moderator ContentModerator,
	images ImageGenerator,
	renderer DocumentRenderer,
	storer ArtifactStorer,
	books BookCreator,
	logger *zap.Logger,
) (*BookProcessor, error) {
	if stories == nil || moderator == nil || images == nil || renderer == nil || storer == nil || books == nil {
		return nil, errors.New("book processor requires story, moderation, image, render, storage and book collaborators")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookProcessor{
		stories:   stories,
		moderator: moderator,
		images:    images,
		renderer:  renderer,
		storer:    storer,
		books:     books,
		logger:    logger.Named("processor"),
	}, nil
}

// Start runs the pipeline in a new goroutine. The events channel is closed
// after the terminal event; the result channel then yields exactly one
// Result. Both channels are buffered, so the run completes even if the
// caller stops reading.
func (p *BookProcessor) Start(ctx context.Context, req models.BookRequest, ownerID string) (<-chan models.ProgressEvent, <-chan Result) {
	events := make(chan models.ProgressEvent, maxEvents)
	results := make(chan Result, 1)
	go func() {
		defer close(results)
		res := p.Execute(ctx, req, ownerID, func(ev models.ProgressEvent) {
			events <- ev
		})
		close(events)
		results <- res
	}()
	return events, results
}

// Execute runs the pipeline synchronously, passing each progress event to
// emit. The last event always has progress 100.
func (p *BookProcessor) Execute(ctx context.Context, req models.BookRequest, ownerID string, emit func(models.ProgressEvent)) Result {
	run := &bookRun{p: p, emit: emit, state: StateStarted, logger: p.logger.With(zap.String("owner_id", ownerID))}
	startTime := time.Now()

	run.progress(5, msgStarting)
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return run.fail(MsgInvalidRequest, fmt.Errorf("invalid book request: %w", err))
	}
	if ownerID == "" {
		return run.fail(MsgInvalidRequest, errors.New("invalid book request: owner id is required"))
	}

	run.progress(10, msgGeneratingStory)
	title, pages, err := p.stories.Generate(ctx, req)
	if err != nil {
		return run.fail(MsgStoryFailed, err)
	}
	run.advance(StateStoryGenerated)
	run.progress(25, msgStoryDone)

	run.progress(30, msgModerating)
	if !p.moderator.Moderate(ctx, StoryText(pages)) {
		return run.fail(MsgContentRejected, models.NewModerationRejection("moderate story"))
	}
	run.advance(StateModerated)
	run.progress(40, msgModerationDone)

	run.progress(45, msgGeneratingImages)
	descriptions := make([]string, len(pages))
	for i, page := range pages {
		descriptions[i] = page.ImageDescription
	}
	urls, err := p.images.Generate(ctx, descriptions, req.Age)
	if err != nil {
		return run.fail(MsgImagesFailed, err)
	}
	if len(urls) != len(pages) {
		return run.fail(MsgImagesFailed, models.NewGenerationError("generate images",
			fmt.Errorf("got %d images for %d pages", len(urls), len(pages))))
	}
	run.advance(StateImagesGenerated)
	run.progress(60, msgImagesDone)

	enriched := MergeImages(pages, urls)

	run.progress(70, msgRendering)
	doc, err := p.renderer.Render(ctx, title, enriched, req.Age)
	if err != nil {
		return run.fail(MsgRenderFailed, err)
	}
	run.advance(StateDocumentRendered)
	run.progress(80, msgRendered)

	book, err := p.persist(ctx, run, ownerID, title, enriched, req.Age, doc)
	if err != nil {
		return run.fail(MsgSaveFailed, err)
	}
	run.advance(StatePersisted)

	run.advance(StateCompleted)
	run.emit(models.ProgressEvent{Progress: 100, Status: msgCompleted, Redirect: "/api/books/" + book.ID})
	run.logger.Info("Book created",
		zap.String("book_id", book.ID),
		zap.String("title", book.Title),
		zap.Int("pages", len(enriched)),
		zap.Duration("took", time.Since(startTime)))
	return Result{State: StateCompleted, Book: book}
}

// persist writes the document and then the book record. A document written
// before a failed insert is removed.
func (p *BookProcessor) persist(ctx context.Context, run *bookRun, ownerID, title string, pages []models.StoryPage, age int, doc []byte) (*models.Book, error) {
	content, err := models.EncodePages(pages)
	if err != nil {
		return nil, models.NewPersistenceError("encode pages", err)
	}

	bookID := uuid.NewString()
	path, err := p.storer.Store(ctx, ownerID, bookID, title, doc)
	if err != nil {
		return nil, models.NewPersistenceError("store document", err)
	}
	run.progress(90, msgSaved)

	book := &models.Book{
		ID:           bookID,
		UserID:       ownerID,
		Title:        title,
		Content:      content,
		ArtifactPath: path,
		Age:          age,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.books.CreateBook(ctx, book); err != nil {
		p.removeOrphan(path)
		return nil, models.NewPersistenceError("create book", err)
	}
	return book, nil
}

// removeOrphan deletes a stored document whose record was never written.
// Removal does not observe cancellation, so it still runs after the client
// has gone away.
func (p *BookProcessor) removeOrphan(path string) {
	if err := p.storer.Remove(path); err != nil {
		p.logger.Error("Failed to remove orphaned document", zap.String("path", path), zap.Error(err))
		return
	}
	p.logger.Warn("Removed orphaned document", zap.String("path", path))
}

// StoryText joins page texts with single spaces for moderation.
func StoryText(pages []models.StoryPage) string {
	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}
	return strings.Join(texts, " ")
}

// MergeImages returns a copy of pages with urls assigned by position.
func MergeImages(pages []models.StoryPage, urls []string) []models.StoryPage {
	merged := make([]models.StoryPage, len(pages))
	copy(merged, pages)
	for i := range merged {
		if i < len(urls) {
			merged[i].ImageURL = urls[i]
		}
	}
	return merged
}

// bookRun tracks one execution.
type bookRun struct {
	p      *BookProcessor
	emit   func(models.ProgressEvent)
	state  State
	logger *zap.Logger
}

func (r *bookRun) progress(pct int, status string) {
	r.emit(models.ProgressEvent{Progress: pct, Status: status})
}

func (r *bookRun) advance(s State) {
	r.state = s
	r.logger.Debug("Book run advanced", zap.Stringer("state", s))
}

func (r *bookRun) fail(status string, err error) Result {
	r.logger.Error("Book creation failed",
		zap.Stringer("reached", r.state),
		zap.String("status", status),
		zap.Error(err))
	r.emit(models.ProgressEvent{Progress: 100, Status: status})
	return Result{State: StateFailed, Err: err, FailedAt: r.state}
}
