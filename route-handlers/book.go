package routehandlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coreybb/storybook/datastore"
	"github.com/coreybb/storybook/models"
	"github.com/coreybb/storybook/processing"
	"github.com/coreybb/storybook/storage"
	"github.com/coreybb/storybook/webutil"
)

const (
	formatPDF  = "pdf"
	formatEPUB = "epub"
)

// BookStarter launches a book creation run.
type BookStarter interface {
	Start(ctx context.Context, req models.BookRequest, ownerID string) (<-chan models.ProgressEvent, <-chan processing.Result)
}

// EPUBGenerator renders a persisted book as EPUB.
type EPUBGenerator interface {
	GenerateEPUB(ctx context.Context, book *models.Book, pages []models.StoryPage) ([]byte, error)
}

type BookHandler struct {
	Repo      *datastore.BookRepository
	Processor BookStarter
	Storer    storage.ArtifactStorer
	EPUB      EPUBGenerator
	logger    *zap.Logger
}

func NewBookHandler(repo *datastore.BookRepository, processor BookStarter, storer storage.ArtifactStorer, epub EPUBGenerator, logger *zap.Logger) *BookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookHandler{Repo: repo, Processor: processor, Storer: storer, EPUB: epub, logger: logger.Named("books")}
}

// HandleCreateBook validates the request, then streams progress events as
// NDJSON until the run ends. Errors after the stream starts are reported in
// the stream itself.
func (h *BookHandler) HandleCreateBook(w http.ResponseWriter, r *http.Request) error {
	user, ok := webutil.UserFromContext(r.Context())
	if !ok {
		return webutil.ErrUnauthorized("")
	}

	req, err := decodeBookRequest(r)
	if err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	if err := req.Validate(); err != nil {
		return webutil.ErrBadRequestWrap(err.Error(), err)
	}

	stream, err := webutil.NewNDJSONWriter(w)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to start progress stream", err)
	}

	events, results := h.Processor.Start(r.Context(), req, user.ID)
	var writeErr error
	for ev := range events {
		if writeErr != nil {
			continue
		}
		writeErr = stream.Write(ev)
	}
	res := <-results

	if writeErr != nil {
		h.logger.Warn("Client stopped reading progress stream", zap.String("user_id", user.ID), zap.Error(writeErr))
	}
	if res.State == processing.StateCompleted {
		h.logger.Info("Book stream completed", zap.String("user_id", user.ID), zap.String("book_id", res.Book.ID))
	} else {
		h.logger.Info("Book stream ended without a book",
			zap.String("user_id", user.ID),
			zap.Stringer("failed_at", res.FailedAt),
			zap.Error(res.Err))
	}
	return nil
}

// HandleGetBooks lists the caller's books, newest first.
func (h *BookHandler) HandleGetBooks(w http.ResponseWriter, r *http.Request) error {
	user, ok := webutil.UserFromContext(r.Context())
	if !ok {
		return webutil.ErrUnauthorized("")
	}
	books, err := h.Repo.GetBooksByUserID(r.Context(), user.ID)
	if err != nil {
		return fmt.Errorf("failed to retrieve books for user %s: %w", user.ID, err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, books)
	return nil
}

func (h *BookHandler) HandleGetBook(w http.ResponseWriter, r *http.Request) error {
	book, err := h.ownedBook(r)
	if err != nil {
		return err
	}
	pages, err := bookPages(book)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, models.BookView{Book: *book, Pages: pages})
	return nil
}

// HandleDownloadBook sends the stored PDF, or an EPUB built on demand.
func (h *BookHandler) HandleDownloadBook(w http.ResponseWriter, r *http.Request) error {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = formatPDF
	}
	if format != formatPDF && format != formatEPUB {
		return webutil.ErrBadRequest("format must be pdf or epub")
	}

	book, err := h.ownedBook(r)
	if err != nil {
		return err
	}

	if format == formatEPUB {
		pages, err := bookPages(book)
		if err != nil {
			return err
		}
		data, err := h.EPUB.GenerateEPUB(r.Context(), book, pages)
		if err != nil {
			if errors.Is(err, models.ErrImageUnavailable) {
				// Provider image links expire; the stored PDF keeps its images.
				return webutil.ErrGoneWrap("Book images are no longer available; download the PDF instead", err)
			}
			return fmt.Errorf("failed to generate epub for book %s: %w", book.ID, err)
		}
		setAttachmentHeaders(w, webutil.ContentTypeEPUB, "book_"+storage.Slugify(book.Title)+".epub", len(data))
		w.WriteHeader(http.StatusOK)
		_, err = w.Write(data)
		return err
	}

	if book.ArtifactPath == "" {
		return webutil.ErrNotFound("Book file not found")
	}
	rc, err := h.Storer.Open(book.ArtifactPath)
	if err != nil {
		return webutil.ErrNotFoundWrap("Book file not found", err)
	}
	defer rc.Close()

	setAttachmentHeaders(w, webutil.ContentTypePDF, filepath.Base(book.ArtifactPath), -1)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Failed to send book file", zap.String("book_id", book.ID), zap.Error(err))
	}
	return nil
}

// ownedBook loads the {id} book and checks the caller owns it.
func (h *BookHandler) ownedBook(r *http.Request) (*models.Book, error) {
	user, ok := webutil.UserFromContext(r.Context())
	if !ok {
		return nil, webutil.ErrUnauthorized("")
	}
	bookID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(bookID); err != nil {
		return nil, webutil.ErrNotFound("Book not found")
	}

	book, err := h.Repo.GetBookByID(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webutil.ErrNotFound("Book not found")
		}
		return nil, fmt.Errorf("failed to retrieve book %s: %w", bookID, err)
	}
	if book.UserID != user.ID {
		return nil, webutil.ErrForbidden("You do not have access to this book")
	}
	return book, nil
}

func bookPages(book *models.Book) ([]models.StoryPage, error) {
	pages, err := book.Pages()
	if err != nil {
		if errors.Is(err, models.ErrEmptyContent) {
			return nil, webutil.ErrUnprocessableEntity("Book content is missing")
		}
		return nil, webutil.ErrUnprocessableEntityWrap("Book content is unreadable", err)
	}
	return pages, nil
}

func setAttachmentHeaders(w http.ResponseWriter, contentType, filename string, size int) {
	w.Header().Set(webutil.HeaderContentType, contentType)
	w.Header().Set(webutil.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.Itoa(size))
	}
}

// decodeBookRequest accepts a JSON body or a urlencoded form and strips
// markup from the free-text fields.
func decodeBookRequest(r *http.Request) (models.BookRequest, error) {
	var req models.BookRequest
	defer r.Body.Close()

	if strings.HasPrefix(r.Header.Get(webutil.HeaderContentType), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		age, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("age")))
		if err != nil {
			return req, fmt.Errorf("age must be a number")
		}
		req = models.BookRequest{
			EducationalObjective: r.PostForm.Get("educational_objective"),
			Age:                  age,
			Characters:           r.PostForm.Get("characters"),
			Setting:              r.PostForm.Get("setting"),
			BookLength:           models.BookLength(r.PostForm.Get("book_length")),
		}
	} else {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return req, err
		}
	}

	req.EducationalObjective = sanitizeField(req.EducationalObjective)
	req.Characters = sanitizeField(req.Characters)
	req.Setting = sanitizeField(req.Setting)
	req.BookLength = models.BookLength(strings.ToLower(strings.TrimSpace(string(req.BookLength))))
	return req, nil
}
