package api

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vincent-petithory/dataurl"

	"github.com/coreybb/storybook/datastore"
	"github.com/coreybb/storybook/ebook"
	"github.com/coreybb/storybook/models"
	"github.com/coreybb/storybook/processing"
	rh "github.com/coreybb/storybook/route-handlers"
	"github.com/coreybb/storybook/storage"
)

type stubStories struct{}

func (stubStories) Generate(ctx context.Context, req models.BookRequest) (string, []models.StoryPage, error) {
	return "Mia Finds the Moon", []models.StoryPage{
		{Text: "Mia looked for the moon.", ImageDescription: "a girl at a window"},
		{Text: "She found it in the pond.", ImageDescription: "the moon in a pond"},
	}, nil
}

type stubModerator struct{ allow bool }

func (m stubModerator) Moderate(ctx context.Context, text string) bool { return m.allow }

type stubImages struct{ url string }

func (s stubImages) Generate(ctx context.Context, descriptions []string, age int) ([]string, error) {
	urls := make([]string, len(descriptions))
	for i := range urls {
		urls[i] = s.url
	}
	return urls, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, title string, pages []models.StoryPage, age int) ([]byte, error) {
	return []byte("%PDF-1.3 " + title), nil
}

type testServer struct {
	handler http.Handler
	db      *sql.DB
	books   *datastore.BookRepository
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return dataurl.New(buf.Bytes(), "image/png").String()
}

func newTestServer(t *testing.T, allow bool) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := datastore.Open(ctx, datastore.DriverSQLite, "file::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, datastore.EnsureSchema(ctx, db))

	userRepo := datastore.NewUserRepository(db)
	bookRepo := datastore.NewBookRepository(db)
	storer := storage.NewLocalFileStorer(t.TempDir(), nil)

	processor, err := processing.NewBookProcessor(stubStories{}, stubModerator{allow: allow}, stubImages{url: pngDataURL(t)}, stubRenderer{}, storer, bookRepo, nil)
	require.NoError(t, err)
	epubGen, err := ebook.NewEPUBGenerator(ebook.NewHTTPFetcher(0), nil)
	require.NoError(t, err)

	handler := SetupRoutes(
		rh.NewUserHandler(userRepo),
		rh.NewBookHandler(bookRepo, processor, storer, epubGen, nil),
		userRepo,
		nil,
	)
	return &testServer{handler: handler, db: db, books: bookRepo}
}

func (s *testServer) do(t *testing.T, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createUser(t *testing.T, email string) (models.User, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", "", `{"email":"`+email+`","username":"reader"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.User, resp.Token
}

func readEvents(t *testing.T, body *bytes.Buffer) []models.ProgressEvent {
	t.Helper()
	var events []models.ProgressEvent
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		var ev models.ProgressEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	return events
}

const validBook = `{"educational_objective":"patience","age":6,"characters":"Mia <b>the cat</b>","setting":"a farm","book_length":"short"}`

func TestHealthz(t *testing.T) {
	s := newTestServer(t, true)
	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t, true)
	user, token := s.createUser(t, "mia@example.com")
	assert.Equal(t, "reader", user.Username)
	assert.NotContains(t, s.do(t, http.MethodGet, "/api/users/me", token, "").Body.String(), "token_hash")

	rec := s.do(t, http.MethodPost, "/api/users", "", `{"email":"mia@example.com","username":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users", "", `{"email":"not-an-email","username":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/me", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, user.ID, me.ID)
}

func TestCreateBookRejectsInvalidInputBeforeStreaming(t *testing.T) {
	s := newTestServer(t, true)
	_, token := s.createUser(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/api/books", token, `{"educational_objective":"x","age":2,"characters":"c","setting":"s","book_length":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = s.do(t, http.MethodPost, "/api/books", token, `{"age":"six"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookStreamsAndPersists(t *testing.T) {
	s := newTestServer(t, true)
	_, token := s.createUser(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/api/books", token, validBook)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	events := readEvents(t, rec.Body)
	require.Len(t, events, 11)
	last := events[len(events)-1]
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, "Book created successfully!", last.Status)
	require.True(t, strings.HasPrefix(last.Redirect, "/api/books/"))

	rec = s.do(t, http.MethodGet, last.Redirect, token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view models.BookView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Mia Finds the Moon", view.Title)
	assert.Equal(t, 6, view.Age)
	require.Len(t, view.Pages, 2)
	assert.True(t, strings.HasPrefix(view.Pages[0].ImageURL, "data:image/png"))

	rec = s.do(t, http.MethodGet, "/api/books", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, view.ID, list[0].ID)

	rec = s.do(t, http.MethodGet, last.Redirect+"/download", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "book_")
	assert.Equal(t, "%PDF-1.3 Mia Finds the Moon", rec.Body.String())

	rec = s.do(t, http.MethodGet, last.Redirect+"/download?format=epub", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/epub+zip", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = s.do(t, http.MethodGet, last.Redirect+"/download?format=mobi", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookModerationRejection(t *testing.T) {
	s := newTestServer(t, false)
	user, token := s.createUser(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/api/books", token, validBook)
	require.Equal(t, http.StatusOK, rec.Code)
	events := readEvents(t, rec.Body)
	last := events[len(events)-1]
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, processing.MsgContentRejected, last.Status)
	assert.Empty(t, last.Redirect)

	books, err := s.books.GetBooksByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestGetBookAccessRules(t *testing.T) {
	s := newTestServer(t, true)
	owner, ownerToken := s.createUser(t, "owner@example.com")
	_, otherToken := s.createUser(t, "other@example.com")

	empty := &models.Book{ID: uuid.NewString(), UserID: owner.ID, Title: "Blank", ArtifactPath: "books/none.pdf", Age: 7}
	require.NoError(t, s.books.CreateBook(context.Background(), empty))

	rec := s.do(t, http.MethodGet, "/api/books/"+uuid.NewString(), ownerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/books/not-a-uuid", ownerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/books/"+empty.ID, otherToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/books/"+empty.ID, ownerToken, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/books/"+empty.ID+"/download", ownerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadEPUBWithExpiredImages(t *testing.T) {
	expired := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AuthenticationFailed", http.StatusForbidden)
	}))
	t.Cleanup(expired.Close)

	s := newTestServer(t, true)
	owner, token := s.createUser(t, "old@example.com")
	content, err := models.EncodePages([]models.StoryPage{
		{Text: "Long ago a fox slept.", ImageDescription: "a fox", ImageURL: expired.URL + "/img-1.png"},
	})
	require.NoError(t, err)
	old := &models.Book{ID: uuid.NewString(), UserID: owner.ID, Title: "Old Fox", Content: content, ArtifactPath: "books/old.pdf", Age: 6}
	require.NoError(t, s.books.CreateBook(context.Background(), old))

	rec := s.do(t, http.MethodGet, "/api/books/"+old.ID+"/download?format=epub", token, "")
	assert.Equal(t, http.StatusGone, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "download the PDF instead")
}
