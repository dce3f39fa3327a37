package webutil

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreybb/storybook/models"
)

func TestMakeHandlerMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"http error", ErrForbidden("You do not own this book"), http.StatusForbidden, "You do not own this book"},
		{"wrapped http error", fmt.Errorf("ctx: %w", ErrConflict("")), http.StatusConflict, "Conflict"},
		{"no rows", fmt.Errorf("book not found: %w", sql.ErrNoRows), http.StatusNotFound, "Resource not found"},
		{"internal", errors.New("db exploded"), http.StatusInternalServerError, "Internal Server Error"},
		{"unprocessable wrap", ErrUnprocessableEntityWrap("Book content is unreadable", errors.New("bad json")), http.StatusUnprocessableEntity, "Book content is unreadable"},
		{"unprocessable default", ErrUnprocessableEntityWrap("", errors.New("bad json")), http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{"gone", ErrGoneWrap("", models.ErrImageUnavailable), http.StatusGone, "Resource is no longer available"},
		{"internal wrap hides detail", ErrInternalServerWrap("open stream", errors.New("secret")), http.StatusInternalServerError, "Internal Server Error"},
		{"moderation", fmt.Errorf("create: %w", models.NewModerationRejection("moderate story")), http.StatusUnprocessableEntity, "Content was rejected by moderation"},
		{"generation", models.NewGenerationError("generate story", errors.New("quota")), http.StatusBadGateway, "Upstream service failed"},
		{"render expired image", models.NewRenderError("embed cover image", fmt.Errorf("status 403: %w", models.ErrImageUnavailable)), http.StatusGone, "Book images are no longer available"},
		{"render", models.NewRenderError("write epub", errors.New("disk")), http.StatusInternalServerError, "Internal Server Error"},
		{"persistence", models.NewPersistenceError("create book", errors.New("db")), http.StatusInternalServerError, "Internal Server Error"},
		{"http error wins over pipeline", ErrConflict("taken"), http.StatusConflict, "taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := MakeHandler(func(w http.ResponseWriter, r *http.Request) error { return tt.err })
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, ContentTypeJSONUTF8, rec.Header().Get(HeaderContentType))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestHTTPErrorKeepsCause(t *testing.T) {
	cause := errors.New("bad json")
	err := ErrUnprocessableEntityWrap("Book content is unreadable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Book content is unreadable", err.Error())

	assert.Nil(t, pipelineHTTPError(errors.New("plain")))
	assert.NoError(t, ErrBadRequest("x").Unwrap())
}

func TestMakeHandlerDoesNotOverwriteWrittenResponse(t *testing.T) {
	h := MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		RespondWithJSON(w, http.StatusAccepted, map[string]string{"ok": "yes"})
		return errors.New("late failure")
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}

func TestNDJSONWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, err := NewNDJSONWriter(rec)
	require.NoError(t, err)

	require.NoError(t, stream.Write(models.ProgressEvent{Progress: 5, Status: "Starting book creation..."}))
	require.NoError(t, stream.Write(models.ProgressEvent{Progress: 100, Status: "done", Redirect: "/api/books/1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeNDJSON, rec.Header().Get(HeaderContentType))
	assert.True(t, rec.Flushed)

	var lines []models.ProgressEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var ev models.ProgressEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines = append(lines, ev)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 5, lines[0].Progress)
	assert.Equal(t, "/api/books/1", lines[1].Redirect)
}

func TestTokensAndHashes(t *testing.T) {
	a, err := GenerateRandomToken(16)
	require.NoError(t, err)
	b, err := GenerateRandomToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	_, err = GenerateRandomToken(0)
	assert.Error(t, err)

	h1, err := GenerateHash(a)
	require.NoError(t, err)
	h2, err := GenerateHash(a)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), &models.User{ID: "u1"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
