package routehandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coreybb/storybook/datastore"
	"github.com/coreybb/storybook/models"
	"github.com/coreybb/storybook/webutil"
)

// apiTokenBytes is the entropy of issued API tokens.
const apiTokenBytes = 32

type UserHandler struct {
	Repo *datastore.UserRepository
}

func NewUserHandler(repo *datastore.UserRepository) *UserHandler {
	return &UserHandler{Repo: repo}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// createUserResponse carries the raw token. It is shown only once.
type createUserResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) error {
	var requestData createUserRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	newUser, token, err := NewUser(requestData.Email, requestData.Username)
	if err != nil {
		return webutil.ErrBadRequestWrap(err.Error(), err)
	}

	if err := h.Repo.CreateUser(r.Context(), newUser); err != nil {
		if errors.Is(err, datastore.ErrDuplicate) {
			return webutil.ErrConflict("A user with this email already exists")
		}
		return fmt.Errorf("failed to create user %s: %w", newUser.Email, err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, createUserResponse{User: *newUser, Token: token})
	return nil
}

// HandleGetCurrentUser returns the authenticated caller.
func (h *UserHandler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) error {
	user, ok := webutil.UserFromContext(r.Context())
	if !ok {
		return webutil.ErrUnauthorized("")
	}
	webutil.RespondWithJSON(w, http.StatusOK, user)
	return nil
}

// NewUser validates the inputs and builds a user with a fresh API token.
// The returned token is the raw value; only its hash is kept on the user.
func NewUser(email, username string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	username = sanitizeField(username)
	if email == "" {
		return nil, "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, "", fmt.Errorf("invalid email address %q", email)
	}
	if username == "" {
		return nil, "", errors.New("username is required")
	}

	token, err := webutil.GenerateRandomToken(apiTokenBytes)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate api token: %w", err)
	}
	tokenHash, err := webutil.GenerateHash(token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash api token: %w", err)
	}

	return &models.User{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Email:     strings.ToLower(email),
		Username:  username,
		TokenHash: tokenHash,
	}, token, nil
}
