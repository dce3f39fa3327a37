package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/coreybb/storybook/models"
	"github.com/coreybb/storybook/webutil"
)

const bearerPrefix = "Bearer "

// UserTokenLookup resolves API token hashes to users.
type UserTokenLookup interface {
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
}

// RequireUser authenticates the bearer token and stores the user in the
// request context.
func RequireUser(users UserTokenLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(webutil.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				webutil.RespondWithError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
			if token == "" {
				webutil.RespondWithError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			tokenHash, err := webutil.GenerateHash(token)
			if err != nil {
				webutil.RespondWithError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			user, err := users.GetUserByTokenHash(r.Context(), tokenHash)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					webutil.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				zap.L().Error("Failed to authenticate request", zap.String("path", r.URL.Path), zap.Error(err))
				webutil.RespondWithError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			next.ServeHTTP(w, r.WithContext(webutil.WithUser(r.Context(), user)))
		})
	}
}

// ZapLogger logs each request through logger.
func ZapLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return middleware.RequestLogger(&zapLogFormatter{logger: logger.Named("http")})
}
