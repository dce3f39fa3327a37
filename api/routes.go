package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	rh "github.com/coreybb/storybook/route-handlers"
	"github.com/coreybb/storybook/webutil"
)

const (
	apiBasePath   = "/api"
	usersBasePath = "/users"
	booksBasePath = "/books"
)

const (
	meSubPath       = "/me"
	downloadSubPath = "/download"
)

const (
	paramID = "id" // General parameter name for resource IDs
)

// requestTimeout bounds every request except the book creation stream,
// which runs as long as the pipeline does.
const requestTimeout = 60 * time.Second

func SetupRoutes(
	userHandler *rh.UserHandler,
	bookHandler *rh.BookHandler,
	users UserTokenLookup,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ZapLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8)) // Default Content-Type

	r.Route(apiBasePath, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post(usersBasePath, webutil.MakeHandler(userHandler.HandleCreateUser))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireUser(users))
			configureBookStreamRoute(r, bookHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				configureUserRoutes(r, userHandler)
				configureBookRoutes(r, bookHandler)
			})
		})
	})

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- User Routes ---
func configureUserRoutes(r chi.Router, handler *rh.UserHandler) {
	r.Get(usersBasePath+meSubPath, webutil.MakeHandler(handler.HandleGetCurrentUser)) // GET /users/me
}

// --- Book Routes ---
func configureBookStreamRoute(r chi.Router, handler *rh.BookHandler) {
	r.Post(booksBasePath, webutil.MakeHandler(handler.HandleCreateBook)) // NDJSON progress stream
}

func configureBookRoutes(r chi.Router, handler *rh.BookHandler) {
	specificBookPath := pathWithParam(booksBasePath, paramID) // e.g., "/books/{id}"

	r.Get(booksBasePath, webutil.MakeHandler(handler.HandleGetBooks))
	r.Get(specificBookPath, webutil.MakeHandler(handler.HandleGetBook))
	r.Get(specificBookPath+downloadSubPath, webutil.MakeHandler(handler.HandleDownloadBook)) // ?format=pdf|epub
}

// --- Utility Functions ---

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}
