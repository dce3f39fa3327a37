package webutil

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc signature.
// It executes the AppHandler and handles any returned error by logging appropriately
// and sending a standardized JSON error response.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		w := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
		err := handler(w, r)
		if err != nil {
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				// Pipeline failures that reach here unconverted still get a
				// status matching their kind.
				httpErr = pipelineHTTPError(err)
			}
			var publicMessage string
			var statusCode int

			switch {
			case httpErr != nil:
				statusCode = httpErr.Code
				publicMessage = httpErr.Message
				logLevel := zap.WarnLevel // Treat client errors as warnings server-side
				if statusCode >= 500 {
					logLevel = zap.ErrorLevel
				}
				fields := []zap.Field{
					zap.Int("code", httpErr.Code),
					zap.String("msg", httpErr.Message),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				}
				// Log the underlying cause if present and different from the public message
				if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != publicMessage {
					fields = append(fields, zap.NamedError("cause", cause))
				}
				zap.L().Log(logLevel, "Client error response", fields...)

			case errors.Is(err, sql.ErrNoRows):
				// Specific handling for sql.ErrNoRows from datastore layer -> 404 Not Found
				statusCode = http.StatusNotFound
				publicMessage = "Resource not found"
				zap.L().Info("Resource not found (sql.ErrNoRows)", zap.String("path", r.URL.Path), zap.String("method", r.Method), zap.Error(err))

			default:
				// Any other error is treated as an internal server error
				statusCode = http.StatusInternalServerError
				publicMessage = "Internal Server Error"
				zap.L().Error("Unhandled internal error", zap.String("path", r.URL.Path), zap.String("method", r.Method), zap.Error(err))
			}

			// Check if response headers have already been written by the handler
			// (which shouldn't happen if errors are returned correctly).
			if HasResponseWriterSentHeader(w) {
				zap.L().Warn("Handler returned error after writing response header",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Error(err),
				)
				// Cannot send another response, just log.
				return
			}

			// Send the standardized JSON error response
			RespondWithJSON(w, statusCode, map[string]string{"error": publicMessage})
		}
		// If err is nil, the handler is assumed to have written its own successful response.
	}
}
