package webutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coreybb/storybook/models"
)

// Default public messages, used when a constructor is given an empty message.
const (
	msgBadRequest          = "Bad Request"
	msgNotFound            = "Resource not found"
	msgInternalServer      = "Internal Server Error"
	msgUnauthorized        = "Unauthorized"
	msgForbidden           = "Forbidden"
	msgConflict            = "Conflict"
	msgGone                = "Resource is no longer available"
	msgUnprocessableEntity = "Unprocessable Entity"
	msgBadGateway          = "Upstream service failed"
)

// HTTPError is an error a handler returns to pick the response status.
// Message is sent to the client; the wrapped cause is only logged.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

func (he HTTPError) Unwrap() error {
	return he.cause
}

func newHTTPError(code int, message, fallback string, cause error) *HTTPError {
	if message == "" {
		message = fallback
	}
	return &HTTPError{cause: cause, Code: code, Message: message}
}

func ErrBadRequest(message string) *HTTPError {
	return newHTTPError(http.StatusBadRequest, message, msgBadRequest, nil)
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return newHTTPError(http.StatusBadRequest, message, msgBadRequest, cause)
}

func ErrUnauthorized(message string) *HTTPError {
	return newHTTPError(http.StatusUnauthorized, message, msgUnauthorized, nil)
}

func ErrForbidden(message string) *HTTPError {
	return newHTTPError(http.StatusForbidden, message, msgForbidden, nil)
}

func ErrNotFound(message string) *HTTPError {
	return newHTTPError(http.StatusNotFound, message, msgNotFound, nil)
}

func ErrNotFoundWrap(message string, cause error) *HTTPError {
	return newHTTPError(http.StatusNotFound, message, msgNotFound, cause)
}

func ErrConflict(message string) *HTTPError {
	return newHTTPError(http.StatusConflict, message, msgConflict, nil)
}

// ErrGoneWrap reports a resource that existed but can no longer be produced,
// such as an export whose source images have expired.
func ErrGoneWrap(message string, cause error) *HTTPError {
	return newHTTPError(http.StatusGone, message, msgGone, cause)
}

func ErrUnprocessableEntity(message string) *HTTPError {
	return newHTTPError(http.StatusUnprocessableEntity, message, msgUnprocessableEntity, nil)
}

func ErrUnprocessableEntityWrap(message string, cause error) *HTTPError {
	return newHTTPError(http.StatusUnprocessableEntity, message, msgUnprocessableEntity, cause)
}

// ErrInternalServerWrap always sends the generic message; message only
// annotates the logged cause.
func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return newHTTPError(http.StatusInternalServerError, "", msgInternalServer, fmt.Errorf("%s: %w", message, cause))
}

// pipelineHTTPError maps a book-pipeline failure to a response. Errors
// outside the pipeline return nil.
func pipelineHTTPError(err error) *HTTPError {
	var pe *models.PipelineError
	if !errors.As(err, &pe) {
		return nil
	}
	switch pe.Kind {
	case models.KindModeration:
		return newHTTPError(http.StatusUnprocessableEntity, "Content was rejected by moderation", "", err)
	case models.KindGeneration:
		return newHTTPError(http.StatusBadGateway, "", msgBadGateway, err)
	case models.KindRender:
		if errors.Is(err, models.ErrImageUnavailable) {
			return newHTTPError(http.StatusGone, "Book images are no longer available", "", err)
		}
		return newHTTPError(http.StatusInternalServerError, "", msgInternalServer, err)
	default:
		return newHTTPError(http.StatusInternalServerError, "", msgInternalServer, err)
	}
}
