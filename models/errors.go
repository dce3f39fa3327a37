package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent is returned when a persisted book has no page content.
	ErrEmptyContent = errors.New("book content is missing")
	// ErrContentRejected is the cause carried by moderation rejections.
	ErrContentRejected = errors.New("content rejected by moderation")
	// ErrImageUnavailable means a stored image URL could not be downloaded,
	// typically because the provider's link has expired.
	ErrImageUnavailable = errors.New("image is no longer available")
)

// ErrorKind classifies failures of the book-creation pipeline.
type ErrorKind string

const (
	KindGeneration  ErrorKind = "generation"
	KindModeration  ErrorKind = "moderation"
	KindRender      ErrorKind = "render"
	KindPersistence ErrorKind = "persistence"
)

// PipelineError is a stage failure. Op names the failing operation,
// e.g. "generate story" or "fetch image".
type PipelineError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func NewGenerationError(op string, err error) error {
	return &PipelineError{Kind: KindGeneration, Op: op, Err: err}
}

func NewModerationRejection(op string) error {
	return &PipelineError{Kind: KindModeration, Op: op, Err: ErrContentRejected}
}

func NewRenderError(op string, err error) error {
	return &PipelineError{Kind: KindRender, Op: op, Err: err}
}

func NewPersistenceError(op string, err error) error {
	return &PipelineError{Kind: KindPersistence, Op: op, Err: err}
}

// IsKind reports whether any error in err's chain is a PipelineError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
