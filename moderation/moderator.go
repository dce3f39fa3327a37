package moderation

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Category names as reported by the moderation service.
const (
	CategoryViolence     = "violence"
	CategorySexual       = "sexual"
	CategoryHate         = "hate"
	CategorySelfHarm     = "self-harm"
	CategorySexualMinors = "sexual/minors"
)

// SeriousCategories are rejected whenever flagged, whatever the score.
// Anything else the classifier flags is tolerated.
var SeriousCategories = []string{
	CategoryViolence,
	CategorySexual,
	CategoryHate,
	CategorySelfHarm,
	CategorySexualMinors,
}

// Flags maps category name to whether the classifier flagged it.
type Flags map[string]bool

// Classifier is the upstream moderation service.
type Classifier interface {
	Classify(ctx context.Context, text string) (Flags, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Flags, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (Flags, error) {
	return f(ctx, text)
}

// Moderator accepts or rejects generated story text.
type Moderator struct {
	classifier Classifier
	logger     *zap.Logger
}

func NewModerator(classifier Classifier, logger *zap.Logger) (*Moderator, error) {
	if classifier == nil {
		return nil, errors.New("moderation classifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Moderator{classifier: classifier, logger: logger.Named("moderation")}, nil
}

// Moderate reports whether text may be published. Classifier errors fail
// closed: the text is rejected and the error is only logged.
func (m *Moderator) Moderate(ctx context.Context, text string) bool {
	flags, err := m.classifier.Classify(ctx, text)
	if err != nil {
		m.logger.Error("Content moderation failed, rejecting", zap.Error(err))
		return false
	}
	for _, category := range SeriousCategories {
		if flags[category] {
			m.logger.Info("Content rejected", zap.String("category", category))
			return false
		}
	}
	return true
}
