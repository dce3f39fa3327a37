package moderation

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
)

// OpenAIClassifier calls the OpenAI moderations endpoint.
type OpenAIClassifier struct {
	client openai.Client
}

func NewOpenAIClassifier(client openai.Client) *OpenAIClassifier {
	return &OpenAIClassifier{client: client}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Flags, error) {
	resp, err := c.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("openai: empty moderation results")
	}

	cats := resp.Results[0].Categories
	return Flags{
		"harassment":             cats.Harassment,
		"harassment/threatening": cats.HarassmentThreatening,
		CategoryHate:             cats.Hate,
		"hate/threatening":       cats.HateThreatening,
		CategorySelfHarm:         cats.SelfHarm,
		"self-harm/instructions": cats.SelfHarmInstructions,
		"self-harm/intent":       cats.SelfHarmIntent,
		CategorySexual:           cats.Sexual,
		CategorySexualMinors:     cats.SexualMinors,
		CategoryViolence:         cats.Violence,
		"violence/graphic":       cats.ViolenceGraphic,
	}, nil
}

// AllowAllClassifier flags nothing. It backs the offline "mock" provider.
type AllowAllClassifier struct{}

func (AllowAllClassifier) Classify(context.Context, string) (Flags, error) {
	return Flags{}, nil
}
