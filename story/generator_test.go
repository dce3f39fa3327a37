package story

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreybb/storybook/generation"
	"github.com/coreybb/storybook/models"
)

const twoPages = `[
  {"text": "Mia planted a seed.", "image_description": "a girl kneeling in a garden"},
  {"text": "The seed grew tall.", "image_description": "a sunflower taller than Mia"}
]`

func testRequest() models.BookRequest {
	return models.BookRequest{
		EducationalObjective: "patience",
		Age:                  6,
		Characters:           "Mia",
		Setting:              "a backyard garden",
		BookLength:           models.BookLengthShort,
	}
}

// scripted answers story prompts with story and title prompts with title.
func scripted(story, title string, calls *[]generation.TextRequest) generation.TextGenerator {
	return generation.TextGeneratorFunc(func(_ context.Context, req generation.TextRequest) (string, error) {
		*calls = append(*calls, req)
		if strings.HasPrefix(req.Prompt, "Based on the following story") {
			return title, nil
		}
		return story, nil
	})
}

func TestGenerateReturnsTitleAndPages(t *testing.T) {
	var calls []generation.TextRequest
	g, err := NewGenerator(scripted(twoPages, "  \"Mia's Garden\"\n", &calls), Options{}, nil)
	require.NoError(t, err)

	title, pages, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Mia's Garden", title)
	require.Len(t, pages, 2)
	assert.Equal(t, "Mia planted a seed.", pages[0].Text)
	assert.Equal(t, "a sunflower taller than Mia", pages[1].ImageDescription)

	require.Len(t, calls, 2)
	assert.Equal(t, DefaultStoryModel, calls[0].Model)
	assert.Equal(t, DefaultStoryMaxTokens, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "Book Length: 5-10 pages")
	assert.Contains(t, calls[0].Prompt, "suitable for a 6-year-old")
	assert.Equal(t, DefaultTitleModel, calls[1].Model)
	assert.Equal(t, DefaultTitleMaxTokens, calls[1].MaxTokens)
	assert.Contains(t, calls[1].Prompt, twoPages, "title is derived from the raw story")
}

func TestGenerateToleratesCodeFence(t *testing.T) {
	var calls []generation.TextRequest
	g, err := NewGenerator(scripted("```json\n"+twoPages+"\n```", "Grow", &calls), Options{StoryModel: "custom"}, nil)
	require.NoError(t, err)

	_, pages, err := g.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Equal(t, "custom", calls[0].Model)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name  string
		llm   generation.TextGenerator
		errOp string
	}{
		{
			name: "upstream error",
			llm: generation.TextGeneratorFunc(func(context.Context, generation.TextRequest) (string, error) {
				return "", errors.New("503 service unavailable")
			}),
			errOp: "generate story",
		},
		{
			name: "empty content",
			llm: generation.TextGeneratorFunc(func(context.Context, generation.TextRequest) (string, error) {
				return "   ", nil
			}),
			errOp: "parse story",
		},
		{
			name: "not json",
			llm: generation.TextGeneratorFunc(func(context.Context, generation.TextRequest) (string, error) {
				return "Once upon a time...", nil
			}),
			errOp: "parse story",
		},
		{
			name: "title error",
			llm: generation.TextGeneratorFunc(func(_ context.Context, req generation.TextRequest) (string, error) {
				if req.MaxTokens == DefaultTitleMaxTokens {
					return "", errors.New("timeout")
				}
				return twoPages, nil
			}),
			errOp: "generate title",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.llm, Options{}, nil)
			require.NoError(t, err)

			_, _, err = g.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.KindGeneration))

			var pe *models.PipelineError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.errOp, pe.Op)
		})
	}
}

func TestParsePages(t *testing.T) {
	_, err := ParsePages("[]")
	assert.EqualError(t, err, "story content has no pages")

	_, err = ParsePages(`[{"text": "", "image_description": "x"}]`)
	assert.EqualError(t, err, "page 1 has no text")

	_, err = ParsePages(`{"text": "a"}`)
	assert.Error(t, err)

	pages, err := ParsePages(`[{"text": " hi ", "image_description": " sky ", "image_url": "http://stale"}]`)
	require.NoError(t, err)
	assert.Equal(t, models.StoryPage{Text: "hi", ImageDescription: "sky"}, pages[0])
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "The Brave Bee", CleanTitle("Title: \"The Brave Bee\"\n"))
	assert.Equal(t, "Sunny Days", CleanTitle("**Sunny Days**"))
	assert.Equal(t, "", CleanTitle(" \"\" "))
}

func TestNewGeneratorRequiresClient(t *testing.T) {
	_, err := NewGenerator(nil, Options{}, nil)
	assert.Error(t, err)
}

func TestBuildStoryPromptLongerBook(t *testing.T) {
	req := testRequest()
	req.Age = 11
	req.BookLength = models.BookLengthLong
	prompt := BuildStoryPrompt(req)
	assert.Contains(t, prompt, "for a 11-year-old")
	assert.Contains(t, prompt, "approximately 21-30 pages")
	assert.Contains(t, prompt, "10. Each page should contain one paragraph and one image description.")
}

func TestBuildStoryPromptMixedCaseLength(t *testing.T) {
	req := testRequest()
	req.BookLength = "Medium"
	require.NoError(t, req.Validate())
	prompt := BuildStoryPrompt(req)
	assert.Contains(t, prompt, "Book Length: 11-20 pages")
	assert.Contains(t, prompt, "approximately 11-20 pages")
	assert.NotContains(t, prompt, "0-0")
}
