package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockTextGenerator answers without calling a model, for local runs.
// Title prompts get a fixed title; anything else gets a five-page story.
type MockTextGenerator struct{}

func (MockTextGenerator) Complete(_ context.Context, req TextRequest) (string, error) {
	if strings.Contains(req.Prompt, "generate a short, catchy title") {
		return "The Little Seed That Could", nil
	}

	type page struct {
		Text             string `json:"text"`
		ImageDescription string `json:"image_description"`
	}
	pages := make([]page, 0, 5)
	for i := 1; i <= 5; i++ {
		pages = append(pages, page{
			Text:             fmt.Sprintf("Page %d: the friends took one more small step together.", i),
			ImageDescription: fmt.Sprintf("Two friends walking along a sunny path, scene %d", i),
		})
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
