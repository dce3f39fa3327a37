package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coreybb/storybook/models"
)

var codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ParsePages validates the model output and decodes it into story pages.
func ParsePages(raw string) ([]models.StoryPage, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil, errors.New("model returned empty story content")
	}
	if m := codeFenceRe.FindStringSubmatch(content); len(m) == 2 {
		content = m[1]
	}

	var pages []models.StoryPage
	if err := json.Unmarshal([]byte(content), &pages); err != nil {
		return nil, fmt.Errorf("story content is not a JSON array of pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("story content has no pages")
	}
	for i := range pages {
		pages[i].Text = strings.TrimSpace(pages[i].Text)
		pages[i].ImageDescription = strings.TrimSpace(pages[i].ImageDescription)
		pages[i].ImageURL = ""
		if pages[i].Text == "" {
			return nil, fmt.Errorf("page %d has no text", i+1)
		}
	}
	return pages, nil
}

// CleanTitle trims whitespace and wrapping quotes from a generated title.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.TrimPrefix(title, "Title:")
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"'“”*")
	return strings.TrimSpace(title)
}
