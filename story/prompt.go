package story

import (
	"fmt"
	"strings"

	"github.com/coreybb/storybook/models"
)

var storyGuidelines = []string{
	"Focus on the theme of friendship and kindness.",
	"Ensure the content is age-appropriate and positive.",
	"Include gentle life lessons without being preachy.",
	"Avoid any scary, violent, or overly complex themes.",
	"Use simple language suitable for a %d-year-old.",
	"Make the story engaging, fun, and educational.",
	"Incorporate the educational objective seamlessly into the story.",
	"For each paragraph of the story, provide an image description that captures the essence of that part of the story.",
	"Alternate between story paragraphs and image descriptions.",
	"Each page should contain one paragraph and one image description.",
}

// BuildStoryPrompt renders the story-body prompt for req.
func BuildStoryPrompt(req models.BookRequest) string {
	pages := req.BookLength.PageRange().String()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate a child-friendly story for a %d-year-old with the following details:\n", req.Age)
	fmt.Fprintf(&sb, "Educational Objective: %s\n", req.EducationalObjective)
	fmt.Fprintf(&sb, "Characters: %s\n", req.Characters)
	fmt.Fprintf(&sb, "Setting: %s\n", req.Setting)
	fmt.Fprintf(&sb, "Book Length: %s pages\n\n", pages)

	sb.WriteString("Important guidelines:\n")
	for i, g := range storyGuidelines {
		if strings.Contains(g, "%d") {
			g = fmt.Sprintf(g, req.Age)
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, g)
	}

	sb.WriteString("\nFormat the output as a JSON array of objects, where each object represents a page with 'text' and 'image_description' properties. ")
	sb.WriteString("Output only the JSON array.\n\n")
	fmt.Fprintf(&sb, "The story should be approximately %s pages long.\n", pages)
	return sb.String()
}

// BuildTitlePrompt renders the prompt that derives a title from the raw story.
func BuildTitlePrompt(storyContent string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following story, generate a short, catchy title for a children's book:\n\n")
	sb.WriteString(storyContent)
	sb.WriteString("\n\nThe title should be appealing to children and reflect the main theme or characters of the story. ")
	sb.WriteString("Reply with the title only.\n")
	return sb.String()
}
