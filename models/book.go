package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StoryPage is one page of a generated book. ImageURL is filled in after
// the illustration stage.
type StoryPage struct {
	Text             string `json:"text"`
	ImageDescription string `json:"image_description"`
	ImageURL         string `json:"image_url,omitempty"`
}

type Book struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Content      string    `json:"-"` // JSON-encoded []StoryPage
	ArtifactPath string    `json:"artifact_path"`
	Age          int       `json:"age"`
	CreatedAt    time.Time `json:"created_at"`
}

// BookView is a Book with its content decoded, as returned to clients.
type BookView struct {
	Book
	Pages []StoryPage `json:"pages"`
}

// EncodePages serializes pages for the books.content column.
func EncodePages(pages []StoryPage) (string, error) {
	if pages == nil {
		pages = []StoryPage{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return "", fmt.Errorf("failed to encode pages: %w", err)
	}
	return string(b), nil
}

// DecodePages is the inverse of EncodePages.
func DecodePages(content string) ([]StoryPage, error) {
	var pages []StoryPage
	if err := json.Unmarshal([]byte(content), &pages); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	return pages, nil
}

// Pages decodes the book's stored content.
func (b *Book) Pages() ([]StoryPage, error) {
	if b.Content == "" {
		return nil, ErrEmptyContent
	}
	return DecodePages(b.Content)
}
