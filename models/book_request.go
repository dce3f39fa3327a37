package models

import (
	"fmt"
	"strings"
)

// BookLength defines the set of allowed length categories for a book.
type BookLength string

const (
	BookLengthShort  BookLength = "short"
	BookLengthMedium BookLength = "medium"
	BookLengthLong   BookLength = "long"
)

// PageRange is an inclusive page-count range.
type PageRange struct {
	Min int
	Max int
}

func (p PageRange) String() string {
	return fmt.Sprintf("%d-%d", p.Min, p.Max)
}

// Contains reports whether n falls within the range.
func (p PageRange) Contains(n int) bool {
	return n >= p.Min && n <= p.Max
}

var pageRanges = map[BookLength]PageRange{
	BookLengthShort:  {Min: 5, Max: 10},
	BookLengthMedium: {Min: 11, Max: 20},
	BookLengthLong:   {Min: 21, Max: 30},
}

// IsValidBookLength checks if the provided string is a valid BookLength.
// It returns the typed BookLength and true if valid, otherwise an empty BookLength and false.
func IsValidBookLength(s string) (BookLength, bool) {
	bl := BookLength(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := pageRanges[bl]; !ok {
		return "", false
	}
	return bl, true
}

// PageRange returns the page-count range for the length, ignoring case and
// surrounding space. Unknown lengths return the zero range.
func (l BookLength) PageRange() PageRange {
	bl, _ := IsValidBookLength(string(l))
	return pageRanges[bl]
}

// BookRequest holds the parameters a user submits to generate a book.
type BookRequest struct {
	EducationalObjective string     `json:"educational_objective"`
	Age                  int        `json:"age"`
	Characters           string     `json:"characters"`
	Setting              string     `json:"setting"`
	BookLength           BookLength `json:"book_length"`
}

// Normalized returns a copy with the book length folded to its canonical
// lowercase form. Unknown lengths are left as given so Validate can report them.
func (r BookRequest) Normalized() BookRequest {
	if bl, ok := IsValidBookLength(string(r.BookLength)); ok {
		r.BookLength = bl
	}
	return r
}

// Validate checks all fields and returns the first problem found.
func (r BookRequest) Validate() error {
	if strings.TrimSpace(r.EducationalObjective) == "" {
		return fmt.Errorf("educational_objective is required")
	}
	if _, err := AgeBandFor(r.Age); err != nil {
		return err
	}
	if strings.TrimSpace(r.Characters) == "" {
		return fmt.Errorf("characters is required")
	}
	if strings.TrimSpace(r.Setting) == "" {
		return fmt.Errorf("setting is required")
	}
	if _, ok := IsValidBookLength(string(r.BookLength)); !ok {
		return fmt.Errorf("book_length must be one of: %s, %s, %s", BookLengthShort, BookLengthMedium, BookLengthLong)
	}
	return nil
}
