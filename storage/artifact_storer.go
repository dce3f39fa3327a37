package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// defaultBaseDir is the base directory for storing rendered books locally.
const defaultBaseDir = "_output"

const (
	maxSlugLength = 60
	bookIDPrefix  = 8
)

// ArtifactStorer stores rendered book documents.
type ArtifactStorer interface {
	// Store saves data and returns the relative path where it was stored.
	Store(ctx context.Context, ownerID, bookID, title string, data []byte) (relativePath string, err error)
	// Open returns a reader for a path previously returned by Store.
	Open(relativePath string) (io.ReadCloser, error)
	// Remove deletes a stored artifact. Removing a missing artifact is not an error.
	Remove(relativePath string) error
}

// LocalFileStorer implements ArtifactStorer on the local file system.
type LocalFileStorer struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalFileStorer creates a new LocalFileStorer.
// If basePath is empty, it defaults to defaultBaseDir.
func NewLocalFileStorer(basePath string, logger *zap.Logger) *LocalFileStorer {
	if basePath == "" {
		basePath = defaultBaseDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalFileStorer{basePath: basePath, logger: logger.Named("storage")}
}

// ArtifactPath is the relative location of a book's PDF:
// books/<ownerID>/book_<ownerID>_<title slug>_<book id prefix>.pdf
func ArtifactPath(ownerID, bookID, title string) string {
	prefix := bookID
	if len(prefix) > bookIDPrefix {
		prefix = prefix[:bookIDPrefix]
	}
	fileName := fmt.Sprintf("book_%s_%s_%s.pdf", ownerID, Slugify(title), prefix)
	return filepath.Join("books", ownerID, fileName)
}

// Slugify lowercases s and collapses every run of characters other than
// letters and digits into a single underscore.
func Slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(strings.ToValidUTF8(slug[:maxSlugLength], ""), "_")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

func (lfs *LocalFileStorer) Store(ctx context.Context, ownerID, bookID, title string, data []byte) (string, error) {
	if ownerID == "" || bookID == "" {
		return "", fmt.Errorf("ownerID and bookID cannot be empty for storing a book")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("cannot store an empty document")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	relativePath := ArtifactPath(ownerID, bookID, title)
	fullPath, err := lfs.resolve(relativePath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		lfs.logger.Error("Failed to create storage directory", zap.String("dir", filepath.Dir(fullPath)), zap.Error(err))
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		lfs.logger.Error("Failed to write book", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to save book: %w", err)
	}

	lfs.logger.Info("Saved book", zap.String("path", fullPath), zap.Int("bytes", len(data)))
	return relativePath, nil
}

func (lfs *LocalFileStorer) Open(relativePath string) (io.ReadCloser, error) {
	fullPath, err := lfs.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stored book: %w", err)
	}
	return f, nil
}

func (lfs *LocalFileStorer) Remove(relativePath string) error {
	fullPath, err := lfs.resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stored book: %w", err)
	}
	lfs.logger.Info("Removed book", zap.String("path", fullPath))
	return nil
}

// resolve joins relativePath onto the base path, rejecting paths that escape it.
func (lfs *LocalFileStorer) resolve(relativePath string) (string, error) {
	if relativePath == "" || filepath.IsAbs(relativePath) || !filepath.IsLocal(relativePath) {
		return "", fmt.Errorf("invalid storage path %q", relativePath)
	}
	return filepath.Join(lfs.basePath, relativePath), nil
}
