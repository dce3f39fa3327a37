package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/storybook/models"
)

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

// CreateBook inserts a new book record. Books are immutable once created.
func (r *BookRepository) CreateBook(ctx context.Context, book *models.Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO books (id, user_id, title, content, artifact_path, age, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		book.ID, book.UserID, book.Title, book.Content, book.ArtifactPath, book.Age, book.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("book %s: %w", book.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

func (r *BookRepository) GetBookByID(ctx context.Context, bookID string) (*models.Book, error) {
	query := `
		SELECT id, user_id, title, content, artifact_path, age, created_at
		FROM books
		WHERE id = $1
	`
	var book models.Book
	row := r.db.QueryRowContext(ctx, query, bookID)
	err := row.Scan(&book.ID, &book.UserID, &book.Title, &book.Content, &book.ArtifactPath, &book.Age, &book.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get book by ID: %w", err)
	}
	return &book, nil
}

// GetBooksByUserID returns the user's books, newest first.
func (r *BookRepository) GetBooksByUserID(ctx context.Context, userID string) ([]models.Book, error) {
	query := `
		SELECT id, user_id, title, content, artifact_path, age, created_at
		FROM books
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query books by user ID: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(&book.ID, &book.UserID, &book.Title, &book.Content, &book.ArtifactPath, &book.Age, &book.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, book)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}
	return books, nil
}
