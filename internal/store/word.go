package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ayusman/kaiplay/internal/wordbank"
)

// Word is a custom word bank entry.
type Word struct {
	ID          string    `db:"id" json:"id"`
	Native      string    `db:"native" json:"native"`
	Translation string    `db:"translation" json:"translation"`
	Image       string    `db:"image" json:"image,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Entry converts the word for the word bank.
func (w *Word) Entry() wordbank.Entry {
	return wordbank.Entry{ID: w.ID, Native: w.Native, Translation: w.Translation, Image: w.Image}
}

// WordRepository provides CRUD operations for custom words.
type WordRepository struct {
	db *sqlx.DB
}

// Words returns the word repository for this store.
func (s *Store) Words() *WordRepository {
	return &WordRepository{db: s.db}
}

// ErrInvalidWord is returned when a word is missing its native form or
// translation.
var ErrInvalidWord = errors.New("word needs native text and a translation")

// Create inserts a word, assigning a UUID when it has none. Translations are
// unique regardless of case.
func (r *WordRepository) Create(ctx context.Context, w *Word) error {
	w.Native = strings.TrimSpace(w.Native)
	w.Translation = strings.TrimSpace(w.Translation)
	if w.Native == "" || w.Translation == "" {
		return ErrInvalidWord
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = time.Now()

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO words (id, native, translation, image, created_at)
		 VALUES (:id, :native, :translation, :image, :created_at)`, w)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a word by its ID.
func (r *WordRepository) GetByID(ctx context.Context, id string) (*Word, error) {
	var w Word
	if err := r.db.GetContext(ctx, &w, `SELECT * FROM words WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// List returns all words in creation order.
func (r *WordRepository) List(ctx context.Context) ([]*Word, error) {
	words := []*Word{}
	if err := r.db.SelectContext(ctx, &words, `SELECT * FROM words ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	return words, nil
}

// Delete removes a word by its ID.
func (r *WordRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM words WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Entries returns every stored word as word bank entries.
func (r *WordRepository) Entries(ctx context.Context) ([]wordbank.Entry, error) {
	words, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]wordbank.Entry, len(words))
	for i, w := range words {
		entries[i] = w.Entry()
	}
	return entries, nil
}
