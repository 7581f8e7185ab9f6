package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
)

// Result is one finished game round.
type Result struct {
	ID         string    `db:"id" json:"id"`
	Game       string    `db:"game" json:"game"`
	Score      int       `db:"score" json:"score"`
	Completed  int       `db:"completed" json:"completed"`
	Total      int       `db:"total" json:"total"`
	Complete   bool      `db:"complete" json:"complete"`
	Mistakes   int       `db:"mistakes" json:"mistakes"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// Duration returns how long the round took.
func (r *Result) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// ResultRepository stores round results.
type ResultRepository struct {
	db *sqlx.DB
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{db: s.db}
}

const queryCreateResult = `INSERT INTO results
	(id, game, score, completed, total, complete, mistakes, duration_ms, started_at, finished_at)
	VALUES (:id, :game, :score, :completed, :total, :complete, :mistakes, :duration_ms, :started_at, :finished_at)`

// newID returns a time-ordered ULID for t.
func newID(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create inserts a result, assigning an ID when it has none.
func (r *ResultRepository) Create(ctx context.Context, res *Result) error {
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now()
	}
	if res.StartedAt.IsZero() {
		res.StartedAt = res.FinishedAt
	}
	if res.ID == "" {
		id, err := newID(res.FinishedAt)
		if err != nil {
			return err
		}
		res.ID = id
	}

	_, err := r.db.NamedExecContext(ctx, queryCreateResult, res)
	return err
}

// GetByID retrieves a result by its ID.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*Result, error) {
	var res Result
	err := r.db.GetContext(ctx, &res, `SELECT * FROM results WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// List returns the most recent results, newest first. An empty game lists
// every game; limit <= 0 means no limit.
func (r *ResultRepository) List(ctx context.Context, game string, limit int) ([]*Result, error) {
	query := `SELECT * FROM results`
	var args []any
	if game != "" {
		query += ` WHERE game = ?`
		args = append(args, game)
	}
	query += ` ORDER BY finished_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	results := []*Result{}
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, err
	}
	return results, nil
}

// Best returns the highest scoring complete round for game, fastest first
// among equal scores.
func (r *ResultRepository) Best(ctx context.Context, game string) (*Result, error) {
	var res Result
	err := r.db.GetContext(ctx, &res,
		`SELECT * FROM results WHERE game = ? AND complete = 1
		 ORDER BY score DESC, duration_ms ASC LIMIT 1`, game)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}
