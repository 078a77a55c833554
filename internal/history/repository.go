package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const defaultListLimit = 50

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository interface {
	CreateTrim(ctx context.Context, t *Trim) error
	CompleteTrim(ctx context.Context, id string, result json.RawMessage) error
	FailTrim(ctx context.Context, id, errorMsg string) error
	GetTrim(ctx context.Context, id string) (*Trim, error)
	ListTrims(ctx context.Context, limit int) ([]*Trim, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateTrim(ctx context.Context, t *Trim) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trims (id, source_id, original_name, status, clip_count, request, result, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SourceID, nullString(t.OriginalName), t.Status, t.ClipCount, string(t.Request),
		nullString(string(t.Result)), nullString(t.Error),
		t.CreatedAt.Format(timeLayout), t.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert trim: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CompleteTrim(ctx context.Context, id string, result json.RawMessage) error {
	return r.finish(ctx, id, StatusCompleted, nullString(string(result)), sql.NullString{})
}

func (r *SQLiteRepository) FailTrim(ctx context.Context, id, errorMsg string) error {
	return r.finish(ctx, id, StatusFailed, sql.NullString{}, nullString(errorMsg))
}

// finish moves a pending record to its final status. Finished records are
// left alone.
func (r *SQLiteRepository) finish(ctx context.Context, id, status string, result, errorMsg sql.NullString) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE trims SET status = ?, result = ?, error = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, status, result, errorMsg, time.Now().UTC().Format(timeLayout), id, StatusPending)
	if err != nil {
		return fmt.Errorf("update trim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trim %s is not pending", id)
	}
	return nil
}

func (r *SQLiteRepository) GetTrim(ctx context.Context, id string) (*Trim, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source_id, original_name, status, clip_count, request, result, error, created_at, updated_at
		FROM trims WHERE id = ?
	`, id)
	t, err := scanTrim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListTrims returns the newest records first. A non-positive limit uses 50.
func (r *SQLiteRepository) ListTrims(ctx context.Context, limit int) ([]*Trim, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, original_name, status, clip_count, request, result, error, created_at, updated_at
		FROM trims ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list trims: %w", err)
	}
	defer rows.Close()

	trims := []*Trim{}
	for rows.Next() {
		t, err := scanTrim(rows)
		if err != nil {
			return nil, err
		}
		trims = append(trims, t)
	}
	return trims, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrim(s scanner) (*Trim, error) {
	var t Trim
	var originalName, result, errorMsg sql.NullString
	var request, createdAt, updatedAt string

	if err := s.Scan(&t.ID, &t.SourceID, &originalName, &t.Status, &t.ClipCount, &request, &result, &errorMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	t.OriginalName = originalName.String
	t.Request = json.RawMessage(request)
	if result.Valid {
		t.Result = json.RawMessage(result.String)
	}
	t.Error = errorMsg.String
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	t.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
