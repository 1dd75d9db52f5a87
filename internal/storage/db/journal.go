package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mxbmm/internal/domain"
)

// Record appends an entry to the history journal
func (d *DB) Record(ctx context.Context, e domain.JournalEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	_, err := d.ExecContext(ctx, `
		INSERT INTO history (recorded_at, op, category, name, path, version, notes, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Time.UnixMilli(), string(e.Op), e.Category, e.Name, nullString(e.Path),
		nullString(e.Version), nullString(e.Notes), e.Success, nullString(e.Error))
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

// HistoryQuery filters the journal. Zero values match everything.
type HistoryQuery struct {
	Category string
	Name     string
	Op       domain.JournalOp
	Limit    int // Most recent entries first
}

// History returns journal entries, newest first
func (d *DB) History(ctx context.Context, q HistoryQuery) ([]domain.JournalEntry, error) {
	var (
		where []string
		args  []any
	)
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Name != "" {
		where = append(where, "name = ?")
		args = append(args, q.Name)
	}
	if q.Op != "" {
		where = append(where, "op = ?")
		args = append(args, string(q.Op))
	}

	query := `SELECT id, recorded_at, op, category, name, path, version, notes, success, error FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var (
			e                          domain.JournalEntry
			millis                     int64
			op                         string
			path, version, notes, errs sql.NullString
		)
		if err := rows.Scan(&e.ID, &millis, &op, &e.Category, &e.Name, &path, &version, &notes, &e.Success, &errs); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.Time = time.UnixMilli(millis)
		e.Op = domain.JournalOp(op)
		e.Path = path.String
		e.Version = version.String
		e.Notes = notes.String
		e.Error = errs.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return entries, nil
}

// PruneBefore deletes entries older than t and returns how many were removed
func (d *DB) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, "DELETE FROM history WHERE recorded_at < ?", t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
