package activitylog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// ErrNotFound is returned when an activity id does not exist
var ErrNotFound = errors.New("activity not found")

// Store persists activity records in the local database
type Store struct {
	db *DB
}

// NewStore creates a store on an open database
func NewStore(database *DB) *Store {
	return &Store{db: database}
}

// Add inserts a record. An empty id is replaced by a new UUID and a zero
// LoggedAt by the current time.
func (s *Store) Add(ctx context.Context, r models.ActivityRecord) (*models.ActivityRecord, error) {
	if err := validate(&r); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.LoggedAt.IsZero() {
		r.LoggedAt = time.Now()
	}

	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, fmt.Errorf("encoding details: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activities (id, kind, logged_at, timezone, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.LoggedAt.UnixMilli(), r.Timezone, string(details), time.Now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting activity: %w", err)
	}

	return &r, nil
}

// Import inserts records in a single transaction, skipping ids that already
// exist. progress is called after each record when non-nil. Returns the
// number of records inserted.
func (s *Store) Import(ctx context.Context, records []models.ActivityRecord, progress func()) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO activities (id, kind, logged_at, timezone, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	now := time.Now().UnixMilli()
	for i := range records {
		r := records[i]
		if err := validate(&r); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		details, err := json.Marshal(r.Details)
		if err != nil {
			return 0, fmt.Errorf("record %d: encoding details: %w", i, err)
		}
		res, err := stmt.ExecContext(ctx, r.ID, string(r.Kind), r.LoggedAt.UnixMilli(), r.Timezone, string(details), now)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
		if progress != nil {
			progress()
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return inserted, nil
}

// Get retrieves a record by id
func (s *Store) Get(ctx context.Context, id string) (*models.ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, logged_at, timezone, details FROM activities WHERE id = ?`, id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting activity: %w", err)
	}
	return r, nil
}

// Activities returns the records logged in [from, to], oldest first
func (s *Store) Activities(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, logged_at, timezone, details FROM activities
		 WHERE logged_at >= ? AND logged_at <= ?
		 ORDER BY logged_at ASC, id ASC`,
		from.UnixMilli(), to.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.ActivityRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting activities: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.ActivityRecord, error) {
	var (
		r        models.ActivityRecord
		kind     string
		loggedAt int64
		details  string
	)
	if err := row.Scan(&r.ID, &kind, &loggedAt, &r.Timezone, &details); err != nil {
		return nil, err
	}
	r.Kind = models.ActivityKind(kind)
	r.LoggedAt = time.UnixMilli(loggedAt).UTC()
	if err := json.Unmarshal([]byte(details), &r.Details); err != nil {
		return nil, fmt.Errorf("decoding details of %s: %w", r.ID, err)
	}
	return &r, nil
}

func validate(r *models.ActivityRecord) error {
	if r.Kind == "" {
		return fmt.Errorf("activity kind is required")
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", r.Timezone, err)
		}
	}
	return nil
}
