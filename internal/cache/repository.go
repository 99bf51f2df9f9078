package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrAlreadyExists  = errors.New("cache record already exists")
	ErrRecordNotFound = errors.New("cache record not found")
)

// Repository persists one distance record and one category record per user.
// Entry arrays live in JSONB columns so each user's cache reads and writes
// as a single row, mirroring how the recommendation path consumes it.
type Repository interface {
	CreateDistanceRecord(ctx context.Context, username string, entries []DistanceEntry) error
	CreateCategoryRecord(ctx context.Context, username string, entries []CategoryEntry) error

	ReplaceDistances(ctx context.Context, username string, entries []DistanceEntry) error
	ReplaceCategories(ctx context.Context, username string, entries []CategoryEntry) error

	AppendDistance(ctx context.Context, username string, entry DistanceEntry) error
	AppendCategory(ctx context.Context, username string, entry CategoryEntry) error

	GetDistances(ctx context.Context, username string) (*DistanceRecord, error)
	GetCategories(ctx context.Context, username string) (*CategoryRecord, error)

	PruneEvents(ctx context.Context, eventIDs []int64) (int64, error)
	DeleteForUser(ctx context.Context, username string) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDistanceRecord(ctx context.Context, username string, entries []DistanceEntry) error {
	return r.createRecord(ctx, "user_event_distances", "distances", username, entries)
}

func (r *postgresRepository) CreateCategoryRecord(ctx context.Context, username string, entries []CategoryEntry) error {
	return r.createRecord(ctx, "user_event_categories", "category_matches", username, entries)
}

func (r *postgresRepository) createRecord(ctx context.Context, table, column, username string, entries interface{}) error {
	payload, err := marshalEntries(entries)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (username, %s) VALUES ($1, $2::jsonb)`, table, column)
	_, err = r.db.ExecContext(ctx, query, username, payload)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *postgresRepository) ReplaceDistances(ctx context.Context, username string, entries []DistanceEntry) error {
	return r.replaceRecord(ctx, "user_event_distances", "distances", username, entries)
}

func (r *postgresRepository) ReplaceCategories(ctx context.Context, username string, entries []CategoryEntry) error {
	return r.replaceRecord(ctx, "user_event_categories", "category_matches", username, entries)
}

func (r *postgresRepository) replaceRecord(ctx context.Context, table, column, username string, entries interface{}) error {
	payload, err := marshalEntries(entries)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (username, %s) VALUES ($1, $2::jsonb)
        ON CONFLICT (username)
        DO UPDATE SET %s = EXCLUDED.%s, updated_at = NOW()
    `, table, column, column, column)

	_, err = r.db.ExecContext(ctx, query, username, payload)
	return err
}

// AppendDistance adds one entry to a user's distance record, replacing any
// stale entry for the same event. Filtering and appending happen in one
// statement so concurrent fan-outs for different events interleave safely at
// the row level.
func (r *postgresRepository) AppendDistance(ctx context.Context, username string, entry DistanceEntry) error {
	return r.appendEntry(ctx, "user_event_distances", "distances", username, entry.EventID, entry)
}

func (r *postgresRepository) AppendCategory(ctx context.Context, username string, entry CategoryEntry) error {
	return r.appendEntry(ctx, "user_event_categories", "category_matches", username, entry.EventID, entry)
}

func (r *postgresRepository) appendEntry(ctx context.Context, table, column, username string, eventID int64, entry interface{}) error {
	payload, err := json.Marshal([]interface{}{entry})
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
        UPDATE %s SET
            %s = (
                SELECT COALESCE(jsonb_agg(e), '[]'::jsonb)
                FROM jsonb_array_elements(%s) AS e
                WHERE (e->>'eventId')::bigint != $2
            ) || $3::jsonb,
            updated_at = NOW()
        WHERE username = $1
    `, table, column, column)

	res, err := r.db.ExecContext(ctx, query, username, eventID, payload)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *postgresRepository) GetDistances(ctx context.Context, username string) (*DistanceRecord, error) {
	record := &DistanceRecord{Username: username}

	var raw []byte
	err := r.db.QueryRowxContext(ctx, `
        SELECT distances, updated_at FROM user_event_distances WHERE username = $1
    `, username).Scan(&raw, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &record.Entries); err != nil {
		return nil, fmt.Errorf("corrupt distance record for %s: %w", username, err)
	}
	return record, nil
}

func (r *postgresRepository) GetCategories(ctx context.Context, username string) (*CategoryRecord, error) {
	record := &CategoryRecord{Username: username}

	var raw []byte
	err := r.db.QueryRowxContext(ctx, `
        SELECT category_matches, updated_at FROM user_event_categories WHERE username = $1
    `, username).Scan(&raw, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &record.Entries); err != nil {
		return nil, fmt.Errorf("corrupt category record for %s: %w", username, err)
	}
	return record, nil
}

// PruneEvents drops every entry referencing the given events from both
// collections. The WHERE EXISTS guard leaves untouched rows alone, so the
// affected-row count is the number of users whose caches actually shrank and
// a rerun over the same IDs reports zero.
func (r *postgresRepository) PruneEvents(ctx context.Context, eventIDs []int64) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}

	touched, err := r.pruneTable(ctx, "user_event_distances", "distances", eventIDs)
	if err != nil {
		return 0, err
	}
	if _, err := r.pruneTable(ctx, "user_event_categories", "category_matches", eventIDs); err != nil {
		return 0, err
	}
	return touched, nil
}

func (r *postgresRepository) pruneTable(ctx context.Context, table, column string, eventIDs []int64) (int64, error) {
	query := fmt.Sprintf(`
        UPDATE %s t SET
            %s = (
                SELECT COALESCE(jsonb_agg(e), '[]'::jsonb)
                FROM jsonb_array_elements(t.%s) AS e
                WHERE NOT ((e->>'eventId')::bigint = ANY($1))
            ),
            updated_at = NOW()
        WHERE EXISTS (
            SELECT 1 FROM jsonb_array_elements(t.%s) AS e
            WHERE (e->>'eventId')::bigint = ANY($1)
        )
    `, table, column, column, column)

	res, err := r.db.ExecContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepository) DeleteForUser(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_event_distances WHERE username = $1`, username); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_event_categories WHERE username = $1`, username)
	return err
}

func marshalEntries(entries interface{}) ([]byte, error) {
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	// A nil slice marshals to "null", which jsonb_array_elements rejects.
	if string(payload) == "null" {
		payload = []byte("[]")
	}
	return payload, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
