package events

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrLikeNotFound  = errors.New("like not found")
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	Update(ctx context.Context, id int64, upd *EventUpdate) (*Event, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*Event, error)
	ListAllExcludingUploader(ctx context.Context, username string) ([]*Event, error)
	ListStartedBefore(ctx context.Context, cutoff time.Time) ([]int64, error)

	AddLike(ctx context.Context, eventID int64, username string, now time.Time) error
	ListLikes(ctx context.Context, eventID int64) ([]*Like, error)
	ListLikesForUploader(ctx context.Context, uploader string, now time.Time) ([]*UploaderLike, error)
	MarkLikeChecked(ctx context.Context, eventID int64, username string) error
}

// EventUpdate carries the patchable event fields. Nil means "leave as is".
type EventUpdate struct {
	Category     *string
	Summary      *string
	LocationName *string
	Latitude     *float64
	Longitude    *float64
	WhenDate     *time.Time
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, event *Event) error {
	query := `
        INSERT INTO events (
            uploader_username, category, summary, location_name,
            latitude, longitude, when_date
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, upload_date
    `

	return r.db.QueryRowxContext(
		ctx, query,
		event.UploaderUsername, event.Category, event.Summary,
		event.LocationName, event.Latitude, event.Longitude, event.WhenDate,
	).Scan(&event.ID, &event.UploadDate)
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	var event Event
	query := `SELECT * FROM events WHERE id = $1`

	err := r.db.GetContext(ctx, &event, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, upd *EventUpdate) (*Event, error) {
	query := `
        UPDATE events SET
            category      = COALESCE($2, category),
            summary       = COALESCE($3, summary),
            location_name = COALESCE($4, location_name),
            latitude      = COALESCE($5, latitude),
            longitude     = COALESCE($6, longitude),
            when_date     = COALESCE($7, when_date)
        WHERE id = $1
        RETURNING *
    `

	var event Event
	err := r.db.QueryRowxContext(
		ctx, query,
		id, upd.Category, upd.Summary, upd.LocationName,
		upd.Latitude, upd.Longitude, upd.WhenDate,
	).StructScan(&event)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]*Event, error) {
	var list []*Event
	query := `SELECT * FROM events ORDER BY upload_date DESC`

	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, err
	}
	return list, nil
}

// ListAllExcludingUploader returns candidate events for a user, newest
// uploads first. The fetch order is the ranking tie-break, so ORDER BY
// matters here.
func (r *postgresRepository) ListAllExcludingUploader(ctx context.Context, username string) ([]*Event, error) {
	var list []*Event
	query := `SELECT * FROM events WHERE uploader_username != $1 ORDER BY upload_date DESC`

	if err := r.db.SelectContext(ctx, &list, query, username); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postgresRepository) ListStartedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	query := `SELECT id FROM events WHERE when_date <= $1`

	if err := r.db.SelectContext(ctx, &ids, query, cutoff); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddLike records a like, latest-wins on repeats. A repeated like resets the
// checked flag so the uploader sees it again.
func (r *postgresRepository) AddLike(ctx context.Context, eventID int64, username string, now time.Time) error {
	query := `
        INSERT INTO event_likes (event_id, username, liked_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (event_id, username)
        DO UPDATE SET liked_at = EXCLUDED.liked_at, checked = FALSE
    `

	_, err := r.db.ExecContext(ctx, query, eventID, username, now)
	return err
}

func (r *postgresRepository) ListLikes(ctx context.Context, eventID int64) ([]*Like, error) {
	var likes []*Like
	query := `SELECT * FROM event_likes WHERE event_id = $1 ORDER BY liked_at DESC`

	if err := r.db.SelectContext(ctx, &likes, query, eventID); err != nil {
		return nil, err
	}
	return likes, nil
}

// ListLikesForUploader returns likes on the uploader's upcoming events with
// the liker's display name, newest first.
func (r *postgresRepository) ListLikesForUploader(ctx context.Context, uploader string, now time.Time) ([]*UploaderLike, error) {
	var likes []*UploaderLike
	query := `
        SELECT l.event_id, e.category AS event_category,
               l.username, u.first_name, u.last_name, l.liked_at, l.checked
        FROM event_likes l
        JOIN events e ON e.id = l.event_id
        JOIN users u ON u.username = l.username
        WHERE e.uploader_username = $1 AND e.when_date > $2
        ORDER BY l.liked_at DESC
    `

	if err := r.db.SelectContext(ctx, &likes, query, uploader, now); err != nil {
		return nil, err
	}
	return likes, nil
}

func (r *postgresRepository) MarkLikeChecked(ctx context.Context, eventID int64, username string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE event_likes SET checked = TRUE WHERE event_id = $1 AND username = $2
    `, eventID, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLikeNotFound
	}
	return nil
}
