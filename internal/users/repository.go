package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListAll(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, username string, upd *UserUpdate) (*User, error)
	Delete(ctx context.Context, username string) error

	// Interaction tracking
	RecordInteraction(ctx context.Context, username string, eventID int64, isLike bool, now time.Time) (float64, error)
	ListInteractedEventIDs(ctx context.Context, username string) ([]int64, error)
}

// UserUpdate carries the patchable profile fields. Nil means "leave as is".
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	LocationName *string
	Latitude     *float64
	Longitude    *float64
	Birthday     *time.Time
	Hobbies      []string
	Summary      *string
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
        INSERT INTO users (
            username, first_name, last_name, location_name, latitude, longitude,
            birthday, hobbies, summary
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, last_ratio_update
    `

	err := r.db.QueryRowxContext(
		ctx, query,
		user.Username, user.FirstName, user.LastName,
		user.LocationName, user.Latitude, user.Longitude,
		user.Birthday, pq.Array([]string(user.Hobbies)), user.Summary,
	).Scan(&user.CreatedAt, &user.LastRatioUpdate)

	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	query := `SELECT * FROM users WHERE username = $1`

	err := r.db.GetContext(ctx, &user, query, username)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]*User, error) {
	var list []*User
	query := `SELECT * FROM users ORDER BY username`

	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postgresRepository) Update(ctx context.Context, username string, upd *UserUpdate) (*User, error) {
	query := `
        UPDATE users SET
            first_name    = COALESCE($2, first_name),
            last_name     = COALESCE($3, last_name),
            location_name = COALESCE($4, location_name),
            latitude      = COALESCE($5, latitude),
            longitude     = COALESCE($6, longitude),
            birthday      = COALESCE($7, birthday),
            hobbies       = COALESCE($8, hobbies),
            summary       = COALESCE($9, summary)
        WHERE username = $1
        RETURNING *
    `

	var hobbies interface{}
	if upd.Hobbies != nil {
		hobbies = pq.Array(upd.Hobbies)
	}

	var user User
	err := r.db.QueryRowxContext(
		ctx, query,
		username, upd.FirstName, upd.LastName, upd.LocationName,
		upd.Latitude, upd.Longitude, upd.Birthday, hobbies, upd.Summary,
	).StructScan(&user)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresRepository) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordInteraction appends the swipe, bumps the counters and refreshes the
// cached like-ratio when it is due. The whole read-modify-write runs in one
// transaction with the user row locked, so two rapid swipes by the same user
// serialize instead of clobbering each other.
func (r *postgresRepository) RecordInteraction(ctx context.Context, username string, eventID int64, isLike bool, now time.Time) (float64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var likes, dislikes int
	var ratio float64
	var lastUpdate time.Time

	err = tx.QueryRowxContext(ctx, `
        SELECT likes, dislikes, like_ratio, last_ratio_update
        FROM users WHERE username = $1 FOR UPDATE
    `, username).Scan(&likes, &dislikes, &ratio, &lastUpdate)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	interactionType := InteractionDislike
	if isLike {
		interactionType = InteractionLike
		likes++
	} else {
		dislikes++
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO user_interactions (username, event_id, interaction_type, interacted_at)
        VALUES ($1, $2, $3, $4)
    `, username, eventID, interactionType, now)
	if err != nil {
		return 0, fmt.Errorf("failed to append interaction: %w", err)
	}

	if ShouldRecalculateRatio(likes+dislikes, lastUpdate, now) {
		ratio = Ratio(likes, dislikes)
		lastUpdate = now
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE users SET likes = $2, dislikes = $3, like_ratio = $4, last_ratio_update = $5
        WHERE username = $1
    `, username, likes, dislikes, ratio, lastUpdate)
	if err != nil {
		return 0, fmt.Errorf("failed to update interaction counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return ratio, nil
}

func (r *postgresRepository) ListInteractedEventIDs(ctx context.Context, username string) ([]int64, error) {
	var ids []int64
	query := `SELECT DISTINCT event_id FROM user_interactions WHERE username = $1`

	if err := r.db.SelectContext(ctx, &ids, query, username); err != nil {
		return nil, err
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
