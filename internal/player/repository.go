package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Repository reads player accounts and relationships.
type Repository interface {
	FetchByName(ctx context.Context, name string) (*domain.User, error)
	FetchByID(ctx context.Context, id int64) (*domain.User, error)
	FriendIDs(ctx context.Context, userID int64) ([]int64, error)
	UpdateLatestActivity(ctx context.Context, userID int64, at time.Time) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const userColumns = `
		SELECT
			u.id, u.name, u.country, u.priv, u.pw_bcrypt,
			COALESCE(u.preferred_metric, ''), u.whitelist, COALESCE(c.tag, '')
		FROM users u
		LEFT JOIN clans c ON c.id = u.clan_id`

func (r *repository) fetchOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, userColumns+" WHERE "+where, arg).Scan(
		&u.ID, &u.Name, &u.Country, &u.Privileges, &u.PasswordBcrypt,
		&u.PreferredMetric, &u.Whitelist, &u.ClanTag,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (r *repository) FetchByName(ctx context.Context, name string) (*domain.User, error) {
	return r.fetchOne(ctx, "u.name = $1", name)
}

func (r *repository) FetchByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchOne(ctx, "u.id = $1", id)
}

func (r *repository) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	const query = `
		SELECT user2
		FROM relationships
		WHERE user1 = $1 AND type = 'friend'`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select friends: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) UpdateLatestActivity(ctx context.Context, userID int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET latest_activity = $1 WHERE id = $2`, at.Unix(), userID); err != nil {
		return fmt.Errorf("update latest activity: %w", err)
	}
	return nil
}
