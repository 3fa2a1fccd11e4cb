package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Repository is the durable per-player, per-mode aggregate store.
type Repository interface {
	Fetch(ctx context.Context, userID int64, mode domain.Mode) (*domain.Stats, error)
	Save(ctx context.Context, st *domain.Stats) error
	// TopRatings returns up to TopScoreLimit Best scores on ranked or
	// approved maps, highest pp first.
	TopRatings(ctx context.Context, userID int64, mode domain.Mode) ([]Entry, error)
	// RankedCount counts Best scores on ranked or approved maps.
	RankedCount(ctx context.Context, userID int64, mode domain.Mode) (int, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Fetch(ctx context.Context, userID int64, mode domain.Mode) (*domain.Stats, error) {
	const query = `
		SELECT
			id, mode, tscore, rscore, pp, plays, playtime, acc, max_combo, total_hits,
			replay_views, xh_count, x_count, sh_count, s_count, a_count, xp
		FROM stats
		WHERE id = $1 AND mode = $2`
	var (
		st domain.Stats
		m  int
	)
	err := r.db.QueryRowContext(ctx, query, userID, int(mode)).Scan(
		&st.UserID, &m, &st.TotalScore, &st.RankedScore, &st.PP, &st.Plays, &st.Playtime, &st.Acc,
		&st.MaxCombo, &st.TotalHits, &st.ReplayViews, &st.XHCount, &st.XCount, &st.SHCount,
		&st.SCount, &st.ACount, &st.XP,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	st.Mode = domain.Mode(m)
	return &st, nil
}

func (r *repository) Save(ctx context.Context, st *domain.Stats) error {
	const query = `
		INSERT INTO stats (
			id, mode, tscore, rscore, pp, plays, playtime, acc, max_combo, total_hits,
			replay_views, xh_count, x_count, sh_count, s_count, a_count, xp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id, mode) DO UPDATE SET
			tscore = EXCLUDED.tscore,
			rscore = EXCLUDED.rscore,
			pp = EXCLUDED.pp,
			plays = EXCLUDED.plays,
			playtime = EXCLUDED.playtime,
			acc = EXCLUDED.acc,
			max_combo = EXCLUDED.max_combo,
			total_hits = EXCLUDED.total_hits,
			xh_count = EXCLUDED.xh_count,
			x_count = EXCLUDED.x_count,
			sh_count = EXCLUDED.sh_count,
			s_count = EXCLUDED.s_count,
			a_count = EXCLUDED.a_count,
			xp = EXCLUDED.xp`
	_, err := r.db.ExecContext(ctx, query,
		st.UserID, int(st.Mode), st.TotalScore, st.RankedScore, st.PP, st.Plays, st.Playtime, st.Acc,
		st.MaxCombo, st.TotalHits, st.ReplayViews, st.XHCount, st.XCount, st.SHCount,
		st.SCount, st.ACount, st.XP,
	)
	if err != nil {
		return fmt.Errorf("%w: save stats: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *repository) TopRatings(ctx context.Context, userID int64, mode domain.Mode) ([]Entry, error) {
	const query = `
		SELECT s.pp, s.acc
		FROM scores s
		INNER JOIN maps b ON b.md5 = s.map_md5
		WHERE s.userid = $1 AND s.mode = $2 AND s.status = 2 AND b.status IN (2, 3)
		ORDER BY s.pp DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, int(mode), TopScoreLimit)
	if err != nil {
		return nil, fmt.Errorf("select top ratings: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, TopScoreLimit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PP, &e.Acc); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) RankedCount(ctx context.Context, userID int64, mode domain.Mode) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM scores s
		INNER JOIN maps b ON b.md5 = s.map_md5
		WHERE s.userid = $1 AND s.mode = $2 AND s.status = 2 AND b.status IN (2, 3)`
	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, int(mode)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ranked scores: %w", err)
	}
	return n, nil
}
