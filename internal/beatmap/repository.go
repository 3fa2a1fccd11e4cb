package beatmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/park285/rhythm-score-server/internal/database"
	"github.com/park285/rhythm-score-server/internal/domain"
)

// Repository is the durable beatmap store.
type Repository interface {
	FetchByHash(ctx context.Context, md5 string) (*domain.Beatmap, error)
	FetchByID(ctx context.Context, id int64) (*domain.Beatmap, error)
	FetchBySet(ctx context.Context, setID int64) ([]*domain.Beatmap, error)
	FetchByFilename(ctx context.Context, filename string) (*domain.Beatmap, error)
	Upsert(ctx context.Context, bm *domain.Beatmap) error
	// DeleteWithScores removes the difficulties and every score set on them.
	DeleteWithScores(ctx context.Context, ids []int64) error
	StampSetChecked(ctx context.Context, setID int64, at time.Time) error
	IncrementPlaycount(ctx context.Context, md5 string, passed bool) (plays, passes int, err error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectColumns = `
		SELECT
			id, set_id, status, md5, artist, title, version, creator, filename,
			last_update, total_length, max_combo, frozen, plays, passes, mode,
			bpm, cs, ar, od, hp, diff, last_osuapi_check
		FROM maps`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBeatmap(row rowScanner) (*domain.Beatmap, error) {
	var (
		bm      domain.Beatmap
		status  int
		checked sql.NullTime
	)
	err := row.Scan(
		&bm.ID, &bm.SetID, &status, &bm.MD5, &bm.Artist, &bm.Title, &bm.Version, &bm.Creator, &bm.Filename,
		&bm.LastUpdate, &bm.TotalLength, &bm.MaxCombo, &bm.Frozen, &bm.Plays, &bm.Passes, &bm.Mode,
		&bm.BPM, &bm.CS, &bm.AR, &bm.OD, &bm.HP, &bm.Diff, &checked,
	)
	if err != nil {
		return nil, err
	}
	bm.Status = domain.RankedStatus(status)
	if checked.Valid {
		bm.LastCatalogCheck = checked.Time
	}
	return &bm, nil
}

func (r *repository) fetchOne(ctx context.Context, where string, arg any) (*domain.Beatmap, error) {
	bm, err := scanBeatmap(r.db.QueryRowContext(ctx, selectColumns+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select map: %w", err)
	}
	return bm, nil
}

func (r *repository) FetchByHash(ctx context.Context, md5 string) (*domain.Beatmap, error) {
	return r.fetchOne(ctx, "md5 = $1", md5)
}

func (r *repository) FetchByID(ctx context.Context, id int64) (*domain.Beatmap, error) {
	return r.fetchOne(ctx, "id = $1", id)
}

func (r *repository) FetchByFilename(ctx context.Context, filename string) (*domain.Beatmap, error) {
	return r.fetchOne(ctx, "filename = $1", filename)
}

func (r *repository) FetchBySet(ctx context.Context, setID int64) ([]*domain.Beatmap, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" WHERE set_id = $1 ORDER BY id", setID)
	if err != nil {
		return nil, fmt.Errorf("select set: %w", err)
	}
	defer rows.Close()

	var out []*domain.Beatmap
	for rows.Next() {
		bm, err := scanBeatmap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan map: %w", err)
		}
		out = append(out, bm)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, bm *domain.Beatmap) error {
	const query = `
		INSERT INTO maps (
			id, set_id, status, md5, artist, title, version, creator, filename,
			last_update, total_length, max_combo, frozen, plays, passes, mode,
			bpm, cs, ar, od, hp, diff, last_osuapi_check
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO UPDATE SET
			set_id = EXCLUDED.set_id,
			status = CASE WHEN maps.frozen THEN maps.status ELSE EXCLUDED.status END,
			md5 = EXCLUDED.md5,
			artist = EXCLUDED.artist,
			title = EXCLUDED.title,
			version = EXCLUDED.version,
			creator = EXCLUDED.creator,
			filename = EXCLUDED.filename,
			last_update = EXCLUDED.last_update,
			total_length = EXCLUDED.total_length,
			max_combo = EXCLUDED.max_combo,
			mode = EXCLUDED.mode,
			bpm = EXCLUDED.bpm,
			cs = EXCLUDED.cs,
			ar = EXCLUDED.ar,
			od = EXCLUDED.od,
			hp = EXCLUDED.hp,
			diff = EXCLUDED.diff,
			last_osuapi_check = EXCLUDED.last_osuapi_check`

	var checked sql.NullTime
	if !bm.LastCatalogCheck.IsZero() {
		checked = sql.NullTime{Time: bm.LastCatalogCheck, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		bm.ID, bm.SetID, int(bm.Status), bm.MD5, bm.Artist, bm.Title, bm.Version, bm.Creator, bm.Filename,
		bm.LastUpdate, bm.TotalLength, bm.MaxCombo, bm.Frozen, bm.Plays, bm.Passes, bm.Mode,
		bm.BPM, bm.CS, bm.AR, bm.OD, bm.HP, bm.Diff, checked,
	)
	if err != nil {
		return fmt.Errorf("upsert map %d: %w", bm.ID, err)
	}
	return nil
}

func (r *repository) DeleteWithScores(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const deleteScores = `
			DELETE FROM scores
			WHERE map_md5 IN (SELECT md5 FROM maps WHERE id = ANY($1))`
		if _, err := tx.ExecContext(ctx, deleteScores, pq.Array(ids)); err != nil {
			return fmt.Errorf("delete orphan scores: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM maps WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
			return fmt.Errorf("delete orphan maps: %w", err)
		}
		return nil
	})
}

func (r *repository) StampSetChecked(ctx context.Context, setID int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE maps SET last_osuapi_check = $1 WHERE set_id = $2`, at, setID); err != nil {
		return fmt.Errorf("stamp set %d: %w", setID, err)
	}
	return nil
}

func (r *repository) IncrementPlaycount(ctx context.Context, md5 string, passed bool) (int, int, error) {
	const query = `
		UPDATE maps
		SET plays = plays + 1,
			passes = passes + CASE WHEN $2 THEN 1 ELSE 0 END
		WHERE md5 = $1
		RETURNING plays, passes`
	var plays, passes int
	err := r.db.QueryRowContext(ctx, query, md5, passed).Scan(&plays, &passes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("increment playcount: %w", err)
	}
	return plays, passes, nil
}
