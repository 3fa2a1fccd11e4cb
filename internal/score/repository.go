package score

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/park285/rhythm-score-server/internal/database"
	"github.com/park285/rhythm-score-server/internal/domain"
)

// FirstPlace is the holder of the top Best score on a map.
type FirstPlace struct {
	UserID  int64
	Name    string
	ScoreID int64
	PP      float64
}

// Repository is the durable score store.
//
// At most one Best exists per (player, map, mode); InsertWithDemotion keeps
// that true by demoting and inserting in a single transaction.
type Repository interface {
	FetchByChecksum(ctx context.Context, checksum string) (*domain.Score, error)
	FetchBest(ctx context.Context, userID int64, mapHash string, mode domain.Mode) (*domain.Score, error)
	// CountBetter counts Best scores of unrestricted players with more pp.
	CountBetter(ctx context.Context, mapHash string, mode domain.Mode, pp float64) (int, error)
	FetchFirstPlace(ctx context.Context, mapHash string, mode domain.Mode) (*FirstPlace, error)
	// InsertWithDemotion stores s and returns its id. When s is Best the
	// player's previous Best on the map is demoted to Submitted first.
	InsertWithDemotion(ctx context.Context, s *domain.Score) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const scoreColumns = `
		s.id, s.map_md5, s.userid, s.score, s.xp_gained, s.pp, s.stars, s.acc, s.max_combo, s.mods,
		s.n300, s.n100, s.n50, s.nmiss, s.ngeki, s.nkatu, s.grade, s.status, s.mode,
		s.play_time, s.time_elapsed, s.client_flags, s.perfect, s.online_checksum`

func scanScore(row interface{ Scan(...any) error }) (*domain.Score, error) {
	var (
		s      domain.Score
		grade  string
		status int
		mode   int
		mods   int64
	)
	err := row.Scan(
		&s.ID, &s.MapHash, &s.UserID, &s.Score, &s.XP, &s.PP, &s.Stars, &s.Acc, &s.MaxCombo, &mods,
		&s.N300, &s.N100, &s.N50, &s.NMiss, &s.NGeki, &s.NKatu, &grade, &status, &mode,
		&s.PlayTime, &s.TimeElapsed, &s.ClientFlags, &s.Perfect, &s.OnlineChecksum,
	)
	if err != nil {
		return nil, err
	}
	s.Grade = domain.ParseGrade(grade)
	s.Status = domain.SubmissionStatus(status)
	s.Mode = domain.Mode(mode)
	s.Mods = domain.Mods(mods)
	s.Passed = s.Status != domain.StatusFailed && s.Status != domain.StatusQuit
	return &s, nil
}

func (r *repository) FetchByChecksum(ctx context.Context, checksum string) (*domain.Score, error) {
	query := `SELECT` + scoreColumns + `
		FROM scores s
		WHERE s.online_checksum = $1
		LIMIT 1`
	s, err := scanScore(r.db.QueryRowContext(ctx, query, checksum))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select score by checksum: %w", err)
	}
	return s, nil
}

func (r *repository) FetchBest(ctx context.Context, userID int64, mapHash string, mode domain.Mode) (*domain.Score, error) {
	query := `SELECT` + scoreColumns + `
		FROM scores s
		WHERE s.userid = $1 AND s.map_md5 = $2 AND s.mode = $3 AND s.status = 2
		ORDER BY s.pp DESC
		LIMIT 1`
	s, err := scanScore(r.db.QueryRowContext(ctx, query, userID, mapHash, int(mode)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select best: %w", err)
	}
	return s, nil
}

func (r *repository) CountBetter(ctx context.Context, mapHash string, mode domain.Mode, pp float64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM scores s
		INNER JOIN users u ON u.id = s.userid
		WHERE s.map_md5 = $1 AND s.mode = $2 AND s.status = 2
			AND u.priv & 1 <> 0
			AND s.pp > $3`
	var n int
	if err := r.db.QueryRowContext(ctx, query, mapHash, int(mode), pp).Scan(&n); err != nil {
		return 0, fmt.Errorf("count better scores: %w", err)
	}
	return n, nil
}

func (r *repository) FetchFirstPlace(ctx context.Context, mapHash string, mode domain.Mode) (*FirstPlace, error) {
	const query = `
		SELECT u.id, u.name, s.id, s.pp
		FROM scores s
		INNER JOIN users u ON u.id = s.userid
		WHERE s.map_md5 = $1 AND s.mode = $2 AND s.status = 2
			AND u.priv & 1 <> 0
		ORDER BY s.pp DESC
		LIMIT 1`
	var fp FirstPlace
	err := r.db.QueryRowContext(ctx, query, mapHash, int(mode)).Scan(&fp.UserID, &fp.Name, &fp.ScoreID, &fp.PP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select first place: %w", err)
	}
	return &fp, nil
}

func (r *repository) InsertWithDemotion(ctx context.Context, s *domain.Score) (int64, error) {
	const demote = `
		UPDATE scores
		SET status = 1
		WHERE status = 2 AND userid = $1 AND map_md5 = $2 AND mode = $3`
	const insert = `
		INSERT INTO scores (
			map_md5, userid, score, xp_gained, pp, stars, acc, max_combo, mods,
			n300, n100, n50, nmiss, ngeki, nkatu, grade, status, mode,
			play_time, time_elapsed, client_flags, perfect, online_checksum,
			aim_value, ar_value, aim, arc, cs, tw, twval, hdr
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)
		ON CONFLICT (online_checksum) DO NOTHING
		RETURNING id`

	var id int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if s.Status == domain.StatusBest {
			if _, err := tx.ExecContext(ctx, demote, s.UserID, s.MapHash, int(s.Mode)); err != nil {
				return fmt.Errorf("demote previous best: %w", err)
			}
		}
		a := s.Assists
		err := tx.QueryRowContext(ctx, insert,
			s.MapHash, s.UserID, s.Score, s.XP, s.PP, s.Stars, s.Acc, s.MaxCombo, int64(s.Mods),
			s.N300, s.N100, s.N50, s.NMiss, s.NGeki, s.NKatu, s.Grade.String(), int(s.Status), int(s.Mode),
			s.PlayTime, s.TimeElapsed, s.ClientFlags, s.Perfect, s.OnlineChecksum,
			a.AimCorrectionValue, a.ARChangerValue, a.AimCorrection, a.ARChanger, a.CSChanger,
			a.Timewarp, a.TimewarpValue, a.HDRemover,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// 체크섬 중복: 롤백되면서 강등된 기존 베스트도 복구됨
			return domain.ErrDuplicateSubmission
		}
		if err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateSubmission) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return id, nil
}
