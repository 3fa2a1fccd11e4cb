package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// PageSize caps every leaderboard page.
const PageSize = 50

// Row is one leaderboard line.
type Row struct {
	ScoreID  int64
	UserID   int64
	Name     string
	Value    float64
	MaxCombo int
	N300     int
	N100     int
	N50      int
	NMiss    int
	NGeki    int
	NKatu    int
	Perfect  bool
	Mods     domain.Mods
	PlayTime time.Time
	Assists  domain.AssistValues
}

// Query identifies one leaderboard page.
type Query struct {
	MapHash     string
	Mode        domain.Mode
	RequesterID int64
	Filter      Filter
	Metric      Metric
}

// Store runs the leaderboard reads.
type Store interface {
	Scores(ctx context.Context, q Query) ([]Row, error)
	PersonalBest(ctx context.Context, mapHash string, mode domain.Mode, userID int64, metric Metric) (*Row, error)
	// CountBetter counts unrestricted Best scores whose metric exceeds value.
	CountBetter(ctx context.Context, mapHash string, mode domain.Mode, metric Metric, value float64) (int, error)
	AverageRating(ctx context.Context, mapHash string) (float64, error)
}

var metricColumns = [metricCount]string{
	MetricPP:    "s.pp",
	MetricScore: "s.score",
	MetricXP:    "s.xp_gained",
}

const rowColumns = `
		SELECT
			s.id, u.id,
			CASE WHEN c.tag IS NULL OR c.tag = '' THEN u.name ELSE '[' || c.tag || '] ' || u.name END,
			%s, s.max_combo, s.n300, s.n100, s.n50, s.nmiss, s.ngeki, s.nkatu, s.perfect, s.mods, s.play_time,
			s.aim, s.aim_value, s.arc, s.ar_value, s.tw, s.twval, s.cs, s.hdr
		FROM scores s
		INNER JOIN users u ON u.id = s.userid
		LEFT JOIN clans c ON c.id = u.clan_id`

// scoreQueries is indexed by filter kind then metric. Every query takes
// $1 map, $2 requester, $3 mode; filtered ones take their value as $4.
var scoreQueries = buildScoreQueries()

func buildScoreQueries() (out [kindCount][metricCount]string) {
	predicates := [kindCount]string{
		KindTop:     "",
		KindMods:    " AND s.mods = $4",
		KindFriends: " AND s.userid = ANY($4)",
		KindCountry: " AND u.country = $4",
	}
	for k := Kind(0); k < kindCount; k++ {
		for m := Metric(0); m < metricCount; m++ {
			col := metricColumns[m]
			out[k][m] = fmt.Sprintf(rowColumns, col) + `
		WHERE s.map_md5 = $1 AND s.status = 2 AND s.mode = $3
			AND (u.priv & 1 <> 0 OR u.id = $2)` + predicates[k] + `
		ORDER BY ` + col + ` DESC
		LIMIT ` + fmt.Sprint(PageSize)
		}
	}
	return out
}

func (q Query) args() []any {
	args := []any{q.MapHash, q.RequesterID, int(q.Mode)}
	switch q.Filter.Kind {
	case KindMods:
		args = append(args, int64(q.Filter.Mods))
	case KindFriends:
		args = append(args, pq.Array(q.Filter.Friends))
	case KindCountry:
		args = append(args, q.Filter.Country)
	}
	return args
}

type store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func scanRow(row interface{ Scan(...any) error }) (*Row, error) {
	var (
		r    Row
		mods int64
		a    = &r.Assists
	)
	err := row.Scan(
		&r.ScoreID, &r.UserID, &r.Name, &r.Value, &r.MaxCombo,
		&r.N300, &r.N100, &r.N50, &r.NMiss, &r.NGeki, &r.NKatu, &r.Perfect, &mods, &r.PlayTime,
		&a.AimCorrection, &a.AimCorrectionValue, &a.ARChanger, &a.ARChangerValue,
		&a.Timewarp, &a.TimewarpValue, &a.CSChanger, &a.HDRemover,
	)
	if err != nil {
		return nil, err
	}
	r.Mods = domain.Mods(mods)
	return &r, nil
}

func (s *store) Scores(ctx context.Context, q Query) ([]Row, error) {
	if q.Filter.Kind < 0 || q.Filter.Kind >= kindCount || q.Metric < 0 || q.Metric >= metricCount {
		return nil, fmt.Errorf("unsupported leaderboard %s/%s", q.Filter.Kind, q.Metric)
	}
	rows, err := s.db.QueryContext(ctx, scoreQueries[q.Filter.Kind][q.Metric], q.args()...)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0, PageSize)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *store) PersonalBest(ctx context.Context, mapHash string, mode domain.Mode, userID int64, metric Metric) (*Row, error) {
	query := fmt.Sprintf(rowColumns, metricColumns[metric]) + `
		WHERE s.map_md5 = $1 AND s.mode = $2 AND s.userid = $3 AND s.status = 2
		ORDER BY ` + metricColumns[metric] + ` DESC
		LIMIT 1`
	r, err := scanRow(s.db.QueryRowContext(ctx, query, mapHash, int(mode), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select personal best: %w", err)
	}
	return r, nil
}

func (s *store) CountBetter(ctx context.Context, mapHash string, mode domain.Mode, metric Metric, value float64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM scores s
		INNER JOIN users u ON u.id = s.userid
		WHERE s.map_md5 = $1 AND s.mode = $2 AND s.status = 2
			AND u.priv & 1 <> 0
			AND ` + metricColumns[metric] + ` > $3`
	var n int
	if err := s.db.QueryRowContext(ctx, query, mapHash, int(mode), value).Scan(&n); err != nil {
		return 0, fmt.Errorf("count better: %w", err)
	}
	return n, nil
}

func (s *store) AverageRating(ctx context.Context, mapHash string) (float64, error) {
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(rating) FROM ratings WHERE map_md5 = $1`, mapHash).Scan(&avg); err != nil {
		return 0, fmt.Errorf("select average rating: %w", err)
	}
	return avg.Float64, nil
}
