package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/httpx"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("beatmap catalog not configured")

const lastUpdateLayout = "2006-01-02 15:04:05"

// apiBeatmap mirrors the catalog's get_beatmaps rows; every value is a string.
type apiBeatmap struct {
	BeatmapID    string  `json:"beatmap_id"`
	BeatmapsetID string  `json:"beatmapset_id"`
	FileMD5      string  `json:"file_md5"`
	Artist       string  `json:"artist"`
	Title        string  `json:"title"`
	Version      string  `json:"version"`
	Creator      string  `json:"creator"`
	Approved     string  `json:"approved"`
	LastUpdate   string  `json:"last_update"`
	TotalLength  string  `json:"total_length"`
	MaxCombo     *string `json:"max_combo"`
	BPM          *string `json:"bpm"`
	Mode         string  `json:"mode"`
	DiffSize     string  `json:"diff_size"`
	DiffApproach string  `json:"diff_approach"`
	DiffOverall  string  `json:"diff_overall"`
	DiffDrain    string  `json:"diff_drain"`
	Difficulty   string  `json:"difficultyrating"`
}

// Client looks up beatmaps in the upstream catalog.
type Client struct {
	http   *httpx.Client
	apiKey string
}

func NewClient(h *httpx.Client, apiKey string) *Client {
	return &Client{http: h, apiKey: strings.TrimSpace(apiKey)}
}

// ByHash returns the difficulty with the given content hash, if any.
func (c *Client) ByHash(ctx context.Context, md5 string) ([]domain.Beatmap, error) {
	return c.fetch(ctx, "h", md5)
}

func (c *Client) ByID(ctx context.Context, id int64) ([]domain.Beatmap, error) {
	return c.fetch(ctx, "b", strconv.FormatInt(id, 10))
}

// BySet returns every difficulty of a set.
func (c *Client) BySet(ctx context.Context, setID int64) ([]domain.Beatmap, error) {
	return c.fetch(ctx, "s", strconv.FormatInt(setID, 10))
}

func (c *Client) fetch(ctx context.Context, param, value string) ([]domain.Beatmap, error) {
	if c == nil || c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("k", c.apiKey)
	q.Set(param, value)

	var rows []apiBeatmap
	if err := c.http.GetJSON(ctx, "/get_beatmaps", q, &rows); err != nil {
		return nil, fmt.Errorf("catalog get_beatmaps: %w", err)
	}
	out := make([]domain.Beatmap, 0, len(rows))
	for _, r := range rows {
		bm, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("catalog row %s: %w", r.BeatmapID, err)
		}
		out = append(out, bm)
	}
	return out, nil
}

func (r apiBeatmap) toDomain() (domain.Beatmap, error) {
	var p numParser
	bm := domain.Beatmap{
		ID:          p.integer(r.BeatmapID),
		SetID:       p.integer(r.BeatmapsetID),
		MD5:         r.FileMD5,
		Artist:      r.Artist,
		Title:       r.Title,
		Version:     r.Version,
		Creator:     r.Creator,
		Status:      domain.RankedStatusFromCatalog(int(p.integer(r.Approved))),
		TotalLength: int(p.integer(r.TotalLength)),
		Mode:        int(p.integer(r.Mode)),
		CS:          p.decimal(r.DiffSize),
		AR:          p.decimal(r.DiffApproach),
		OD:          p.decimal(r.DiffOverall),
		HP:          p.decimal(r.DiffDrain),
		Diff:        p.decimal(r.Difficulty),
	}
	if r.MaxCombo != nil {
		bm.MaxCombo = int(p.integer(*r.MaxCombo))
	}
	if r.BPM != nil {
		bm.BPM = p.decimal(*r.BPM)
	}
	if p.err != nil {
		return domain.Beatmap{}, p.err
	}
	if t, err := time.ParseInLocation(lastUpdateLayout, r.LastUpdate, time.UTC); err == nil {
		bm.LastUpdate = t
	}
	bm.Filename = fmt.Sprintf("%s - %s (%s) [%s].osu", r.Artist, r.Title, r.Creator, r.Version)
	return bm, nil
}

type numParser struct{ err error }

func (p *numParser) integer(s string) int64 {
	if p.err != nil || strings.TrimSpace(s) == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		p.err = err
	}
	return n
}

func (p *numParser) decimal(s string) float64 {
	if p.err != nil || strings.TrimSpace(s) == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		p.err = err
	}
	return f
}
