package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/httpx"
)

// Request describes one play for rating. Mode is reduced to its vanilla ruleset.
type Request struct {
	BeatmapID   int64
	Mode        domain.Mode
	Mods        domain.Mods
	MaxCombo    int
	Accuracy    float64
	MissCount   int
	LegacyScore int64
}

// Result is the oracle's answer. HypotheticalPP is the rating with misses removed.
type Result struct {
	Stars          float64 `json:"stars"`
	PP             float64 `json:"pp"`
	HypotheticalPP float64 `json:"hypothetical_pp"`
}

type envelope struct {
	Data *Result `json:"data"`
}

// Client calls the performance service.
type Client struct {
	http *httpx.Client
}

func NewClient(h *httpx.Client) *Client { return &Client{http: h} }

// Calculate returns the rating or an error wrapping domain.ErrOracleUnavailable.
func (c *Client) Calculate(ctx context.Context, r Request) (Result, error) {
	q := url.Values{}
	q.Set("beatmap_id", strconv.FormatInt(r.BeatmapID, 10))
	q.Set("mode", strconv.Itoa(r.Mode.Vanilla()))
	q.Set("mods", strconv.FormatUint(uint64(r.Mods), 10))
	q.Set("max_combo", strconv.Itoa(r.MaxCombo))
	q.Set("accuracy", strconv.FormatFloat(r.Accuracy, 'f', -1, 32))
	q.Set("miss_count", strconv.Itoa(r.MissCount))
	q.Set("legacy_score", strconv.FormatInt(r.LegacyScore, 10))

	var env envelope
	if err := c.http.GetJSON(ctx, "/calculate", q, &env); err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	if env.Data == nil {
		return Result{}, fmt.Errorf("%w: empty response", domain.ErrOracleUnavailable)
	}
	return *env.Data, nil
}
