package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/httpx"
	"github.com/park285/rhythm-score-server/internal/msgcat"
)

const embedColor = 0x5865F2

type embed struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	Color       int        `json:"color,omitempty"`
	Thumbnail   *embedLink `json:"thumbnail,omitempty"`
	Footer      *embedText `json:"footer,omitempty"`
	Timestamp   string     `json:"timestamp,omitempty"`
}

type embedLink struct {
	URL string `json:"url"`
}

type embedText struct {
	Text string `json:"text"`
}

type message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

// FirstPlace describes a new #1 on a leaderboard map.
type FirstPlace struct {
	Player   *domain.User
	Score    *domain.Score
	Beatmap  *domain.Beatmap
	Previous string // empty when the map had no #1
}

// Webhook posts Discord-style messages. A sink without a URL drops messages.
type Webhook struct {
	scores *httpx.Client
	debug  *httpx.Client
	msgs   *msgcat.Catalog
	domain string
	logger *zap.Logger
}

type Config struct {
	ScoreURL     string
	DebugURL     string
	PublicDomain string
}

func NewWebhook(cfg Config, msgs *msgcat.Catalog, logger *zap.Logger, opts ...httpx.Option) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Webhook{msgs: msgs, domain: strings.TrimSpace(cfg.PublicDomain), logger: logger}
	opts = append([]httpx.Option{httpx.WithTimeout(5 * time.Second)}, opts...)
	if u := strings.TrimSpace(cfg.ScoreURL); u != "" {
		w.scores = httpx.NewClient(u, opts...)
	}
	if u := strings.TrimSpace(cfg.DebugURL); u != "" {
		w.debug = httpx.NewClient(u, opts...)
	}
	return w
}

func (w *Webhook) FirstPlace(ctx context.Context, ev FirstPlace) error {
	if w == nil || w.scores == nil {
		return nil
	}
	s, bm := ev.Score, ev.Beatmap
	data := map[string]any{
		"Player":   ev.Player.DisplayName(),
		"Map":      bm.FullName(),
		"Mode":     s.Mode.String(),
		"Grade":    s.Grade.String(),
		"Acc":      s.Acc,
		"Mods":     s.Mods.String(),
		"PP":       s.PP,
		"Combo":    s.MaxCombo,
		"Previous": ev.Previous,
	}
	footer := w.msgs.RenderOr("webhook.first_place.no_previous", data, "")
	if ev.Previous != "" {
		footer = w.msgs.RenderOr("webhook.first_place.previous", data, "Previous #1: "+ev.Previous)
	}

	e := embed{
		Title:       w.msgs.RenderOr("webhook.first_place.title", data, fmt.Sprintf("%s achieved #1 on %s", data["Player"], data["Map"])),
		Description: w.msgs.RenderOr("webhook.first_place.description", data, ""),
		Color:       embedColor,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if w.domain != "" {
		e.URL = fmt.Sprintf("https://osu.%s/b/%d", w.domain, bm.ID)
		e.Thumbnail = &embedLink{URL: fmt.Sprintf("https://a.%s/%d", w.domain, ev.Player.ID)}
	}
	if footer != "" {
		e.Footer = &embedText{Text: footer}
	}
	return w.post(ctx, w.scores, message{Embeds: []embed{e}})
}

// AntiCheat reports a play whose assists exceed the mode's limits.
func (w *Webhook) AntiCheat(ctx context.Context, u *domain.User, s *domain.Score, bm *domain.Beatmap, violations []string) error {
	if w == nil || w.debug == nil {
		return nil
	}
	data := map[string]any{
		"Player":     u.Name,
		"UserID":     u.ID,
		"Map":        bm.FullName(),
		"Mode":       s.Mode.String(),
		"Violations": strings.Join(violations, ", "),
	}
	content := w.msgs.RenderOr("webhook.anticheat", data,
		fmt.Sprintf("%s (%d) disallowed assists: %s", u.Name, u.ID, data["Violations"]))
	return w.post(ctx, w.debug, message{Content: content})
}

// PPCap reports a play above the player's pp cap.
func (w *Webhook) PPCap(ctx context.Context, u *domain.User, s *domain.Score, bm *domain.Beatmap, limit int) error {
	if w == nil || w.debug == nil {
		return nil
	}
	data := map[string]any{
		"Player": u.Name,
		"UserID": u.ID,
		"Map":    bm.FullName(),
		"Mode":   s.Mode.String(),
		"PP":     s.PP,
		"Limit":  limit,
	}
	content := w.msgs.RenderOr("webhook.pp_cap", data,
		fmt.Sprintf("%s (%d) exceeded pp cap: %.0f > %d", u.Name, u.ID, s.PP, limit))
	return w.post(ctx, w.debug, message{Content: content})
}

func (w *Webhook) post(ctx context.Context, c *httpx.Client, m message) error {
	if err := c.PostJSON(ctx, "", m, nil); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
