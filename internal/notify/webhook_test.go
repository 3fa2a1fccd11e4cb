package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/msgcat"
)

type capture struct {
	mu     sync.Mutex
	bodies []message
}

func (c *capture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var m message
		if err := json.Unmarshal(b, &m); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		c.mu.Lock()
		c.bodies = append(c.bodies, m)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestWebhook(t *testing.T) (*capture, *capture, *Webhook) {
	t.Helper()
	scores, debug := &capture{}, &capture{}
	ss := httptest.NewServer(scores.handler(t))
	t.Cleanup(ss.Close)
	ds := httptest.NewServer(debug.handler(t))
	t.Cleanup(ds.Close)

	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	w := NewWebhook(Config{ScoreURL: ss.URL, DebugURL: ds.URL, PublicDomain: "example.com"}, msgs, nil)
	return scores, debug, w
}

var (
	testUser = &domain.User{ID: 5, Name: "alice", ClanTag: "AB"}
	testMap  = &domain.Beatmap{ID: 77, Artist: "Art", Title: "Song", Version: "Insane"}
)

func TestFirstPlaceEmbed(t *testing.T) {
	scores, _, w := newTestWebhook(t)
	s := &domain.Score{Mode: domain.ModeVanillaStd, Grade: domain.GradeS, Acc: 98.5, PP: 321.456, MaxCombo: 800, Mods: domain.ModHidden}

	if err := w.FirstPlace(context.Background(), FirstPlace{Player: testUser, Score: s, Beatmap: testMap, Previous: "bob"}); err != nil {
		t.Fatalf("FirstPlace: %v", err)
	}
	if len(scores.bodies) != 1 || len(scores.bodies[0].Embeds) != 1 {
		t.Fatalf("payloads=%+v", scores.bodies)
	}
	e := scores.bodies[0].Embeds[0]
	if e.Title != "[AB] alice achieved #1 on Art - Song [Insane]" {
		t.Fatalf("title=%q", e.Title)
	}
	if !strings.Contains(e.Description, "321.46pp") || !strings.Contains(e.Description, "HD") {
		t.Fatalf("description=%q", e.Description)
	}
	if e.Footer == nil || e.Footer.Text != "Previous #1: bob" {
		t.Fatalf("footer=%+v", e.Footer)
	}
	if e.URL != "https://osu.example.com/b/77" {
		t.Fatalf("url=%q", e.URL)
	}
}

func TestAntiCheatMessage(t *testing.T) {
	_, debug, w := newTestWebhook(t)
	s := &domain.Score{Mode: domain.ModeCheatStd}
	if err := w.AntiCheat(context.Background(), testUser, s, testMap, []string{"aim_correction: value 90 exceeds 60"}); err != nil {
		t.Fatalf("AntiCheat: %v", err)
	}
	if len(debug.bodies) != 1 || !strings.Contains(debug.bodies[0].Content, "aim_correction") ||
		!strings.Contains(debug.bodies[0].Content, "cheat!std") {
		t.Fatalf("payloads=%+v", debug.bodies)
	}
}

func TestUnconfiguredSinkDrops(t *testing.T) {
	w := NewWebhook(Config{}, nil, nil)
	if err := w.AntiCheat(context.Background(), testUser, &domain.Score{}, testMap, nil); err != nil {
		t.Fatalf("AntiCheat: %v", err)
	}
	if err := w.FirstPlace(context.Background(), FirstPlace{}); err != nil {
		t.Fatalf("FirstPlace: %v", err)
	}
}
