package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("restrict.pp_cap", map[string]any{"PP": 1234.6, "Limit": 900})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "pp cap exceeded (1235 > 900)" {
		t.Fatalf("got %q", got)
	}
	if _, err := c.Render("webhook.first_place.title", map[string]any{"Player": "x"}); err == nil {
		t.Fatalf("missing field rendered")
	}
	if got := c.RenderOr("nope", nil, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr=%q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("a.yaml", "restrict:\n  short_replay: \"replay too short\"\n")
	write("ignored.txt", "restrict: {short_replay: nope}\n")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, _ := c.Render("restrict.short_replay", nil); got != "replay too short" {
		t.Fatalf("override not applied: %q", got)
	}

	write("b.yml", "restrict:\n  short_replay: \"again\"\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate override accepted: %v", err)
	}
}

func TestBadTemplateRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("x: \"{{.Open\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("unparsable template accepted")
	}
}
