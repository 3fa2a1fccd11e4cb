package stats

import (
	"context"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/rhythm-score-server/internal/domain"
)

func newTestTracker(t *testing.T) (*miniredis.Miniredis, *RankTracker) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRankTracker(rdb)
}

func TestPlaytime(t *testing.T) {
	bm := &domain.Beatmap{TotalLength: 120}
	if got := Playtime(&domain.Score{Passed: true, TimeElapsed: 1}, bm); got != 120 {
		t.Fatalf("passed=%d", got)
	}
	if got := Playtime(&domain.Score{TimeElapsed: 60_000}, bm); got != 60 {
		t.Fatalf("failed nomod=%d", got)
	}
	if got := Playtime(&domain.Score{TimeElapsed: 60_000, Mods: domain.ModDoubleTime}, bm); got != 40 {
		t.Fatalf("failed DT=%d", got)
	}
	if got := Playtime(&domain.Score{TimeElapsed: 60_000, Mods: domain.ModHalfTime}, bm); got != 80 {
		t.Fatalf("failed HT=%d", got)
	}
	if got := Playtime(&domain.Score{TimeElapsed: 600_000}, bm); got != 120 {
		t.Fatalf("clamped=%d", got)
	}
}

func TestRecompute(t *testing.T) {
	if pp, acc := Recompute(nil, 0); pp != 0 || acc != 0 {
		t.Fatalf("empty: pp=%d acc=%v", pp, acc)
	}

	entries := []Entry{{PP: 100, Acc: 100}, {PP: 100, Acc: 90}}
	pp, acc := Recompute(entries, 2)
	bonus := 416.6667 * (1 - math.Pow(0.995, 2))
	if want := int(100 + 95 + bonus); pp != want {
		t.Fatalf("pp=%d want %d", pp, want)
	}
	if want := (100 + 90*0.95) / 1.95; math.Abs(acc-want) > 1e-9 {
		t.Fatalf("acc=%v want %v", acc, want)
	}

	pp2, acc2 := Recompute(entries, 2)
	if pp2 != pp || acc2 != acc {
		t.Fatalf("recompute not idempotent")
	}

	// bonus saturates at 1000 scores
	a, _ := Recompute(nil, 1000)
	b, _ := Recompute(nil, 5000)
	if a != b {
		t.Fatalf("bonus not capped: %d vs %d", a, b)
	}
}

func TestRecomputeIgnoresTail(t *testing.T) {
	entries := make([]Entry, 150)
	for i := range entries {
		entries[i] = Entry{PP: 10, Acc: 99}
	}
	full, _ := Recompute(entries, 0)
	top, _ := Recompute(entries[:TopScoreLimit], 0)
	if full != top {
		t.Fatalf("entries past the limit counted: %d vs %d", full, top)
	}
}

func TestApply(t *testing.T) {
	ranked := &domain.Beatmap{Status: domain.RankedRanked, TotalLength: 100}
	loved := &domain.Beatmap{Status: domain.RankedLoved, TotalLength: 100}
	pending := &domain.Beatmap{Status: domain.RankedPending, TotalLength: 100}

	st := &domain.Stats{}
	failed := &domain.Score{Mode: domain.ModeVanillaStd, Score: 1000, N300: 10, TimeElapsed: 50_000}
	if Apply(st, failed, nil, ranked) {
		t.Fatalf("failed play asked for recompute")
	}
	if st.Plays != 1 || st.TotalScore != 1000 || st.TotalHits != 10 || st.Playtime != 50 || st.RankedScore != 0 {
		t.Fatalf("after failed: %+v", st)
	}

	best := &domain.Score{Mode: domain.ModeVanillaStd, Passed: true, Status: domain.StatusBest, Score: 5000, MaxCombo: 300, Grade: domain.GradeS}
	if !Apply(st, best, nil, ranked) {
		t.Fatalf("ranked Best did not ask for recompute")
	}
	if st.RankedScore != 5000 || st.SCount != 1 || st.MaxCombo != 300 {
		t.Fatalf("after first best: %+v", st)
	}

	better := &domain.Score{Mode: domain.ModeVanillaStd, Passed: true, Status: domain.StatusBest, Score: 7000, MaxCombo: 200, Grade: domain.GradeX}
	Apply(st, better, best, ranked)
	if st.RankedScore != 7000 || st.SCount != 0 || st.XCount != 1 || st.MaxCombo != 300 {
		t.Fatalf("after improvement: %+v", st)
	}

	if Apply(st, better, nil, loved) {
		t.Fatalf("loved map asked for recompute")
	}
	combo := st.MaxCombo
	Apply(st, &domain.Score{Passed: true, Status: domain.StatusBest, MaxCombo: 9999}, nil, pending)
	if st.MaxCombo != combo {
		t.Fatalf("pending map raised max combo")
	}

	taiko := &domain.Stats{}
	Apply(taiko, &domain.Score{Mode: domain.ModeVanillaTaiko, N300: 1, NGeki: 2, NKatu: 3}, nil, pending)
	if taiko.TotalHits != 6 {
		t.Fatalf("taiko hits=%d", taiko.TotalHits)
	}
}

func TestRankTrackerOrdering(t *testing.T) {
	ctx := context.Background()
	mr, tr := newTestTracker(t)

	a := &domain.Stats{UserID: 1, Mode: domain.ModeVanillaStd, PP: 500}
	b := &domain.Stats{UserID: 2, Mode: domain.ModeVanillaStd, PP: 800}
	if _, err := tr.Upsert(ctx, a, "KR", false); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if _, err := tr.Upsert(ctx, b, "US", false); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	if r, _ := tr.Rank(ctx, 1, domain.ModeVanillaStd); r != 2 {
		t.Fatalf("rank a=%d", r)
	}
	if r, _ := tr.Rank(ctx, 2, domain.ModeVanillaStd); r != 1 {
		t.Fatalf("rank b=%d", r)
	}
	if !mr.Exists(CountryKey(domain.ModeVanillaStd, "KR")) {
		t.Fatalf("country set missing")
	}

	c := &domain.Stats{UserID: 3, Mode: domain.ModeVanillaStd, PP: 9000}
	r, err := tr.Upsert(ctx, c, "KR", true)
	if err != nil || r != 0 {
		t.Fatalf("restricted upsert: rank=%d err=%v", r, err)
	}
	if r, _ := tr.Rank(ctx, 2, domain.ModeVanillaStd); r != 1 {
		t.Fatalf("restricted player displaced leader: rank=%d", r)
	}
}

func TestRankTrackerUsesXPWithoutRating(t *testing.T) {
	ctx := context.Background()
	_, tr := newTestTracker(t)

	low := &domain.Stats{UserID: 1, Mode: domain.ModeCheatStd, PP: 900, XP: 10}
	high := &domain.Stats{UserID: 2, Mode: domain.ModeCheatStd, PP: 100, XP: 50}
	_, _ = tr.Upsert(ctx, low, "", false)
	_, _ = tr.Upsert(ctx, high, "", false)
	if r, _ := tr.Rank(ctx, 2, domain.ModeCheatStd); r != 1 {
		t.Fatalf("xp leader rank=%d", r)
	}
}

func TestUpdaterRecord(t *testing.T) {
	ctx := context.Background()
	_, tr := newTestTracker(t)

	var bests []*domain.Score
	repo := NewMemoryRepository(func(userID int64, mode domain.Mode) []*domain.Score {
		return append([]*domain.Score(nil), bests...)
	})
	u := NewUpdater(repo, tr, nil)

	user := &domain.User{ID: 7, Country: "KR", Privileges: domain.PrivUnrestricted}
	bm := &domain.Beatmap{Status: domain.RankedRanked, TotalLength: 90}
	s := &domain.Score{UserID: 7, Mode: domain.ModeVanillaStd, Passed: true, Status: domain.StatusBest, PP: 200, Acc: 98, Score: 1000, Grade: domain.GradeA}
	bests = append(bests, s)

	before, after, err := u.Record(ctx, user, s, nil, bm)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if before.Plays != 0 || before.Rank != 0 {
		t.Fatalf("before=%+v", before)
	}
	if after.Plays != 1 || after.PP < 200 || after.Rank != 1 || after.ACount != 1 {
		t.Fatalf("after=%+v", after)
	}

	saved, err := repo.Fetch(ctx, 7, domain.ModeVanillaStd)
	if err != nil || saved.PP != after.PP || saved.Playtime != 90 {
		t.Fatalf("saved=%+v err=%v", saved, err)
	}
}
