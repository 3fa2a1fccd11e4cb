package beatmap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/pubsub"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	mu    sync.Mutex
	sets  map[int64][]domain.Beatmap
	err   error
	calls atomic.Int32
}

func (f *fakeCatalog) find(match func(domain.Beatmap) bool) ([]domain.Beatmap, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, set := range f.sets {
		for _, bm := range set {
			if match(bm) {
				return []domain.Beatmap{bm}, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ByHash(ctx context.Context, md5 string) ([]domain.Beatmap, error) {
	return f.find(func(b domain.Beatmap) bool { return b.MD5 == md5 })
}

func (f *fakeCatalog) ByID(ctx context.Context, id int64) ([]domain.Beatmap, error) {
	return f.find(func(b domain.Beatmap) bool { return b.ID == id })
}

func (f *fakeCatalog) BySet(ctx context.Context, setID int64) ([]domain.Beatmap, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Beatmap(nil), f.sets[setID]...), nil
}

type countingRepo struct {
	Repository
	hashLookups atomic.Int32
}

func (c *countingRepo) FetchByHash(ctx context.Context, md5 string) (*domain.Beatmap, error) {
	c.hashLookups.Add(1)
	return c.Repository.FetchByHash(ctx, md5)
}

func sampleMap(id int64, md5 string, status domain.RankedStatus) domain.Beatmap {
	return domain.Beatmap{
		ID: id, SetID: 10, MD5: md5, Status: status,
		Artist: "Artist", Title: "Title", Version: "Diff", Creator: "mapper",
		TotalLength: 120, MaxCombo: 500,
		LastUpdate: testNow.AddDate(-1, 0, 0),
	}
}

func newTestResolver(t *testing.T, cat Catalog) (*Resolver, *countingRepo) {
	t.Helper()
	repo := &countingRepo{Repository: NewMemoryRepository()}
	return NewResolver(NewCache(), repo, cat, WithClock(func() time.Time { return testNow })), repo
}

func TestCacheIndexesAndCopies(t *testing.T) {
	c := NewCache()
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	c.Put(&bm)

	got, ok := c.Get(ByID(1))
	if !ok || got.MD5 != "aaa" {
		t.Fatalf("by id: %v %v", got, ok)
	}
	got.Title = "mutated"
	again, _ := c.Get(ByHash("AAA"))
	if again.Title != "Title" {
		t.Fatalf("cache handed out shared pointer")
	}

	c.Invalidate(ByHash("aaa"))
	if _, ok := c.Get(ByID(1)); ok {
		t.Fatalf("invalidate by hash must clear id index")
	}
	if c.Len() != 0 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestCachePutReplacesChangedHash(t *testing.T) {
	c := NewCache()
	bm := sampleMap(1, "old", domain.RankedRanked)
	c.Put(&bm)
	bm.MD5 = "new"
	c.Put(&bm)
	if _, ok := c.Get(ByHash("old")); ok {
		t.Fatalf("stale hash still indexed")
	}
}

func TestRefreshIntervalGrowsAndCaps(t *testing.T) {
	recent := []*domain.Beatmap{{LastUpdate: testNow.Add(-time.Hour)}}
	if d := RefreshInterval(recent, testNow); d < 2*time.Hour || d > 2*time.Hour+time.Minute {
		t.Fatalf("recent interval=%v", d)
	}
	year := []*domain.Beatmap{{LastUpdate: testNow.AddDate(0, 0, -365)}, {LastUpdate: testNow}}
	if d := RefreshInterval(year, testNow); d != 7*time.Hour {
		t.Fatalf("one-year interval=%v", d)
	}
	ancient := []*domain.Beatmap{{LastUpdate: testNow.AddDate(-20, 0, 0)}}
	if d := RefreshInterval(ancient, testNow); d != 24*time.Hour {
		t.Fatalf("capped interval=%v", d)
	}
}

func TestResolveMemoryHitSkipsStore(t *testing.T) {
	r, repo := newTestResolver(t, &fakeCatalog{})
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	r.Cache().Put(&bm)

	got, err := r.Resolve(context.Background(), ByHash("aaa"))
	if err != nil || got.ID != 1 {
		t.Fatalf("Resolve: %v %v", got, err)
	}
	if repo.hashLookups.Load() != 0 {
		t.Fatalf("store consulted on memory hit")
	}
}

func TestResolveFreshStoreRowIsCached(t *testing.T) {
	cat := &fakeCatalog{}
	r, repo := newTestResolver(t, cat)
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	bm.LastCatalogCheck = testNow.Add(-time.Minute)
	_ = repo.Upsert(context.Background(), &bm)

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background(), ByHash("aaa")); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if repo.hashLookups.Load() != 1 {
		t.Fatalf("store lookups=%d", repo.hashLookups.Load())
	}
	if cat.calls.Load() != 0 {
		t.Fatalf("catalog consulted for fresh row")
	}
}

func TestResolveFromCatalogReconcilesSet(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{sets: map[int64][]domain.Beatmap{10: {
		sampleMap(1, "aaa", domain.RankedLoved),
		sampleMap(2, "bbb", domain.RankedRanked),
	}}}
	r, repo := newTestResolver(t, cat)

	// frozen diff with a local status override, plus one diff gone upstream
	frozen := sampleMap(1, "aaa", domain.RankedRanked)
	frozen.Frozen = true
	orphan := sampleMap(3, "ccc", domain.RankedRanked)
	_ = repo.Upsert(ctx, &frozen)
	_ = repo.Upsert(ctx, &orphan)

	got, err := r.Resolve(ctx, ByHash("bbb"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != 2 || !got.LastCatalogCheck.Equal(testNow) {
		t.Fatalf("got=%+v", got)
	}

	kept, err := repo.FetchByID(ctx, 1)
	if err != nil || kept.Status != domain.RankedRanked {
		t.Fatalf("frozen status overwritten: %+v %v", kept, err)
	}
	if _, err := repo.FetchByID(ctx, 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("orphan not removed: %v", err)
	}
	if del := repo.Repository.(*memrepo).Deleted(); len(del) != 1 || del[0] != 3 {
		t.Fatalf("deleted=%v", del)
	}
}

func TestResolveStaleRowSurvivesCatalogOutage(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{err: errors.New("catalog down")}
	r, repo := newTestResolver(t, cat)
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	bm.LastCatalogCheck = testNow.Add(-48 * time.Hour)
	_ = repo.Upsert(ctx, &bm)

	got, err := r.Resolve(ctx, ByHash("aaa"))
	if err != nil || got.ID != 1 {
		t.Fatalf("Resolve: %v %v", got, err)
	}
	if _, ok := r.Cache().Get(ByHash("aaa")); ok {
		t.Fatalf("stale fallback must not be cached")
	}
}

func TestResolveFrozenRowSkipsCatalog(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{sets: map[int64][]domain.Beatmap{10: {sampleMap(1, "aaa", domain.RankedPending)}}}
	r, repo := newTestResolver(t, cat)
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	bm.Frozen = true
	bm.LastCatalogCheck = testNow.Add(-7 * 24 * time.Hour)
	_ = repo.Upsert(ctx, &bm)

	if IsStale(&bm, nil, testNow) {
		t.Fatalf("frozen row reported stale")
	}
	got, err := r.Resolve(ctx, ByHash("aaa"))
	if err != nil || got.Status != domain.RankedRanked {
		t.Fatalf("Resolve: %+v %v", got, err)
	}
	if cat.calls.Load() != 0 {
		t.Fatalf("catalog calls=%d", cat.calls.Load())
	}
}

func TestReconcileKeepsFrozenOrphan(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{sets: map[int64][]domain.Beatmap{10: {sampleMap(2, "bbb", domain.RankedRanked)}}}
	r, repo := newTestResolver(t, cat)
	frozen := sampleMap(1, "aaa", domain.RankedLoved)
	frozen.Frozen = true
	_ = repo.Upsert(ctx, &frozen)

	if _, err := r.Resolve(ctx, ByHash("bbb")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if del := repo.Repository.(*memrepo).Deleted(); len(del) != 0 {
		t.Fatalf("deleted=%v", del)
	}
	kept, err := repo.FetchByID(ctx, 1)
	if err != nil || !kept.Frozen || kept.Status != domain.RankedLoved {
		t.Fatalf("frozen orphan: %+v %v", kept, err)
	}
}

func TestResolveUnknownMap(t *testing.T) {
	r, _ := newTestResolver(t, &fakeCatalog{})
	if _, err := r.Resolve(context.Background(), ByHash("zzz")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	r2, _ := newTestResolver(t, &fakeCatalog{err: errors.New("down")})
	if _, err := r2.Resolve(context.Background(), ByID(5)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolveRemovedUpstream(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{sets: map[int64][]domain.Beatmap{10: {sampleMap(2, "bbb", domain.RankedRanked)}}}
	r, repo := newTestResolver(t, cat)
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	_ = repo.Upsert(ctx, &bm)

	if _, err := r.Resolve(ctx, ByHash("aaa")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolveCollapsesConcurrentMisses(t *testing.T) {
	cat := &fakeCatalog{sets: map[int64][]domain.Beatmap{10: {sampleMap(1, "aaa", domain.RankedRanked)}}}
	r, _ := newTestResolver(t, cat)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), ByHash("aaa")); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := cat.calls.Load(); n > 4 {
		t.Fatalf("catalog calls=%d", n)
	}
}

func TestRefreshEventReloadsFromStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r, repo := newTestResolver(t, &fakeCatalog{})
	bm := sampleMap(1, "aaa", domain.RankedPending)
	bm.LastCatalogCheck = testNow
	_ = repo.Upsert(ctx, &bm)
	if _, err := r.Resolve(ctx, ByHash("aaa")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// another process ranks the map and announces it
	bm.Status = domain.RankedRanked
	_ = repo.Upsert(ctx, &bm)

	sub := pubsub.NewSubscriber(rdb, nil)
	sub.Handle(pubsub.ChannelRefreshMap, r.Refresh)
	ready := make(chan struct{})
	go func() { _ = sub.Run(ctx, ready) }()
	<-ready
	if err := pubsub.NewPublisher(rdb, nil).RefreshMap(ctx, "aaa"); err != nil {
		t.Fatalf("RefreshMap: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, ok := r.Cache().Get(ByHash("aaa"))
		if ok && got.Status == domain.RankedRanked {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("cache not refreshed after invalidation event")
}

func TestIncrementPlaycountUpdatesMemory(t *testing.T) {
	ctx := context.Background()
	r, repo := newTestResolver(t, &fakeCatalog{})
	bm := sampleMap(1, "aaa", domain.RankedRanked)
	bm.LastCatalogCheck = testNow
	_ = repo.Upsert(ctx, &bm)
	got, _ := r.Resolve(ctx, ByHash("aaa"))

	if err := r.IncrementPlaycount(ctx, got, true); err != nil {
		t.Fatalf("IncrementPlaycount: %v", err)
	}
	cached, _ := r.Cache().Get(ByHash("aaa"))
	if cached.Plays != 1 || cached.Passes != 1 || got.Plays != 1 {
		t.Fatalf("cached=%+v got=%+v", cached, got)
	}
}
