package beatmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Catalog is the upstream source of truth for beatmap metadata.
type Catalog interface {
	ByHash(ctx context.Context, md5 string) ([]domain.Beatmap, error)
	ByID(ctx context.Context, id int64) ([]domain.Beatmap, error)
	BySet(ctx context.Context, setID int64) ([]domain.Beatmap, error)
}

// Resolver looks beatmaps up through memory, the store and the catalog, in that order.
type Resolver struct {
	cache   *Cache
	repo    Repository
	catalog Catalog
	logger  *zap.Logger

	group singleflight.Group
	now   func() time.Time
	// loadTimeout bounds a collapsed load, which runs detached from any single caller.
	loadTimeout time.Duration
}

type ResolverOption func(*Resolver)

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(cache *Cache, repo Repository, catalog Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:       cache,
		repo:        repo,
		catalog:     catalog,
		logger:      zap.NewNop(),
		now:         time.Now,
		loadTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache exposes the memory tier.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns a copy of the beatmap for k, or an error wrapping domain.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, k Key) (*domain.Beatmap, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: empty beatmap key", domain.ErrNotFound)
	}
	if bm, ok := r.cache.Get(k); ok {
		return bm, nil
	}

	ch := r.group.DoChan(k.String(), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		return r.load(loadCtx, k)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Beatmap).Clone(), nil
	}
}

func (r *Resolver) load(ctx context.Context, k Key) (*domain.Beatmap, error) {
	local, err := r.fetchLocal(ctx, k)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if local != nil {
		set, err := r.repo.FetchBySet(ctx, local.SetID)
		if err != nil {
			r.logger.Warn("beatmap_set_lookup_failed", zap.Int64("set_id", local.SetID), zap.Error(err))
		}
		if !IsStale(local, set, r.now()) {
			r.cache.Put(local)
			return local, nil
		}
	}

	fresh, err := r.refreshFromCatalog(ctx, k, local)
	switch {
	case err == nil:
		r.cache.Put(fresh)
		return fresh, nil
	case errors.Is(err, errRemovedUpstream):
		return nil, fmt.Errorf("%w: beatmap %s", domain.ErrNotFound, k)
	case local != nil:
		// 오래된 행도 그대로 사용. 메모리에는 넣지 않아 다음 조회에서 다시 확인
		r.logger.Warn("beatmap_catalog_refresh_failed",
			zap.String("key", k.String()),
			zap.Int64("set_id", local.SetID),
			zap.Error(err),
		)
		return local, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: beatmap %s (%v)", domain.ErrNotFound, k, err)
	}
}

func (r *Resolver) fetchLocal(ctx context.Context, k Key) (*domain.Beatmap, error) {
	if k.Hash != "" {
		return r.repo.FetchByHash(ctx, k.Hash)
	}
	return r.repo.FetchByID(ctx, k.ID)
}

var errRemovedUpstream = errors.New("beatmap removed upstream")

func (r *Resolver) refreshFromCatalog(ctx context.Context, k Key, local *domain.Beatmap) (*domain.Beatmap, error) {
	if r.catalog == nil {
		return nil, errors.New("no catalog configured")
	}

	var setID int64
	if local != nil {
		setID = local.SetID
	} else {
		var (
			rows []domain.Beatmap
			err  error
		)
		if k.Hash != "" {
			rows, err = r.catalog.ByHash(ctx, k.Hash)
		} else {
			rows, err = r.catalog.ByID(ctx, k.ID)
		}
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: beatmap %s not in catalog", domain.ErrNotFound, k)
		}
		setID = rows[0].SetID
	}

	upstream, err := r.catalog.BySet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if len(upstream) == 0 {
		// 빈 셋은 조회 실패로 취급. 삭제로 해석하지 않음
		return nil, fmt.Errorf("%w: set %d empty in catalog", domain.ErrNotFound, setID)
	}

	if err := r.reconcile(ctx, setID, upstream); err != nil {
		return nil, err
	}

	fresh, err := r.fetchLocal(ctx, k)
	if errors.Is(err, domain.ErrNotFound) {
		if local != nil {
			return nil, errRemovedUpstream
		}
		return nil, err
	}
	return fresh, err
}

// reconcile makes the stored set match upstream. Frozen difficulties keep their status
// and are never removed as orphans.
func (r *Resolver) reconcile(ctx context.Context, setID int64, upstream []domain.Beatmap) error {
	existing, err := r.repo.FetchBySet(ctx, setID)
	if err != nil {
		return fmt.Errorf("%w: load set %d: %v", domain.ErrPersistence, setID, err)
	}
	known := make(map[int64]*domain.Beatmap, len(existing))
	for _, bm := range existing {
		known[bm.ID] = bm
	}

	now := r.now()
	seen := make(map[int64]bool, len(upstream))
	for i := range upstream {
		up := upstream[i]
		seen[up.ID] = true
		if prev, ok := known[up.ID]; ok {
			up.Frozen = prev.Frozen
			up.Plays, up.Passes = prev.Plays, prev.Passes
			if prev.Frozen {
				up.Status = prev.Status
			}
			if prev.MD5 != up.MD5 {
				r.cache.Invalidate(ByHash(prev.MD5))
			}
		}
		up.LastCatalogCheck = now
		if err := r.repo.Upsert(ctx, &up); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		r.cache.Invalidate(ByID(up.ID))
	}

	var orphans []int64
	for id, bm := range known {
		if !seen[id] && !bm.Frozen {
			orphans = append(orphans, id)
			r.cache.Invalidate(ByID(id))
			r.cache.Invalidate(ByHash(bm.MD5))
		}
	}
	if len(orphans) > 0 {
		if err := r.repo.DeleteWithScores(ctx, orphans); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		r.logger.Info("beatmap_orphans_removed", zap.Int64("set_id", setID), zap.Int64s("ids", orphans))
	}

	if err := r.repo.StampSetChecked(ctx, setID, now); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	r.logger.Debug("beatmap_set_reconciled", zap.Int64("set_id", setID), zap.Int("diffs", len(upstream)))
	return nil
}

// Refresh drops k from memory and reloads it from the store when present.
// It is the handler for cross-process invalidation events.
func (r *Resolver) Refresh(ctx context.Context, payload string) error {
	k := ParseKey(payload)
	if !k.valid() {
		return fmt.Errorf("invalid refresh payload %q", payload)
	}
	r.cache.Invalidate(k)

	bm, err := r.fetchLocal(ctx, k)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload %s: %w", k, err)
	}
	r.cache.Put(bm)
	r.logger.Info("beatmap_refreshed", zap.String("key", k.String()), zap.Int64("id", bm.ID))
	return nil
}

// IncrementPlaycount bumps plays (and passes) in the store and in memory.
func (r *Resolver) IncrementPlaycount(ctx context.Context, bm *domain.Beatmap, passed bool) error {
	plays, passes, err := r.repo.IncrementPlaycount(ctx, bm.MD5, passed)
	if err != nil {
		return err
	}
	bm.Plays, bm.Passes = plays, passes
	r.cache.update(ByHash(bm.MD5), func(c *domain.Beatmap) {
		c.Plays, c.Passes = plays, passes
	})
	return nil
}

// ExistsByFilename reports whether some difficulty is stored under filename.
func (r *Resolver) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	_, err := r.repo.FetchByFilename(ctx, filename)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
