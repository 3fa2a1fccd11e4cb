package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/background"
	"github.com/park285/rhythm-score-server/internal/beatmap"
	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/lock"
	"github.com/park285/rhythm-score-server/internal/msgcat"
	"github.com/park285/rhythm-score-server/internal/notify"
	"github.com/park285/rhythm-score-server/internal/score"
	"github.com/park285/rhythm-score-server/internal/scoredata"
)

// MinReplaySize is the smallest replay a real client uploads.
const MinReplaySize = 24

// Request is one decoded multipart submission.
type Request struct {
	Payload     scoredata.Payload
	PasswordMD5 string
	ExitedOut   bool
	FailTime    int
	ScoreTime   int
	Assists     domain.AssistValues
	CheatClient bool
	ReplaySize  int
}

type Beatmaps interface {
	Resolve(ctx context.Context, k beatmap.Key) (*domain.Beatmap, error)
	IncrementPlaycount(ctx context.Context, bm *domain.Beatmap, passed bool) error
}

type Players interface {
	Authenticate(ctx context.Context, name, passwordMD5 string) (*domain.User, error)
}

type ActivityStamper interface {
	UpdateLatestActivity(ctx context.Context, userID int64, at time.Time) error
}

type Rater interface {
	Rate(ctx context.Context, s *domain.Score, bm *domain.Beatmap)
}

type StatsRecorder interface {
	Record(ctx context.Context, user *domain.User, s, prevBest *domain.Score, bm *domain.Beatmap) (before, after *domain.Stats, err error)
}

// Events are the cross-process signals a submission emits.
type Events interface {
	Announce(ctx context.Context, scoreID int64) error
	Restrict(ctx context.Context, userID int64, reason string) error
	Notify(ctx context.Context, userID int64, message string) error
	RefreshStats(ctx context.Context, userID int64) error
	ScoreSubmitted(ctx context.Context, scoreID int64) error
}

type Notifier interface {
	FirstPlace(ctx context.Context, ev notify.FirstPlace) error
	AntiCheat(ctx context.Context, u *domain.User, s *domain.Score, bm *domain.Beatmap, violations []string) error
	PPCap(ctx context.Context, u *domain.User, s *domain.Score, bm *domain.Beatmap, limit int) error
}

type Dispatcher interface {
	Go(name string, fn background.Task) bool
}

// Deps wires the collaborators of a Service.
type Deps struct {
	Beatmaps Beatmaps
	Players  Players
	Activity ActivityStamper
	Scores   score.Repository
	Rater    Rater
	Stats    StatsRecorder
	Locker   lock.Locker
	Events   Events
	Notifier Notifier
	Tasks    Dispatcher
	Messages *msgcat.Catalog
	Logger   *zap.Logger

	LockLease    time.Duration
	PublicDomain string
}

type Service struct {
	d   Deps
	log *zap.Logger
	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.LockLease <= 0 {
		d.LockLease = lock.DefaultLease
	}
	if d.Tasks == nil {
		d.Tasks = inline{log: d.Logger}
	}
	return &Service{d: d, log: d.Logger, now: time.Now}
}

// inline runs tasks on the caller's goroutine.
type inline struct {
	log *zap.Logger
}

func (i inline) Go(name string, fn background.Task) bool {
	if err := fn(context.Background()); err != nil {
		i.log.Warn("background_task_failed", zap.String("task", name), zap.Error(err))
	}
	return true
}

// outcome collects what the response and the side effects need.
type outcome struct {
	user     *domain.User
	bm       *domain.Beatmap
	sc       *domain.Score
	prevBest *domain.Score
	prevRank int
	prevTop  *score.FirstPlace
	before   *domain.Stats
	after    *domain.Stats
}

// Submit processes one submission and returns the charts body. Errors wrap
// the domain sentinels. The work is not cancelled when ctx is.
func (s *Service) Submit(ctx context.Context, req Request) (string, error) {
	ctx = context.WithoutCancel(ctx)

	decoded, err := scoredata.Decode(req.Payload)
	if err != nil {
		return "", err
	}
	header, err := decoded.Header()
	if err != nil {
		return "", err
	}

	user, err := s.d.Players.Authenticate(ctx, header.Username, req.PasswordMD5)
	if err != nil {
		return "", err
	}
	bm, err := s.d.Beatmaps.Resolve(ctx, beatmap.ByHash(header.MapHash))
	if err != nil {
		return "", err
	}
	sc, err := scoredata.ParseScore(decoded.ScoreFields())
	if err != nil {
		return "", err
	}
	sc.MapHash = bm.MD5
	sc.UserID = user.ID
	if req.ExitedOut && !sc.Passed {
		sc.Status = domain.StatusQuit
	}

	if s.d.Activity != nil {
		if err := s.d.Activity.UpdateLatestActivity(ctx, user.ID, s.now()); err != nil {
			s.log.Warn("latest_activity_update_failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	guard, err := s.acquire(ctx, lock.SubmissionKey(sc.OnlineChecksum))
	if err != nil {
		return "", err
	}
	defer s.release(guard)

	if _, err := s.d.Scores.FetchByChecksum(ctx, sc.OnlineChecksum); err == nil {
		return "", fmt.Errorf("%w: checksum %s already stored", domain.ErrDuplicateSubmission, sc.OnlineChecksum)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	o := &outcome{user: user, bm: bm, sc: sc}
	if err := s.evaluate(ctx, req, o); err != nil {
		return "", err
	}

	s.afterInsert(ctx, req, o)
	return BuildCharts(o.chartInput(s.d.PublicDomain)), nil
}

func (s *Service) acquire(ctx context.Context, key string) (lock.Guard, error) {
	g, err := s.d.Locker.Acquire(ctx, key, s.d.LockLease)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, fmt.Errorf("%w: %s busy, retry", domain.ErrDuplicateSubmission, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", domain.ErrPersistence, key, err)
	}
	return g, nil
}

func (s *Service) release(g lock.Guard) {
	if g == nil {
		return
	}
	if err := g.Release(context.Background()); err != nil {
		s.log.Warn("lock_release_failed", zap.String("key", g.Key()), zap.Error(err))
	}
}

// evaluate scores the play and stores it. Everything up to the insert is
// rolled back by simply returning: nothing durable has happened yet.
func (s *Service) evaluate(ctx context.Context, req Request, o *outcome) error {
	user, bm, sc := o.user, o.bm, o.sc

	sc.Assists = req.Assists
	if req.CheatClient {
		if v := score.ValidateAssists(sc.Mode, sc.Assists); len(v) > 0 {
			s.flagAssists(user, sc, bm, v)
		}
	}

	sc.Acc = score.Accuracy(sc)
	if s.d.Rater != nil {
		s.d.Rater.Rate(ctx, sc, bm)
	}
	if sc.Passed {
		sc.TimeElapsed = req.ScoreTime
	} else {
		sc.TimeElapsed = req.FailTime
	}

	if sc.Passed {
		bestGuard, err := s.acquire(ctx, lock.BestKey(user.ID, bm.MD5, int(sc.Mode)))
		if err != nil {
			return err
		}
		defer s.release(bestGuard)

		if err := s.rank(ctx, o); err != nil {
			return err
		}
	}
	sc.XP = score.XP(sc, bm)

	if limit, over := score.CheckPPCap(sc.Mode, sc.PP, user); over {
		s.flagPPCap(user, sc, bm, limit)
	}

	id, err := s.d.Scores.InsertWithDemotion(ctx, sc)
	if err != nil {
		return err
	}
	sc.ID = id

	before, after, err := s.d.Stats.Record(ctx, user, sc, o.prevBest, bm)
	if err != nil {
		// 점수는 이미 저장됨. 통계 갱신 실패가 클라이언트 재시도로 이어지면 안 됨
		s.log.Error("stats_update_failed", zap.Int64("user_id", user.ID), zap.Int64("score_id", id), zap.Error(err))
		before, after = &domain.Stats{UserID: user.ID, Mode: sc.Mode}, &domain.Stats{UserID: user.ID, Mode: sc.Mode}
	}
	o.before, o.after = before, after
	return nil
}

// rank decides status and placement. It runs under the personal-best lock.
func (s *Service) rank(ctx context.Context, o *outcome) error {
	user, bm, sc := o.user, o.bm, o.sc

	prev, err := s.d.Scores.FetchBest(ctx, user.ID, bm.MD5, sc.Mode)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		prev = nil
	case err != nil:
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	o.prevBest = prev
	sc.Status, _ = score.DetermineStatus(prev, sc)

	if sc.Rank, err = score.Placement(ctx, s.d.Scores, bm, sc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if prev != nil {
		if o.prevRank, err = score.Placement(ctx, s.d.Scores, bm, prev); err != nil {
			s.log.Warn("previous_rank_failed", zap.Int64("score_id", prev.ID), zap.Error(err))
		}
	}

	if sc.Status == domain.StatusBest && bm.HasLeaderboard() && sc.Rank == 1 && !user.Restricted() {
		top, err := s.d.Scores.FetchFirstPlace(ctx, bm.MD5, sc.Mode)
		if err == nil && top.UserID != user.ID {
			o.prevTop = top
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("first_place_lookup_failed", zap.String("map_md5", bm.MD5), zap.Error(err))
		}
		if o.prevTop == nil {
			o.prevTop = &score.FirstPlace{}
		}
	}
	return nil
}

func (s *Service) flagAssists(user *domain.User, sc *domain.Score, bm *domain.Beatmap, v []score.Violation) {
	details := make([]string, 0, len(v))
	for _, x := range v {
		details = append(details, x.String())
	}
	s.log.Warn("assist_values_rejected",
		zap.String("mode", sc.Mode.String()),
		zap.Int64("user_id", user.ID),
		zap.String("user", user.Name),
		zap.Strings("violations", details),
	)
	if s.d.Notifier == nil {
		return
	}
	u, scc, b := user, sc.Clone(), bm.Clone()
	s.d.Tasks.Go("anticheat_webhook", func(ctx context.Context) error {
		return s.d.Notifier.AntiCheat(ctx, u, scc, b, details)
	})
}

func (s *Service) flagPPCap(user *domain.User, sc *domain.Score, bm *domain.Beatmap, limit int) {
	s.log.Warn("pp_cap_exceeded",
		zap.String("mode", sc.Mode.String()),
		zap.Int64("user_id", user.ID),
		zap.Float64("pp", sc.PP),
		zap.Int("limit", limit),
	)
	reason := s.d.Messages.RenderOr("restrict.pp_cap", map[string]any{"PP": sc.PP, "Limit": limit},
		fmt.Sprintf("pp cap exceeded (%.0f > %d)", sc.PP, limit))
	u, scc, b := user, sc.Clone(), bm.Clone()
	s.d.Tasks.Go("pp_cap_restrict", func(ctx context.Context) error {
		if s.d.Notifier != nil {
			if err := s.d.Notifier.PPCap(ctx, u, scc, b, limit); err != nil {
				s.log.Warn("pp_cap_webhook_failed", zap.Error(err))
			}
		}
		if s.d.Events == nil {
			return nil
		}
		return s.d.Events.Restrict(ctx, u.ID, reason)
	})
}

// afterInsert schedules every side effect of a stored score. Failures are logged only.
func (s *Service) afterInsert(ctx context.Context, req Request, o *outcome) {
	user, bm, sc := o.user, o.bm.Clone(), o.sc.Clone()
	ev := s.d.Events

	if o.prevTop != nil && s.d.Notifier != nil {
		fp := notify.FirstPlace{Player: user, Score: sc, Beatmap: bm, Previous: o.prevTop.Name}
		s.d.Tasks.Go("first_place_webhook", func(ctx context.Context) error {
			return s.d.Notifier.FirstPlace(ctx, fp)
		})
	}

	if sc.Passed && ev != nil {
		if sc.Rank == 1 && bm.HasLeaderboard() {
			s.d.Tasks.Go("announce", func(ctx context.Context) error { return ev.Announce(ctx, sc.ID) })
		}
		if req.ReplaySize < MinReplaySize {
			reason := s.d.Messages.RenderOr("restrict.short_replay", nil, "score submitter?")
			s.d.Tasks.Go("short_replay_restrict", func(ctx context.Context) error { return ev.Restrict(ctx, user.ID, reason) })
		}
		if sc.Status == domain.StatusBest && bm.AwardsRankedPP() && sc.Rank > 0 && !user.Restricted() {
			msg := s.d.Messages.RenderOr("player.personal_best",
				map[string]any{"Map": bm.FullName(), "Rank": sc.Rank, "PP": sc.PP},
				fmt.Sprintf("New personal best on %s: #%d", bm.FullName(), sc.Rank))
			s.d.Tasks.Go("personal_best_notify", func(ctx context.Context) error { return ev.Notify(ctx, user.ID, msg) })
		}
	}

	if !user.Restricted() {
		if ev != nil {
			s.d.Tasks.Go("refresh_stats", func(ctx context.Context) error { return ev.RefreshStats(ctx, user.ID) })
		}
		s.d.Tasks.Go("increment_playcount", func(ctx context.Context) error {
			return s.d.Beatmaps.IncrementPlaycount(ctx, bm, sc.Passed)
		})
	}
	if ev != nil {
		s.d.Tasks.Go("score_submitted", func(ctx context.Context) error { return ev.ScoreSubmitted(ctx, sc.ID) })
	}

	s.log.Info("score_submitted",
		zap.String("mode", sc.Mode.String()),
		zap.String("user", user.Name),
		zap.Int64("score_id", sc.ID),
		zap.String("status", sc.Status.String()),
		zap.Float64("pp", sc.PP),
		zap.Int("total_pp", o.after.PP),
	)
}
