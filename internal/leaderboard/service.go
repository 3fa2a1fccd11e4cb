package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/beatmap"
	"github.com/park285/rhythm-score-server/internal/domain"
)

// Beatmaps is the subset of the beatmap resolver the leaderboard needs.
type Beatmaps interface {
	Resolve(ctx context.Context, k beatmap.Key) (*domain.Beatmap, error)
	ExistsByFilename(ctx context.Context, filename string) (bool, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, name, passwordMD5 string) (*domain.User, error)
}

type FriendLister interface {
	FriendIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Request is one getscores call.
type Request struct {
	Username    string
	PasswordMD5 string
	MapHash     string
	Filename    string
	SetID       int64
	Mode        int
	Mods        domain.Mods
	Kind        int
	FromEditor  bool
	CheatClient bool
}

type Service struct {
	store    Store
	beatmaps Beatmaps
	auth     Authenticator
	friends  FriendLister
	logger   *zap.Logger
}

func NewService(store Store, beatmaps Beatmaps, auth Authenticator, friends FriendLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, beatmaps: beatmaps, auth: auth, friends: friends, logger: logger}
}

// Get answers a getscores call in the legacy format. Authentication errors
// wrap domain.ErrUnauthorized; store failures wrap domain.ErrPersistence.
func (s *Service) Get(ctx context.Context, req Request) (string, error) {
	started := time.Now()
	user, err := s.auth.Authenticate(ctx, req.Username, req.PasswordMD5)
	if err != nil {
		return "", err
	}

	bm, err := s.beatmaps.Resolve(ctx, beatmap.ByHash(req.MapHash))
	if errors.Is(err, domain.ErrNotFound) {
		return s.missing(ctx, req), nil
	}
	if err != nil {
		return "", err
	}

	mode := domain.ModeFromParams(req.Mode, req.Mods)
	avg, err := s.store.AverageRating(ctx, bm.MD5)
	if err != nil {
		s.logger.Warn("average_rating_failed", zap.String("map_md5", bm.MD5), zap.Error(err))
	}
	resp := Response{Beatmap: bm, AverageRating: avg, WithAssists: req.CheatClient}

	if !bm.HasLeaderboard() || req.FromEditor {
		return Format(resp), nil
	}

	q := Query{
		MapHash:     bm.MD5,
		Mode:        mode,
		RequesterID: user.ID,
		Metric:      MetricFor(user.PreferredMetric, mode),
	}
	q.Filter = s.filterFor(ctx, req, user)

	resp.Rows, err = s.store.Scores(ctx, q)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if len(resp.Rows) > 0 {
		s.attachPersonalBest(ctx, &resp, q, user)
	}

	s.logger.Info("leaderboard_served",
		zap.String("mode", mode.String()),
		zap.String("user", user.Name),
		zap.String("filter", q.Filter.Kind.String()),
		zap.Int("rows", len(resp.Rows)),
		zap.Duration("took", time.Since(started)),
	)
	return Format(resp), nil
}

func (s *Service) missing(ctx context.Context, req Request) string {
	if req.SetID <= 0 || req.Filename == "" {
		return Missing(false)
	}
	ok, err := s.beatmaps.ExistsByFilename(ctx, req.Filename)
	if err != nil {
		s.logger.Warn("beatmap_filename_lookup_failed", zap.String("filename", req.Filename), zap.Error(err))
	}
	return Missing(ok)
}

// filterFor resolves the client's board type.
// 친구 보드에는 항상 요청자 본인도 포함.
func (s *Service) filterFor(ctx context.Context, req Request, user *domain.User) Filter {
	f := FilterFromClient(req.Kind, req.Mods, nil, user.Country)
	if f.Kind != KindFriends {
		return f
	}
	var ids []int64
	if s.friends != nil {
		var err error
		ids, err = s.friends.FriendIDs(ctx, user.ID)
		if err != nil {
			s.logger.Warn("friend_lookup_failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	return Friends(append(ids, user.ID))
}

func (s *Service) attachPersonalBest(ctx context.Context, resp *Response, q Query, user *domain.User) {
	pb, err := s.store.PersonalBest(ctx, q.MapHash, q.Mode, user.ID, q.Metric)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("personal_best_failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return
	}
	better, err := s.store.CountBetter(ctx, q.MapHash, q.Mode, q.Metric, pb.Value)
	if err != nil {
		s.logger.Warn("personal_best_rank_failed", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		resp.PersonalRank = better + 1
	}
	pb.Name = user.DisplayName()
	pb.UserID = user.ID
	resp.PersonalBest = pb
}
