package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/background"
	"github.com/park285/rhythm-score-server/internal/beatmap"
	"github.com/park285/rhythm-score-server/internal/catalog"
	appcfg "github.com/park285/rhythm-score-server/internal/config"
	"github.com/park285/rhythm-score-server/internal/database"
	"github.com/park285/rhythm-score-server/internal/httpapi"
	"github.com/park285/rhythm-score-server/internal/httpx"
	"github.com/park285/rhythm-score-server/internal/leaderboard"
	"github.com/park285/rhythm-score-server/internal/lock"
	"github.com/park285/rhythm-score-server/internal/msgcat"
	"github.com/park285/rhythm-score-server/internal/notify"
	"github.com/park285/rhythm-score-server/internal/obslog"
	"github.com/park285/rhythm-score-server/internal/oracle"
	"github.com/park285/rhythm-score-server/internal/player"
	"github.com/park285/rhythm-score-server/internal/pubsub"
	"github.com/park285/rhythm-score-server/internal/score"
	"github.com/park285/rhythm-score-server/internal/stats"
	"github.com/park285/rhythm-score-server/internal/submission"
)

const (
	janitorInterval = 30 * time.Second
	shutdownTimeout = 20 * time.Second
	userAgent       = "rhythm-score-server/1"
)

func main() {
	// .env는 선택 사항. 운영 환경은 환경 변수를 직접 주입
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_load_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server_exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *appcfg.AppConfig, logger *zap.Logger) error {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := database.OpenPostgres(openCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		return err
	}
	defer db.Close()
	rdb, err := database.OpenRedis(openCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		return err
	}
	defer rdb.Close()

	msgs, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		return err
	}

	a := wire(cfg, db, rdb, msgs, logger)

	sub := pubsub.NewSubscriber(rdb, obslog.Named("pubsub"))
	sub.Handle(pubsub.ChannelRefreshMap, a.resolver.Refresh)
	go func() {
		if err := sub.Run(ctx, nil); err != nil {
			logger.Error("pubsub_subscriber_stopped", zap.Error(err))
		}
	}()
	go a.locker.RunJanitor(ctx, janitorInterval)

	srv := httpapi.NewHTTPServer(httpapi.NewServer(a.submissions, a.leaderboards, obslog.Named("http")).Handler(), 0)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutdown_started")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := a.tasks.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background_drain_incomplete", zap.Error(err))
	}
	a.locker.ReleaseAll(shutdownCtx)
	logger.Info("shutdown_complete")
	return nil
}

type app struct {
	resolver     *beatmap.Resolver
	locker       *lock.RedisLocker
	tasks        *background.Dispatcher
	submissions  *submission.Service
	leaderboards *leaderboard.Service
}

func wire(cfg *appcfg.AppConfig, db *sql.DB, rdb *redis.Client, msgs *msgcat.Catalog, logger *zap.Logger) *app {
	catalogClient := catalog.NewClient(httpx.NewClient(cfg.CatalogBaseURL, httpx.WithUserAgent(userAgent)), cfg.OsuAPIKey)
	resolver := beatmap.NewResolver(beatmap.NewCache(), beatmap.NewRepository(db), catalogClient,
		beatmap.WithLogger(obslog.Named("beatmap")))

	players := player.NewRepository(db)
	auth := player.NewAuthenticator(players)
	scores := score.NewRepository(db)

	oracleClient := oracle.NewClient(httpx.NewClient(cfg.OracleBaseURL,
		httpx.WithTimeout(cfg.OracleTimeout),
		httpx.WithRetry(1),
		httpx.WithMaxConnsPerHost(cfg.BackgroundWorkers),
	))
	updater := stats.NewUpdater(stats.NewRepository(db), stats.NewRankTracker(rdb), obslog.Named("stats"))

	locker := lock.NewRedisLocker(rdb,
		lock.WithAttempts(cfg.LockAttempts),
		lock.WithRetryDelay(cfg.LockRetryDelay),
		lock.WithLogger(obslog.Named("lock")),
	)
	tasks := background.NewDispatcher(cfg.BackgroundWorkers, background.WithLogger(obslog.Named("background")))
	webhook := notify.NewWebhook(notify.Config{
		ScoreURL:     cfg.ScoreWebhookURL,
		DebugURL:     cfg.DebugWebhookURL,
		PublicDomain: cfg.PublicDomain,
	}, msgs, obslog.Named("notify"))

	submissions := submission.NewService(submission.Deps{
		Beatmaps:     resolver,
		Players:      auth,
		Activity:     players,
		Scores:       scores,
		Rater:        score.NewRater(oracleClient, obslog.Named("rating")),
		Stats:        updater,
		Locker:       locker,
		Events:       pubsub.NewPublisher(rdb, obslog.Named("pubsub")),
		Notifier:     webhook,
		Tasks:        tasks,
		Messages:     msgs,
		Logger:       obslog.Named("submission"),
		LockLease:    cfg.LockLease,
		PublicDomain: cfg.PublicDomain,
	})
	boards := leaderboard.NewService(leaderboard.NewStore(db), resolver, auth, players, obslog.Named("leaderboard"))

	logger.Info("components_wired",
		zap.String("oracle", cfg.OracleBaseURL),
		zap.String("catalog", cfg.CatalogBaseURL),
		zap.Int("background_workers", cfg.BackgroundWorkers),
	)
	return &app{resolver: resolver, locker: locker, tasks: tasks, submissions: submissions, leaderboards: boards}
}
