package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/leaderboard"
	"github.com/park285/rhythm-score-server/internal/submission"
)

const (
	pathSubmit          = "/web/osu-submit-modular-selector.php"
	pathSubmitCheat     = "/web/refx-submit-modular.php"
	pathGetScores       = "/web/osu-osz2-getscores.php"
	pathGetScoresCheat  = "/web/refx-osz2-getscores.php"
	clientUserAgent     = "osu!"
	requestIDHeader     = "X-Request-Id"
	defaultMaxBodyBytes = 32 << 20
)

type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (string, error)
}

type Leaderboards interface {
	Get(ctx context.Context, req leaderboard.Request) (string, error)
}

// Server maps the legacy client endpoints onto the submission and leaderboard services.
type Server struct {
	submit Submitter
	boards Leaderboards
	log    *zap.Logger
}

func NewServer(submit Submitter, boards Leaderboards, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{submit: submit, boards: boards, log: logger}
}

// Handler routes by exact path.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.Request.Header.Peek(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Response.Header.Set(requestIDHeader, id)
		started := time.Now()

		path := string(ctx.Path())
		switch {
		case path == pathSubmit && ctx.IsPost():
			s.handleSubmit(ctx, id, false)
		case path == pathSubmitCheat && ctx.IsPost():
			s.handleSubmit(ctx, id, true)
		case path == pathGetScores && ctx.IsGet():
			s.handleGetScores(ctx, id, false)
		case path == pathGetScoresCheat && ctx.IsGet():
			s.handleGetScores(ctx, id, true)
		case path == "/healthz":
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("ok")
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}

		s.log.Debug("http_request",
			zap.String("request_id", id),
			zap.String("method", string(ctx.Method())),
			zap.String("path", path),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("took", time.Since(started)),
		)
	}
}

// NewHTTPServer wraps h with the limits the legacy client needs.
func NewHTTPServer(h fasthttp.RequestHandler, maxBody int) *fasthttp.Server {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &fasthttp.Server{
		Handler:            h,
		Name:               "rhythm-score-server",
		MaxRequestBodySize: maxBody,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        2 * time.Minute,
	}
}

// writeError maps domain errors onto the bodies the client understands.
func (s *Server) writeError(ctx *fasthttp.RequestCtx, id, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		ctx.SetStatusCode(fasthttp.StatusOK)
	case errors.Is(err, domain.ErrDuplicateSubmission):
		// 빈 응답이면 클라이언트가 재시도
		ctx.SetStatusCode(fasthttp.StatusOK)
		s.log.Info("submission_duplicate", zap.String("request_id", id), zap.Error(err))
	case errors.Is(err, domain.ErrDecode):
		s.fail(ctx, fasthttp.StatusBadRequest, "error: "+op)
		s.log.Warn("request_decode_failed", zap.String("request_id", id), zap.String("op", op), zap.Error(err))
	case errors.Is(err, domain.ErrNotFound):
		s.fail(ctx, fasthttp.StatusBadRequest, "error: beatmap")
	default:
		s.fail(ctx, fasthttp.StatusInternalServerError, "error: internal")
		s.log.Error("request_failed", zap.String("request_id", id), zap.String("op", op), zap.Error(err))
	}
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, code int, body string) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(body)
}
