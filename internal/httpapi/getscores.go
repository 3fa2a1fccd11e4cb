package httpapi

import (
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/leaderboard"
)

func (s *Server) handleGetScores(ctx *fasthttp.RequestCtx, id string, cheatRoute bool) {
	args := ctx.QueryArgs()
	req := leaderboard.Request{
		Username:    string(args.Peek("us")),
		PasswordMD5: string(args.Peek("ha")),
		MapHash:     string(args.Peek("c")),
		Filename:    string(args.Peek("f")),
		SetID:       int64(argInt(args, "i")),
		Mode:        argInt(args, "m"),
		Mods:        domain.Mods(argInt(args, "mods")),
		Kind:        argInt(args, "v"),
		FromEditor:  argInt(args, "s") != 0,
		CheatClient: cheatRoute || argInt(args, "fx") != 0,
	}
	if req.MapHash == "" {
		s.fail(ctx, fasthttp.StatusBadRequest, "error: map")
		return
	}
	if argInt(args, "a") != 0 {
		s.log.Warn("aqn_files_reported", zap.String("request_id", id), zap.String("user", req.Username), zap.String("map_md5", req.MapHash))
	}

	body, err := s.boards.Get(ctx, req)
	if err != nil {
		s.writeError(ctx, id, "leaderboard", err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(body)
}

func argInt(args *fasthttp.Args, k string) int {
	n, err := strconv.Atoi(string(args.Peek(k)))
	if err != nil {
		return 0
	}
	return n
}
