package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/leaderboard"
	"github.com/park285/rhythm-score-server/internal/submission"
)

type submitStub struct {
	got  submission.Request
	body string
	err  error
}

func (s *submitStub) Submit(ctx context.Context, req submission.Request) (string, error) {
	s.got = req
	return s.body, s.err
}

type boardStub struct {
	got  leaderboard.Request
	body string
	err  error
}

func (b *boardStub) Get(ctx context.Context, req leaderboard.Request) (string, error) {
	b.got = req
	return b.body, b.err
}

func newTestClient(t *testing.T, h fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := NewHTTPServer(h, 0)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
}

func submitForm(t *testing.T, fields map[string]string, replay []byte) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("score", "ENCRYPTED"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if replay != nil {
		fw, err := w.CreateFormFile("score", "replay")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(replay)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return w.FormDataContentType(), buf.Bytes()
}

func post(t *testing.T, c *fasthttp.Client, path, ua, contentType string, body []byte) (int, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://score.test" + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetUserAgent(ua)
	req.Header.SetContentType(contentType)
	req.SetBody(body)
	if err := c.Do(req, resp); err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp.StatusCode(), string(resp.Body())
}

func get(t *testing.T, c *fasthttp.Client, uri string) (int, string) {
	t.Helper()
	code, body, err := c.Get(nil, "http://score.test"+uri)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return code, string(body)
}

var baseFields = map[string]string{
	"iv": "IV", "pass": "pw", "osuver": "20240101", "s": "HASH",
	"x": "0", "ft": "12", "st": "345",
	"ac": "1", "acval": "40", "ar": "True", "arval": "9.5", "tw": "0", "twval": "-1", "cs": "0", "hdrem": "1",
}

func TestSubmitExtractsFields(t *testing.T) {
	sub := &submitStub{body: "beatmapId:1"}
	c := newTestClient(t, NewServer(sub, &boardStub{}, nil).Handler())

	ct, body := submitForm(t, baseFields, bytes.Repeat([]byte{1}, 64))
	code, out := post(t, c, pathSubmit, "osu!", ct, body)
	if code != 200 || out != "beatmapId:1" {
		t.Fatalf("code=%d body=%q", code, out)
	}
	g := sub.got
	if string(g.Payload.ScoreData) != "ENCRYPTED" || string(g.Payload.IV) != "IV" || g.Payload.ClientVersion != "20240101" {
		t.Fatalf("payload=%+v", g.Payload)
	}
	if g.PasswordMD5 != "pw" || g.FailTime != 12 || g.ScoreTime != 345 || g.ReplaySize != 64 || g.ExitedOut {
		t.Fatalf("request=%+v", g)
	}
	want := domain.AssistValues{AimCorrection: true, AimCorrectionValue: 40, ARChanger: true, ARChangerValue: 9.5, TimewarpValue: -1, HDRemover: true}
	if g.Assists != want || g.CheatClient {
		t.Fatalf("assists=%+v cheat=%v", g.Assists, g.CheatClient)
	}
}

func TestSubmitCheatRouteMarksClient(t *testing.T) {
	sub := &submitStub{}
	c := newTestClient(t, NewServer(sub, &boardStub{}, nil).Handler())
	ct, body := submitForm(t, baseFields, []byte("r"))
	if code, _ := post(t, c, pathSubmitCheat, "osu!", ct, body); code != 200 {
		t.Fatalf("code=%d", code)
	}
	if !sub.got.CheatClient {
		t.Fatalf("cheat route not flagged")
	}
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	sub := &submitStub{}
	c := newTestClient(t, NewServer(sub, &boardStub{}, nil).Handler())

	ct, body := submitForm(t, baseFields, []byte("r"))
	if code, out := post(t, c, pathSubmit, "curl", ct, body); code != 400 || out != "error: user-agent" {
		t.Fatalf("ua: code=%d body=%q", code, out)
	}

	ct, body = submitForm(t, baseFields, nil)
	if code, out := post(t, c, pathSubmit, "osu!", ct, body); code != 400 || out != "error: replay file" {
		t.Fatalf("replay: code=%d body=%q", code, out)
	}

	fields := map[string]string{}
	for k, v := range baseFields {
		fields[k] = v
	}
	delete(fields, "osuver")
	ct, body = submitForm(t, fields, []byte("r"))
	if code, out := post(t, c, pathSubmit, "osu!", ct, body); code != 400 || out != "error: osu version" {
		t.Fatalf("version: code=%d body=%q", code, out)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{fmt.Errorf("%w: iv", domain.ErrDecode), 400, "error: decrypt"},
		{domain.ErrUnauthorized, 200, ""},
		{fmt.Errorf("%w: busy", domain.ErrDuplicateSubmission), 200, ""},
		{fmt.Errorf("%w: beatmap x", domain.ErrNotFound), 400, "error: beatmap"},
		{fmt.Errorf("%w: tx", domain.ErrPersistence), 500, "error: internal"},
		{errors.New("boom"), 500, "error: internal"},
	}
	for _, tc := range cases {
		sub := &submitStub{err: tc.err}
		c := newTestClient(t, NewServer(sub, &boardStub{}, nil).Handler())
		ct, body := submitForm(t, baseFields, []byte("r"))
		code, out := post(t, c, pathSubmit, "osu!", ct, body)
		if code != tc.code || out != tc.body {
			t.Fatalf("%v: code=%d body=%q", tc.err, code, out)
		}
	}
}

func TestGetScoresExtractsQuery(t *testing.T) {
	board := &boardStub{body: "2|false|1|2|0|0|\n"}
	c := newTestClient(t, NewServer(&submitStub{}, board, nil).Handler())

	code, out := get(t, c, pathGetScores+"?us=alice&ha=pw&s=0&vv=4&v=3&c=abc&f=x.osu&m=0&i=12&mods=64&a=0")
	if code != 200 || out != board.body {
		t.Fatalf("code=%d body=%q", code, out)
	}
	want := leaderboard.Request{Username: "alice", PasswordMD5: "pw", MapHash: "abc", Filename: "x.osu", SetID: 12, Mods: 64, Kind: 3}
	if board.got != want {
		t.Fatalf("request=%+v", board.got)
	}

	get(t, c, pathGetScoresCheat+"?us=a&ha=b&c=abc&s=1")
	if !board.got.CheatClient || !board.got.FromEditor {
		t.Fatalf("cheat request=%+v", board.got)
	}
}

func TestGetScoresUnauthorizedIsEmpty(t *testing.T) {
	board := &boardStub{err: domain.ErrUnauthorized}
	c := newTestClient(t, NewServer(&submitStub{}, board, nil).Handler())
	if code, out := get(t, c, pathGetScores+"?us=a&ha=b&c=abc"); code != 200 || out != "" {
		t.Fatalf("code=%d body=%q", code, out)
	}
	if code, _ := get(t, c, "/nope"); code != 404 {
		t.Fatalf("unknown path code=%d", code)
	}
}
