package httpapi

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/scoredata"
	"github.com/park285/rhythm-score-server/internal/submission"
)

func (s *Server) handleSubmit(ctx *fasthttp.RequestCtx, id string, cheatRoute bool) {
	if string(ctx.UserAgent()) != clientUserAgent {
		s.fail(ctx, fasthttp.StatusBadRequest, "error: user-agent")
		return
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "error: form")
		return
	}

	req, missing := parseSubmitForm(form)
	if missing != "" {
		s.fail(ctx, fasthttp.StatusBadRequest, "error: "+missing)
		return
	}
	req.CheatClient = req.CheatClient || cheatRoute

	body, err := s.submit.Submit(ctx, req)
	if err != nil {
		s.writeError(ctx, id, "decrypt", err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(body)
}

// parseSubmitForm extracts the submission. The client sends the score data and
// the replay under the same "score" name; the replay is the file part.
// 두 파트 이름이 같아서 파일 여부로 구분.
func parseSubmitForm(form *multipart.Form) (submission.Request, string) {
	f := formValues(form.Value)

	var scoreData string
	if v := form.Value["score"]; len(v) > 0 {
		scoreData = v[0]
	}
	if scoreData == "" {
		return submission.Request{}, "score data"
	}
	replays := form.File["score"]
	if len(replays) == 0 {
		return submission.Request{}, "replay file"
	}

	for _, required := range []struct{ key, name string }{
		{"iv", "iv"}, {"pass", "password"}, {"osuver", "osu version"}, {"s", "client hash"},
	} {
		if f.get(required.key) == "" {
			return submission.Request{}, required.name
		}
	}

	req := submission.Request{
		Payload: scoredata.Payload{
			ScoreData:     []byte(scoreData),
			ClientHash:    []byte(f.get("s")),
			IV:            []byte(f.get("iv")),
			ClientVersion: f.get("osuver"),
		},
		PasswordMD5: f.get("pass"),
		ExitedOut:   f.flag("x"),
		FailTime:    f.int("ft"),
		ScoreTime:   f.int("st"),
		CheatClient: f.flag("refx"),
		ReplaySize:  int(replays[0].Size),
		Assists: domain.AssistValues{
			AimCorrection:      f.flag("ac"),
			AimCorrectionValue: f.int("acval"),
			ARChanger:          f.flag("ar"),
			ARChangerValue:     f.float("arval"),
			Timewarp:           f.flag("tw"),
			TimewarpValue:      f.float("twval"),
			CSChanger:          f.flag("cs"),
			HDRemover:          f.flag("hdrem"),
		},
	}
	return req, ""
}

type formValues map[string][]string

func (f formValues) get(k string) string {
	if v := f[k]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (f formValues) int(k string) int {
	n, _ := strconv.Atoi(f.get(k))
	return n
}

func (f formValues) float(k string) float64 {
	n, _ := strconv.ParseFloat(f.get(k), 64)
	return n
}

// flag accepts "1" and any casing of "true".
func (f formValues) flag(k string) bool {
	v := f.get(k)
	return v == "1" || strings.EqualFold(v, "true")
}
