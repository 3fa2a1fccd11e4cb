package scoredata

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/park285/rhythm-score-server/internal/domain"
)

const testVersion = "20240101"

func testIV() []byte { return bytes.Repeat([]byte{7}, 32) }

func encryptOrFail(t *testing.T, s string) []byte {
	t.Helper()
	out, err := Encrypt(testVersion, testIV(), []byte(s))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return []byte(out)
}

func samplePlaintext() string {
	fields := []string{
		"a5b99395a5b99395a5b99395a5b99395", " alice ",
		"checksum123", "300", "10", "2", "50", "5", "1", "987654", "412", "False",
		"A", "72", "True", "0", "240101123045", "  ",
	}
	return strings.Join(fields, ":")
}

func TestDecodeRoundTrip(t *testing.T) {
	p := Payload{
		ScoreData:     encryptOrFail(t, samplePlaintext()),
		ClientHash:    encryptOrFail(t, "pathmd5:adapters:more"),
		IV:            []byte(base64.StdEncoding.EncodeToString(testIV())),
		ClientVersion: testVersion,
	}
	d, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.PathHash != "pathmd5" || d.SecondaryToken != "adapters:more" {
		t.Fatalf("client hash split: %q %q", d.PathHash, d.SecondaryToken)
	}
	h, err := d.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if h.MapHash != "a5b99395a5b99395a5b99395a5b99395" || h.Username != "alice" {
		t.Fatalf("header=%+v", h)
	}

	s, err := ParseScore(d.ScoreFields())
	if err != nil {
		t.Fatalf("ParseScore: %v", err)
	}
	if s.N300 != 300 || s.N100 != 10 || s.NMiss != 1 || s.Score != 987654 || s.MaxCombo != 412 {
		t.Fatalf("counts wrong: %+v", s)
	}
	if s.Perfect || !s.Passed || s.Grade != domain.GradeA {
		t.Fatalf("flags wrong: %+v", s)
	}
	if s.Mods != domain.ModHidden|domain.ModDoubleTime || s.Mode != domain.ModeVanillaStd {
		t.Fatalf("mods/mode wrong: %v %v", s.Mods, s.Mode)
	}
	if s.PlayTime.Year() != 2024 || s.PlayTime.Hour() != 12 || s.PlayTime.Second() != 45 {
		t.Fatalf("play time=%v", s.PlayTime)
	}
	if s.ClientFlags != 2 {
		t.Fatalf("client flags=%d", s.ClientFlags)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	iv := []byte(base64.StdEncoding.EncodeToString(testIV()))
	cases := map[string]Payload{
		"bad base64":  {ScoreData: []byte("!!!"), ClientHash: encryptOrFail(t, "x"), IV: iv, ClientVersion: testVersion},
		"short iv":    {ScoreData: encryptOrFail(t, "x"), ClientHash: encryptOrFail(t, "x"), IV: []byte("AAAA"), ClientVersion: testVersion},
		"bad key len": {ScoreData: encryptOrFail(t, "x"), ClientHash: encryptOrFail(t, "x"), IV: iv, ClientVersion: "b2024"},
		"wrong key":   {ScoreData: encryptOrFail(t, "x"), ClientHash: encryptOrFail(t, "x"), IV: iv, ClientVersion: "20991231"},
	}
	for name, p := range cases {
		d, err := Decode(p)
		if name == "wrong key" && err == nil {
			// a wrong key can still unpad by chance; the header must then fail
			if _, herr := d.Header(); herr == nil && d.Fields[0] == "x" {
				t.Fatalf("%s: decoded with wrong key", name)
			}
			continue
		}
		if !errors.Is(err, domain.ErrDecode) {
			t.Fatalf("%s: err=%v", name, err)
		}
	}
}

func TestHeaderNeedsTwoFields(t *testing.T) {
	d := &Decoded{Fields: []string{"onlyhash"}}
	if _, err := d.Header(); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("err=%v", err)
	}
}

func TestParseScoreShortOrMalformed(t *testing.T) {
	if _, err := ParseScore(make([]string, 15)); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("short: err=%v", err)
	}
	fields := strings.Split(samplePlaintext(), ":")[2:]
	fields[1] = "abc"
	if _, err := ParseScore(fields); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("malformed: err=%v", err)
	}
}
