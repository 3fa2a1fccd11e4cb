package scoredata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// playTimeLayout is yymmddHHMMSS.
const playTimeLayout = "060102150405"

const minScoreFields = 16

// ParseScore builds a score from the fields that follow the header.
// MapHash, UserID and every derived value are left for the caller.
func ParseScore(fields []string) (*domain.Score, error) {
	if len(fields) < minScoreFields {
		return nil, fmt.Errorf("%w: %d score fields", domain.ErrDecode, len(fields))
	}
	p := fieldParser{fields: fields}

	s := &domain.Score{
		OnlineChecksum: fields[0],
		N300:           p.num(1),
		N100:           p.num(2),
		N50:            p.num(3),
		NGeki:          p.num(4),
		NKatu:          p.num(5),
		NMiss:          p.num(6),
		Score:          p.num64(7),
		MaxCombo:       p.num(8),
		Perfect:        fields[9] == "True",
		Grade:          domain.ParseGrade(fields[10]),
		Passed:         fields[12] == "True",
		ClientFlags:    strings.Count(fields[15], " ") &^ 4,
	}
	mods := domain.Mods(p.num64(11))
	s.Mods = mods
	s.Mode = domain.ModeFromParams(p.num(13), mods)

	if t, err := time.ParseInLocation(playTimeLayout, fields[14], time.UTC); err == nil {
		s.PlayTime = t
	} else if p.err == nil {
		p.err = fmt.Errorf("play time %q", fields[14])
	}
	if p.err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, p.err)
	}
	if s.Passed {
		s.Status = domain.StatusSubmitted
	} else {
		s.Status = domain.StatusFailed
	}
	return s, nil
}

type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) num64(i int) int64 {
	if p.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(p.fields[i]), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("field %d: %w", i, err)
	}
	return n
}

func (p *fieldParser) num(i int) int { return int(p.num64(i)) }
