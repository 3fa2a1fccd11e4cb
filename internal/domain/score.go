package domain

import "time"

// AssistValues carries the cheat-client assist settings attached to a play.
type AssistValues struct {
	AimCorrection      bool
	AimCorrectionValue int
	ARChanger          bool
	ARChangerValue     float64
	Timewarp           bool
	TimewarpValue      float64
	CSChanger          bool
	HDRemover          bool
}

type Score struct {
	ID      int64
	MapHash string
	UserID  int64

	Score    int64
	XP       float64
	PP       float64
	Acc      float64
	MaxCombo int
	Mods     Mods

	N300  int
	N100  int
	N50   int
	NMiss int
	NGeki int
	NKatu int

	Grade  Grade
	Status SubmissionStatus
	Mode   Mode

	PlayTime       time.Time
	TimeElapsed    int
	ClientFlags    int
	Perfect        bool
	Passed         bool
	OnlineChecksum string

	Assists AssistValues

	Stars float64

	// Not persisted.
	Rank           int
	HypotheticalPP float64
}

// TotalHits counts judged hits; geki/katu only on modes that award them.
func (s *Score) TotalHits() int {
	n := s.N300 + s.N100 + s.N50
	if s.Mode.HasGekiKatu() {
		n += s.NGeki + s.NKatu
	}
	return n
}

// Clone returns a shallow copy.
func (s *Score) Clone() *Score {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
