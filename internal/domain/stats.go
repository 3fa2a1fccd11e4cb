package domain

// Stats is a player's aggregate for one mode. Rank is computed on read.
type Stats struct {
	UserID      int64
	Mode        Mode
	TotalScore  int64
	RankedScore int64
	PP          int
	Plays       int
	Playtime    int
	Acc         float64
	MaxCombo    int
	TotalHits   int
	ReplayViews int
	XHCount     int
	XCount      int
	SHCount     int
	SCount      int
	ACount      int
	XP          float64

	Rank int
}

// AdjustGrade moves the counter for g by delta; untallied grades are ignored.
func (s *Stats) AdjustGrade(g Grade, delta int) {
	switch g {
	case GradeXH:
		s.XHCount += delta
	case GradeX:
		s.XCount += delta
	case GradeSH:
		s.SHCount += delta
	case GradeS:
		s.SCount += delta
	case GradeA:
		s.ACount += delta
	}
}

func (s *Stats) Clone() *Stats {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
