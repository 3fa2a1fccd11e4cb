package domain

import "strings"

// Grade is ordered so that comparisons follow rank quality.
type Grade int

const (
	GradeN Grade = iota
	GradeF
	GradeD
	GradeC
	GradeB
	GradeA
	GradeS
	GradeSH
	GradeX
	GradeXH
)

func ParseGrade(s string) Grade {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "XH":
		return GradeXH
	case "X", "SS":
		return GradeX
	case "SH":
		return GradeSH
	case "S":
		return GradeS
	case "A":
		return GradeA
	case "B":
		return GradeB
	case "C":
		return GradeC
	case "D":
		return GradeD
	case "F":
		return GradeF
	default:
		return GradeN
	}
}

func (g Grade) String() string {
	switch g {
	case GradeXH:
		return "XH"
	case GradeX:
		return "X"
	case GradeSH:
		return "SH"
	case GradeS:
		return "S"
	case GradeA:
		return "A"
	case GradeB:
		return "B"
	case GradeC:
		return "C"
	case GradeD:
		return "D"
	case GradeF:
		return "F"
	default:
		return "N"
	}
}

// Tallied reports whether the grade has a per-player counter.
func (g Grade) Tallied() bool { return g >= GradeA }
