package score

import (
	"fmt"

	"github.com/park285/rhythm-score-server/internal/domain"
)

// Violation is one assist setting outside what the mode allows.
type Violation struct {
	Rule   string
	Detail string
}

func (v Violation) String() string { return v.Rule + ": " + v.Detail }

const (
	aimLimitCheat      = 60
	aimLimitCheatCheat = 80
	timewarpFloor      = 90
	timewarpUnset      = -1
)

// ValidateAssists checks the assist values against the limits of mode.
// Modes other than the cheat modes accept anything.
func ValidateAssists(mode domain.Mode, a domain.AssistValues) []Violation {
	var out []Violation
	switch mode {
	case domain.ModeCheatStd:
		if a.AimCorrection && a.AimCorrectionValue > aimLimitCheat {
			out = append(out, Violation{"aim_correction", fmt.Sprintf("value %d exceeds %d", a.AimCorrectionValue, aimLimitCheat)})
		}
		if a.Timewarp || a.TimewarpValue != timewarpUnset {
			out = append(out, Violation{"timewarp", fmt.Sprintf("not allowed (value %g)", a.TimewarpValue)})
		}
		if a.CSChanger {
			out = append(out, Violation{"cs_changer", "not allowed"})
		}
	case domain.ModeCheatCheatStd:
		if a.AimCorrection && a.AimCorrectionValue > aimLimitCheatCheat {
			out = append(out, Violation{"aim_correction", fmt.Sprintf("value %d exceeds %d", a.AimCorrectionValue, aimLimitCheatCheat)})
		}
		if a.Timewarp && a.TimewarpValue < timewarpFloor {
			out = append(out, Violation{"timewarp", fmt.Sprintf("value %g below %d", a.TimewarpValue, timewarpFloor)})
		}
	}
	return out
}
