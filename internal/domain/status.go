package domain

// SubmissionStatus is the persisted state of one score row.
type SubmissionStatus int

const (
	StatusFailed    SubmissionStatus = 0
	StatusSubmitted SubmissionStatus = 1
	StatusBest      SubmissionStatus = 2
	// StatusQuit marks a play the player exited before completion.
	StatusQuit SubmissionStatus = 3
)

func (s SubmissionStatus) String() string {
	switch s {
	case StatusFailed:
		return "Failed"
	case StatusSubmitted:
		return "Submitted"
	case StatusBest:
		return "Best"
	case StatusQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// RankedStatus is a beatmap's ranking state as the client understands it.
type RankedStatus int

const (
	RankedNotSubmitted    RankedStatus = -1
	RankedPending         RankedStatus = 0
	RankedUpdateAvailable RankedStatus = 1
	RankedRanked          RankedStatus = 2
	RankedApproved        RankedStatus = 3
	RankedQualified       RankedStatus = 4
	RankedLoved           RankedStatus = 5
)

// RankedStatusFromCatalog converts the catalog's "approved" value.
func RankedStatusFromCatalog(approved int) RankedStatus {
	switch approved {
	case 1:
		return RankedRanked
	case 2:
		return RankedApproved
	case 3:
		return RankedQualified
	case 4:
		return RankedLoved
	default:
		return RankedPending
	}
}

// HasLeaderboard: Ranked, Approved, Qualified, Loved.
func (s RankedStatus) HasLeaderboard() bool {
	switch s {
	case RankedRanked, RankedApproved, RankedQualified, RankedLoved:
		return true
	}
	return false
}

// AwardsRankedPP: Ranked and Approved only.
func (s RankedStatus) AwardsRankedPP() bool {
	return s == RankedRanked || s == RankedApproved
}
