package score

import "github.com/park285/rhythm-score-server/internal/domain"

// DetermineStatus decides the status of a passed play against the player's
// current personal best on the same map and mode. demote reports whether the
// previous best loses its status.
func DetermineStatus(prevBest, s *domain.Score) (status domain.SubmissionStatus, demote bool) {
	if !s.Passed {
		return domain.StatusFailed, false
	}
	if prevBest == nil {
		return domain.StatusBest, false
	}
	if s.PP > prevBest.PP {
		return domain.StatusBest, true
	}
	return domain.StatusSubmitted, false
}
