package score

import "github.com/park285/rhythm-score-server/internal/domain"

// CheckPPCap reports whether pp exceeds the cap for the player's whitelist
// stage on mode. Restricted players and uncapped modes are never flagged.
func CheckPPCap(mode domain.Mode, pp float64, u *domain.User) (limit int, exceeded bool) {
	caps := mode.PPCaps()
	if len(caps) == 0 || u == nil || u.Restricted() {
		return 0, false
	}
	stage := u.WhitelistStage()
	if stage >= len(caps) {
		stage = len(caps) - 1
	}
	limit = caps[stage]
	return limit, pp > float64(limit)
}
