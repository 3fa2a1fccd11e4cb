package domain

// Mode is a game mode including the relax/autopilot/cheat variants.
type Mode int

const (
	ModeVanillaStd   Mode = 0
	ModeVanillaTaiko Mode = 1
	ModeVanillaCatch Mode = 2
	ModeVanillaMania Mode = 3

	ModeRelaxStd   Mode = 4
	ModeRelaxTaiko Mode = 5
	ModeRelaxCatch Mode = 6

	ModeAutopilotStd Mode = 8

	ModeCheatStd      Mode = 12
	ModeCheatCheatStd Mode = 16
	ModeTouchStd      Mode = 20
)

// ModeFromParams resolves the client-reported mode and mod set into a Mode.
// Values above 3 are taken as already-resolved variants.
func ModeFromParams(mode int, mods Mods) Mode {
	if mode >= 4 {
		switch Mode(mode) {
		case ModeRelaxStd, ModeRelaxTaiko, ModeRelaxCatch, ModeAutopilotStd,
			ModeCheatStd, ModeCheatCheatStd, ModeTouchStd:
			return Mode(mode)
		default:
			return ModeVanillaStd
		}
	}

	switch {
	case mode == 0 && mods.Has(ModTouchscreen):
		return ModeTouchStd
	case mode == 0 && mods.Has(ModAutopilot):
		return ModeAutopilotStd
	case mode != 3 && mods.Has(ModRelax):
		return Mode(mode) + ModeRelaxStd
	}
	if mode < 0 {
		return ModeVanillaStd
	}
	return Mode(mode)
}

// Vanilla returns the base ruleset (0..3).
func (m Mode) Vanilla() int { return int(m) % 4 }

// Cheat reports whether the mode belongs to a cheat client.
func (m Mode) Cheat() bool { return m == ModeCheatStd || m == ModeCheatCheatStd }

// HasGekiKatu reports whether geki/katu judgements count as hits.
func (m Mode) HasGekiKatu() bool {
	return m == ModeVanillaTaiko || m == ModeRelaxTaiko || m == ModeVanillaMania
}

// RatingSupported reports whether performance ratings of this mode are meaningful
// for ranking. Cheat clients fall back to XP.
func (m Mode) RatingSupported() bool { return !m.Cheat() }

// PPCaps returns the per-whitelist-stage pp thresholds; empty means unchecked.
func (m Mode) PPCaps() []int {
	switch m {
	case ModeVanillaStd:
		return []int{900, 1000, 1300, 1500, 1700, 2300}
	case ModeVanillaTaiko:
		return []int{1000, 1800, 2000, 2400, 2800, 3100}
	case ModeVanillaCatch:
		return []int{1100, 1800, 2000, 2400, 2800, 3100}
	case ModeVanillaMania:
		return []int{1600, 1800, 2000, 2400, 2800, 3100}
	case ModeRelaxStd:
		return []int{1600, 1800, 2000, 2400, 2800, 4700}
	case ModeRelaxTaiko, ModeRelaxCatch:
		return []int{1000, 1800, 2000, 2400, 2800, 4200}
	case ModeAutopilotStd:
		return []int{1200, 1800, 2000, 2400, maxPPCap}
	default:
		return nil
	}
}

const maxPPCap = int(^uint32(0) >> 1)

func (m Mode) String() string {
	switch m {
	case ModeVanillaStd:
		return "vn!std"
	case ModeVanillaTaiko:
		return "vn!taiko"
	case ModeVanillaCatch:
		return "vn!catch"
	case ModeVanillaMania:
		return "vn!mania"
	case ModeRelaxStd:
		return "rx!std"
	case ModeRelaxTaiko:
		return "rx!taiko"
	case ModeRelaxCatch:
		return "rx!catch"
	case ModeAutopilotStd:
		return "ap!std"
	case ModeCheatStd:
		return "cheat!std"
	case ModeCheatCheatStd:
		return "cheatcheat!std"
	case ModeTouchStd:
		return "td!std"
	default:
		return "unknown"
	}
}
