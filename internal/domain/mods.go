package domain

import "strings"

// Mods is the client's modifier bitset.
type Mods uint32

const (
	ModNoFail Mods = 1 << iota
	ModEasy
	ModTouchscreen
	ModHidden
	ModHardRock
	ModSuddenDeath
	ModDoubleTime
	ModRelax
	ModHalfTime
	ModNightcore
	ModFlashlight
	ModAutoplay
	ModSpunOut
	ModAutopilot
	ModPerfect
	ModKey4
	ModKey5
	ModKey6
	ModKey7
	ModKey8
	ModFadeIn
	ModRandom
	ModCinema
	ModTarget
	ModKey9
	ModKeyCoop
	ModKey1
	ModKey3
	ModKey2
	ModScoreV2
	ModMirror
)

var modCodes = [...]string{
	"NF", "EZ", "TD", "HD", "HR", "SD", "DT", "RX", "HT", "NC", "FL", "AT", "SO", "AP", "PF",
	"K4", "K5", "K6", "K7", "K8", "FI", "RD", "CN", "TP", "K9", "KC", "K1", "K3", "K2", "V2", "MR",
}

// Has reports whether every bit of o is set.
func (m Mods) Has(o Mods) bool { return m&o == o }

// String renders the short codes in bit order, "NM" for no mods.
func (m Mods) String() string {
	if m == 0 {
		return "NM"
	}
	var b strings.Builder
	for i, code := range modCodes {
		if m&(1<<uint(i)) != 0 {
			b.WriteString(code)
		}
	}
	return b.String()
}

// SpeedMultiplier is the playback rate implied by DT/NC or HT.
func (m Mods) SpeedMultiplier() float64 {
	switch {
	case m&(ModDoubleTime|ModNightcore) != 0:
		return 1.5
	case m.Has(ModHalfTime):
		return 0.75
	default:
		return 1
	}
}
