package domain

import (
	"fmt"
	"time"
)

type Beatmap struct {
	ID          int64
	SetID       int64
	Status      RankedStatus
	MD5         string
	Artist      string
	Title       string
	Version     string
	Creator     string
	Filename    string
	LastUpdate  time.Time
	TotalLength int
	MaxCombo    int
	Frozen      bool
	Plays       int
	Passes      int
	Mode        int
	BPM         float64
	CS          float64
	AR          float64
	OD          float64
	HP          float64
	Diff        float64

	// LastCatalogCheck is the last time the set was reconciled with the catalog.
	LastCatalogCheck time.Time
}

// FullName renders "Artist - Title [Version]".
func (b *Beatmap) FullName() string {
	return fmt.Sprintf("%s - %s [%s]", b.Artist, b.Title, b.Version)
}

func (b *Beatmap) HasLeaderboard() bool { return b.Status.HasLeaderboard() }

func (b *Beatmap) AwardsRankedPP() bool { return b.Status.AwardsRankedPP() }

func (b *Beatmap) Clone() *Beatmap {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}
