package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/rhythm-score-server/internal/catalog"
	"github.com/park285/rhythm-score-server/internal/domain"
	"github.com/park285/rhythm-score-server/internal/httpx"
	"github.com/park285/rhythm-score-server/internal/oracle"
)

// oraclecheck asks the rating oracle and the beatmap catalog about one map.
func main() {
	_ = godotenv.Load()

	beatmapID := flag.Int64("beatmap", 75, "beatmap id to rate")
	mods := flag.Uint("mods", 0, "mod bitmask")
	acc := flag.Float64("acc", 100, "accuracy percent")
	flag.Parse()

	oracleURL := strings.TrimSpace(os.Getenv("OMAJINAI_BASE_URL"))
	catalogURL := strings.TrimSpace(os.Getenv("OSU_API_BASE_URL"))
	apiKey := strings.TrimSpace(os.Getenv("OSU_API_KEY"))
	if oracleURL == "" {
		log.Fatal("OMAJINAI_BASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	o := oracle.NewClient(httpx.NewClient(oracleURL, httpx.WithTimeout(8*time.Second), httpx.WithRetry(1)))
	res, err := o.Calculate(ctx, oracle.Request{
		BeatmapID: *beatmapID,
		Mode:      domain.ModeVanillaStd,
		Mods:      domain.Mods(*mods),
		Accuracy:  *acc,
	})
	if err != nil {
		log.Printf("oracle error: %v", err)
	} else {
		log.Printf("oracle ok: beatmap=%d stars=%.2f pp=%.2f if_fc=%.2f", *beatmapID, res.Stars, res.PP, res.HypotheticalPP)
	}

	if catalogURL == "" || apiKey == "" {
		log.Println("OSU_API_BASE_URL or OSU_API_KEY not set; skipping catalog check")
		return
	}
	c := catalog.NewClient(httpx.NewClient(catalogURL, httpx.WithTimeout(8*time.Second)), apiKey)
	maps, err := c.ByID(ctx, *beatmapID)
	if err != nil {
		log.Printf("catalog error: %v", err)
		return
	}
	for _, bm := range maps {
		log.Printf("catalog ok: %d %s status=%d md5=%s", bm.ID, bm.FullName(), bm.Status, bm.MD5)
	}
}
