// Command tiledemo runs the tiler colour animation headlessly and writes the
// last frame as a BMP file.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/tiler"
	"github.com/gogpu/tiler/surface"
)

// config is the demo configuration. It can be loaded from a JSON file with
// -config; flags given on the command line take precedence.
type config struct {
	Tiles     int    `json:"tiles"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Frames    int    `json:"frames"`
	Interlace bool   `json:"interlace"`
	BudgetMs  int    `json:"budget_ms"`
	Lanes     int    `json:"lanes"`
	Sink      string `json:"sink"`
	Output    string `json:"output"`
	SyncEvery int    `json:"sync_every"`
}

func defaultConfig() config {
	return config{
		Tiles:     8,
		Width:     1920,
		Height:    1080,
		Frames:    120,
		BudgetMs:  16,
		Sink:      "image",
		Output:    "frame.bmp",
		SyncEvery: 30,
	}
}

func main() {
	cfg := defaultConfig()
	var (
		configPath = flag.String("config", "", "JSON configuration file")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.IntVar(&cfg.Tiles, "tiles", cfg.Tiles, "number of tiles (1-64)")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "canvas width")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "canvas height")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames to render")
	flag.BoolVar(&cfg.Interlace, "interlace", cfg.Interlace, "render half the batches per pass")
	flag.IntVar(&cfg.BudgetMs, "budget", cfg.BudgetMs, "present budget per frame in ms (0 = unlimited)")
	flag.IntVar(&cfg.Lanes, "lanes", cfg.Lanes, "pixel batch width, 4 or 8 (0 = detect)")
	flag.StringVar(&cfg.Sink, "sink", cfg.Sink, "sink: image, record or discard")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "output BMP file (image sink only)")
	flag.IntVar(&cfg.SyncEvery, "sync-every", cfg.SyncEvery, "submit an explicit draw every N frames (0 = never)")
	flag.Parse()

	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	tiler.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads path into cfg, then re-applies the flags that were set
// explicitly.
func loadConfig(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fromFlags := *cfg
	if err := sonnet.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tiles":
			cfg.Tiles = fromFlags.Tiles
		case "width":
			cfg.Width = fromFlags.Width
		case "height":
			cfg.Height = fromFlags.Height
		case "frames":
			cfg.Frames = fromFlags.Frames
		case "interlace":
			cfg.Interlace = fromFlags.Interlace
		case "budget":
			cfg.BudgetMs = fromFlags.BudgetMs
		case "lanes":
			cfg.Lanes = fromFlags.Lanes
		case "sink":
			cfg.Sink = fromFlags.Sink
		case "output":
			cfg.Output = fromFlags.Output
		case "sync-every":
			cfg.SyncEvery = fromFlags.SyncEvery
		}
	})
	return nil
}

func run(cfg config) error {
	s := tiler.New(tiler.WithVectorLanes(cfg.Lanes))
	if err := s.Setup(cfg.Tiles, cfg.Width, cfg.Height, cfg.Interlace); err != nil {
		return err
	}
	defer s.Shutdown()

	sink, err := surface.NewSink(cfg.Sink, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}

	var ticks atomic.Int64
	tick := func(int) { ticks.Add(1) }

	var (
		submitted, accepted int
		totals              tiler.PresentStats
		overBudget          int
	)
	budget := time.Duration(cfg.BudgetMs) * time.Millisecond
	start := time.Now()
	for frame := 0; frame < cfg.Frames; frame++ {
		mode := tiler.Implicit
		if cfg.SyncEvery > 0 && frame%cfg.SyncEvery == cfg.SyncEvery-1 {
			mode = tiler.Explicit
		}
		s.SubmitUpdate(tick, tiler.Implicit, tiler.AllTiles)
		submitted += s.TileCount()
		accepted += s.SubmitDraw(animate(float64(frame)/30, cfg.Width, cfg.Height), mode, tiler.AllTiles)

		st := s.Present(sink, budget)
		totals.Presented += st.Presented
		totals.Calls += st.Calls
		if st.OverBudget {
			overBudget++
		}
	}
	st := s.PresentBlocking(sink, 0)
	totals.Presented += st.Presented
	totals.Calls += st.Calls
	elapsed := time.Since(start)

	p := message.NewPrinter(language.English)
	p.Printf("%d frames on %d tiles (%dx%d grid, %d lanes) in %v\n",
		cfg.Frames, s.TileCount(), s.TilesX(), s.TilesY(), s.Lanes(), elapsed.Round(time.Millisecond))
	p.Printf("draws accepted: %d of %d, update ticks: %d\n", accepted, submitted, ticks.Load())
	p.Printf("tiles presented: %d in %d sink calls, %d frames over budget\n",
		totals.Presented, totals.Calls, overBudget)
	for _, ts := range s.Stats() {
		p.Printf("  tile %2d: %d draws, %d copies, %d staged rows, %d dropped, %d updates\n",
			ts.Tile, ts.Draws, ts.Copies, ts.StagedRows, ts.Dropped(), ts.Updates)
	}

	if img, ok := sink.(*surface.ImageSink); ok && cfg.Output != "" {
		if err := surface.SaveBMP(cfg.Output, img.Snapshot()); err != nil {
			return err
		}
		log.Printf("Frame saved to %s (%dx%d)\n", cfg.Output, cfg.Width, cfg.Height)
	}
	return nil
}

// animate returns the demo draw job for time t: every channel is a cosine of
// the pixel's normalised position, phase shifted per channel.
func animate(t float64, width, height int) tiler.DrawFunc {
	return func(b tiler.Batch, out []uint32) {
		v := float64(b.Y) / float64(height)
		for i := range out {
			x, _ := b.Lane(i)
			u := float64(x) / float64(width)
			r := channel(t + u)
			g := channel(t + v + 2)
			bl := channel(t + u + 4)
			out[i] = 0xFF<<24 | r<<16 | g<<8 | bl
		}
	}
}

func channel(x float64) uint32 {
	return uint32(255 * (0.5 + 0.5*math.Cos(x)))
}
