package parallel

import (
	"testing"
	"time"
)

// newTiles lays out count tiles over a width×height canvas with plain heap
// buffers and initialises them. Workers are not started.
func newTiles(t testing.TB, count, width, height, lanes int, interlace bool, capacity int) ([]Tile, *Canvas) {
	t.Helper()
	l, err := NewLayout(count, width, height)
	if err != nil {
		t.Fatalf("NewLayout(%d, %d, %d): %v", count, width, height, err)
	}
	canvas := &Canvas{
		Pix:    make([]uint32, width*height),
		Width:  width,
		Height: height,
		Stride: width,
	}
	tiles := make([]Tile, l.Count())
	for i := range tiles {
		n := l.TileWidth() * l.TileHeight()
		tiles[i].Init(i, l.Bounds(i), TileConfig{
			Canvas:        canvas,
			Buffer:        make([]uint32, n),
			Staging:       make([]uint32, n),
			BlockedRows:   make([]int32, l.TileHeight()),
			Lanes:         lanes,
			Interlace:     interlace,
			QueueCapacity: capacity,
		})
	}
	return tiles, canvas
}

// fill returns a draw job writing c to every pixel.
func fill(c uint32) DrawFunc {
	return func(_ Batch, out []uint32) {
		for i := range out {
			out[i] = c
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t testing.TB, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// region returns the canvas pixels covered by tile.
func region(c *Canvas, tile *Tile) []uint32 {
	out := make([]uint32, 0, tile.Width()*tile.Height())
	for y := tile.MinY; y < tile.MaxY; y++ {
		out = append(out, c.Row(y)[tile.MinX:tile.MaxX]...)
	}
	return out
}

func allEqual(s []uint32, v uint32) bool {
	for _, x := range s {
		if x != v {
			return false
		}
	}
	return true
}
