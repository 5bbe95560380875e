package tiler

import "github.com/gogpu/tiler/internal/parallel"

type (
	// SyncMode selects whether the per-tile instances of a job meet at a
	// barrier (Explicit) or run independently (Implicit).
	SyncMode = parallel.SyncMode

	// TileMask selects tiles by index, one bit per tile.
	TileMask = parallel.TileMask

	// DrawFunc computes one batch of pixels; out has Batch.Lanes elements
	// and receives 0xAARRGGBB colours.
	DrawFunc = parallel.DrawFunc

	// UpdateFunc runs per-tile logic keyed by the tile index.
	UpdateFunc = parallel.UpdateFunc

	// Batch describes the pixels handed to a DrawFunc.
	Batch = parallel.Batch

	// State is the buffer ownership state of a tile.
	State = parallel.State

	// TileStats is a snapshot of one tile's counters.
	TileStats = parallel.TileStats
)

const (
	// Implicit jobs only depend on their own tile's previous job.
	Implicit = parallel.Implicit

	// Explicit jobs hold every tile at a barrier until all selected tiles
	// have executed them.
	Explicit = parallel.Explicit

	// AllTiles selects every tile.
	AllTiles = parallel.AllTiles

	// MaxTiles is the largest supported tile count.
	MaxTiles = parallel.MaxTiles

	// Idle, Processing and Uploading are the tile states.
	Idle       = parallel.Idle
	Processing = parallel.Processing
	Uploading  = parallel.Uploading
)

// MaskOf returns the mask selecting the given tile indices.
func MaskOf(indices ...int) TileMask {
	return parallel.MaskOf(indices...)
}
