package tiler

import (
	"errors"

	"github.com/gogpu/tiler/internal/arena"
	"github.com/gogpu/tiler/internal/parallel"
)

var (
	// ErrConfig wraps every configuration error reported by Setup.
	ErrConfig = errors.New("tiler: invalid configuration")

	// ErrTileCount reports a tile count outside 1..MaxTiles.
	ErrTileCount = parallel.ErrTileCount

	// ErrCanvasSize reports a non-positive canvas dimension.
	ErrCanvasSize = parallel.ErrCanvasSize

	// ErrIndivisible reports a canvas that cannot be split into whole tiles.
	ErrIndivisible = parallel.ErrIndivisible

	// ErrArenaExhausted reports a memory budget too small for the layout.
	ErrArenaExhausted = arena.ErrExhausted

	// ErrAlreadyRunning is returned by Setup on a scheduler that has not
	// been shut down.
	ErrAlreadyRunning = errors.New("tiler: scheduler already set up")

	// ErrPresent is the panic value (wrapped) when a sink fails to present.
	ErrPresent = errors.New("tiler: present failed")
)
