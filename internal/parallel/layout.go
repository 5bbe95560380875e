package parallel

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrTileCount reports a tile count outside [1, MaxTiles].
	ErrTileCount = errors.New("tiler: unsupported tile count")

	// ErrCanvasSize reports a non-positive canvas dimension.
	ErrCanvasSize = errors.New("tiler: invalid canvas size")

	// ErrIndivisible reports a canvas that cannot be split into whole tiles.
	ErrIndivisible = errors.New("tiler: canvas not evenly divisible by tile grid")
)

// Layout is the tile grid covering a canvas.
//
// A perfect-square tile count gives a square grid; any other count uses two
// columns and ceil(count/2) rows, so odd counts grow by one. Tiles are indexed
// row-major (index = ty*tilesX + tx): consecutive indices in one grid row
// share their row origin.
type Layout struct {
	count  int
	tilesX int
	tilesY int
	tileW  int
	tileH  int
	width  int
	height int
}

// NewLayout computes the grid for the requested tile count. The canvas must
// divide evenly by the grid; tile widths need not be a multiple of the lane
// count.
func NewLayout(count, width, height int) (Layout, error) {
	if count < 1 || count > MaxTiles {
		return Layout{}, fmt.Errorf("%w: %d (want 1..%d)", ErrTileCount, count, MaxTiles)
	}
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d", ErrCanvasSize, width, height)
	}

	var tilesX, tilesY int
	if root := isqrt(count); root*root == count {
		tilesX, tilesY = root, root
	} else {
		if count%2 != 0 {
			count++
		}
		tilesX, tilesY = 2, count/2
	}
	if count > MaxTiles {
		return Layout{}, fmt.Errorf("%w: %d rounds up past %d", ErrTileCount, count-1, MaxTiles)
	}

	if width%tilesX != 0 || height%tilesY != 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d canvas over %dx%d tiles",
			ErrIndivisible, width, height, tilesX, tilesY)
	}
	tileW, tileH := width/tilesX, height/tilesY

	return Layout{
		count:  count,
		tilesX: tilesX,
		tilesY: tilesY,
		tileW:  tileW,
		tileH:  tileH,
		width:  width,
		height: height,
	}, nil
}

func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// Count returns the total number of tiles, after rounding.
func (l Layout) Count() int {
	return l.count
}

// TilesX returns the number of tiles horizontally.
func (l Layout) TilesX() int {
	return l.tilesX
}

// TilesY returns the number of tiles vertically.
func (l Layout) TilesY() int {
	return l.tilesY
}

// TileWidth returns the width of every tile in pixels.
func (l Layout) TileWidth() int {
	return l.tileW
}

// TileHeight returns the height of every tile in pixels.
func (l Layout) TileHeight() int {
	return l.tileH
}

// Width returns the canvas width in pixels.
func (l Layout) Width() int {
	return l.width
}

// Height returns the canvas height in pixels.
func (l Layout) Height() int {
	return l.height
}

// Bounds returns the pixel rectangle of tile i.
// Returns the empty rectangle if i is out of range.
func (l Layout) Bounds(i int) image.Rectangle {
	if i < 0 || i >= l.count {
		return image.Rectangle{}
	}
	tx, ty := i%l.tilesX, i/l.tilesX
	x, y := tx*l.tileW, ty*l.tileH
	return image.Rect(x, y, x+l.tileW, y+l.tileH)
}

// TileAt returns the index of the tile at tile coordinates (tx, ty),
// or -1 if out of range.
func (l Layout) TileAt(tx, ty int) int {
	if tx < 0 || tx >= l.tilesX || ty < 0 || ty >= l.tilesY {
		return -1
	}
	return ty*l.tilesX + tx
}

// TileAtPixel returns the index of the tile containing canvas pixel (px, py),
// or -1 if the pixel is outside the canvas.
func (l Layout) TileAtPixel(px, py int) int {
	if px < 0 || px >= l.width || py < 0 || py >= l.height {
		return -1
	}
	return l.TileAt(px/l.tileW, py/l.tileH)
}

// TilesInRect returns the mask of tiles intersecting r.
func (l Layout) TilesInRect(r image.Rectangle) TileMask {
	r = r.Intersect(image.Rect(0, 0, l.width, l.height))
	if r.Empty() {
		return 0
	}
	var m TileMask
	for ty := r.Min.Y / l.tileH; ty <= (r.Max.Y-1)/l.tileH; ty++ {
		for tx := r.Min.X / l.tileW; tx <= (r.Max.X-1)/l.tileW; tx++ {
			m = m.With(l.TileAt(tx, ty))
		}
	}
	return m
}

// Mask returns the mask selecting every tile of the layout.
func (l Layout) Mask() TileMask {
	return AllTiles.Limit(l.count)
}
