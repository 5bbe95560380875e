package tiler

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/tiler/internal/arena"
	"github.com/gogpu/tiler/internal/parallel"
)

// Scheduler splits a canvas into tiles and runs one worker goroutine per
// tile for the whole session.
//
// The producer goroutine submits draw and update jobs and calls Present once
// per frame; workers render into private tile buffers and copy finished
// tiles into the shared Surface when the presenter asks for them.
//
// Thread safety: Setup, Shutdown and the introspection methods are safe for
// concurrent use. Submissions and Present are meant for one producer
// goroutine.
type Scheduler struct {
	// mu serialises Setup and Shutdown.
	mu   sync.Mutex
	opts options

	cur atomic.Pointer[session]
}

// session is everything created by one Setup and dropped by Shutdown.
type session struct {
	layout    parallel.Layout
	arena     *arena.Arena
	tiles     []parallel.Tile
	pool      *parallel.Pool
	surface   *Surface
	lanes     int
	interlace bool
	log       *slog.Logger

	// copied receives a token whenever a worker copies a frame out or
	// stops; the blocking presenter waits on it.
	copied chan struct{}
}

// New creates a scheduler. Call Setup before submitting work.
func New(opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Scheduler{opts: o}
}

// Setup lays out tileCount tiles over a width×height canvas, carves every
// buffer out of one memory pool and starts one worker per tile in Idle.
//
// The tile count may be rounded up by one to obtain a two-column grid.
// Configuration errors wrap ErrConfig together with the specific cause
// (ErrTileCount, ErrCanvasSize, ErrIndivisible, ErrArenaExhausted); nothing
// is started in that case. Setup on a scheduler that is already set up
// returns ErrAlreadyRunning.
func (s *Scheduler) Setup(tileCount, width, height int, interlace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.Load() != nil {
		return ErrAlreadyRunning
	}

	log := s.opts.logger
	if log == nil {
		log = Logger()
	}
	lanes := s.opts.lanes
	if lanes == 0 {
		lanes = DetectLanes()
	}

	layout, err := parallel.NewLayout(tileCount, width, height)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	n := layout.Count()
	tw, th := layout.TileWidth(), layout.TileHeight()
	sizes := make([]int, 0, 3*n+1)
	sizes = append(sizes, width*height*4)
	for range n {
		sizes = append(sizes, tw*th*4, tw*th*4, th*4)
	}
	need := arena.SizeFor(arena.CacheLine, sizes...)
	budget := s.opts.arenaBudget
	if budget == 0 {
		budget = 2 * need
	}

	a := arena.New(budget)
	copied := make(chan struct{}, 1)
	tiles, surface, err := carve(a, layout, lanes, interlace, s.opts.queueCapacity, copied)
	if err != nil {
		a.Release()
		return fmt.Errorf("%w: %w (budget %d bytes, layout needs %d)", ErrConfig, err, budget, need)
	}
	a.Seal()

	sess := &session{
		layout:    layout,
		arena:     a,
		tiles:     tiles,
		surface:   surface,
		lanes:     lanes,
		interlace: interlace,
		log:       log,
		copied:    copied,
	}
	sess.pool = parallel.NewPool(tiles, log)
	s.cur.Store(sess)

	log.Info("tiler set up",
		"tiles", n,
		"grid", fmt.Sprintf("%dx%d", layout.TilesX(), layout.TilesY()),
		"tile_size", fmt.Sprintf("%dx%d", tw, th),
		"lanes", lanes,
		"interlace", interlace,
		"arena_used", a.Used(),
		"arena_cap", a.Cap(),
	)
	return nil
}

// carve allocates the surface and every tile buffer from a.
func carve(a *arena.Arena, layout parallel.Layout, lanes int, interlace bool, queueCap int, copied chan struct{}) ([]parallel.Tile, *Surface, error) {
	w, h := layout.Width(), layout.Height()
	pix, err := arena.Slice[uint32](a, w*h, arena.CacheLine)
	if err != nil {
		return nil, nil, err
	}
	canvas := &parallel.Canvas{Pix: pix, Width: w, Height: h, Stride: w}

	tw, th := layout.TileWidth(), layout.TileHeight()
	tiles := make([]parallel.Tile, layout.Count())
	for i := range tiles {
		buf, err := arena.Slice[uint32](a, tw*th, arena.CacheLine)
		if err != nil {
			return nil, nil, err
		}
		staging, err := arena.Slice[uint32](a, tw*th, arena.CacheLine)
		if err != nil {
			return nil, nil, err
		}
		rows, err := arena.Slice[int32](a, th, arena.CacheLine)
		if err != nil {
			return nil, nil, err
		}
		tiles[i].Init(i, layout.Bounds(i), parallel.TileConfig{
			Canvas:        canvas,
			Buffer:        buf,
			Staging:       staging,
			BlockedRows:   rows,
			Lanes:         lanes,
			Interlace:     interlace,
			QueueCapacity: queueCap,
			Copied:        copied,
		})
	}
	return tiles, &Surface{c: canvas}, nil
}

// Shutdown stops every worker, waits until all of them have acknowledged
// and releases the memory pool. Queued jobs are discarded. Shutdown cannot be
// interrupted; it is a no-op on a scheduler that is not set up. Setup may be
// called again afterwards.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.cur.Swap(nil)
	if sess == nil {
		return
	}
	sess.pool.Close()
	sess.arena.Release()
	sess.log.Info("tiler shut down", "tiles", len(sess.tiles))
}

// Running reports whether the scheduler is set up.
func (s *Scheduler) Running() bool {
	return s.cur.Load() != nil
}

// SubmitDraw queues job on every tile selected by mask and returns the number
// of tiles that accepted it. Tiles with a full draw queue drop the job
// without blocking. Tiles not selected that are not waiting for copy-out
// return to Idle.
func (s *Scheduler) SubmitDraw(job DrawFunc, mode SyncMode, mask TileMask) int {
	sess := s.cur.Load()
	if sess == nil || job == nil {
		return 0
	}
	return sess.pool.Submit(parallel.Entry{Kind: parallel.KindDraw, Sync: mode, Draw: job}, mask)
}

// SubmitUpdate queues job on every tile selected by mask and returns the
// number of tiles that accepted it. Tiles with a full update queue drop the
// job without blocking.
func (s *Scheduler) SubmitUpdate(job UpdateFunc, mode SyncMode, mask TileMask) int {
	sess := s.cur.Load()
	if sess == nil || job == nil {
		return 0
	}
	return sess.pool.Submit(parallel.Entry{Kind: parallel.KindUpdate, Sync: mode, Update: job}, mask)
}

// TileCount returns the total number of tiles, or 0 if not set up.
func (s *Scheduler) TileCount() int {
	if sess := s.cur.Load(); sess != nil {
		return sess.layout.Count()
	}
	return 0
}

// TilesX returns the number of tiles horizontally.
func (s *Scheduler) TilesX() int {
	if sess := s.cur.Load(); sess != nil {
		return sess.layout.TilesX()
	}
	return 0
}

// TilesY returns the number of tiles vertically.
func (s *Scheduler) TilesY() int {
	if sess := s.cur.Load(); sess != nil {
		return sess.layout.TilesY()
	}
	return 0
}

// Lanes returns the pixel batch width in use.
func (s *Scheduler) Lanes() int {
	if sess := s.cur.Load(); sess != nil {
		return sess.lanes
	}
	return 0
}

// TileBounds returns the pixel rectangle of tile i.
func (s *Scheduler) TileBounds(i int) image.Rectangle {
	if sess := s.cur.Load(); sess != nil {
		return sess.layout.Bounds(i)
	}
	return image.Rectangle{}
}

// TileState returns the current state of tile i. Out-of-range tiles and a
// scheduler that is not set up report Idle.
func (s *Scheduler) TileState(i int) State {
	if t := s.tile(i); t != nil {
		return t.State()
	}
	return Idle
}

// TileBuffer returns tile i's private pixel buffer. It is written by the
// tile's worker; read it only while the tile is Idle or Uploading.
func (s *Scheduler) TileBuffer(i int) []uint32 {
	if t := s.tile(i); t != nil {
		return t.Buffer
	}
	return nil
}

// WaitForTileProcessing blocks while tile i is Processing.
func (s *Scheduler) WaitForTileProcessing(i int) State {
	if t := s.tile(i); t != nil {
		return t.WaitWhile(Processing)
	}
	return Idle
}

// WaitForTileUpload blocks while tile i is Uploading. Something must
// present the tile (Present requests the copy) or this waits until shutdown.
func (s *Scheduler) WaitForTileUpload(i int) State {
	if t := s.tile(i); t != nil {
		return t.WaitWhile(Uploading)
	}
	return Idle
}

// WaitForTileCopy blocks while a copy-out request for tile i is outstanding
// and reports whether the frame reached the surface. It returns false at once
// when nothing was requested.
func (s *Scheduler) WaitForTileCopy(i int) bool {
	if t := s.tile(i); t != nil {
		return t.AwaitCopy()
	}
	return false
}

// Surface returns the shared output surface, or nil if not set up.
func (s *Scheduler) Surface() *Surface {
	if sess := s.cur.Load(); sess != nil {
		return sess.surface
	}
	return nil
}

// Stats returns a snapshot of every tile's counters.
func (s *Scheduler) Stats() []TileStats {
	sess := s.cur.Load()
	if sess == nil {
		return nil
	}
	out := make([]TileStats, len(sess.tiles))
	for i := range sess.tiles {
		out[i] = sess.tiles[i].Stats()
	}
	return out
}

func (s *Scheduler) tile(i int) *parallel.Tile {
	sess := s.cur.Load()
	if sess == nil || i < 0 || i >= len(sess.tiles) {
		return nil
	}
	return &sess.tiles[i]
}
