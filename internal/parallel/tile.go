// Package parallel provides the tile scheduler core for gogpu/tiler.
//
// The canvas is split into a small grid of tiles (at most 64). Every tile is
// owned by exactly one worker goroutine that lives for the whole session,
// drains the tile's job queues, renders into the tile's private buffer and
// copies the finished buffer into the shared output canvas. Key pieces:
//
//   - Layout: square or two-column grid covering the canvas exactly
//   - Tile: per-tile state machine (Idle/Processing/Uploading) plus the
//     copy-out handshake flag, padded onto its own cache lines
//   - Queue: fixed-capacity LIFO job queue, drop-newest when full
//   - Pool: one worker per tile, shutdown by polling handshake
//
// Thread safety: a Tile's buffer and its region of the canvas are only ever
// written by the tile's own worker. State, handshake flag and queues are safe
// for concurrent use.
package parallel

import (
	"image"
	"sync"
	"sync/atomic"
)

// MaxTiles is the largest supported tile count; a TileMask has one bit per tile.
const MaxTiles = 64

// State is the buffer ownership state of a tile.
type State uint32

const (
	// Idle means no write is pending; the buffer is safe to read.
	Idle State = iota

	// Processing means the worker is computing pixels; the buffer is in flux.
	Processing

	// Uploading means the buffer holds a finished frame waiting for copy-out.
	Uploading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Processing:
		return "PROCESSING"
	case Uploading:
		return "UPLOADING"
	default:
		return "State(?)"
	}
}

// Blit is the copy-out handshake flag of a tile.
type Blit uint32

const (
	// BlitNone means nobody has asked for this tile's frame.
	BlitNone Blit = iota

	// BlitAwaiting means the presenter wants the next finished frame copied
	// into the canvas.
	BlitAwaiting

	// BlitCopied means the worker copied the frame; the canvas region is
	// ready to present and must not be written until the presenter resets
	// the flag.
	BlitCopied
)

func (b Blit) String() string {
	switch b {
	case BlitNone:
		return "NONE"
	case BlitAwaiting:
		return "AWAITING_COPY"
	case BlitCopied:
		return "COPIED"
	default:
		return "Blit(?)"
	}
}

// Tile is one rectangular region of the canvas and the state its worker
// shares with the producer.
//
// Tiles are stored by value in one slice; the trailing pad keeps the mutable
// fields of neighbouring tiles off each other's cache lines.
type Tile struct {
	// Index is the tile's position in layout order.
	Index int

	// MinX, MaxX, MinY, MaxY are the half-open pixel bounds in canvas space.
	MinX, MaxX, MinY, MaxY int

	// Buffer holds one 0xAARRGGBB word per pixel, row-major, carved from
	// the arena. Only the owning worker writes it.
	Buffer []uint32

	// staging receives rows rendered while Buffer still waits for copy-out.
	staging []uint32

	// blockedRows lists tile-local rows currently held in staging.
	blockedRows []int32
	nblocked    int

	canvas *Canvas
	lanes  int

	interlace bool
	phase     int

	// inPass is set while Draw renders rows; a copy-out inside a pass
	// hands the tile back to Processing. Worker only.
	inPass bool

	draw   Queue
	update Queue

	state   atomic.Uint32
	blit    atomic.Uint32
	running atomic.Bool
	stopped atomic.Bool
	drawing atomic.Bool

	stats tileCounters

	// mu guards every state/blit transition; cond is broadcast after each.
	mu   sync.Mutex
	cond sync.Cond

	// kick wakes a worker parked at a barrier when a copy is requested.
	kick chan struct{}

	// copied is shared by every tile of a session and signalled after each
	// copy-out and when the worker stops. May be nil.
	copied chan struct{}

	_ [64]byte
}

// TileConfig carries what a tile needs besides its bounds.
type TileConfig struct {
	Canvas        *Canvas
	Buffer        []uint32
	Staging       []uint32
	BlockedRows   []int32
	Lanes         int
	Interlace     bool
	QueueCapacity int

	// Copied, if set, receives a token after every copy-out. It should be
	// buffered; a full channel drops the token.
	Copied chan struct{}
}

// Init prepares a zero Tile for use. It must be called before the worker
// starts and never again while the worker runs.
func (t *Tile) Init(index int, bounds image.Rectangle, cfg TileConfig) {
	t.Index = index
	t.MinX, t.MinY = bounds.Min.X, bounds.Min.Y
	t.MaxX, t.MaxY = bounds.Max.X, bounds.Max.Y
	t.Buffer = cfg.Buffer
	t.staging = cfg.Staging
	t.blockedRows = cfg.BlockedRows
	t.nblocked = 0
	t.canvas = cfg.Canvas
	t.lanes = cfg.Lanes
	t.interlace = cfg.Interlace
	t.phase = 0
	t.draw.init(cfg.QueueCapacity)
	t.update.init(cfg.QueueCapacity)
	t.state.Store(uint32(Idle))
	t.blit.Store(uint32(BlitNone))
	t.running.Store(true)
	t.stopped.Store(false)
	t.drawing.Store(false)
	t.inPass = false
	t.stats.reset()
	t.cond.L = &t.mu
	t.kick = make(chan struct{}, 1)
	t.copied = cfg.Copied
}

// Width returns the tile width in pixels.
func (t *Tile) Width() int {
	return t.MaxX - t.MinX
}

// Height returns the tile height in pixels.
func (t *Tile) Height() int {
	return t.MaxY - t.MinY
}

// Bounds returns the tile's pixel rectangle in canvas space.
func (t *Tile) Bounds() image.Rectangle {
	return image.Rect(t.MinX, t.MinY, t.MaxX, t.MaxY)
}

// State returns the current state without blocking.
func (t *Tile) State() State {
	return State(t.state.Load())
}

// BlitState returns the current handshake flag without blocking.
func (t *Tile) BlitState() Blit {
	return Blit(t.blit.Load())
}

// Running reports whether the tile's worker has not been asked to stop.
func (t *Tile) Running() bool {
	return t.running.Load()
}

// Stopped reports whether the worker acknowledged shutdown.
func (t *Tile) Stopped() bool {
	return t.stopped.Load()
}

// Phase returns the interlace phase of the next draw pass (0 or 1).
// Only meaningful on the worker goroutine or after shutdown.
func (t *Tile) Phase() int {
	return t.phase
}

// DrawPending reports whether a draw job is queued or executing.
func (t *Tile) DrawPending() bool {
	return t.drawing.Load() || t.draw.Len() > 0
}

// QueuedDraws returns the number of queued draw jobs.
func (t *Tile) QueuedDraws() int {
	return t.draw.Len()
}

// QueuedUpdates returns the number of queued update jobs.
func (t *Tile) QueuedUpdates() int {
	return t.update.Len()
}

// setState stores s and wakes every waiter. Callers must hold t.mu.
func (t *Tile) setStateLocked(s State) {
	t.state.Store(uint32(s))
	t.cond.Broadcast()
}

func (t *Tile) setState(s State) {
	t.mu.Lock()
	t.setStateLocked(s)
	t.mu.Unlock()
}

// Wake broadcasts on the tile condition so a sleeping worker or waiter
// re-evaluates its predicate.
func (t *Tile) Wake() {
	t.mu.Lock()
	t.cond.Broadcast()
	t.mu.Unlock()
}

// Park moves a tile that is Processing but has nothing queued or in flight
// back to Idle. Used when a draw submission skips the tile.
func (t *Tile) Park() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State() != Processing || t.drawing.Load() || t.draw.Len() > 0 {
		return false
	}
	t.setStateLocked(Idle)
	return true
}

// RequestCopy asks the worker to copy its next finished frame into the
// canvas. It returns false when a request is already outstanding or the
// previous copy has not been presented yet.
func (t *Tile) RequestCopy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.BlitState() != BlitNone {
		return false
	}
	t.blit.Store(uint32(BlitAwaiting))
	t.cond.Broadcast()
	select {
	case t.kick <- struct{}{}:
	default:
	}
	return true
}

// AckPresented resets a BlitCopied flag once the presenter has handed the
// region to the sink. The worker may copy into the region again afterwards.
func (t *Tile) AckPresented() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.BlitState() != BlitCopied {
		return false
	}
	t.blit.Store(uint32(BlitNone))
	t.cond.Broadcast()
	return true
}

// AwaitCopy blocks while a copy-out request is outstanding. It returns true
// when the frame has been copied and false if the tile stopped first.
func (t *Tile) AwaitCopy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.running.Load() && t.BlitState() == BlitAwaiting {
		t.cond.Wait()
	}
	return t.BlitState() == BlitCopied
}

// WaitWhile blocks until the tile leaves state s or stops running.
func (t *Tile) WaitWhile(s State) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.running.Load() && t.State() == s {
		t.cond.Wait()
	}
	return t.State()
}

// ForceIdle is used during shutdown: it stores Idle and wakes every waiter.
func (t *Tile) ForceIdle() {
	t.mu.Lock()
	t.setStateLocked(Idle)
	t.mu.Unlock()
}

// copyRequested reports whether a finished frame waits for a requested copy.
func (t *Tile) copyRequested() bool {
	return t.State() == Uploading && t.BlitState() == BlitAwaiting
}

// serviceCopy performs a requested copy-out if one is due. Worker only.
func (t *Tile) serviceCopy() bool {
	if !t.copyRequested() {
		return false
	}
	t.copyOut()
	return true
}

// copyOut copies the tile buffer row by row into the tile's region of the
// canvas, flags the copy and leaves Uploading. Worker only.
func (t *Tile) copyOut() {
	w := t.Width()
	c := t.canvas
	for y := t.MinY; y < t.MaxY; y++ {
		src := t.Buffer[(y-t.MinY)*w:][:w]
		copy(c.Pix[y*c.Stride+t.MinX:][:w], src)
	}
	t.stats.copies.Add(1)

	t.mu.Lock()
	t.blit.Store(uint32(BlitCopied))
	next := Idle
	if t.inPass || t.draw.Len() > 0 {
		next = Processing
	}
	t.setStateLocked(next)
	t.mu.Unlock()
	t.signalCopied()
}

// signalCopied posts a token on the session's copy channel without blocking.
func (t *Tile) signalCopied() {
	select {
	case t.copied <- struct{}{}:
	default:
	}
}

// waitForWork sleeps until the worker has something to do. Worker only.
func (t *Tile) waitForWork() {
	t.mu.Lock()
	for t.running.Load() && t.draw.Len() == 0 && t.update.Len() == 0 && !t.copyRequested() {
		t.cond.Wait()
	}
	t.mu.Unlock()
}

// Canvas is the shared output surface: one 0xAARRGGBB word per pixel.
type Canvas struct {
	Pix    []uint32
	Width  int
	Height int
	Stride int
}

// Row returns row y of the canvas.
func (c *Canvas) Row(y int) []uint32 {
	return c.Pix[y*c.Stride:][:c.Width]
}
