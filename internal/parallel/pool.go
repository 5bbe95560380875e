package parallel

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs one worker goroutine per tile.
//
// Each worker owns its tile for the whole session: it drains the tile's draw
// and update queues, services copy-out requests and sleeps on the tile
// condition when there is nothing to do. There is no work stealing; a job
// submitted for a tile only ever runs on that tile's worker.
//
// Thread safety: Pool is safe for concurrent use. Submissions are expected
// from a single producer goroutine.
type Pool struct {
	tiles []Tile

	// quit is closed when shutdown starts; barrier waits select on it.
	quit chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// seq numbers explicit submissions.
	seq atomic.Uint64

	log *slog.Logger
}

// NewPool starts one worker per tile. The tiles must already be initialised
// and must not be touched by the caller except through Pool and Tile methods.
func NewPool(tiles []Tile, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p := &Pool{
		tiles: tiles,
		quit:  make(chan struct{}),
		log:   log,
	}
	p.running.Store(true)

	p.wg.Add(len(tiles))
	for i := range tiles {
		go p.worker(&p.tiles[i])
	}
	return p
}

// worker is the main loop for each tile goroutine.
func (p *Pool) worker(t *Tile) {
	defer p.wg.Done()
	p.log.Debug("tile worker started", "tile", t.Index, "bounds", t.Bounds())

	for t.running.Load() {
		busy := t.serviceCopy()

		// drawing is raised before the pop so that DrawPending never
		// misses a job between dequeue and the state change.
		if t.draw.Len() > 0 && explicitTurn(&t.draw, &t.update) {
			t.drawing.Store(true)
			if e, ok := t.draw.Pop(); ok {
				p.run(t, e)
				t.flipPhase()
				busy = true
			}
			t.drawing.Store(false)
		}

		if t.update.Len() > 0 && explicitTurn(&t.update, &t.draw) {
			if e, ok := t.update.Pop(); ok {
				p.run(t, e)
				busy = true
			}
		}

		if !busy {
			t.waitForWork()
		}
	}

	// Jobs left behind still count towards their barriers so that tiles
	// blocked on them are released.
	abandon := func(e Entry) {
		if e.Sync == Explicit && e.Barrier != nil {
			e.Barrier.Arrive()
		}
	}
	t.draw.Drain(abandon)
	t.update.Drain(abandon)

	t.stopped.Store(true)
	t.signalCopied()
	p.log.Debug("tile worker stopped", "tile", t.Index)
}

// explicitTurn reports whether q may pop next. An explicit entry waits while
// other holds an older explicit submission; running it first could park the
// tile at a barrier that other tiles only reach after the older one.
func explicitTurn(q, other *Queue) bool {
	next, seq := q.peek()
	if !next || seq == 0 {
		return true
	}
	_, otherSeq := other.peek()
	return otherSeq == 0 || seq < otherSeq
}

// run executes one entry and, for explicit entries, waits at the barrier.
func (p *Pool) run(t *Tile, e Entry) {
	switch e.Kind {
	case KindDraw:
		if e.Draw != nil {
			t.Draw(e.Draw)
		}
	case KindUpdate:
		if e.Update != nil {
			e.Update(t.Index)
		}
		t.stats.updates.Add(1)
	}

	if e.Sync == Explicit && e.Barrier != nil {
		e.Barrier.Arrive()
		p.await(t, e.Barrier)
	}
}

// await parks the worker at b. A tile waiting at a barrier still holds a
// finished frame, so copy-out requests are serviced while it waits.
func (p *Pool) await(t *Tile, b *Barrier) {
	for {
		t.serviceCopy()
		select {
		case <-b.Done():
			return
		case <-p.quit:
			return
		case <-t.kick:
		}
	}
}

// Submit queues e on every tile selected by mask and returns the number of
// tiles that accepted it. Tiles whose queue is full drop the entry; for
// explicit entries the dropped instances arrive at the barrier immediately.
// If the pool is closed, this is a no-op.
func (p *Pool) Submit(e Entry, mask TileMask) int {
	if !p.running.Load() {
		return 0
	}
	mask = mask.Limit(len(p.tiles))

	if e.Sync == Explicit {
		e.Barrier = NewBarrier(mask.Count())
		e.Barrier.seq = p.seq.Add(1)
	} else {
		e.Barrier = nil
	}

	accepted := 0
	mask.ForEach(func(i int) {
		t := &p.tiles[i]
		q := &t.update
		if e.Kind == KindDraw {
			q = &t.draw
		}
		if !q.Push(e) {
			if e.Barrier != nil {
				e.Barrier.Arrive()
			}
			p.log.Debug("job dropped, queue full",
				"tile", i, "kind", e.Kind, "sync", e.Sync, "capacity", q.Cap())
			return
		}
		accepted++
		t.Wake()
	})

	if e.Kind == KindDraw {
		// Tiles left out of a draw submission drop back to Idle.
		for i := range p.tiles {
			if !mask.Has(i) {
				p.tiles[i].Park()
			}
		}
	}
	return accepted
}

// Close stops every worker and waits for them to exit.
//
// Shutdown is a polling handshake: each tile's running flag is cleared, then
// the tile is repeatedly forced to Idle with a wake-up until its worker
// acknowledges. Jobs still queued are discarded. Close is safe to call
// multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.quit)

	for i := range p.tiles {
		t := &p.tiles[i]
		t.running.Store(false)
		for !t.stopped.Load() {
			t.ForceIdle()
			runtime.Gosched()
		}
	}

	p.wg.Wait()
	p.log.Debug("tile workers joined", "tiles", len(p.tiles))
}

// Tiles returns the tiles served by the pool.
// The returned slice should not be modified.
func (p *Pool) Tiles() []Tile {
	return p.tiles
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return len(p.tiles)
}

// IsRunning returns true if the pool is still accepting work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the total number of queued jobs across all tiles.
// This is an approximation as queues can change while iterating.
func (p *Pool) QueuedWork() int {
	total := 0
	for i := range p.tiles {
		total += p.tiles[i].draw.Len() + p.tiles[i].update.Len()
	}
	return total
}
