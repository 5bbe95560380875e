package parallel

import "sync/atomic"

type tileCounters struct {
	draws   atomic.Uint64
	updates atomic.Uint64
	copies  atomic.Uint64
	staged  atomic.Uint64
}

func (c *tileCounters) reset() {
	c.draws.Store(0)
	c.updates.Store(0)
	c.copies.Store(0)
	c.staged.Store(0)
}

// TileStats is a snapshot of one tile's counters.
type TileStats struct {
	Tile            int
	State           State
	Blit            Blit
	QueuedDraws     int
	QueuedUpdates   int
	AcceptedDraws   uint64
	AcceptedUpdates uint64
	DroppedDraws    uint64
	DroppedUpdates  uint64
	Draws           uint64
	Updates         uint64
	Copies          uint64
	StagedRows      uint64
}

// Dropped returns the total number of dropped submissions.
func (s TileStats) Dropped() uint64 {
	return s.DroppedDraws + s.DroppedUpdates
}

// Stats returns a snapshot of the tile's counters.
func (t *Tile) Stats() TileStats {
	return TileStats{
		Tile:            t.Index,
		State:           t.State(),
		Blit:            t.BlitState(),
		QueuedDraws:     t.draw.Len(),
		QueuedUpdates:   t.update.Len(),
		AcceptedDraws:   t.draw.Accepted(),
		AcceptedUpdates: t.update.Accepted(),
		DroppedDraws:    t.draw.Dropped(),
		DroppedUpdates:  t.update.Dropped(),
		Draws:           t.stats.draws.Load(),
		Updates:         t.stats.updates.Load(),
		Copies:          t.stats.copies.Load(),
		StagedRows:      t.stats.staged.Load(),
	}
}
