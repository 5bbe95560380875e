package tiler

import (
	"fmt"
	"time"

	"github.com/gogpu/tiler/internal/parallel"
)

// PresentStats summarises one Present call.
type PresentStats struct {
	// Presented is the number of tiles handed to the sink.
	Presented int

	// Calls is the number of Sink.Present calls; adjacent tiles on one
	// row are merged into a single call.
	Calls int

	// Requested is the number of new copy-out requests issued.
	Requested int

	// OverBudget is set when the frame budget ran out before every tile
	// was visited or, for PresentBlocking, before every awaited copy
	// arrived.
	OverBudget bool
}

// Present visits the tiles in layout order and hands every tile whose frame
// has been copied into the surface to sink. Tiles holding a finished frame
// that has not been copied yet are asked to copy it; their workers do so
// asynchronously and the tile is presented on a later call.
//
// A run of copied tiles sharing a row origin is merged into one Sink call.
// Visiting stops once budget has elapsed; remaining tiles wait for the next
// frame. A budget <= 0 means no limit. If the sink returns an error Present
// panics with an error wrapping ErrPresent: a failed presentation means a
// broken display that the scheduler cannot repair.
//
// The display collaborator should only call Present inside its own
// paint-begin/paint-end bracket.
func (s *Scheduler) Present(sink Sink, budget time.Duration) PresentStats {
	return s.present(sink, budget, false)
}

// PresentBlocking is the blocking variant of Present: it also requests the
// frames of tiles that are still drawing or have draws queued, and waits for
// every requested copy to finish before presenting it.
//
// While it waits it keeps presenting whatever has been copied and requests
// every other finished frame, so workers stalled behind an unpresented
// frame, and explicit barriers waiting on them, keep moving. With a budget
// > 0 the wait is abandoned once the budget has elapsed.
func (s *Scheduler) PresentBlocking(sink Sink, budget time.Duration) PresentStats {
	return s.present(sink, budget, true)
}

// PresentMillis is Present with the budget in whole milliseconds.
func (s *Scheduler) PresentMillis(sink Sink, budgetMs int) PresentStats {
	return s.Present(sink, time.Duration(budgetMs)*time.Millisecond)
}

func (s *Scheduler) present(sink Sink, budget time.Duration, blocking bool) PresentStats {
	var st PresentStats
	sess := s.cur.Load()
	if sess == nil || sink == nil {
		return st
	}

	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}
	if !blocking {
		s.presentPass(sess, sink, deadline, &st)
		return st
	}

	// Everything the caller asked for up front, plus requests still
	// outstanding from earlier non-blocking calls.
	var awaited parallel.TileMask
	tiles := sess.tiles
	for i := range tiles {
		t := &tiles[i]
		if wantsCopy(t) && t.RequestCopy() {
			st.Requested++
		}
		if t.BlitState() == parallel.BlitAwaiting {
			awaited = awaited.With(i)
		}
	}

	for {
		// Tiles resolved before this pass are presented by it.
		var resolved parallel.TileMask
		awaited.ForEach(func(i int) {
			if settled(&tiles[i]) {
				resolved = resolved.With(i)
			}
		})

		if !s.presentPass(sess, sink, deadline, &st) {
			return st
		}
		awaited &^= resolved
		if awaited == 0 {
			return st
		}

		// A tile presented above may already hold its next frame; a worker
		// waiting to stage past it must not wait on the next call.
		for i := range tiles {
			t := &tiles[i]
			if t.State() == parallel.Uploading && t.RequestCopy() {
				st.Requested++
			}
		}

		if !s.awaitCopy(sess, deadline) {
			st.OverBudget = true
			sess.log.Warn("present over budget",
				"budget", budget, "waiting", awaited.Count(), "tiles", len(tiles))
			return st
		}
	}
}

// presentPass visits the tiles in layout order once, presenting copied runs
// and requesting finished frames. It returns false if the deadline passed
// before every tile was visited.
func (s *Scheduler) presentPass(sess *session, sink Sink, deadline time.Time, st *PresentStats) bool {
	tiles := sess.tiles
	for i := 0; i < len(tiles); {
		if !deadline.IsZero() && time.Now().After(deadline) {
			st.OverBudget = true
			sess.log.Warn("present over budget",
				"visited", i, "tiles", len(tiles))
			return false
		}

		t := &tiles[i]
		if t.BlitState() == parallel.BlitCopied {
			j := sess.coalesce(i)
			s.presentRun(sess, sink, i, j)
			st.Presented += j - i
			st.Calls++
			i = j
			continue
		}
		if t.State() == parallel.Uploading && t.RequestCopy() {
			st.Requested++
		}
		i++
	}
	return true
}

// awaitCopy blocks until some worker copies a frame or stops. It returns
// false if the deadline passed first.
func (s *Scheduler) awaitCopy(sess *session, deadline time.Time) bool {
	if deadline.IsZero() {
		<-sess.copied
		return true
	}
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-sess.copied:
		return true
	case <-timer.C:
		return false
	}
}

// wantsCopy reports whether the blocking presenter should request t's frame:
// it is finished, being drawn or has a draw queued.
func wantsCopy(t *parallel.Tile) bool {
	state := t.State()
	return state == parallel.Uploading || state == parallel.Processing || t.DrawPending()
}

// settled reports whether an awaited tile needs no more waiting: its frame
// was copied, its worker stopped, or it is idle with no draw that could
// produce a frame.
func settled(t *parallel.Tile) bool {
	if t.BlitState() != parallel.BlitAwaiting || !t.Running() {
		return true
	}
	return t.State() == parallel.Idle && !t.DrawPending()
}

// coalesce returns the end (exclusive) of the run of copied tiles starting
// at i that share tile i's row origin and touch horizontally.
func (sess *session) coalesce(i int) int {
	tiles := sess.tiles
	first := &tiles[i]
	right := first.MaxX
	j := i + 1
	for j < len(tiles) {
		t := &tiles[j]
		if t.MinY != first.MinY || t.MinX != right || t.BlitState() != parallel.BlitCopied {
			break
		}
		right = t.MaxX
		j++
	}
	return j
}

// presentRun hands tiles [i, j) to the sink as one region, then releases
// their regions for the next copy-out.
func (s *Scheduler) presentRun(sess *session, sink Sink, i, j int) {
	r := sess.tiles[i].Bounds()
	for k := i + 1; k < j; k++ {
		r = r.Union(sess.tiles[k].Bounds())
	}
	if err := sink.Present(sess.surface, r); err != nil {
		panic(fmt.Errorf("%w: region %v: %w", ErrPresent, r, err))
	}
	for k := i; k < j; k++ {
		sess.tiles[k].AckPresented()
	}
}
