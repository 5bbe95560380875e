package parallel

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueCapacity is the number of jobs a tile queue holds per kind.
const DefaultQueueCapacity = 32

// Kind distinguishes draw jobs from update jobs.
type Kind uint8

const (
	// KindDraw computes pixel colours for a tile.
	KindDraw Kind = iota

	// KindUpdate runs caller logic keyed by tile index only.
	KindUpdate
)

func (k Kind) String() string {
	if k == KindDraw {
		return "draw"
	}
	return "update"
}

// SyncMode selects how the per-tile instances of one submission relate.
type SyncMode uint8

const (
	// Implicit instances are independent; each only follows its own tile's
	// previous job.
	Implicit SyncMode = iota

	// Explicit instances meet at a barrier: no tile proceeds past the job
	// until every tile of the submission has executed it.
	Explicit
)

func (m SyncMode) String() string {
	if m == Explicit {
		return "explicit"
	}
	return "implicit"
}

// DrawFunc computes one batch of pixels. out aliases the destination slots
// in the tile buffer and has exactly b.Lanes elements.
type DrawFunc func(b Batch, out []uint32)

// UpdateFunc runs per-tile logic with no pixel output.
type UpdateFunc func(tile int)

// Entry is one queued job: a tagged variant over draw and update jobs.
// Only references to the caller's closures are stored.
type Entry struct {
	Kind    Kind
	Sync    SyncMode
	Draw    DrawFunc
	Update  UpdateFunc
	Barrier *Barrier
}

// Queue is a fixed-capacity job queue for one tile.
//
// Push appends at the write position and drops the entry when the queue is
// full. Pop takes the most recently pushed entry, favouring fresh work over
// backlog. Explicit entries are the exception: they are taken oldest first
// among themselves, so every tile reaches shared barriers in submission order
// and two pending explicit submissions can never wait on each other.
//
// Thread safety: Push may be called from any goroutine; Pop is meant for
// the owning worker.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	n       int

	// count mirrors n for lock-free Len.
	count atomic.Int32

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// NewQueue creates a queue holding up to capacity entries.
// If capacity is 0 or negative, DefaultQueueCapacity is used.
func NewQueue(capacity int) *Queue {
	q := &Queue{}
	q.init(capacity)
	return q
}

func (q *Queue) init(capacity int) {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q.entries = make([]Entry, capacity)
	q.n = 0
	q.count.Store(0)
	q.accepted.Store(0)
	q.dropped.Store(0)
}

// Push appends e. It returns false and drops e when the queue is full.
func (q *Queue) Push(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.entries) {
		q.dropped.Add(1)
		return false
	}
	q.entries[q.n] = e
	q.n++
	q.count.Store(int32(q.n)) //nolint:gosec // n <= capacity
	q.accepted.Add(1)
	return true
}

// Pop removes and returns the next entry to run. Popping an empty queue
// returns false.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return Entry{}, false
	}

	idx := q.n - 1
	if q.entries[idx].Sync == Explicit {
		for i := 0; i < idx; i++ {
			if q.entries[i].Sync == Explicit {
				idx = i
				break
			}
		}
	}

	e := q.entries[idx]
	copy(q.entries[idx:q.n], q.entries[idx+1:q.n])
	q.n--
	q.entries[q.n] = Entry{} // drop closure references
	q.count.Store(int32(q.n)) //nolint:gosec // n <= capacity
	return e, true
}

// peek reports whether the next Pop returns an explicit entry and the
// submission sequence of the oldest queued explicit entry (0 if none).
func (q *Queue) peek() (nextExplicit bool, oldest uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return false, 0
	}
	for i := 0; i < q.n; i++ {
		if e := q.entries[i]; e.Sync == Explicit && e.Barrier != nil {
			oldest = e.Barrier.seq
			break
		}
	}
	return q.entries[q.n-1].Sync == Explicit, oldest
}

// Drain removes every entry, newest first, passing each to fn.
func (q *Queue) Drain(fn func(Entry)) {
	for {
		e, ok := q.Pop()
		if !ok {
			return
		}
		if fn != nil {
			fn(e)
		}
	}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return int(q.count.Load())
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.entries)
}

// Accepted returns the number of entries ever accepted by Push.
func (q *Queue) Accepted() uint64 {
	return q.accepted.Load()
}

// Dropped returns the number of entries rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Barrier is the rendezvous shared by the per-tile instances of one explicit
// submission.
type Barrier struct {
	remaining atomic.Int32
	done      chan struct{}

	// seq orders explicit submissions across a tile's draw and update
	// queues. Zero means unordered.
	seq uint64
}

// NewBarrier creates a barrier released after n arrivals. A barrier with
// n <= 0 is released immediately.
func NewBarrier(n int) *Barrier {
	b := &Barrier{done: make(chan struct{})}
	b.remaining.Store(int32(n)) //nolint:gosec // n <= MaxTiles
	if n <= 0 {
		close(b.done)
	}
	return b
}

// Arrive records one tile's arrival, releasing the barrier on the last one.
func (b *Barrier) Arrive() {
	if b.remaining.Add(-1) == 0 {
		close(b.done)
	}
}

// Wait blocks until the barrier is released or quit is closed. It reports
// whether the barrier was released.
func (b *Barrier) Wait(quit <-chan struct{}) bool {
	select {
	case <-b.done:
		return true
	case <-quit:
		select {
		case <-b.done:
			return true
		default:
			return false
		}
	}
}

// Done returns a channel closed when the barrier is released.
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}

// Released reports whether every tile has arrived.
func (b *Barrier) Released() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Remaining returns the number of arrivals still missing.
func (b *Barrier) Remaining() int {
	return max(int(b.remaining.Load()), 0)
}
