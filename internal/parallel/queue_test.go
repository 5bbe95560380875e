package parallel

import (
	"testing"
	"time"
)

// tagged returns an update entry that appends id to *log when run.
func tagged(id int, mode SyncMode, log *[]int) Entry {
	return Entry{
		Kind:   KindUpdate,
		Sync:   mode,
		Update: func(int) { *log = append(*log, id) },
	}
}

// popAll runs every entry left in q in pop order.
func popAll(q *Queue) {
	for {
		e, ok := q.Pop()
		if !ok {
			return
		}
		e.Update(0)
	}
}

// =============================================================================
// Queue Tests
// =============================================================================

func TestQueue_NewDefaultCapacity(t *testing.T) {
	if got := NewQueue(0).Cap(); got != DefaultQueueCapacity {
		t.Errorf("Cap() = %d, want %d", got, DefaultQueueCapacity)
	}
	if got := NewQueue(-1).Cap(); got != DefaultQueueCapacity {
		t.Errorf("Cap() = %d, want %d", got, DefaultQueueCapacity)
	}
	if got := NewQueue(5).Cap(); got != 5 {
		t.Errorf("Cap() = %d, want 5", got)
	}
}

func TestQueue_LIFO(t *testing.T) {
	q := NewQueue(8)
	var log []int
	for id := 1; id <= 4; id++ {
		q.Push(tagged(id, Implicit, &log))
	}
	popAll(q)

	want := []int{4, 3, 2, 1}
	if len(log) != len(want) {
		t.Fatalf("ran %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should fail")
	}
}

func TestQueue_DropNewest(t *testing.T) {
	q := NewQueue(3)
	var log []int
	accepted := 0
	for id := 1; id <= 5; id++ {
		if q.Push(tagged(id, Implicit, &log)) {
			accepted++
		}
	}

	if accepted != 3 {
		t.Errorf("accepted %d, want 3", accepted)
	}
	if q.Len() != 3 || q.Accepted() != 3 || q.Dropped() != 2 {
		t.Errorf("Len=%d Accepted=%d Dropped=%d, want 3/3/2", q.Len(), q.Accepted(), q.Dropped())
	}

	popAll(q)
	// Jobs 4 and 5 arrived at a full queue and were lost.
	want := []int{3, 2, 1}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
}

func TestQueue_ExplicitInSubmissionOrder(t *testing.T) {
	q := NewQueue(8)
	var log []int
	q.Push(tagged(1, Explicit, &log))
	q.Push(tagged(2, Implicit, &log))
	q.Push(tagged(3, Explicit, &log))
	q.Push(tagged(4, Explicit, &log))
	q.Push(tagged(5, Implicit, &log))
	popAll(q)

	// The newest implicit job runs first; explicit jobs keep their order.
	want := []int{5, 1, 3, 4, 2}
	if len(log) != len(want) {
		t.Fatalf("ran %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
}

func TestQueue_Peek(t *testing.T) {
	explicit := func(seq uint64) Entry {
		return Entry{Kind: KindUpdate, Sync: Explicit, Barrier: &Barrier{seq: seq}}
	}
	q := NewQueue(4)
	if next, oldest := q.peek(); next || oldest != 0 {
		t.Fatalf("empty peek = %v, %d", next, oldest)
	}

	q.Push(explicit(3))
	q.Push(Entry{Kind: KindUpdate, Sync: Implicit})
	if next, oldest := q.peek(); next || oldest != 3 {
		t.Errorf("peek = %v, %d; want implicit next, oldest 3", next, oldest)
	}

	q.Push(explicit(7))
	if next, oldest := q.peek(); !next || oldest != 3 {
		t.Errorf("peek = %v, %d; want explicit next, oldest 3", next, oldest)
	}
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue(4)
	var log []int
	q.Push(tagged(1, Implicit, &log))
	q.Push(tagged(2, Explicit, &log))

	n := 0
	q.Drain(func(Entry) { n++ })
	if n != 2 || q.Len() != 0 {
		t.Errorf("drained %d, Len=%d; want 2, 0", n, q.Len())
	}
	q.Drain(nil)
	if len(log) != 0 {
		t.Error("Drain should not run jobs")
	}
}

// =============================================================================
// Barrier Tests
// =============================================================================

func TestBarrier_Release(t *testing.T) {
	b := NewBarrier(3)
	if b.Released() || b.Remaining() != 3 {
		t.Fatalf("new barrier: Released=%v Remaining=%d", b.Released(), b.Remaining())
	}

	done := make(chan bool)
	go func() { done <- b.Wait(nil) }()

	b.Arrive()
	b.Arrive()
	select {
	case <-done:
		t.Fatal("Wait returned before the last arrival")
	case <-time.After(10 * time.Millisecond):
	}

	b.Arrive()
	if ok := <-done; !ok {
		t.Error("Wait should report release")
	}
	if !b.Released() || b.Remaining() != 0 {
		t.Errorf("Released=%v Remaining=%d", b.Released(), b.Remaining())
	}
}

func TestBarrier_Empty(t *testing.T) {
	b := NewBarrier(0)
	if !b.Released() {
		t.Error("zero-count barrier should start released")
	}
	if !b.Wait(nil) {
		t.Error("Wait on released barrier should succeed")
	}
}

func TestBarrier_Quit(t *testing.T) {
	b := NewBarrier(2)
	quit := make(chan struct{})
	close(quit)
	if b.Wait(quit) {
		t.Error("Wait should fail when quit closes first")
	}
}
