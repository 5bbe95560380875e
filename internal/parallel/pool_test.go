package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPool(t *testing.T, count, capacity int) *Pool {
	t.Helper()
	tiles, _ := newTiles(t, count, 64, 64, 4, false, capacity)
	p := NewPool(tiles, nil)
	t.Cleanup(p.Close)
	return p
}

func update(fn UpdateFunc, mode SyncMode) Entry {
	return Entry{Kind: KindUpdate, Sync: mode, Update: fn}
}

// =============================================================================
// Pool Lifecycle Tests
// =============================================================================

func TestPool_Create(t *testing.T) {
	p := newTestPool(t, 4, 0)

	if p.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", p.Workers())
	}
	if !p.IsRunning() {
		t.Error("pool should be running after creation")
	}
	for i := range p.Tiles() {
		if p.Tiles()[i].State() != Idle {
			t.Errorf("tile %d starts %v, want IDLE", i, p.Tiles()[i].State())
		}
	}
}

func TestPool_CloseIdempotent(t *testing.T) {
	p := newTestPool(t, 4, 0)
	p.Close()
	p.Close()

	if p.IsRunning() {
		t.Error("pool should not be running after Close")
	}
	for i := range p.Tiles() {
		if !p.Tiles()[i].Stopped() {
			t.Errorf("tile %d worker did not stop", i)
		}
	}
	if n := p.Submit(update(func(int) {}, Implicit), AllTiles); n != 0 {
		t.Errorf("Submit after Close accepted %d, want 0", n)
	}
}

// =============================================================================
// Submission Tests
// =============================================================================

func TestPool_UpdateRunsOnOwnTile(t *testing.T) {
	p := newTestPool(t, 4, 0)

	var mu sync.Mutex
	seen := map[int]int{}
	var wg sync.WaitGroup
	wg.Add(2)
	n := p.Submit(update(func(tile int) {
		mu.Lock()
		seen[tile]++
		mu.Unlock()
		wg.Done()
	}, Implicit), MaskOf(1, 3, 9))
	if n != 2 {
		t.Fatalf("Submit accepted %d, want 2 (tile 9 does not exist)", n)
	}
	wg.Wait()

	if seen[1] != 1 || seen[3] != 1 || len(seen) != 2 {
		t.Errorf("ran on %v, want tiles 1 and 3 once", seen)
	}
}

func TestPool_DrawRendersTile(t *testing.T) {
	tiles, canvas := newTiles(t, 4, 64, 64, 4, false, 0)
	p := NewPool(tiles, nil)
	defer p.Close()

	if n := p.Submit(Entry{Kind: KindDraw, Draw: fill(0xFF00FF00)}, MaskOf(2)); n != 1 {
		t.Fatalf("Submit accepted %d, want 1", n)
	}
	tile := &p.Tiles()[2]
	waitFor(t, "tile 2 to finish its draw", func() bool {
		return tile.State() == Uploading
	})

	tile.RequestCopy()
	if !tile.AwaitCopy() {
		t.Fatal("AwaitCopy failed")
	}
	if !allEqual(region(canvas, tile), 0xFF00FF00) {
		t.Error("tile 2 region not copied")
	}
	for _, i := range []int{0, 1, 3} {
		if p.Tiles()[i].State() != Idle || !allEqual(region(canvas, &p.Tiles()[i]), 0) {
			t.Errorf("unselected tile %d was touched", i)
		}
	}
}

func TestPool_QueueCapacityExact(t *testing.T) {
	p := newTestPool(t, 1, 4)

	started := make(chan struct{})
	gate := make(chan struct{})
	p.Submit(update(func(int) {
		close(started)
		<-gate
	}, Implicit), AllTiles)
	<-started

	var ran atomic.Int32
	accepted := 0
	for range 6 {
		accepted += p.Submit(update(func(int) { ran.Add(1) }, Implicit), AllTiles)
	}
	if accepted != 4 {
		t.Errorf("accepted %d of 6, want 4", accepted)
	}
	if p.QueuedWork() != 4 {
		t.Errorf("QueuedWork() = %d, want 4", p.QueuedWork())
	}

	close(gate)
	waitFor(t, "queued updates", func() bool { return ran.Load() == 4 })

	st := p.Tiles()[0].Stats()
	if st.AcceptedUpdates != 5 || st.DroppedUpdates != 2 || st.Dropped() != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPool_LatestJobFirst(t *testing.T) {
	p := newTestPool(t, 1, 8)

	started := make(chan struct{})
	gate := make(chan struct{})
	p.Submit(update(func(int) {
		close(started)
		<-gate
	}, Implicit), AllTiles)
	<-started

	var mu sync.Mutex
	var order []int
	for id := 1; id <= 3; id++ {
		p.Submit(update(func(int) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}, Implicit), AllTiles)
	}
	close(gate)
	waitFor(t, "updates", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	if order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("order = %v, want [3 2 1]", order)
	}
}

// =============================================================================
// Explicit Synchronisation Tests
// =============================================================================

func TestPool_ExplicitBarrier(t *testing.T) {
	p := newTestPool(t, 4, 0)

	gate := make(chan struct{})
	var arrived atomic.Int32
	p.Submit(update(func(tile int) {
		if tile == 0 {
			<-gate
		}
		arrived.Add(1)
	}, Explicit), AllTiles)

	waitFor(t, "tiles 1-3 at the barrier", func() bool { return arrived.Load() == 3 })

	var after atomic.Int32
	p.Submit(update(func(int) { after.Add(1) }, Implicit), AllTiles)

	time.Sleep(20 * time.Millisecond)
	if n := after.Load(); n != 0 {
		t.Fatalf("%d tiles passed the barrier before tile 0 arrived", n)
	}

	close(gate)
	waitFor(t, "all tiles past the barrier", func() bool { return after.Load() == 4 })
}

func TestPool_ExplicitOrderAcrossQueues(t *testing.T) {
	p := newTestPool(t, 2, 0)

	// Hold tile 0 in an update while an explicit update and then an
	// explicit draw are queued on both tiles.
	started := make(chan struct{})
	gate := make(chan struct{})
	p.Submit(update(func(int) {
		close(started)
		<-gate
	}, Implicit), MaskOf(0))
	<-started

	var order []string
	var mu sync.Mutex
	record := func(what string) {
		mu.Lock()
		order = append(order, what)
		mu.Unlock()
	}
	p.Submit(update(func(tile int) {
		if tile == 0 {
			record("update")
		}
	}, Explicit), MaskOf(0, 1))
	waitFor(t, "tile 1 at the update barrier", func() bool {
		return p.Tiles()[1].Stats().Updates == 1
	})
	p.Submit(Entry{Kind: KindDraw, Sync: Explicit, Draw: func(b Batch, out []uint32) {
		if b.Tile == 0 && b.X == 0 && b.Y == 0 {
			record("draw")
		}
	}}, MaskOf(0, 1))

	close(gate)
	waitFor(t, "both explicit jobs on both tiles", func() bool {
		s0, s1 := p.Tiles()[0].Stats(), p.Tiles()[1].Stats()
		return s0.Updates == 2 && s1.Updates == 1 && s0.Draws == 1 && s1.Draws == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "update" || order[1] != "draw" {
		t.Errorf("tile 0 ran %v, want [update draw]", order)
	}
}

func TestPool_DroppedExplicitArrives(t *testing.T) {
	p := newTestPool(t, 2, 1)

	started := make(chan struct{})
	gate := make(chan struct{})
	p.Submit(update(func(int) {
		close(started)
		<-gate
	}, Implicit), MaskOf(1))
	<-started
	// Fill tile 1's single slot.
	p.Submit(update(func(int) {}, Implicit), MaskOf(1))

	var passed atomic.Bool
	n := p.Submit(update(func(int) {}, Explicit), AllTiles)
	if n != 1 {
		t.Fatalf("explicit submission accepted %d, want 1", n)
	}
	p.Submit(update(func(int) { passed.Store(true) }, Implicit), MaskOf(0))

	waitFor(t, "tile 0 past the barrier", passed.Load)
	close(gate)
}

func TestPool_CloseReleasesBarrier(t *testing.T) {
	tiles, _ := newTiles(t, 2, 64, 64, 4, false, 4)
	p := NewPool(tiles, nil)

	started := make(chan struct{})
	gate := make(chan struct{})
	p.Submit(update(func(int) {
		close(started)
		<-gate
	}, Implicit), MaskOf(1))
	<-started

	var waiting atomic.Bool
	p.Submit(update(func(int) { waiting.Store(true) }, Explicit), AllTiles)
	waitFor(t, "tile 0 at the barrier", waiting.Load)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	close(gate)

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}
