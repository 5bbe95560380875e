package parallel

// Batch describes one vector-width run of pixels handed to a DrawFunc.
// Lane i covers canvas pixel (X+i, Y).
type Batch struct {
	// Tile is the index of the tile being drawn.
	Tile int

	// X and Y are the canvas coordinates of lane 0.
	X, Y int

	// Lanes is the number of pixels in the batch.
	Lanes int

	// CanvasWidth is the width of the whole canvas in pixels.
	CanvasWidth int
}

// Index returns the linear canvas index of lane i (y*width + x).
func (b Batch) Index(i int) int {
	return b.Y*b.CanvasWidth + b.X + i
}

// Lane returns the canvas coordinates of lane i.
func (b Batch) Lane(i int) (x, y int) {
	return b.X + i, b.Y
}

// Draw runs one draw pass of fn over the tile. Worker only.
//
// Rows reached while the previous frame still waits in Uploading are rendered
// into the staging buffer; once a requested copy-out has drained the buffer
// they are flushed back. After the pass the tile enters Uploading and, if the
// presenter already asked for this tile, copies itself out.
func (t *Tile) Draw(fn DrawFunc) {
	t.inPass = true
	direct := t.beginDraw()

	w := t.Width()
	for row := t.MinY; row < t.MaxY; row++ {
		local := row - t.MinY
		if !direct {
			t.serviceCopy()
			if t.State() != Uploading {
				t.setState(Processing)
				direct = true
			}
		}

		dst := t.Buffer
		if !direct {
			dst = t.staging
			t.blockedRows[t.nblocked] = int32(local) //nolint:gosec // local < tile height
			t.nblocked++
		}

		base := local * w
		t.eachBatch(local, func(off, n int) {
			b := Batch{
				Tile:        t.Index,
				X:           t.MinX + off,
				Y:           row,
				Lanes:       n,
				CanvasWidth: t.canvas.Width,
			}
			i := base + off
			fn(b, dst[i:i+n:i+n])
		})
	}
	t.stats.draws.Add(1)

	if !t.running.Load() {
		t.inPass = false
		return
	}
	if !direct && !t.awaitCopyOut() {
		t.inPass = false
		return
	}
	if t.nblocked > 0 {
		t.flushStaging()
	}
	t.inPass = false
	t.finishDraw()
}

// eachBatch calls fn with the tile-local x offset and pixel count of every
// batch of row local that belongs to the current interlace phase. The last
// batch of a row is short when the tile width is not a multiple of the lane
// count. With interlacing the batches form a checkerboard; two consecutive
// passes cover the whole tile.
func (t *Tile) eachBatch(local int, fn func(off, n int)) {
	w := t.Width()
	col := 0
	for off := 0; off < w; off += t.lanes {
		if !t.interlace || (local+col)&1 == t.phase {
			fn(off, min(t.lanes, w-off))
		}
		col++
	}
}

// beginDraw moves the tile into Processing and reports whether the buffer
// may be written directly.
func (t *Tile) beginDraw() bool {
	t.serviceCopy()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State() == Uploading {
		return false
	}
	t.setStateLocked(Processing)
	return true
}

// awaitCopyOut blocks until the presenter requests the pending frame, then
// copies it. It returns false if the tile stopped while waiting.
func (t *Tile) awaitCopyOut() bool {
	t.mu.Lock()
	for t.running.Load() && t.State() == Uploading && t.BlitState() != BlitAwaiting {
		t.cond.Wait()
	}
	due := t.running.Load() && t.copyRequested()
	t.mu.Unlock()

	if due {
		t.copyOut()
	}
	return t.running.Load()
}

// flushStaging moves staged rows into the tile buffer.
func (t *Tile) flushStaging() {
	w := t.Width()
	for _, local := range t.blockedRows[:t.nblocked] {
		base := int(local) * w
		t.eachBatch(int(local), func(off, n int) {
			i := base + off
			copy(t.Buffer[i:i+n], t.staging[i:i+n])
		})
	}
	t.stats.staged.Add(uint64(t.nblocked)) //nolint:gosec // nblocked >= 0
	t.nblocked = 0
}

// finishDraw publishes the finished buffer and copies out straight away when
// the presenter is already waiting for it.
func (t *Tile) finishDraw() {
	t.mu.Lock()
	if !t.running.Load() {
		t.mu.Unlock()
		return
	}
	t.setStateLocked(Uploading)
	due := t.BlitState() == BlitAwaiting
	t.mu.Unlock()

	if due {
		t.copyOut()
	}
}

// flipPhase alternates the interlace phase after a draw pass.
func (t *Tile) flipPhase() {
	if t.interlace {
		t.phase ^= 1
	}
}
