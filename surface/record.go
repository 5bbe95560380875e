// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"sync"

	"github.com/gogpu/tiler"
)

// Call is one Present call seen by a RecordingSink.
type Call struct {
	Rect image.Rectangle

	// Pixels holds the region's packed pixels, row-major, when the sink
	// was created with capture enabled.
	Pixels []uint32
}

// RecordingSink records every region it is asked to present.
type RecordingSink struct {
	mu      sync.Mutex
	calls   []Call
	capture bool
	failAt  int
	err     error
}

// NewRecordingSink returns a sink that records rectangles. When capture is
// true it also copies the presented pixels.
func NewRecordingSink(capture bool) *RecordingSink {
	return &RecordingSink{capture: capture, failAt: -1}
}

// FailAt makes call n (0-based) return err instead of recording.
func (k *RecordingSink) FailAt(n int, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.failAt, k.err = n, err
}

// Present implements tiler.Sink.
func (k *RecordingSink) Present(s *tiler.Surface, r image.Rectangle) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.failAt >= 0 && len(k.calls) == k.failAt {
		k.failAt = -1
		return k.err
	}
	c := Call{Rect: r}
	if k.capture {
		c.Pixels = make([]uint32, 0, r.Dx()*r.Dy())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			c.Pixels = append(c.Pixels, s.Row(y)[r.Min.X:r.Max.X]...)
		}
	}
	k.calls = append(k.calls, c)
	return nil
}

// Calls returns a copy of the recorded calls.
func (k *RecordingSink) Calls() []Call {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Call, len(k.calls))
	copy(out, k.calls)
	return out
}

// Rects returns the recorded rectangles in call order.
func (k *RecordingSink) Rects() []image.Rectangle {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]image.Rectangle, len(k.calls))
	for i, c := range k.calls {
		out[i] = c.Rect
	}
	return out
}

// Covered returns the union of all recorded rectangles.
func (k *RecordingSink) Covered() image.Rectangle {
	k.mu.Lock()
	defer k.mu.Unlock()
	var u image.Rectangle
	for _, c := range k.calls {
		u = u.Union(c.Rect)
	}
	return u
}

// Reset forgets all recorded calls.
func (k *RecordingSink) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = k.calls[:0]
}

// Discard is a sink that accepts every region and does nothing.
var Discard tiler.Sink = tiler.SinkFunc(func(*tiler.Surface, image.Rectangle) error { return nil })
