// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/tiler"
)

// ImageSink copies presented regions into a destination image.
//
// Regions are copied with draw.Src, so the destination ends up holding the
// exact surface pixels. ImageSink is safe for concurrent use; Snapshot can
// be called while a Present is running.
//
// Example:
//
//	sink := surface.NewImageSink(image.NewRGBA(image.Rect(0, 0, 640, 480)))
//	sched.PresentBlocking(sink, 0)
//	img := sink.Snapshot()
type ImageSink struct {
	mu      sync.Mutex
	dst     draw.Image
	regions int
}

// NewImageSink returns a sink drawing into dst.
func NewImageSink(dst draw.Image) *ImageSink {
	return &ImageSink{dst: dst}
}

// NewRGBASink returns a sink drawing into a fresh width×height RGBA image.
func NewRGBASink(width, height int) *ImageSink {
	return NewImageSink(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// Present implements tiler.Sink.
func (k *ImageSink) Present(s *tiler.Surface, r image.Rectangle) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	r = r.Intersect(k.dst.Bounds())
	if r.Empty() {
		return nil
	}
	draw.Draw(k.dst, r, s.RGBA(r), r.Min, draw.Src)
	k.regions++
	return nil
}

// Image returns the destination image.
func (k *ImageSink) Image() draw.Image {
	return k.dst
}

// Regions returns how many non-empty regions have been presented.
func (k *ImageSink) Regions() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.regions
}

// Snapshot returns a copy of the destination image.
func (k *ImageSink) Snapshot() *image.RGBA {
	k.mu.Lock()
	defer k.mu.Unlock()

	b := k.dst.Bounds()
	out := image.NewRGBA(b)
	draw.Copy(out, b.Min, k.dst, b, draw.Src, nil)
	return out
}

// ScaledSink resamples presented regions into a destination image of a
// different size, for example a thumbnail preview of a large canvas.
type ScaledSink struct {
	mu     sync.Mutex
	dst    draw.Image
	interp draw.Interpolator
}

// NewScaledSink returns a sink scaling into dst with interp. A nil interp
// selects draw.ApproxBiLinear.
func NewScaledSink(dst draw.Image, interp draw.Interpolator) *ScaledSink {
	if interp == nil {
		interp = draw.ApproxBiLinear
	}
	return &ScaledSink{dst: dst, interp: interp}
}

// Present implements tiler.Sink.
func (k *ScaledSink) Present(s *tiler.Surface, r image.Rectangle) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	src := s.Bounds()
	r = r.Intersect(src)
	if r.Empty() || src.Empty() {
		return nil
	}
	db := k.dst.Bounds()
	dr := image.Rect(
		db.Min.X+r.Min.X*db.Dx()/src.Dx(),
		db.Min.Y+r.Min.Y*db.Dy()/src.Dy(),
		db.Min.X+r.Max.X*db.Dx()/src.Dx(),
		db.Min.Y+r.Max.Y*db.Dy()/src.Dy(),
	)
	if dr.Empty() {
		return nil
	}
	k.interp.Scale(k.dst, dr, s.RGBA(r), r, draw.Src, nil)
	return nil
}

// Image returns the destination image.
func (k *ScaledSink) Image() draw.Image {
	return k.dst
}
