// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides sinks that receive regions presented by a
// tiler.Scheduler.
//
// A sink stands in for the display: the scheduler hands it the shared
// output surface together with the rectangle that has just been copied out
// of one or more tiles, and the sink shows that rectangle somewhere.
//
// # Sinks
//
//   - ImageSink: blits each region into a draw.Image using golang.org/x/image/draw
//   - ScaledSink: resamples each region into a smaller or larger preview image
//   - RecordingSink: remembers every call, for tests and debugging
//
// # Registry
//
// Sinks can be constructed by name, which is how the demo command selects
// its output:
//
//	sink, err := surface.NewSink("image", 1920, 1080)
//
// Built-in names are "image", "record" and "discard".
//
// # Snapshots
//
// WriteBMP and SaveBMP encode any image.Image as BMP, which is enough to
// inspect a frame without a windowing system.
package surface
