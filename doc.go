// Package tiler schedules CPU rendering work across a fixed grid of tiles.
//
// # Overview
//
// A canvas is split into up to 64 equal rectangular tiles. Each tile owns a
// private pixel buffer and one worker goroutine that lives for the whole
// session. Producers submit draw jobs (per-pixel colour functions) and update
// jobs (per-tile logic); a presenter copies finished tiles into a shared
// output surface and hands them to a display sink once per frame.
//
// # Quick Start
//
//	s := tiler.New()
//	if err := s.Setup(8, 1920, 1080, false); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Shutdown()
//
//	s.SubmitDraw(func(b tiler.Batch, out []uint32) {
//	    for i := range out {
//	        out[i] = 0xFF2040C0
//	    }
//	}, tiler.Implicit, tiler.AllTiles)
//
//	s.PresentBlocking(sink, 16*time.Millisecond)
//
// # Tile States
//
// Every tile is in one of three states:
//
//   - Idle: nothing to do; the worker sleeps
//   - Processing: a draw pass is writing the tile buffer
//   - Uploading: the buffer holds a finished frame waiting to be copied
//
// Copy-out is done by the tile's own worker once the presenter requests it,
// so the presenter never touches a tile buffer. Rows drawn while the
// previous frame still waits for copy-out go to a staging buffer and are
// flushed back after the copy.
//
// # Queues and Synchronisation
//
// Each tile has a bounded queue per job kind (32 entries by default). The
// newest implicit job runs first; submissions to a full queue are dropped
// and reported through the accepted count. Explicit jobs make every selected
// tile wait at a barrier until all of them have executed the job.
//
// # Memory
//
// Tile buffers, staging buffers and the output surface are carved out of a
// single cache-line aligned pool at Setup and released at Shutdown.
//
// # Vector Width
//
// Draw functions receive batches of 4 or 8 horizontally adjacent pixels,
// chosen from the host's vector capabilities (see DetectLanes). With
// interlacing enabled a pass only renders half of the batches in a
// checkerboard; the next pass renders the other half.
//
// # Logging
//
// tiler is silent by default. Use SetLogger or WithLogger to route its
// log/slog records to a handler.
package tiler
