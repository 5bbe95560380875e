// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package arena provides a bump allocator over a single pool sized up front.
//
// All tile buffers, staging buffers and the shared output surface are carved
// out of one Arena during scheduler setup. Individual allocations are never
// freed; the whole pool is dropped at once by Release.
//
// Only pointer-free element types may live in the pool, which is why the
// typed helpers are constrained to integer elements. Values holding Go
// pointers (closures, mutexes, queues) stay on the regular heap.
//
// Thread safety: an Arena is written by a single goroutine during setup.
// After Seal the carved slices may be shared freely; the Arena itself must
// not be used for further allocation.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/exp/constraints"
	"honnef.co/go/safeish"
)

// CacheLine is the alignment used for allocations that are written by
// different goroutines.
const CacheLine = 64

var (
	// ErrExhausted is returned when an allocation does not fit in the pool.
	ErrExhausted = errors.New("arena: pool exhausted")

	// ErrSealed is returned when allocating from a sealed or released arena.
	ErrSealed = errors.New("arena: allocation after seal")
)

// Arena is a bump allocator over a fixed byte pool.
type Arena struct {
	pool   []byte
	offset int
	sealed bool
}

// New creates an arena backed by a pool of size bytes. The pool starts on a
// cache line boundary, so alignments up to CacheLine are absolute.
func New(size int) *Arena {
	if size <= 0 {
		return &Arena{pool: []byte{}}
	}
	words := make([]uint64, (size+CacheLine+7)/8)
	raw := safeish.SliceCast[[]byte](words)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	skip := int(alignUp(base, CacheLine) - base) //nolint:gosec // skip < CacheLine
	return &Arena{pool: raw[skip : skip+size : skip+size]}
}

// Alloc returns n zeroed bytes aligned to align, which must be a power of two.
func (a *Arena) Alloc(n, align int) ([]byte, error) {
	if a.sealed || a.pool == nil {
		return nil, ErrSealed
	}
	if n < 0 {
		return nil, fmt.Errorf("arena: negative allocation size %d", n)
	}
	if align <= 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("arena: alignment %d is not a power of two", align)
	}

	off := alignUp(a.offset, align)
	if off+n > len(a.pool) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, pool holds %d",
			ErrExhausted, n, off, len(a.pool))
	}
	a.offset = off + n
	b := a.pool[off : off+n : off+n]
	clear(b)
	return b, nil
}

// Slice carves a zeroed slice of n elements out of the arena, aligned to
// align bytes (or the element alignment, whichever is larger).
func Slice[E constraints.Integer](a *Arena, n, align int) ([]E, error) {
	var zero E
	size := int(unsafe.Sizeof(zero))
	align = max(align, int(unsafe.Alignof(zero)))
	b, err := a.Alloc(n*size, align)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []E{}, nil
	}
	return safeish.SliceCast[[]E](b), nil
}

// Seal forbids further allocation. Carved slices remain valid.
func (a *Arena) Seal() {
	a.sealed = true
}

// Sealed reports whether Seal or Release has been called.
func (a *Arena) Sealed() bool {
	return a.sealed
}

// Release drops the pool. Slices carved earlier keep the memory alive until
// they are unreferenced; the arena itself cannot allocate again.
func (a *Arena) Release() {
	a.pool = nil
	a.offset = 0
	a.sealed = true
}

// Used returns the number of bytes handed out, including alignment padding.
func (a *Arena) Used() int {
	return a.offset
}

// Cap returns the pool size in bytes.
func (a *Arena) Cap() int {
	return len(a.pool)
}

// Remaining returns the number of bytes still available.
func (a *Arena) Remaining() int {
	return len(a.pool) - a.offset
}

// alignUp rounds v up to a multiple of to, which has to be a power of two.
func alignUp[T constraints.Integer](v, to T) T {
	return (v + to - 1) &^ (to - 1)
}

// SizeFor returns the pool size needed to hold the given allocations,
// each padded to align. It is used to size the pool before carving.
func SizeFor(align int, sizes ...int) int {
	total := 0
	for _, s := range sizes {
		total = alignUp(total, align) + s
	}
	return alignUp(total, align)
}
