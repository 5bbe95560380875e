package parallel

import (
	"math/bits"
	"strconv"
	"strings"
)

// TileMask selects tiles by index, one bit per tile.
type TileMask uint64

// AllTiles selects every tile.
const AllTiles = ^TileMask(0)

// MaskOf returns the mask selecting the given tile indices.
// Indices outside [0, MaxTiles) are ignored.
func MaskOf(indices ...int) TileMask {
	var m TileMask
	for _, i := range indices {
		m = m.With(i)
	}
	return m
}

// Has reports whether tile i is selected.
func (m TileMask) Has(i int) bool {
	if i < 0 || i >= MaxTiles {
		return false
	}
	return m&(1<<uint(i)) != 0
}

// With returns m with tile i selected.
func (m TileMask) With(i int) TileMask {
	if i < 0 || i >= MaxTiles {
		return m
	}
	return m | 1<<uint(i)
}

// Without returns m with tile i cleared.
func (m TileMask) Without(i int) TileMask {
	if i < 0 || i >= MaxTiles {
		return m
	}
	return m &^ (1 << uint(i))
}

// Limit clears every bit at or above n.
func (m TileMask) Limit(n int) TileMask {
	if n >= MaxTiles {
		return m
	}
	if n <= 0 {
		return 0
	}
	return m & (1<<uint(n) - 1)
}

// Count returns the number of selected tiles.
func (m TileMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Empty reports whether no tile is selected.
func (m TileMask) Empty() bool {
	return m == 0
}

// ForEach calls fn for each selected tile in ascending index order.
func (m TileMask) ForEach(fn func(i int)) {
	word := uint64(m)
	for word != 0 {
		i := bits.TrailingZeros64(word)
		fn(i)
		word &^= 1 << uint(i)
	}
}

// Indices returns the selected tile indices in ascending order.
func (m TileMask) Indices() []int {
	out := make([]int, 0, m.Count())
	m.ForEach(func(i int) {
		out = append(out, i)
	})
	return out
}

func (m TileMask) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	m.ForEach(func(i int) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.Itoa(i))
	})
	sb.WriteByte('}')
	return sb.String()
}
