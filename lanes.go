package tiler

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// DetectLanes returns the pixel batch width matching the host's widest
// float32 vector unit: 8 with AVX2 (or AVX), 4 otherwise.
func DetectLanes() int {
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasAVX2 || cpu.X86.HasAVX {
			return 8
		}
	}
	return 4
}
