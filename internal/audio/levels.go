package audio

import (
	"fmt"

	"github.com/safebite/handheld/internal/config"
)

// MaxBars is the capacity of a LevelHistory.
const MaxBars = config.MaxBars

// LevelHistory is a fixed-capacity window of recent input levels, oldest
// first. It is a comparable value so the diff cache can detect changes.
type LevelHistory struct {
	buf [MaxBars]uint8
	n   int
}

// NewLevelHistory returns an all-zero history holding n levels.
func NewLevelHistory(n int) (LevelHistory, error) {
	if n < 1 || n > MaxBars {
		return LevelHistory{}, fmt.Errorf("level history size must be between 1 and %d, got: %d", MaxBars, n)
	}
	return LevelHistory{n: n}, nil
}

// Push drops the oldest level and appends level as the newest.
func (h *LevelHistory) Push(level uint8) {
	if h.n == 0 {
		return
	}
	copy(h.buf[:h.n-1], h.buf[1:h.n])
	h.buf[h.n-1] = level
}

// Values returns a copy of the levels, oldest first.
func (h LevelHistory) Values() []uint8 {
	out := make([]uint8, h.n)
	copy(out, h.buf[:h.n])
	return out
}

// Len returns the number of levels held.
func (h LevelHistory) Len() int { return h.n }

// Clear zeroes every level.
func (h *LevelHistory) Clear() {
	h.buf = [MaxBars]uint8{}
}

// PeakLevel maps the peak magnitude of samples onto 0..255.
func PeakLevel(samples []int16) uint8 {
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak > 32767 {
		peak = 32767
	}
	return uint8(peak * 255 / 32767)
}
