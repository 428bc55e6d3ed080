package detector

import (
	"math/bits"
	"time"

	"github.com/bmharper/ringbuffer"
)

// history keeps the timings of the most recent size successful calls.
type history struct {
	ring ringbuffer.RingP[Stats]
	size int
}

// newHistory panics if size < 1.
func newHistory(size int) *history {
	// A ring of 2^k slots holds 2^k-1 items.
	slots := 1 << bits.Len(uint(size))
	return &history{ring: ringbuffer.NewRingP[Stats](slots), size: size}
}

func (h *history) add(s Stats) {
	if h.ring.Len() == h.size {
		h.ring.Next()
	}
	h.ring.Add(s)
}

// all returns the recorded stats, oldest first.
func (h *history) all() []Stats {
	out := make([]Stats, h.ring.Len())
	for i := range out {
		out[i] = h.ring.Peek(i)
	}
	return out
}

func (h *history) mean() Stats {
	n := h.ring.Len()
	if n == 0 {
		return Stats{}
	}
	var sum Stats
	for i := 0; i < n; i++ {
		s := h.ring.Peek(i)
		sum.Setup += s.Setup
		sum.Inference += s.Inference
		sum.PostProcess += s.PostProcess
	}
	d := time.Duration(n)
	return Stats{Setup: sum.Setup / d, Inference: sum.Inference / d, PostProcess: sum.PostProcess / d}
}
