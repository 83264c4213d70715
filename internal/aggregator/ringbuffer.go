package aggregator

import "signalcrawler/internal/dto"

// ringBuffer is a fixed-capacity candle history that evicts the oldest entry
// on overflow. It is not safe for concurrent use.
type ringBuffer struct {
	data  []dto.Candle
	head  int
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{data: make([]dto.Candle, capacity)}
}

func (r *ringBuffer) Push(c dto.Candle) {
	if len(r.data) == 0 {
		return
	}
	idx := (r.head + r.count) % len(r.data)
	r.data[idx] = c
	if r.count < len(r.data) {
		r.count++
		return
	}
	r.head = (r.head + 1) % len(r.data)
}

func (r *ringBuffer) Len() int {
	return r.count
}

func (r *ringBuffer) Cap() int {
	return len(r.data)
}

func (r *ringBuffer) Reset() {
	r.head = 0
	r.count = 0
}

// Last returns the newest candle.
func (r *ringBuffer) Last() (dto.Candle, bool) {
	if r.count == 0 {
		return dto.Candle{}, false
	}
	return r.data[(r.head+r.count-1)%len(r.data)], true
}

// Slice copies the contents, oldest first.
func (r *ringBuffer) Slice() []dto.Candle {
	out := make([]dto.Candle, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}
