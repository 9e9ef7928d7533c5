package ingest

import (
	"sync"
	"sync/atomic"
)

// History is a thread-safe ring of the most recent observations.
// When full, new values overwrite the oldest.
type History struct {
	mu       sync.RWMutex
	data     []float64
	head     int64 // Next write position
	tail     int64 // Oldest data position
	count    int64 // Current number of elements
	capacity int64

	// Statistics
	pushCount atomic.Int64
	dropCount atomic.Int64
}

// NewHistory creates a History with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1024
	}
	return &History{
		data:     make([]float64, capacity),
		capacity: int64(capacity),
	}
}

// Push records a value, overwriting the oldest if the history is full.
func (h *History) Push(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count >= h.capacity {
		h.tail++
		h.count--
		h.dropCount.Add(1)
	}

	h.data[h.head%h.capacity] = v
	h.head++
	h.count++
	h.pushCount.Add(1)
}

// Values returns the retained values, oldest first.
func (h *History) Values() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]float64, h.count)
	for i := int64(0); i < h.count; i++ {
		out[i] = h.data[(h.tail+i)%h.capacity]
	}
	return out
}

// Newest returns the most recent value.
// Returns false if the history is empty.
func (h *History) Newest() (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return 0, false
	}
	idx := (h.head - 1) % h.capacity
	return h.data[idx], true
}

// Len returns the number of retained values.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return int(h.count)
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return int(h.capacity)
}

// Complete reports whether every value ever pushed is still retained.
func (h *History) Complete() bool {
	return h.dropCount.Load() == 0
}

// Clear removes all values and resets the statistics.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.head = 0
	h.tail = 0
	h.count = 0
	h.pushCount.Store(0)
	h.dropCount.Store(0)
}

// Stats returns history statistics.
func (h *History) Stats() HistoryStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HistoryStats{
		Capacity:   int(h.capacity),
		Count:      int(h.count),
		UsageRatio: float64(h.count) / float64(h.capacity),
		PushCount:  h.pushCount.Load(),
		DropCount:  h.dropCount.Load(),
	}
}

// HistoryStats holds history statistics.
type HistoryStats struct {
	Capacity   int
	Count      int
	UsageRatio float64
	PushCount  int64
	DropCount  int64
}
