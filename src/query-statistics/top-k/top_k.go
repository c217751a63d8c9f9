// Package topk provides a fixed-capacity container that retains the
// highest-scored entries ever inserted into it.
package topk

import (
	"container/heap"
	"sort"
)

// DefaultCapacity is used when no explicit capacity is given.
const DefaultCapacity = 30

// BoundedTopK keeps the N highest-scored payloads seen so far. Inserting
// beyond capacity evicts the current minimum, so memory stays bounded no
// matter how many entries are offered. Entries with equal scores are all
// retained up to capacity and keep their insertion order.
type BoundedTopK[V any] struct {
	capacity int
	seq      int64
	entries  entryHeap[V]
}

type entry[V any] struct {
	score int64
	seq   int64
	value V
}

// New creates a BoundedTopK with the given capacity. Non-positive
// capacities fall back to DefaultCapacity.
func New[V any](capacity int) *BoundedTopK[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BoundedTopK[V]{
		capacity: capacity,
		entries:  make(entryHeap[V], 0, capacity),
	}
}

// Put offers a payload with the given score. While below capacity the entry
// is always retained; afterwards it replaces the minimum retained entry only
// when its score is strictly greater.
func (t *BoundedTopK[V]) Put(score int64, value V) {
	e := entry[V]{score: score, seq: t.seq, value: value}
	t.seq++

	if t.entries.Len() < t.capacity {
		heap.Push(&t.entries, e)
		return
	}

	if t.entries[0].score < score {
		t.entries[0] = e
		heap.Fix(&t.entries, 0)
	}
}

// Len returns the number of retained entries.
func (t *BoundedTopK[V]) Len() int {
	return t.entries.Len()
}

// Values returns the retained payloads in ascending score order, ties in
// insertion order. The receiver is not modified, so Values can be called
// repeatedly.
func (t *BoundedTopK[V]) Values() []V {
	sorted := make([]entry[V], len(t.entries))
	copy(sorted, t.entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score < sorted[j].score
		}
		return sorted[i].seq < sorted[j].seq
	})

	values := make([]V, len(sorted))
	for i, e := range sorted {
		values[i] = e.value
	}
	return values
}

// entryHeap is a min-heap ordered by score, then insertion sequence.
type entryHeap[V any] []entry[V]

func (h entryHeap[V]) Len() int { return len(h) }

func (h entryHeap[V]) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[V]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[V]) Push(x interface{}) {
	*h = append(*h, x.(entry[V]))
}

func (h *entryHeap[V]) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
