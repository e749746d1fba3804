package crawler

import (
	"container/heap"

	"github.com/gpcscan/gpcscan/internal/oracle"
)

// Priority tiers. Numerically lower pops first.
const (
	tierHigh   = 1
	tierMedium = 2
	tierLow    = 3
)

// tierOf maps a candidate priority label to its numeric tier. Unknown and
// empty labels are treated as low so a chatty oracle cannot jump the queue
// with labels the frontier never promised to honor.
func tierOf(priority string) int {
	switch priority {
	case oracle.PriorityHigh:
		return tierHigh
	case oracle.PriorityMedium:
		return tierMedium
	default:
		return tierLow
	}
}

// frontierItem is one queued crawl candidate.
type frontierItem struct {
	tier int
	seq  int
	url  string
}

// frontierHeap orders items by (tier, seq): lowest tier first, insertion
// order within a tier. The seq tiebreak is what makes equal-priority
// candidates pop FIFO; a plain tier comparison would let heap sifting
// reorder them arbitrarily.
type frontierHeap []frontierItem

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	if h[i].tier != h[j].tier {
		return h[i].tier < h[j].tier
	}
	return h[i].seq < h[j].seq
}

func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontierHeap) Push(x any) {
	*h = append(*h, x.(frontierItem))
}

func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Frontier is the crawl's priority queue: a min-heap of candidate URLs
// keyed (tier, insertion sequence). It does not deduplicate; the crawl
// engine's visited set prunes duplicates at pop time.
type Frontier struct {
	items frontierHeap
	seq   int
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{items: make(frontierHeap, 0, 16)}
	heap.Init(&f.items)
	return f
}

// Push enqueues a URL at the tier for the given priority label.
func (f *Frontier) Push(priority, url string) {
	f.seq++
	heap.Push(&f.items, frontierItem{tier: tierOf(priority), seq: f.seq, url: url})
}

// Pop dequeues the lowest-tier, earliest-pushed URL.
// It returns false when the frontier is empty.
func (f *Frontier) Pop() (string, bool) {
	if f.items.Len() == 0 {
		return "", false
	}
	item := heap.Pop(&f.items).(frontierItem)
	return item.url, true
}

// Len returns the number of queued candidates.
func (f *Frontier) Len() int {
	return f.items.Len()
}
