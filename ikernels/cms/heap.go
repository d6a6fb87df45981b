package cms

// heapItem is one entry in the top-K min-heap: evicting the minimum
// estimate is O(log k), matching spec.md's "host maintains the actual
// top-K heap" description.
type heapItem struct {
	value    uint32
	estimate uint32
	index    int
}

type topKHeap []*heapItem

func (h topKHeap) Len() int            { return len(h) }
func (h topKHeap) Less(i, j int) bool  { return h[i].estimate < h[j].estimate }
func (h topKHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *topKHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
