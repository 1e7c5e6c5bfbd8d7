package et

// IDAllocator hands out node ids 0, 1, 2, ... in call order.
// It is not safe for concurrent use; each device generation owns one.
type IDAllocator struct {
	next uint64
}

// NewIDAllocator returns an allocator whose first id is 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh id, one greater than the previous one.
func (a *IDAllocator) Next() uint64 {
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *IDAllocator) Peek() uint64 {
	return a.next
}
