package prim

// Buffer is the growable scratch array the rewrite entry points emit
// into. It is owned by the renderer, reused across draws and grows by
// doubling (or to the exact need, whichever is larger). It never shrinks.
//
// A Buffer must be externally synchronized: the Result returned by a
// rewrite call borrows the Buffer's storage and is invalidated by the
// next rewrite call on the same Buffer.
type Buffer struct {
	data []uint32
}

// ensure guarantees capacity for needed indices and resets the logical
// length to zero.
func (b *Buffer) ensure(needed int) {
	if needed <= cap(b.data) {
		b.data = b.data[:0]
		return
	}

	newCapacity := cap(b.data) * 2
	if needed > newCapacity {
		newCapacity = needed
	}
	b.data = make([]uint32, 0, newCapacity)
}

// Capacity returns the number of indices the Buffer can hold without
// growing.
func (b *Buffer) Capacity() int {
	return cap(b.data)
}

// Result is a non-owning view of rewritten indices emitted by a rewrite
// call. It stays valid only until the next rewrite call on the same
// Buffer, which may reallocate the backing storage. An empty Result means
// the caller should draw with the original index source and topology
// unchanged.
type Result struct {
	Indices []uint32
}

// Count returns the number of rewritten indices in the view.
func (r Result) Count() int {
	return len(r.Indices)
}

// Empty reports whether the rewrite produced no indices, either because
// no rewrite was needed or because the input was below the minimum vertex
// count for its topology.
func (r Result) Empty() bool {
	return len(r.Indices) == 0
}
