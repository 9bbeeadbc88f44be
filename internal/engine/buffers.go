package engine

import (
	"bytes"
	"slices"
)

// BufferStore maps host-chosen ids to byte buffers.
//
// Upload copies; the host may reuse its memory as soon as the call returns.
// A second upload to the same id replaces the buffer wholesale.
type BufferStore struct {
	buffers map[uint64][]byte
}

// NewBufferStore creates an empty store.
func NewBufferStore() *BufferStore {
	return &BufferStore{buffers: make(map[uint64][]byte)}
}

// Upload stores a copy of data under id.
func (b *BufferStore) Upload(id uint64, data []byte) {
	buf := bytes.Clone(data)
	if buf == nil {
		buf = []byte{}
	}
	b.buffers[id] = buf
}

// Get returns the buffer stored under id. The slice is owned by the store.
func (b *BufferStore) Get(id uint64) ([]byte, bool) {
	buf, ok := b.buffers[id]
	return buf, ok
}

// Remove drops the buffer under id. Removing an absent id is a no-op.
func (b *BufferStore) Remove(id uint64) {
	delete(b.buffers, id)
}

// Len returns the number of stored buffers.
func (b *BufferStore) Len() int {
	return len(b.buffers)
}

// IDs returns the stored ids in ascending order.
func (b *BufferStore) IDs() []uint64 {
	ids := make([]uint64, 0, len(b.buffers))
	for id := range b.buffers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
