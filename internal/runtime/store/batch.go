package store

import (
	"sort"
	"sync"
)

// Batch buffers the writes of one handler invocation on top of a MemStore.
// Nothing reaches the base store until Commit, so a failed handler leaves no
// trace. A Batch is safe for concurrent use.
type Batch struct {
	base *MemStore

	mtx sync.Mutex
	// pending holds encoded entities; a nil value marks a removal
	pending map[EntityKey][]byte
}

func NewBatch(base *MemStore) *Batch {
	return &Batch{base: base, pending: make(map[EntityKey][]byte)}
}

// Get returns the entity as seen by the invocation.
func (b *Batch) Get(key EntityKey) (Entity, bool, error) {
	b.mtx.Lock()
	bz, ok := b.pending[key]
	b.mtx.Unlock()
	if !ok {
		return b.base.Get(key)
	}
	if bz == nil {
		return nil, false, nil
	}
	e, err := DecodeEntity(bz)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (b *Batch) Set(key EntityKey, e Entity) error {
	bz, err := EncodeEntity(e)
	if err != nil {
		return err
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.pending[key] = bz
	return nil
}

// Remove reports whether the entity was visible before the call.
func (b *Batch) Remove(key EntityKey) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	bz, ok := b.pending[key]
	existed := bz != nil
	if !ok {
		existed = b.base.has(key)
	}
	b.pending[key] = nil
	return existed
}

// Changes returns the number of keys written or removed.
func (b *Batch) Changes() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return len(b.pending)
}

// Commit applies all buffered writes to the base store in key order and
// empties the batch.
func (b *Batch) Commit() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	keys := make([]EntityKey, 0, len(b.pending))
	for k := range b.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	b.base.mtx.Lock()
	defer b.base.mtx.Unlock()
	for _, k := range keys {
		if bz := b.pending[k]; bz != nil {
			b.base.btree.ReplaceOrInsert(&item{key: k, data: bz})
		} else {
			b.base.btree.Delete(&item{key: k})
		}
	}
	b.pending = make(map[EntityKey][]byte)
}

// Discard drops all buffered writes.
func (b *Batch) Discard() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.pending = make(map[EntityKey][]byte)
}
