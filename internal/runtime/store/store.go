package store

import (
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

// item is a btree entry holding one encoded entity.
type item struct {
	key  EntityKey
	data []byte
}

var _ btree.Item = (*item)(nil)

// Less implements btree.Item.
func (i *item) Less(other btree.Item) bool {
	return i.key.less(other.(*item).key)
}

// MemStore is an ordered in-memory entity store. It is safe for concurrent use.
// Entities are kept encoded, so callers never share memory with the store.
type MemStore struct {
	mtx   sync.RWMutex
	btree *btree.BTree
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{btree: btree.New(btreeDegree)}
}

// Get returns the entity stored under key.
func (s *MemStore) Get(key EntityKey) (Entity, bool, error) {
	s.mtx.RLock()
	i := s.btree.Get(&item{key: key})
	s.mtx.RUnlock()
	if i == nil {
		return nil, false, nil
	}
	e, err := DecodeEntity(i.(*item).data)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Set stores e under key, replacing any previous entity.
func (s *MemStore) Set(key EntityKey, e Entity) error {
	bz, err := EncodeEntity(e)
	if err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.btree.ReplaceOrInsert(&item{key: key, data: bz})
	return nil
}

// Remove deletes the entity stored under key and reports whether it existed.
func (s *MemStore) Remove(key EntityKey) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.btree.Delete(&item{key: key}) != nil
}

func (s *MemStore) has(key EntityKey) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.btree.Has(&item{key: key})
}

// Len returns the number of stored entities.
func (s *MemStore) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.btree.Len()
}

// Iterate calls fn for every entity of entityType in id order until fn returns false.
// fn must not modify the store.
func (s *MemStore) Iterate(entityType string, fn func(EntityKey, Entity) bool) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	var err error
	s.btree.AscendGreaterOrEqual(&item{key: EntityKey{EntityType: entityType}}, func(i btree.Item) bool {
		it := i.(*item)
		if it.key.EntityType != entityType {
			return false
		}
		var e Entity
		e, err = DecodeEntity(it.data)
		if err != nil {
			return false
		}
		return fn(it.key, e)
	})
	return err
}
