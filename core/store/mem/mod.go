// Package mem implements an in-memory staging snapshot. It saves the updates in
// an internal store and only keeps the updates of the current snapshot. When
// reading, it looks up the parent if the key is not found.
//
// The updates are applied to a writable store only when the snapshot is
// committed, which makes it possible to discard a whole set of changes.
package mem

import (
	"sort"

	"go.dedis.ch/tokenlock/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Snapshot is a staging snapshot layered over a readable parent.
//
// - implements store.Snapshot
type Snapshot struct {
	parent store.Readable
	store  map[string]item
}

// NewSnapshot creates a new empty snapshot over the parent, which can be nil.
func NewSnapshot(parent store.Readable) *Snapshot {
	return &Snapshot{
		parent: parent,
		store:  make(map[string]item),
	}
}

// Get implements store.Readable. It returns the staged value if any, otherwise
// the value of the parent. A missing key returns a nil value.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	it, found := s.store[string(key)]
	if found {
		if it.deleted {
			return nil, nil
		}

		return append([]byte{}, it.value...), nil
	}

	if s.parent == nil {
		return nil, nil
	}

	value, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent: %v", err)
	}

	return value, nil
}

// Set implements store.Writable. It stages the value for the key.
func (s *Snapshot) Set(key, value []byte) error {
	s.store[string(key)] = item{value: append([]byte{}, value...)}

	return nil
}

// Delete implements store.Writable. It stages the deletion of the key.
func (s *Snapshot) Delete(key []byte) error {
	s.store[string(key)] = item{deleted: true}

	return nil
}

// Commit applies the staged updates to the store in the order of the keys.
func (s *Snapshot) Commit(w store.Writable) error {
	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		it := s.store[key]

		var err error
		if it.deleted {
			err = w.Delete([]byte(key))
		} else {
			err = w.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to commit key %#x: %v", key, err)
		}
	}

	return nil
}
