// Package prefixed implements a store namespace. Every key is hashed together
// with the namespace so that two namespaces never share a key.
package prefixed

import (
	"encoding/binary"
	"hash"

	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/crypto"
)

type readable struct {
	store.Readable
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type snapshot struct {
	*writable
	*readable
}

// NewSnapshot creates a new prefixed Snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)
	return &snapshot{
		&writable{snap, p},
		&readable{snap, p},
	}
}

// NewReadable creates a new prefixed Readable.
func NewReadable(prefix string, r store.Readable) store.Readable {
	p := []byte(prefix)
	return &readable{r, p}
}

// Get implements store.Readable. It returns the value of the key in the
// namespace.
func (s *readable) Get(key []byte) ([]byte, error) {
	k := NewPrefixedKey(s.prefix, key)
	return s.Readable.Get(k)
}

// Set implements store.Writable. It sets the value of the key in the
// namespace.
func (s *writable) Set(key []byte, value []byte) error {
	k := NewPrefixedKey(s.prefix, key)
	return s.Writable.Set(k, value)
}

// Delete implements store.Writable. It removes the key from the namespace.
func (s *writable) Delete(key []byte) error {
	k := NewPrefixedKey(s.prefix, key)
	return s.Writable.Delete(k)
}

// NewPrefixedKey creates a 256bit (hashed) key from a prefix and a base key.
func NewPrefixedKey(prefix, key []byte) []byte {
	h := crypto.NewHashFactory(crypto.Sha256).New()

	writeWithLength(h, prefix)
	writeWithLength(h, key)

	return h.Sum(nil)
}

func writeWithLength(h hash.Hash, data []byte) {
	length := []byte{0, 0}
	binary.LittleEndian.PutUint16(length, uint16(len(data)))

	h.Write(length)
	h.Write(data)
}
