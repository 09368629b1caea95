package crypto

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"
)

// HashAlgorithm is the identifier of a hash algorithm.
type HashAlgorithm int

const (
	// Sha256 is the SHA-2 algorithm with a 256-bits digest.
	Sha256 HashAlgorithm = iota
	// Sha3_224 is the SHA-3 algorithm with a 224-bits digest.
	Sha3_224
	// Sha3_256 is the SHA-3 algorithm with a 256-bits digest.
	Sha3_256
)

// hashFactory is a hash factory that is using SHA algorithms.
//
// - implements crypto.HashFactory
type hashFactory struct {
	hashType HashAlgorithm
}

// NewHashFactory returns a new instance of the factory.
func NewHashFactory(a HashAlgorithm) hashFactory {
	return hashFactory{a}
}

// ParseHashAlgorithm returns the algorithm matching the name, which is one of
// "sha256", "sha3-224" and "sha3-256".
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch name {
	case "sha256", "":
		return Sha256, nil
	case "sha3-224":
		return Sha3_224, nil
	case "sha3-256":
		return Sha3_256, nil
	default:
		return 0, xerrors.Errorf("unknown hash algorithm '%s'", name)
	}
}

// New implements crypto.HashFactory. It returns a new Hash instance.
func (f hashFactory) New() hash.Hash {
	switch f.hashType {
	case Sha256:
		return sha256.New()
	case Sha3_224:
		return sha3.New224()
	case Sha3_256:
		return sha3.New256()
	default:
		panic("unknown hash type")
	}
}
