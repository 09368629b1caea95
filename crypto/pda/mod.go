// Package pda derives addresses that are owned by a program rather than by a
// key pair.
//
// An address is the digest of the seeds, a bump byte, the program identifier
// and a marker. The bump is decremented from 255 until the digest does not
// decode as a point of the Ed25519 curve, which guarantees that no private key
// exists for the address.
package pda

import (
	"encoding/hex"
	"hash"

	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/tokenlock/crypto"
	"golang.org/x/xerrors"
)

const (
	// AddressSize is the size in bytes of a derived address.
	AddressSize = 32

	// MaxSeeds is the maximum number of seeds for a derivation, the bump
	// included.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length in bytes of a single seed.
	MaxSeedLength = 32

	marker = "ProgramDerivedAddress"
)

var (
	// ErrNoViableBump is returned when every bump produced an address on the
	// curve. It is not expected to happen in practice and the derivation must
	// not be retried with the same inputs.
	ErrNoViableBump = xerrors.New("no viable bump seed")

	// ErrOnCurve is returned when a derivation with a given bump produces a
	// valid curve point.
	ErrOnCurve = xerrors.New("address is on the curve")

	suite = suites.MustFind("Ed25519")
)

// Address is a derived address.
type Address [AddressSize]byte

// Bytes returns the slice of bytes of the address.
func (a Address) Bytes() []byte {
	return append([]byte{}, a[:]...)
}

// String implements fmt.Stringer. It returns the hexadecimal representation of
// the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAddress returns the address from its hexadecimal representation.
func ParseAddress(text string) (Address, error) {
	var addr Address

	data, err := hex.DecodeString(text)
	if err != nil {
		return addr, xerrors.Errorf("failed to decode: %v", err)
	}

	if len(data) != AddressSize {
		return addr, xerrors.Errorf("invalid address length %d", len(data))
	}

	copy(addr[:], data)

	return addr, nil
}

// Deriver derives addresses with a given hash algorithm.
type Deriver struct {
	hashFactory crypto.HashFactory
}

// DeriverOption is the type of option to set some fields of a deriver.
type DeriverOption func(*Deriver)

// WithHashFactory is an option to set the hash factory used to compute the
// digest. The digest must be of the address size.
func WithHashFactory(f crypto.HashFactory) DeriverOption {
	return func(d *Deriver) {
		d.hashFactory = f
	}
}

// NewDeriver returns a new deriver that uses SHA256 by default.
func NewDeriver(opts ...DeriverOption) Deriver {
	d := Deriver{
		hashFactory: crypto.NewHashFactory(crypto.Sha256),
	}

	for _, opt := range opts {
		opt(&d)
	}

	return d
}

// Create returns the address for the program, the seeds and the bump. It
// returns ErrOnCurve if the digest is a valid curve point.
func (d Deriver) Create(programID []byte, bump uint8, seeds ...[]byte) (Address, error) {
	var addr Address

	if len(seeds)+1 > MaxSeeds {
		return addr, xerrors.Errorf("too many seeds: %d > %d", len(seeds)+1, MaxSeeds)
	}

	h := d.hashFactory.New()
	if h.Size() != AddressSize {
		return addr, xerrors.Errorf("digest size %d is not %d", h.Size(), AddressSize)
	}

	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return addr, xerrors.Errorf("seed %d is too long: %d > %d",
				i, len(seed), MaxSeedLength)
		}

		write(h, seed)
	}

	write(h, []byte{bump})
	write(h, programID)
	write(h, []byte(marker))

	copy(addr[:], h.Sum(nil))

	if IsOnCurve(addr[:]) {
		return addr, ErrOnCurve
	}

	return addr, nil
}

// Find returns the first off-curve address for the program and the seeds,
// starting with the bump 255 and decrementing it. It returns the address and
// the bump that produced it.
func (d Deriver) Find(programID []byte, seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := d.Create(programID, uint8(bump), seeds...)
		if err == nil {
			return addr, uint8(bump), nil
		}

		if !xerrors.Is(err, ErrOnCurve) {
			return Address{}, 0, xerrors.Errorf("failed to create address: %v", err)
		}
	}

	return Address{}, 0, ErrNoViableBump
}

// Find uses the default deriver to find the address for the program and the
// seeds.
func Find(programID []byte, seeds ...[]byte) (Address, uint8, error) {
	return NewDeriver().Find(programID, seeds...)
}

// IsOnCurve returns true if the data is the encoding of a point of the Ed25519
// curve.
func IsOnCurve(data []byte) bool {
	return suite.Point().UnmarshalBinary(data) == nil
}

func write(h hash.Hash, data []byte) {
	// hash.Hash never returns an error on write.
	_, _ = h.Write(data)
}
