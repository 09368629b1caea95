package loader

import (
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/ed25519"
	"golang.org/x/xerrors"
)

// SignerGenerator generates a new Ed25519 signer and returns the binary form
// of its private key.
//
// - implements loader.Generator
type SignerGenerator struct{}

// Generate implements loader.Generator.
func (SignerGenerator) Generate() ([]byte, error) {
	signer := ed25519.NewSigner()

	data, err := signer.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal signer: %v", err)
	}

	return data, nil
}

// LoadSigner loads the signer stored by the loader, or creates it when create
// is true and nothing is stored yet.
func LoadSigner(l Loader, create bool) (crypto.Signer, error) {
	var data []byte
	var err error

	if create {
		data, err = l.LoadOrCreate(SignerGenerator{})
	} else {
		data, err = l.Load()
	}

	if err != nil {
		return nil, xerrors.Errorf("failed to load signer: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}
