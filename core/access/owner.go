package access

import (
	"bytes"

	"go.dedis.ch/tokenlock/core/store"
	"golang.org/x/xerrors"
)

// ErrDenied is returned when no identity matches a credential.
var ErrDenied = xerrors.New("access denied")

// ownerService is an access service where only the identity whose binary form
// is the identifier of the credential is allowed.
//
// - implements access.Service
type ownerService struct{}

// NewOwnerService returns a service that allows the owner of a resource, and
// only the owner.
func NewOwnerService() Service {
	return ownerService{}
}

// Match implements access.Service. It returns nil if one of the identities is
// the owner designated by the credential.
func (ownerService) Match(_ store.Readable, creds Credential, idents ...Identity) error {
	if len(idents) == 0 {
		return xerrors.Errorf("no identity for '%s': %w", creds.GetRule(), ErrDenied)
	}

	for _, ident := range idents {
		data, err := ident.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("failed to marshal identity: %v", err)
		}

		if bytes.Equal(data, creds.GetID()) {
			return nil
		}
	}

	text, _ := idents[0].MarshalText()

	return xerrors.Errorf("'%s' is not the owner for '%s': %w", text, creds.GetRule(), ErrDenied)
}
