// Package access defines the interfaces for the access rights control of the
// contracts.
package access

import (
	"encoding"
	"strings"

	"go.dedis.ch/tokenlock/core/store"
)

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler
}

// Credential is the scope of an access request. The identifier designates the
// resource and the rule the action on it.
type Credential interface {
	GetID() []byte
	GetRule() string
}

// Service is an access service that verifies if a set of identities is allowed
// to act on a credential.
type Service interface {
	// Match returns nil if at least one of the identities is allowed for the
	// credential, otherwise an error.
	Match(store store.Readable, creds Credential, idents ...Identity) error
}

// Compile returns a compacted rule from the string segments.
func Compile(segments ...string) string {
	return strings.Join(segments, ":")
}
