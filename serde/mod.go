// Package serde defines the primitives to serialize and deserialize (serde)
// messages.
//
// A message implementation looks up the format engine registered for the
// format of the context, which leaves the data model independent of the
// encoding.
package serde

import "io"

// Message is the interface a data model should implemented to be serialized.
type Message interface {
	// Serialize returns the bytes of the message encoded in the format of the
	// context.
	Serialize(ctx Context) ([]byte, error)
}

// Factory is the interface to implement to instantiate a data model from the
// raw message.
type Factory interface {
	// Deserialize returns the message decoded from the data.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// Fingerprinter is the interface to implement to write a deterministic binary
// representation of a message, usually to compute a digest.
type Fingerprinter interface {
	// Fingerprint writes a deterministic binary representation of the
	// object into the writer.
	Fingerprint(writer io.Writer) error
}

// Format is the identifier of a format implementation.
type Format string

// FormatJSON is the identifier of the JSON format.
const FormatJSON = Format("JSON")

// FormatEngine is the interface to implement to encode and decode a message
// of a given format.
type FormatEngine interface {
	// Encode returns the encoded message.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode returns the message decoded from the data.
	Decode(ctx Context, data []byte) (Message, error)
}
