package fake

import (
	"go.dedis.ch/tokenlock/serde"
)

const (
	// GoodFormat is the name of a format that a test registers with a working
	// engine.
	GoodFormat = serde.Format("FakeGood")

	// BadFormat is the name of a format that a test registers with a failing
	// engine.
	BadFormat = serde.Format("FakeBad")
)

// GetFakeFormatValue returns the value produced by the fake format engine.
func GetFakeFormatValue() []byte {
	return []byte("fake format")
}

// Message is a fake implementation of a message.
//
// - implements serde.Message
type Message struct {
	Digest []byte
}

// Serialize implements serde.Message.
func (m Message) Serialize(serde.Context) ([]byte, error) {
	return []byte("{}"), nil
}

// Format is a fake format engine implementation.
//
// - implements serde.FormatEngine
type Format struct {
	Msg  serde.Message
	Call *Call
	Err  error
}

// NewBadFormat returns a fake format that will return the fake error.
func NewBadFormat() Format {
	return Format{Err: fakeErr}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	f.Call.Add(ctx, m)

	return GetFakeFormatValue(), f.Err
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	f.Call.Add(ctx, data)

	return f.Msg, f.Err
}

// ContextEngine is a fake context engine implementation.
//
// - implements serde.ContextEngine
type ContextEngine struct {
	Format serde.Format
	err    error
}

// NewContext returns a new serde context using the good format.
func NewContext() serde.Context {
	return NewContextWithFormat(GoodFormat)
}

// NewContextWithFormat returns a new serde context using the given format.
func NewContextWithFormat(f serde.Format) serde.Context {
	return serde.NewContext(ContextEngine{
		Format: f,
	})
}

// NewBadContext returns a serde context using the bad format that will also
// fail to marshal and unmarshal.
func NewBadContext() serde.Context {
	return serde.NewContext(ContextEngine{
		Format: BadFormat,
		err:    fakeErr,
	})
}

// GetFormat implements serde.ContextEngine.
func (ctx ContextEngine) GetFormat() serde.Format {
	return ctx.Format
}

// Marshal implements serde.ContextEngine.
func (ctx ContextEngine) Marshal(m interface{}) ([]byte, error) {
	return []byte("{}"), ctx.err
}

// Unmarshal implements serde.ContextEngine.
func (ctx ContextEngine) Unmarshal(data []byte, m interface{}) error {
	return ctx.err
}
