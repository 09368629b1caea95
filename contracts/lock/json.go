package lock

import (
	"encoding/json"

	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/serde"
	"golang.org/x/xerrors"
)

func init() {
	RegisterAccountFormat(serde.FormatJSON, accountFormat{})
}

// LockJSON is the JSON message of an entry.
type LockJSON struct {
	Amount    uint64
	Timestamp int64
}

// AccountJSON is the JSON message of a ledger account.
type AccountJSON struct {
	Owner    json.RawMessage
	Bump     uint8
	Capacity int
	Locks    []LockJSON
}

// accountFormat is the JSON format engine for ledger accounts.
//
// - implements serde.FormatEngine
type accountFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the
// account if appropriate, otherwise an error.
func (accountFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	account, ok := msg.(LedgerAccount)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	if account.owner == nil {
		return nil, xerrors.New("owner is missing")
	}

	owner, err := account.owner.Serialize(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode owner: %v", err)
	}

	locks := make([]LockJSON, len(account.locks))
	for i, l := range account.locks {
		locks[i] = LockJSON{Amount: l.Amount, Timestamp: l.Timestamp}
	}

	m := AccountJSON{
		Owner:    owner,
		Bump:     account.bump,
		Capacity: account.capacity,
		Locks:    locks,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It returns the account of the JSON
// data if appropriate, otherwise an error.
func (accountFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := AccountJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	fac := ctx.GetFactory(OwnerFac{})

	factory, ok := fac.(crypto.PublicKeyFactory)
	if !ok {
		return nil, xerrors.Errorf("invalid public key factory '%T'", fac)
	}

	owner, err := factory.PublicKeyOf(ctx, m.Owner)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode owner: %v", err)
	}

	locks := make([]Lock, len(m.Locks))
	for i, l := range m.Locks {
		locks[i] = Lock{Amount: l.Amount, Timestamp: l.Timestamp}
	}

	return NewLedgerAccount(owner, m.Bump, m.Capacity, locks...), nil
}
