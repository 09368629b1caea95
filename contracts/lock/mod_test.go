package lock

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/core/access"
	"go.dedis.ch/tokenlock/core/clock"
	"go.dedis.ch/tokenlock/core/execution"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/store/prefixed"
	"go.dedis.ch/tokenlock/core/txn"
	"go.dedis.ch/tokenlock/core/txn/signed"
	"go.dedis.ch/tokenlock/crypto"
	"go.dedis.ch/tokenlock/crypto/ed25519"
	"go.dedis.ch/tokenlock/crypto/pda"
	"go.dedis.ch/tokenlock/testing/fake"
)

func TestExecute(t *testing.T) {
	signer := ed25519.NewSigner()

	contract := NewContract(access.NewOwnerService())
	require.Equal(t, ContractUID, contract.UID())

	validation := testutil.ToFloat64(promRejections.WithLabelValues("validation"))

	err := contract.Execute(fake.NewSnapshot(), makeStep(t, signer))
	require.ErrorIs(t, err, ErrMalformed)
	require.EqualError(t, err, "'lock:command' not found in tx arg: malformed input")
	require.Equal(t, validation+1, testutil.ToFloat64(promRejections.WithLabelValues("validation")))

	contract.cmd = fakeCmd{err: fake.GetError()}

	internal := testutil.ToFloat64(promRejections.WithLabelValues("internal"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, CmdArg, "INIT"))
	require.EqualError(t, err, fake.Err("failed to INIT"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, CmdArg, "LOCK"))
	require.EqualError(t, err, fake.Err("failed to LOCK"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, CmdArg, "UNLOCK"))
	require.EqualError(t, err, fake.Err("failed to UNLOCK"))
	require.Equal(t, internal+3, testutil.ToFloat64(promRejections.WithLabelValues("internal")))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, CmdArg, "fake"))
	require.ErrorIs(t, err, ErrMalformed)
	require.EqualError(t, err, "unknown command fake: malformed input")

	contract.cmd = fakeCmd{}
	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, CmdArg, "INIT"))
	require.NoError(t, err)
}

func TestCommand_Init(t *testing.T) {
	alice := ed25519.NewSigner()
	bob := ed25519.NewSigner()

	contract := NewContract(access.NewOwnerService())
	cmd := lockCommand{Contract: &contract}

	snap := fake.NewSnapshot()

	addr, bump, err := contract.Address(alice.GetPublicKey())
	require.NoError(t, err)

	logger, check := fake.CheckLog(
		fmt.Sprintf("created account %v for %v", addr, alice.GetPublicKey()))

	defer func(l zerolog.Logger) { tokenlock.Logger = l }(tokenlock.Logger)
	tokenlock.Logger = logger

	err = cmd.init(snap, makeStep(t, alice))
	require.NoError(t, err)
	check(t)

	account, err := contract.Query(snap, alice.GetPublicKey())
	require.NoError(t, err)
	require.True(t, account.GetOwner().Equal(alice.GetPublicKey()))
	require.Equal(t, DefaultCapacity, account.GetCapacity())
	require.Equal(t, 0, account.Len())
	require.Equal(t, bump, account.GetBump())

	err = cmd.init(snap, makeStep(t, alice))
	require.ErrorIs(t, err, ErrAlreadyExists)
	require.Equal(t, KindState, KindOf(err))

	err = cmd.init(snap, makeStep(t, bob, OwnerArg, ownerArg(t, alice)))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, KindAuthorization, KindOf(err))

	err = cmd.init(snap, makeStep(t, bob, OwnerArg, "invalid"))
	require.ErrorIs(t, err, ErrMalformed)

	err = cmd.init(fake.NewBadSnapshot(), makeStep(t, bob))
	require.EqualError(t, err, fake.Err("failed to read account"))
	require.Equal(t, KindInternal, KindOf(err))

	bad := fake.NewSnapshot()
	bad.ErrWrite = fake.GetError()

	err = cmd.init(bad, makeStep(t, bob))
	require.EqualError(t, err, fake.Err("failed to write account"))
}

func TestCommand_Lock(t *testing.T) {
	alice := ed25519.NewSigner()
	bob := ed25519.NewSigner()

	now := clock.NewFixed(1000)

	contract := NewContract(access.NewOwnerService(), WithClock(now), WithCapacity(3))
	cmd := lockCommand{Contract: &contract}

	snap := fake.NewSnapshot()
	require.NoError(t, bank.Credit(snap, key(t, alice), 100))

	err := cmd.lock(snap, makeStep(t, alice))
	require.ErrorIs(t, err, ErrMalformed)
	require.EqualError(t, err, "'lock:amount' must be 8 bytes: malformed input")

	err = cmd.lock(snap, makeStep(t, alice, AmountArg, amount(0)))
	require.ErrorIs(t, err, ErrInvalidAmount)

	err = cmd.lock(snap, makeStep(t, bob, AmountArg, amount(1), OwnerArg, ownerArg(t, alice)))
	require.ErrorIs(t, err, ErrUnauthorized)

	// The account is created by the first lock.
	err = cmd.lock(snap, makeStep(t, alice, AmountArg, amount(60)))
	require.NoError(t, err)

	requireLocks(t, contract, snap, alice, Lock{Amount: 60, Timestamp: 1000})
	requireBalance(t, snap, key(t, alice), 40)
	requireCustody(t, contract, snap, alice, 60)
	requireTotal(t, snap, 60)

	err = cmd.lock(snap, makeStep(t, alice, AmountArg, amount(41)))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, KindResource, KindOf(err))

	// The timestamps never go backward within an account.
	now.Set(500)

	err = cmd.lock(snap, makeStep(t, alice, AmountArg, amount(10)))
	require.NoError(t, err)

	now.Set(2000)

	err = cmd.lock(snap, makeStep(t, alice, AmountArg, amount(30)))
	require.NoError(t, err)

	requireLocks(t, contract, snap, alice,
		Lock{Amount: 60, Timestamp: 1000},
		Lock{Amount: 10, Timestamp: 1000},
		Lock{Amount: 30, Timestamp: 2000},
	)
	requireBalance(t, snap, key(t, alice), 0)
	requireTotal(t, snap, 100)

	require.NoError(t, bank.Credit(snap, key(t, alice), 1))

	err = cmd.lock(snap, makeStep(t, alice, AmountArg, amount(1)))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.EqualError(t, err, "3 entries out of 3: capacity exceeded")

	bad := fake.NewSnapshot()
	require.NoError(t, bank.Credit(bad, key(t, alice), 1))
	bad.ErrWrite = fake.GetError()

	err = cmd.lock(bad, makeStep(t, alice, AmountArg, amount(1)))
	require.EqualError(t, err, fake.Err("failed to transfer to custody: failed to write balance"))
	require.Equal(t, KindInternal, KindOf(err))
}

func TestCommand_Unlock(t *testing.T) {
	alice := ed25519.NewSigner()
	bob := ed25519.NewSigner()

	contract := NewContract(access.NewOwnerService(), WithClock(clock.NewFixed(1000)))
	cmd := lockCommand{Contract: &contract}

	snap := fake.NewSnapshot()
	require.NoError(t, bank.Credit(snap, key(t, alice), 100))
	require.NoError(t, cmd.lock(snap, makeStep(t, alice, AmountArg, amount(60))))

	err := cmd.unlock(snap, makeStep(t, alice, IndexArg, amount(0)))
	require.ErrorIs(t, err, ErrMalformed)

	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(0), IndexArg, amount(0)))
	require.ErrorIs(t, err, ErrInvalidAmount)

	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(1)))
	require.EqualError(t, err, "'lock:index' must be 8 bytes: malformed input")

	err = cmd.unlock(snap, makeStep(t, bob, AmountArg, amount(1), IndexArg, amount(0)))
	require.ErrorIs(t, err, ErrNoLedger)

	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(1), IndexArg, amount(5)))
	require.ErrorIs(t, err, ErrInvalidIndex)
	require.EqualError(t, err, "index 5 out of 1 entries: invalid index")

	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(61), IndexArg, amount(0)))
	require.ErrorIs(t, err, ErrInsufficientLocked)
	require.EqualError(t, err, "61 > 60 at index 0: insufficient locked amount")

	err = cmd.unlock(snap, makeStep(t, bob, AmountArg, amount(1), IndexArg, amount(0),
		OwnerArg, ownerArg(t, alice)))
	require.ErrorIs(t, err, ErrUnauthorized)

	// A foreign signer learns nothing about the entries of the account.
	err = cmd.unlock(snap, makeStep(t, bob, AmountArg, amount(1), IndexArg, amount(5),
		OwnerArg, ownerArg(t, alice)))
	require.ErrorIs(t, err, ErrUnauthorized)

	err = cmd.unlock(snap, makeStep(t, bob, AmountArg, amount(61), IndexArg, amount(0),
		OwnerArg, ownerArg(t, alice)))
	require.ErrorIs(t, err, ErrUnauthorized)

	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(20), IndexArg, amount(0)))
	require.NoError(t, err)

	requireLocks(t, contract, snap, alice, Lock{Amount: 40, Timestamp: 1000})
	requireBalance(t, snap, key(t, alice), 60)
	requireCustody(t, contract, snap, alice, 40)
	requireTotal(t, snap, 40)

	// An emptied entry keeps its slot.
	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(40), IndexArg, amount(0)))
	require.NoError(t, err)

	account, err := contract.Query(snap, alice.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, 1, account.Len())
	require.Empty(t, account.Active())
	requireBalance(t, snap, key(t, alice), 100)
	requireCustody(t, contract, snap, alice, 0)
	requireTotal(t, snap, 0)

	err = cmd.unlock(snap, makeStep(t, alice, AmountArg, amount(1), IndexArg, amount(0)))
	require.ErrorIs(t, err, ErrInsufficientLocked)
}

func TestContract_Query(t *testing.T) {
	alice := ed25519.NewSigner()
	bob := ed25519.NewSigner()

	contract := NewContract(access.NewOwnerService())

	snap := fake.NewSnapshot()

	_, err := contract.Query(snap, alice.GetPublicKey())
	require.ErrorIs(t, err, ErrNoLedger)

	addr, _, err := contract.Address(bob.GetPublicKey())
	require.NoError(t, err)

	err = contract.save(snap, addr, NewLedgerAccount(alice.GetPublicKey(), 0, 1))
	require.NoError(t, err)

	_, err = contract.Query(snap, bob.GetPublicKey())
	require.ErrorIs(t, err, ErrAddressCollision)

	err = prefixed.NewSnapshot(namespace, snap).Set(addr[:], []byte("{"))
	require.NoError(t, err)

	_, err = contract.Query(snap, bob.GetPublicKey())
	require.ErrorIs(t, err, ErrMalformed)

	_, err = contract.Query(snap, fake.NewBadPublicKey())
	require.EqualError(t, err, fake.Err("failed to marshal owner"))
}

func TestContract_Address(t *testing.T) {
	alice := ed25519.NewSigner()
	bob := ed25519.NewSigner()

	contract := NewContract(access.NewOwnerService())

	addrA, bumpA, err := contract.Address(alice.GetPublicKey())
	require.NoError(t, err)

	again, _, err := contract.Address(alice.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, addrA, again)

	expected, bump, err := pda.Find([]byte(ContractName), key(t, alice), []byte(DefaultTag))
	require.NoError(t, err)
	require.Equal(t, expected, addrA)
	require.Equal(t, bump, bumpA)
	require.False(t, pda.IsOnCurve(addrA[:]))

	addrB, _, err := contract.Address(bob.GetPublicKey())
	require.NoError(t, err)
	require.NotEqual(t, addrA, addrB)

	tagged := NewContract(access.NewOwnerService(), WithTag("other"))

	addrT, _, err := tagged.Address(alice.GetPublicKey())
	require.NoError(t, err)
	require.NotEqual(t, addrA, addrT)

	bad := NewContract(access.NewOwnerService(), WithTag(strings.Repeat("a", pda.MaxSeedLength+1)))

	_, _, err = bad.Address(alice.GetPublicKey())
	require.EqualError(t, err, "failed to derive address: failed to create address: seed 1 is too long: 33 > 32")
	require.Equal(t, KindInternal, KindOf(err))
}

func TestTotalLocked(t *testing.T) {
	snap := fake.NewSnapshot()

	total, err := TotalLocked(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)

	require.NoError(t, addTotal(snap, 10))
	require.NoError(t, subTotal(snap, 4))
	requireTotal(t, snap, 6)

	err = subTotal(snap, 7)
	require.ErrorIs(t, err, ErrMalformed)

	require.NoError(t, setTotal(snap, math.MaxUint64))

	err = addTotal(snap, 1)
	require.ErrorIs(t, err, ErrOverflow)

	err = prefixed.NewSnapshot(globalNamespace, snap).Set(totalKey, []byte{1})
	require.NoError(t, err)

	_, err = TotalLocked(snap)
	require.EqualError(t, err, "total of length 1: malformed input")

	_, err = TotalLocked(fake.NewBadSnapshot())
	require.EqualError(t, err, fake.Err("failed to read total"))
}

func TestRegisterContract(t *testing.T) {
	exec := native.NewExecution()
	RegisterContract(exec, NewContract(access.NewOwnerService()))

	require.PanicsWithError(t, "contract '"+ContractName+"' already registered", func() {
		RegisterContract(exec, NewContract(access.NewOwnerService()))
	})
}

// -----------------------------------------------------------------------------
// Utility functions

func amount(v uint64) string {
	return string(bank.EncodeAmount(v))
}

func key(t *testing.T, signer crypto.Signer) []byte {
	data, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	return data
}

func ownerArg(t *testing.T, signer crypto.Signer) string {
	return string(key(t, signer))
}

func requireLocks(t *testing.T, c Contract, r store.Readable, owner crypto.Signer, locks ...Lock) {
	account, err := c.Query(r, owner.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, locks, account.GetLocks())
}

func requireBalance(t *testing.T, r store.Readable, account []byte, expected uint64) {
	balance, err := bank.BalanceOf(r, account)
	require.NoError(t, err)
	require.Equal(t, expected, balance)
}

func requireCustody(t *testing.T, c Contract, r store.Readable, owner crypto.Signer, expected uint64) {
	addr, _, err := c.Address(owner.GetPublicKey())
	require.NoError(t, err)

	requireBalance(t, r, addr[:], expected)
}

func requireTotal(t *testing.T, r store.Readable, expected uint64) {
	total, err := TotalLocked(r)
	require.NoError(t, err)
	require.Equal(t, expected, total)
}

func makeStep(t *testing.T, signer crypto.Signer, args ...string) execution.Step {
	return execution.Step{Current: makeTx(t, signer, args...)}
}

func makeTx(t *testing.T, signer crypto.Signer, args ...string) txn.Transaction {
	options := []signed.TransactionOption{}
	for i := 0; i < len(args)-1; i += 2 {
		options = append(options, signed.WithArg(args[i], []byte(args[i+1])))
	}

	tx, err := signed.NewTransaction(0, signer.GetPublicKey(), options...)
	require.NoError(t, err)

	return tx
}

type fakeCmd struct {
	err error
}

func (c fakeCmd) init(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) lock(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) unlock(snap store.Snapshot, step execution.Step) error {
	return c.err
}
