package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"go.dedis.ch/tokenlock"
	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/core/access"
	"go.dedis.ch/tokenlock/core/clock"
	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/ordering/serial"
	"go.dedis.ch/tokenlock/core/store/kv"
	"go.dedis.ch/tokenlock/core/txn/signed"
	"go.dedis.ch/tokenlock/crypto/ed25519"
)

func ExampleClient_Lock() {
	tokenlock.Logger = tokenlock.Logger.Level(zerolog.Disabled)

	dir, err := os.MkdirTemp("", "tokenlock")
	if err != nil {
		panic("failed to create dir: " + err.Error())
	}

	defer os.RemoveAll(dir)

	db, err := kv.New(filepath.Join(dir, "tokenlock.db"))
	if err != nil {
		panic("failed to open db: " + err.Error())
	}

	defer db.Close()

	contract := NewContract(access.NewOwnerService(), WithClock(clock.NewFixed(1_700_000_000)))

	exec := native.NewExecution()
	bank.RegisterContract(exec, bank.NewContract(bank.DefaultAirdropLimit))
	RegisterContract(exec, contract)

	srvc := serial.NewService(db, exec)

	signer := ed25519.NewSigner()
	mgr := signed.NewManager(signer, srvc)

	_, err = bank.NewClient(srvc, mgr).Airdrop(context.Background(), 2_000_000_000)
	if err != nil {
		panic("airdrop failed: " + err.Error())
	}

	client := NewClient(srvc, mgr, signer, contract)

	receipt, err := client.Lock(context.Background(), 1_350_000_000)
	if err != nil {
		panic("lock failed: " + err.Error())
	}

	fmt.Println("Balance", receipt.BalanceBefore, "->", receipt.BalanceAfter)
	fmt.Println("Locks", receipt.Ledger.GetLocks())

	_, err = client.Unlock(context.Background(), 0, 2_000_000_000)
	fmt.Println("Unlock:", err)

	// Output: Balance 2000000000 -> 650000000
	// Locks [{1350000000 1700000000}]
	// Unlock: failed to UNLOCK: 2000000000 > 1350000000 at index 0: insufficient locked amount
}
