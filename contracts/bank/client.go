package bank

import (
	"context"
	"encoding/binary"

	"go.dedis.ch/tokenlock/core/execution/native"
	"go.dedis.ch/tokenlock/core/ordering"
	"go.dedis.ch/tokenlock/core/store"
	"go.dedis.ch/tokenlock/core/txn"
	"golang.org/x/xerrors"
)

// Client submits the commands of the bank contract on behalf of a signer.
type Client struct {
	srvc ordering.Service
	mgr  txn.Manager
}

// NewClient returns a new client that creates the transactions with the
// manager and submits them to the ordering service.
func NewClient(srvc ordering.Service, mgr txn.Manager) Client {
	return Client{
		srvc: srvc,
		mgr:  mgr,
	}
}

// Airdrop credits the signer with the amount. It returns the reason of the
// refusal as the error when the transaction is not accepted.
func (c Client) Airdrop(ctx context.Context, amount uint64) (ordering.Receipt, error) {
	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdAirdrop)},
		txn.Arg{Key: AmountArg, Value: EncodeAmount(amount)},
	)
}

// Transfer moves the amount from the signer to the account.
func (c Client) Transfer(ctx context.Context, to []byte, amount uint64) (ordering.Receipt, error) {
	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdTransfer)},
		txn.Arg{Key: AmountArg, Value: EncodeAmount(amount)},
		txn.Arg{Key: ToArg, Value: to},
	)
}

// Balance returns the current spendable balance of the account.
func (c Client) Balance(account []byte) (uint64, error) {
	var balance uint64

	err := c.srvc.View(func(r store.Readable) error {
		var err error
		balance, err = BalanceOf(r, account)
		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read: %v", err)
	}

	return balance, nil
}

func (c Client) submit(ctx context.Context, args ...txn.Arg) (ordering.Receipt, error) {
	args = append([]txn.Arg{{Key: native.ContractArg, Value: []byte(ContractName)}}, args...)

	tx, err := c.mgr.Make(args...)
	if err != nil {
		return ordering.Receipt{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	receipt, err := c.srvc.Process(ctx, tx)
	if err != nil {
		syncErr := c.mgr.Sync()
		if syncErr != nil {
			return ordering.Receipt{}, xerrors.Errorf("failed to sync: %v", syncErr)
		}

		return ordering.Receipt{}, xerrors.Errorf("failed to process: %v", err)
	}

	if !receipt.Accepted {
		err = c.mgr.Sync()
		if err != nil {
			return receipt, xerrors.Errorf("failed to sync: %v", err)
		}

		return receipt, receipt.Err
	}

	return receipt, nil
}

// EncodeAmount returns the 8 bytes little-endian form of the amount.
func EncodeAmount(amount uint64) []byte {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, amount)

	return buffer
}
