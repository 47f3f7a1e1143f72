package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"creditchain/core/types"
	"creditchain/native/collateral"
	"creditchain/storage"
)

func TestTxnCommitPersists(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	txn := manager.Begin()
	owner := id32(0x01)
	asset := id32(0x02)
	require.NoError(t, txn.PutCollateralPosition(&collateral.Position{
		Owner:        owner,
		Asset:        asset,
		AmountLocked: 10_000_000,
		Status:       collateral.StatusLocked,
	}))
	require.NoError(t, txn.PutAccount(owner, &types.Account{Nonce: 1, BalanceUSDC: 5}))
	require.NoError(t, txn.Commit())

	view := manager.View()
	position, err := view.GetCollateralPosition(owner, asset)
	require.NoError(t, err)
	require.NotNil(t, position)
	require.Equal(t, uint64(10_000_000), position.AmountLocked)

	account, err := view.GetAccount(owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.Nonce)
}

func TestTxnDiscardDropsWrites(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	owner := id32(0x03)
	asset := id32(0x04)

	txn := manager.Begin()
	require.NoError(t, txn.PutCollateralPosition(&collateral.Position{
		Owner: owner, Asset: asset, AmountLocked: 1, Status: collateral.StatusActive,
	}))
	txn.Discard()

	view := manager.View()
	position, err := view.GetCollateralPosition(owner, asset)
	require.NoError(t, err)
	require.Nil(t, position)

	// A closed transaction rejects further use.
	require.Error(t, txn.PutAccount(owner, &types.Account{}))
	err = txn.Commit()
	require.ErrorIs(t, err, errTxnClosed)
}

func TestTxnReadsOwnWrites(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	owner := id32(0x05)

	txn := manager.Begin()
	require.NoError(t, txn.PutAccount(owner, &types.Account{BalanceUSDC: 99}))
	account, err := txn.GetAccount(owner)
	require.NoError(t, err)
	require.Equal(t, uint64(99), account.BalanceUSDC)

	// Uncommitted writes are invisible to other transactions.
	other := manager.Begin()
	account, err = other.GetAccount(owner)
	require.NoError(t, err)
	require.Zero(t, account.BalanceUSDC)
}

func TestMissingAccountIsZeroValued(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	account, err := manager.View().GetAccount(id32(0x06))
	require.NoError(t, err)
	require.NotNil(t, account)
	require.Zero(t, account.Nonce)
	require.Zero(t, account.BalanceUSDC)
}
