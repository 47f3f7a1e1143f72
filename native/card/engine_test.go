package card

import (
	"errors"
	"testing"

	"creditchain/core/types"
	"creditchain/native/tier"
)

type mockState struct {
	wallets  map[types.Identity]*Wallet
	accounts map[types.Identity]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		wallets:  make(map[types.Identity]*Wallet),
		accounts: make(map[types.Identity]*types.Account),
	}
}

func (m *mockState) GetWallet(owner types.Identity) (*Wallet, error) {
	wallet, ok := m.wallets[owner]
	if !ok {
		return nil, nil
	}
	return wallet.Clone(), nil
}

func (m *mockState) PutWallet(wallet *Wallet) error {
	m.wallets[wallet.Owner] = wallet.Clone()
	return nil
}

func (m *mockState) GetAccount(id types.Identity) (*types.Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return &types.Account{}, nil
	}
	copied := *acc
	return &copied, nil
}

func (m *mockState) PutAccount(id types.Identity, account *types.Account) error {
	copied := *account
	m.accounts[id] = &copied
	return nil
}

func (m *mockState) balance(id types.Identity) uint64 {
	if acc, ok := m.accounts[id]; ok {
		return acc.BalanceUSDC
	}
	return 0
}

func testIdentity(b byte) types.Identity {
	var id types.Identity
	id[0] = b
	return id
}

func newTestEngine(t *testing.T) (*Engine, *mockState, types.Identity) {
	t.Helper()
	state := newMockState()
	platform := testIdentity(0xFF)
	engine := NewEngine(platform)
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_000 })
	return engine, state, platform
}

func TestCreateStandardIsFree(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)

	wallet, err := engine.Create(owner, tier.CardStandard)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if wallet.CardTier != tier.CardStandard || !wallet.Active {
		t.Fatalf("wallet = %+v", wallet)
	}
	if got := state.balance(platform); got != 0 {
		t.Fatalf("platform balance = %d, want 0", got)
	}
	if _, err := engine.Create(owner, tier.CardStandard); !errors.Is(err, errWalletExists) {
		t.Fatalf("err = %v, want wallet exists", err)
	}
}

func TestCreateDebitsAnnualFee(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(owner, &types.Account{BalanceUSDC: 200_000_000})

	if _, err := engine.Create(owner, tier.CardGold); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := state.balance(owner); got != 50_000_000 {
		t.Fatalf("owner balance = %d, want 50000000", got)
	}
	if got := state.balance(platform); got != 150_000_000 {
		t.Fatalf("platform balance = %d, want 150000000", got)
	}
}

func TestCreateRejectsUnderfunded(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(owner, &types.Account{BalanceUSDC: 49_999_999})

	if _, err := engine.Create(owner, tier.CardSilver); !errors.Is(err, errInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}
}

func TestUpgradeChargesFeeDelta(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(owner, &types.Account{BalanceUSDC: 400_000_000})

	if _, err := engine.Create(owner, tier.CardSilver); err != nil {
		t.Fatalf("create: %v", err)
	}
	wallet, err := engine.Upgrade(owner, tier.CardPlatinum)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if wallet.CardTier != tier.CardPlatinum {
		t.Fatalf("tier = %s, want platinum", wallet.CardTier)
	}
	// 50M at creation plus the 250M silver-to-platinum delta.
	if got := state.balance(platform); got != 300_000_000 {
		t.Fatalf("platform balance = %d, want 300000000", got)
	}
	if got := state.balance(owner); got != 100_000_000 {
		t.Fatalf("owner balance = %d, want 100000000", got)
	}
}

func TestUpgradeIsMonotonic(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(owner, &types.Account{BalanceUSDC: 400_000_000})

	if _, err := engine.Create(owner, tier.CardGold); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Upgrade(owner, tier.CardGold); !errors.Is(err, errAlreadyAtLevel) {
		t.Fatalf("err = %v, want already at level", err)
	}
	if _, err := engine.Upgrade(owner, tier.CardSilver); !errors.Is(err, errDowngrade) {
		t.Fatalf("err = %v, want downgrade rejection", err)
	}
}

func TestCardTierDefaultsToStandard(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(owner, &types.Account{BalanceUSDC: 400_000_000})

	got, err := engine.CardTier(testIdentity(9))
	if err != nil {
		t.Fatalf("card tier: %v", err)
	}
	if got != tier.CardStandard {
		t.Fatalf("tier = %s, want standard for missing wallet", got)
	}

	if _, err := engine.Create(owner, tier.CardGold); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err = engine.CardTier(owner)
	if err != nil {
		t.Fatalf("card tier: %v", err)
	}
	if got != tier.CardGold {
		t.Fatalf("tier = %s, want gold", got)
	}
}
