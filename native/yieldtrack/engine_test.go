package yieldtrack

import (
	"errors"
	"testing"

	"creditchain/core/types"
)

type mockState struct {
	positions map[types.Identity]*Position
	accounts  map[types.Identity]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		positions: make(map[types.Identity]*Position),
		accounts:  make(map[types.Identity]*types.Account),
	}
}

func (m *mockState) GetYieldPosition(owner types.Identity) (*Position, error) {
	position, ok := m.positions[owner]
	if !ok {
		return nil, nil
	}
	return position.Clone(), nil
}

func (m *mockState) PutYieldPosition(position *Position) error {
	m.positions[position.Owner] = position.Clone()
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

func TestSetStrategyCreatesPosition(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	owner := testIdentity(1)

	position, err := engine.SetStrategy(owner, StrategyHighYield, true, types.Identity{})
	if err != nil {
		t.Fatalf("set strategy: %v", err)
	}
	if position.Strategy != StrategyHighYield || !position.AutoReinvest {
		t.Fatalf("position = %+v", position)
	}

	// Switching strategies must not disturb accrued balances.
	if _, err := engine.SetStrategy(owner, StrategyStableCoin, false, types.Identity{}); err != nil {
		t.Fatalf("switch strategy: %v", err)
	}
}

func TestSetStrategyCustomRequiresTarget(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	owner := testIdentity(1)

	if _, err := engine.SetStrategy(owner, StrategyCustom, false, types.Identity{}); !errors.Is(err, errMissingCustom) {
		t.Fatalf("err = %v, want missing custom target", err)
	}
	position, err := engine.SetStrategy(owner, StrategyCustom, false, testIdentity(7))
	if err != nil {
		t.Fatalf("set custom: %v", err)
	}
	if position.CustomStrategy != testIdentity(7) {
		t.Fatalf("custom target not stored")
	}
	if _, err := engine.SetStrategy(owner, Strategy(42), false, types.Identity{}); !errors.Is(err, errInvalidStrategy) {
		t.Fatalf("err = %v, want invalid strategy", err)
	}
}

func TestRouteYieldAccrues(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(platform, &types.Account{BalanceUSDC: 10_000_000})
	if _, err := engine.SetStrategy(owner, StrategyAutoCompound, false, types.Identity{}); err != nil {
		t.Fatalf("set strategy: %v", err)
	}

	position, err := engine.RouteYield(owner, 3_000_000)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if position.TotalEarned != 3_000_000 {
		t.Fatalf("earned = %d, want 3000000", position.TotalEarned)
	}
	if got := state.balance(VaultIdentity(owner)); got != 3_000_000 {
		t.Fatalf("vault = %d, want 3000000", got)
	}
	if got := state.balance(platform); got != 7_000_000 {
		t.Fatalf("platform = %d, want 7000000", got)
	}
}

func TestClaimTransfersToOwner(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(platform, &types.Account{BalanceUSDC: 10_000_000})
	if _, err := engine.SetStrategy(owner, StrategyStableCoin, false, types.Identity{}); err != nil {
		t.Fatalf("set strategy: %v", err)
	}
	if _, err := engine.RouteYield(owner, 5_000_000); err != nil {
		t.Fatalf("route: %v", err)
	}

	position, err := engine.Claim(owner, 2_000_000)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if position.TotalClaimed != 2_000_000 {
		t.Fatalf("claimed = %d, want 2000000", position.TotalClaimed)
	}
	if position.Claimable() != 3_000_000 {
		t.Fatalf("claimable = %d, want 3000000", position.Claimable())
	}
	if got := state.balance(owner); got != 2_000_000 {
		t.Fatalf("owner balance = %d, want 2000000", got)
	}

	if _, err := engine.Claim(owner, 3_000_001); !errors.Is(err, errNothingClaimable) {
		t.Fatalf("err = %v, want nothing claimable", err)
	}
}

func TestClaimAutoReinvestBelowThreshold(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(platform, &types.Account{BalanceUSDC: 10_000_000})
	if _, err := engine.SetStrategy(owner, StrategyAutoCompound, true, types.Identity{}); err != nil {
		t.Fatalf("set strategy: %v", err)
	}
	if _, err := engine.RouteYield(owner, 5_000_000); err != nil {
		t.Fatalf("route: %v", err)
	}
	vaultBefore := state.balance(VaultIdentity(owner))
	ownerBefore := state.balance(owner)

	// Below the threshold the claim is folded back: both counters move,
	// no funds do.
	position, err := engine.Claim(owner, ReinvestThreshold-1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if position.TotalEarned != 5_000_000+ReinvestThreshold-1 {
		t.Fatalf("earned = %d, want re-added", position.TotalEarned)
	}
	if position.TotalClaimed != ReinvestThreshold-1 {
		t.Fatalf("claimed = %d, want %d", position.TotalClaimed, ReinvestThreshold-1)
	}
	if state.balance(VaultIdentity(owner)) != vaultBefore || state.balance(owner) != ownerBefore {
		t.Fatalf("reinvest moved funds")
	}

	// At the threshold the claim pays out normally.
	position, err = engine.Claim(owner, ReinvestThreshold)
	if err != nil {
		t.Fatalf("threshold claim: %v", err)
	}
	if got := state.balance(owner); got != ownerBefore+ReinvestThreshold {
		t.Fatalf("owner balance = %d, want paid out", got)
	}
	if position.TotalClaimed != 2*ReinvestThreshold-1 {
		t.Fatalf("claimed = %d", position.TotalClaimed)
	}
}

func TestClaimedNeverExceedsEarned(t *testing.T) {
	engine, state, platform := newTestEngine(t)
	owner := testIdentity(1)
	state.PutAccount(platform, &types.Account{BalanceUSDC: 10_000_000})
	if _, err := engine.SetStrategy(owner, StrategyStableCoin, false, types.Identity{}); err != nil {
		t.Fatalf("set strategy: %v", err)
	}
	if _, err := engine.RouteYield(owner, 2_000_000); err != nil {
		t.Fatalf("route: %v", err)
	}
	if _, err := engine.Claim(owner, 2_000_000); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := engine.Claim(owner, 1); !errors.Is(err, errNothingClaimable) {
		t.Fatalf("double claim: err = %v, want nothing claimable", err)
	}
	position, err := engine.Position(owner)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if position.TotalClaimed > position.TotalEarned {
		t.Fatalf("claimed %d exceeds earned %d", position.TotalClaimed, position.TotalEarned)
	}
}
