package yieldtrack

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
)

var (
	errNilState         = errors.New("yieldtrack engine: state not configured")
	errInvalidStrategy  = errors.New("yieldtrack engine: unknown strategy")
	errMissingCustom    = errors.New("yieldtrack engine: custom strategy requires a target")
	errPositionNotFound = errors.New("yieldtrack engine: position not found")
	errZeroAmount       = errors.New("yieldtrack engine: amount must be positive")
	errNothingClaimable = errors.New("yieldtrack engine: amount exceeds claimable yield")
	errVaultUnderfunded = errors.New("yieldtrack engine: custody balance below claim amount")
)

// ReinvestThreshold is the payout floor: auto-reinvest positions fold claims
// below this amount back into the position instead of transferring.
const ReinvestThreshold uint64 = 1_000_000

const moduleName = "yieldtrack"

type engineState interface {
	GetYieldPosition(owner types.Identity) (*Position, error)
	PutYieldPosition(position *Position) error
	GetAccount(id types.Identity) (*types.Account, error)
	PutAccount(id types.Identity, account *types.Account) error
}

// Engine routes earned yield into per-user tracking positions and services
// claims against them.
type Engine struct {
	state    engineState
	platform types.Identity
	events   events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
}

// NewEngine constructs a yield engine funding routed yield from the platform
// treasury identity.
func NewEngine(platform types.Identity) *Engine {
	return &Engine{
		platform: platform,
		events:   events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event sink used for state-change notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.events = events.NoopEmitter{}
		return
	}
	e.events = emitter
}

// SetPauses wires the governance pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// SetStrategy selects where a user's yield is routed, creating the position
// on first use. Changing strategy never touches the accrued balances.
func (e *Engine) SetStrategy(owner types.Identity, strategy Strategy, autoReinvest bool, custom types.Identity) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !strategy.Valid() {
		return nil, errInvalidStrategy
	}
	if strategy == StrategyCustom && custom.IsZero() {
		return nil, errMissingCustom
	}
	if strategy != StrategyCustom {
		custom = types.Identity{}
	}

	position, err := e.state.GetYieldPosition(owner)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{
			Owner:     owner,
			CreatedAt: e.nowFn(),
		}
	}
	position.Strategy = strategy
	position.CustomStrategy = custom
	position.AutoReinvest = autoReinvest

	if err := e.state.PutYieldPosition(position); err != nil {
		return nil, err
	}
	e.events.Emit(events.YieldStrategySet{User: owner, Strategy: strategy.String()})
	return position.Clone(), nil
}

// RouteYield credits earned yield to the position and funds the user's yield
// vault from the platform treasury.
func (e *Engine) RouteYield(owner types.Identity, amount uint64) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errZeroAmount
	}
	position, err := e.state.GetYieldPosition(owner)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}

	earned, err := nativecommon.CheckedAdd(position.TotalEarned, amount)
	if err != nil {
		return nil, err
	}

	platformAcc, err := e.state.GetAccount(e.platform)
	if err != nil {
		return nil, err
	}
	if platformAcc.BalanceUSDC < amount {
		return nil, errVaultUnderfunded
	}
	vault := VaultIdentity(owner)
	vaultAcc, err := e.state.GetAccount(vault)
	if err != nil {
		return nil, err
	}
	vaultBalance, err := nativecommon.CheckedAdd(vaultAcc.BalanceUSDC, amount)
	if err != nil {
		return nil, err
	}
	platformAcc.BalanceUSDC -= amount
	vaultAcc.BalanceUSDC = vaultBalance
	position.TotalEarned = earned

	if err := e.state.PutAccount(e.platform, platformAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(vault, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutYieldPosition(position); err != nil {
		return nil, err
	}

	e.events.Emit(events.YieldRouted{User: owner, Amount: amount, Accrued: position.TotalEarned})
	return position.Clone(), nil
}

// Claim pays out accrued yield from the user's vault. Auto-reinvest positions
// fold claims below the payout threshold back into total_earned with no
// transfer; the claim still counts against total_claimed so nothing can be
// double-claimed.
func (e *Engine) Claim(owner types.Identity, amount uint64) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errZeroAmount
	}
	position, err := e.state.GetYieldPosition(owner)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	if position.Claimable() < amount {
		return nil, errNothingClaimable
	}

	now := e.nowFn()
	claimed, err := nativecommon.CheckedAdd(position.TotalClaimed, amount)
	if err != nil {
		return nil, err
	}

	if position.AutoReinvest && amount < ReinvestThreshold {
		earned, err := nativecommon.CheckedAdd(position.TotalEarned, amount)
		if err != nil {
			return nil, err
		}
		position.TotalEarned = earned
		position.TotalClaimed = claimed
		position.LastClaimAt = now
		if err := e.state.PutYieldPosition(position); err != nil {
			return nil, err
		}
		e.events.Emit(events.YieldReinvested{User: owner, Amount: amount})
		return position.Clone(), nil
	}

	vault := VaultIdentity(owner)
	vaultAcc, err := e.state.GetAccount(vault)
	if err != nil {
		return nil, err
	}
	if vaultAcc.BalanceUSDC < amount {
		return nil, errVaultUnderfunded
	}
	ownerAcc, err := e.state.GetAccount(owner)
	if err != nil {
		return nil, err
	}
	ownerBalance, err := nativecommon.CheckedAdd(ownerAcc.BalanceUSDC, amount)
	if err != nil {
		return nil, err
	}
	vaultAcc.BalanceUSDC -= amount
	ownerAcc.BalanceUSDC = ownerBalance
	position.TotalClaimed = claimed
	position.LastClaimAt = now

	if err := e.state.PutAccount(vault, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(owner, ownerAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutYieldPosition(position); err != nil {
		return nil, err
	}

	e.events.Emit(events.YieldClaimed{User: owner, Amount: amount})
	return position.Clone(), nil
}

// Position returns a copy of the stored record for queries.
func (e *Engine) Position(owner types.Identity) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.state.GetYieldPosition(owner)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	return position.Clone(), nil
}
