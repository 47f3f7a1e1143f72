package collateral

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
)

var (
	errNilState            = errors.New("collateral engine: state not configured")
	errBelowMinimum        = errors.New("collateral engine: amount below minimum deposit")
	errInvalidLockPeriod   = errors.New("collateral engine: lock period out of bounds")
	errPositionNotFound    = errors.New("collateral engine: position not found")
	errPositionFrozen      = errors.New("collateral engine: position frozen or closed")
	errStillLocked         = errors.New("collateral engine: lock period not elapsed")
	errInsufficientBalance = errors.New("collateral engine: insufficient balance")
	errInsufficientLocked  = errors.New("collateral engine: amount exceeds locked balance")
)

const (
	// MinDeposit is the smallest stake accepted, in the settlement asset's
	// smallest unit.
	MinDeposit uint64 = 10_000_000
	// MinLockDays and MaxLockDays bound the deposit lock period.
	MinLockDays uint16 = 7
	MaxLockDays uint16 = 365

	secondsPerDay = int64(24 * time.Hour / time.Second)

	moduleName = "collateral"
)

type engineState interface {
	GetCollateralPosition(owner, asset types.Identity) (*Position, error)
	PutCollateralPosition(position *Position) error
	GetAccount(id types.Identity) (*types.Account, error)
	PutAccount(id types.Identity, account *types.Account) error
}

// Engine applies collateral ledger state transitions. Every mutation loads a
// fresh snapshot, validates it, and persists all touched records before
// returning; the host serializes operations per record set.
type Engine struct {
	state    engineState
	platform types.Identity
	events   events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
}

// NewEngine constructs a collateral engine routing seizures to the supplied
// platform treasury identity.
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

func (e *Engine) now() int64 { return e.nowFn() }

// Deposit locks amount for lockDays, creating the position on first use. An
// existing Active or Locked position absorbs the deposit and extends its lock
// only when the new expiry lands later; an existing lock is never shortened.
// The backing funds move from the owner's account into the position vault.
func (e *Engine) Deposit(owner, asset types.Identity, amount uint64, lockDays uint16) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount < MinDeposit {
		return nil, errBelowMinimum
	}
	if lockDays < MinLockDays || lockDays > MaxLockDays {
		return nil, errInvalidLockPeriod
	}

	now := e.now()
	lockExpiry := now + int64(lockDays)*secondsPerDay

	position, err := e.state.GetCollateralPosition(owner, asset)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{
			Owner:        owner,
			Asset:        asset,
			AmountLocked: amount,
			Status:       StatusLocked,
			LockExpiry:   lockExpiry,
			CreatedAt:    now,
			LastUpdate:   now,
		}
	} else {
		if position.Status != StatusActive && position.Status != StatusLocked {
			return nil, errPositionFrozen
		}
		updated, err := nativecommon.CheckedAdd(position.AmountLocked, amount)
		if err != nil {
			return nil, err
		}
		position.AmountLocked = updated
		if position.Status == StatusLocked {
			if lockExpiry > position.LockExpiry {
				position.LockExpiry = lockExpiry
			}
		} else {
			position.Status = StatusLocked
			position.LockExpiry = lockExpiry
		}
		position.LastUpdate = now
	}

	ownerAcc, err := e.state.GetAccount(owner)
	if err != nil {
		return nil, err
	}
	if ownerAcc.BalanceUSDC < amount {
		return nil, errInsufficientBalance
	}
	vault := VaultIdentity(owner, asset)
	vaultAcc, err := e.state.GetAccount(vault)
	if err != nil {
		return nil, err
	}
	vaultBalance, err := nativecommon.CheckedAdd(vaultAcc.BalanceUSDC, amount)
	if err != nil {
		return nil, err
	}
	ownerAcc.BalanceUSDC -= amount
	vaultAcc.BalanceUSDC = vaultBalance

	if err := e.state.PutAccount(owner, ownerAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(vault, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutCollateralPosition(position); err != nil {
		return nil, err
	}

	e.events.Emit(events.CollateralDeposited{
		Owner:      owner,
		Asset:      asset,
		Amount:     amount,
		Locked:     position.AmountLocked,
		LockExpiry: position.LockExpiry,
	})
	return position.Clone(), nil
}

// Withdraw releases amount back to the owner. Locked positions reject
// withdrawals until the lock expiry is reached (inclusive); the position
// closes in place when the remaining balance drops below the minimum deposit.
func (e *Engine) Withdraw(owner, asset types.Identity, amount uint64) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}

	position, err := e.state.GetCollateralPosition(owner, asset)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	if position.Status == StatusFrozen || position.Status == StatusClosed {
		return nil, errPositionFrozen
	}

	now := e.now()
	if position.Status == StatusLocked && now < position.LockExpiry {
		return nil, errStillLocked
	}
	if amount > position.AmountLocked {
		return nil, errInsufficientLocked
	}

	position.AmountLocked = nativecommon.SatSub(position.AmountLocked, amount)
	position.LastUpdate = now
	if position.AmountLocked < MinDeposit {
		position.Status = StatusClosed
	} else {
		position.Status = StatusActive
	}

	vault := VaultIdentity(owner, asset)
	vaultAcc, err := e.state.GetAccount(vault)
	if err != nil {
		return nil, err
	}
	if vaultAcc.BalanceUSDC < amount {
		return nil, errInsufficientBalance
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

	if err := e.state.PutAccount(vault, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(owner, ownerAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutCollateralPosition(position); err != nil {
		return nil, err
	}

	e.events.Emit(events.CollateralWithdrawn{
		Owner:     owner,
		Asset:     asset,
		Amount:    amount,
		Remaining: position.AmountLocked,
		Closed:    position.Status == StatusClosed,
	})
	return position.Clone(), nil
}

// RefreshLock transitions a Locked position back to Active once its lock
// expiry has been reached. The call is idempotent and a no-op for any other
// status; no funds move.
func (e *Engine) RefreshLock(owner, asset types.Identity) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.state.GetCollateralPosition(owner, asset)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	if position.Status != StatusLocked {
		return position.Clone(), nil
	}
	now := e.now()
	if now < position.LockExpiry {
		return position.Clone(), nil
	}
	position.Status = StatusActive
	position.LastUpdate = now
	if err := e.state.PutCollateralPosition(position); err != nil {
		return nil, err
	}
	e.events.Emit(events.CollateralUnlocked{Owner: owner, Asset: asset})
	return position.Clone(), nil
}

// Seize debits up to amount from the position for the platform treasury and
// returns the amount actually taken so the caller can compute its shortfall.
// Seizure ignores lock status; it is invoked only by the installment loan
// engine during a default cascade.
func (e *Engine) Seize(owner, asset types.Identity, amount uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	position, err := e.state.GetCollateralPosition(owner, asset)
	if err != nil {
		return 0, err
	}
	if position == nil {
		return 0, nil
	}

	seized := amount
	if seized > position.AmountLocked {
		seized = position.AmountLocked
	}
	if seized == 0 {
		return 0, nil
	}

	now := e.now()
	position.AmountLocked = nativecommon.SatSub(position.AmountLocked, seized)
	position.LastUpdate = now

	vault := VaultIdentity(owner, asset)
	vaultAcc, err := e.state.GetAccount(vault)
	if err != nil {
		return 0, err
	}
	if vaultAcc.BalanceUSDC < seized {
		return 0, errInsufficientBalance
	}
	platformAcc, err := e.state.GetAccount(e.platform)
	if err != nil {
		return 0, err
	}
	platformBalance, err := nativecommon.CheckedAdd(platformAcc.BalanceUSDC, seized)
	if err != nil {
		return 0, err
	}
	vaultAcc.BalanceUSDC -= seized
	platformAcc.BalanceUSDC = platformBalance

	if err := e.state.PutAccount(vault, vaultAcc); err != nil {
		return 0, err
	}
	if err := e.state.PutAccount(e.platform, platformAcc); err != nil {
		return 0, err
	}
	if err := e.state.PutCollateralPosition(position); err != nil {
		return 0, err
	}

	e.events.Emit(events.CollateralSeized{
		Owner:     owner,
		Asset:     asset,
		Requested: amount,
		Seized:    seized,
		Remaining: position.AmountLocked,
	})
	return seized, nil
}

// LockedAmount reports the collateral currently locked for (owner, asset).
// Frozen and Closed positions report an error so callers treat them as
// unusable backing.
func (e *Engine) LockedAmount(owner, asset types.Identity) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	position, err := e.state.GetCollateralPosition(owner, asset)
	if err != nil {
		return 0, err
	}
	if position == nil {
		return 0, errPositionNotFound
	}
	if position.Status != StatusActive && position.Status != StatusLocked {
		return 0, errPositionFrozen
	}
	return position.AmountLocked, nil
}

// VaultIdentity reports the escrow account backing (owner, asset).
func (e *Engine) VaultIdentity(owner, asset types.Identity) types.Identity {
	return VaultIdentity(owner, asset)
}

// Position returns a copy of the stored record for queries.
func (e *Engine) Position(owner, asset types.Identity) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.state.GetCollateralPosition(owner, asset)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errPositionNotFound
	}
	return position.Clone(), nil
}
