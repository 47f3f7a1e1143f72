package creditline

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
)

var (
	errNilState             = errors.New("creditline engine: state not configured")
	errNilCollateral        = errors.New("creditline engine: collateral view not configured")
	errZeroAmount           = errors.New("creditline engine: amount must be positive")
	errInvalidDuration      = errors.New("creditline engine: duration must be positive")
	errAuthorizationExists  = errors.New("creditline engine: authorization already active")
	errAuthorizationMissing = errors.New("creditline engine: authorization not found")
	errAuthorizationInvalid = errors.New("creditline engine: authorization revoked or expired")
	errInsufficientCredit   = errors.New("creditline engine: remaining credit too low")
	errUndercollateralized  = errors.New("creditline engine: locked collateral below requested credit")
	errVaultUnderfunded     = errors.New("creditline engine: custody balance below spend amount")
)

const (
	moduleName    = "creditline"
	secondsPerDay = int64(24 * time.Hour / time.Second)
)

type engineState interface {
	GetAuthorization(owner types.Identity) (*Authorization, error)
	PutAuthorization(auth *Authorization) error
	GetAccount(id types.Identity) (*types.Account, error)
	PutAccount(id types.Identity, account *types.Account) error
}

// CollateralView exposes the collateral reads the engine needs: the locked
// balance for the one-time sufficiency check and the custody identity spends
// settle from.
type CollateralView interface {
	LockedAmount(owner, asset types.Identity) (uint64, error)
	VaultIdentity(owner, asset types.Identity) types.Identity
}

// Engine issues and consumes delegated spend authorizations. Credit is checked
// against locked collateral once at initialization; later collateral
// withdrawals do not shrink an open authorization.
type Engine struct {
	state      engineState
	collateral CollateralView
	asset      types.Identity
	delegate   types.Identity
	events     events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64
}

// NewEngine constructs an authorization engine. The delegate identity is the
// protocol authority that signs custody debits on the user's behalf; asset is
// the settlement asset backing every authorization.
func NewEngine(delegate, asset types.Identity) *Engine {
	return &Engine{
		delegate: delegate,
		asset:    asset,
		events:   events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollateral wires the collateral ledger view.
func (e *Engine) SetCollateral(view CollateralView) {
	if e == nil {
		return
	}
	e.collateral = view
}

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

// Initialize opens a time-bounded credit line for the owner. Locked collateral
// must cover the requested amount at creation time; the check is one-time and
// deliberately not re-run on later spends.
func (e *Engine) Initialize(owner types.Identity, amount uint64, durationDays uint16) (*Authorization, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.collateral == nil {
		return nil, errNilCollateral
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errZeroAmount
	}
	if durationDays == 0 {
		return nil, errInvalidDuration
	}

	now := e.nowFn()
	existing, err := e.state.GetAuthorization(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ValidAt(now) {
		return nil, errAuthorizationExists
	}

	locked, err := e.collateral.LockedAmount(owner, e.asset)
	if err != nil {
		return nil, err
	}
	if locked < amount {
		return nil, errUndercollateralized
	}

	auth := &Authorization{
		Owner:      owner,
		Delegate:   e.delegate,
		Authorized: amount,
		Used:       0,
		Active:     true,
		CreatedAt:  now,
		ExpiresAt:  now + int64(durationDays)*secondsPerDay,
	}
	if err := e.state.PutAuthorization(auth); err != nil {
		return nil, err
	}
	e.events.Emit(events.AuthorizationCreated{
		User:       owner,
		Delegate:   e.delegate,
		Authorized: amount,
		Expiry:     auth.ExpiresAt,
	})
	return auth.Clone(), nil
}

// Spend consumes credit and settles amount from the owner's collateral custody
// directly to the merchant under the protocol's delegated authority. A
// rejected spend leaves used_amount untouched.
func (e *Engine) Spend(owner, merchant types.Identity, amount uint64) (*Authorization, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.collateral == nil {
		return nil, errNilCollateral
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errZeroAmount
	}

	auth, err := e.state.GetAuthorization(owner)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, errAuthorizationMissing
	}
	now := e.nowFn()
	if !auth.ValidAt(now) {
		return nil, errAuthorizationInvalid
	}
	if auth.Remaining() < amount {
		return nil, errInsufficientCredit
	}

	// The bound above makes overflow impossible, checked regardless.
	used, err := nativecommon.CheckedAdd(auth.Used, amount)
	if err != nil {
		return nil, err
	}

	vault := e.collateral.VaultIdentity(owner, e.asset)
	vaultAcc, err := e.state.GetAccount(vault)
	if err != nil {
		return nil, err
	}
	if vaultAcc.BalanceUSDC < amount {
		return nil, errVaultUnderfunded
	}
	merchantAcc, err := e.state.GetAccount(merchant)
	if err != nil {
		return nil, err
	}
	merchantBalance, err := nativecommon.CheckedAdd(merchantAcc.BalanceUSDC, amount)
	if err != nil {
		return nil, err
	}
	vaultAcc.BalanceUSDC -= amount
	merchantAcc.BalanceUSDC = merchantBalance

	auth.Used = used
	if err := e.state.PutAccount(vault, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(merchant, merchantAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAuthorization(auth); err != nil {
		return nil, err
	}

	e.events.Emit(events.AuthorizationSpent{
		User:     owner,
		Merchant: merchant,
		Amount:   amount,
		Used:     auth.Used,
	})
	return auth.Clone(), nil
}

// Revoke deactivates the owner's authorization. Irreversible; a new credit
// line requires a fresh Initialize.
func (e *Engine) Revoke(owner types.Identity) (*Authorization, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	auth, err := e.state.GetAuthorization(owner)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, errAuthorizationMissing
	}
	auth.Active = false
	if err := e.state.PutAuthorization(auth); err != nil {
		return nil, err
	}
	e.events.Emit(events.AuthorizationRevoked{User: owner, Used: auth.Used})
	return auth.Clone(), nil
}

// Authorization returns a copy of the stored record for queries.
func (e *Engine) Authorization(owner types.Identity) (*Authorization, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auth, err := e.state.GetAuthorization(owner)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, errAuthorizationMissing
	}
	return auth.Clone(), nil
}
