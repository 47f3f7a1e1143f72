package card

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
	"creditchain/native/tier"
)

var (
	errNilState          = errors.New("card engine: state not configured")
	errWalletExists      = errors.New("card engine: wallet already exists")
	errWalletNotFound    = errors.New("card engine: wallet not found")
	errWalletInactive    = errors.New("card engine: wallet inactive")
	errInvalidTier       = errors.New("card engine: unknown card tier")
	errAlreadyAtLevel    = errors.New("card engine: wallet already at this level")
	errDowngrade         = errors.New("card engine: tier downgrades are not supported")
	errInsufficientFunds = errors.New("card engine: insufficient funds for card fee")
)

const moduleName = "card"

type engineState interface {
	GetWallet(owner types.Identity) (*Wallet, error)
	PutWallet(wallet *Wallet) error
	GetAccount(id types.Identity) (*types.Account, error)
	PutAccount(id types.Identity, account *types.Account) error
}

// Engine provisions card wallets and applies tier upgrades. Fees settle into
// the platform treasury.
type Engine struct {
	state    engineState
	platform types.Identity
	events   events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
}

// NewEngine constructs a card engine collecting fees for the platform
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

// Create provisions a wallet at the requested tier, debiting the annual fee.
func (e *Engine) Create(owner types.Identity, cardTier tier.CardTier) (*Wallet, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !cardTier.Valid() {
		return nil, errInvalidTier
	}
	existing, err := e.state.GetWallet(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errWalletExists
	}

	fee := AnnualFee(cardTier)
	if fee > 0 {
		if err := e.collectFee(owner, fee); err != nil {
			return nil, err
		}
	}

	wallet := &Wallet{
		Owner:     owner,
		Active:    true,
		CardTier:  cardTier,
		CreatedAt: e.nowFn(),
	}
	if err := e.state.PutWallet(wallet); err != nil {
		return nil, err
	}
	e.events.Emit(events.CardCreated{User: owner, Tier: cardTier.String(), Fee: fee})
	return wallet.Clone(), nil
}

// Upgrade moves a wallet to a higher card class, debiting the fee difference
// between the two annual fees. Downgrades and same-tier requests are
// rejected.
func (e *Engine) Upgrade(owner types.Identity, newTier tier.CardTier) (*Wallet, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !newTier.Valid() {
		return nil, errInvalidTier
	}
	wallet, err := e.state.GetWallet(owner)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, errWalletNotFound
	}
	if !wallet.Active {
		return nil, errWalletInactive
	}
	if newTier == wallet.CardTier {
		return nil, errAlreadyAtLevel
	}
	if newTier < wallet.CardTier {
		return nil, errDowngrade
	}

	feeDelta := nativecommon.SatSub(AnnualFee(newTier), AnnualFee(wallet.CardTier))
	if feeDelta > 0 {
		if err := e.collectFee(owner, feeDelta); err != nil {
			return nil, err
		}
	}

	fromTier := wallet.CardTier
	wallet.CardTier = newTier
	if err := e.state.PutWallet(wallet); err != nil {
		return nil, err
	}
	e.events.Emit(events.CardUpgraded{
		User:     owner,
		FromTier: fromTier.String(),
		ToTier:   newTier.String(),
		FeeDelta: feeDelta,
	})
	return wallet.Clone(), nil
}

// CardTier resolves the owner's current card class for loan creation. Users
// without a wallet resolve to the entry-level tier.
func (e *Engine) CardTier(owner types.Identity) (tier.CardTier, error) {
	if e == nil || e.state == nil {
		return tier.CardStandard, errNilState
	}
	wallet, err := e.state.GetWallet(owner)
	if err != nil {
		return tier.CardStandard, err
	}
	if wallet == nil || !wallet.Active {
		return tier.CardStandard, nil
	}
	return wallet.CardTier, nil
}

// Wallet returns a copy of the stored record for queries.
func (e *Engine) Wallet(owner types.Identity) (*Wallet, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	wallet, err := e.state.GetWallet(owner)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, errWalletNotFound
	}
	return wallet.Clone(), nil
}

func (e *Engine) collectFee(owner types.Identity, fee uint64) error {
	ownerAcc, err := e.state.GetAccount(owner)
	if err != nil {
		return err
	}
	if ownerAcc.BalanceUSDC < fee {
		return errInsufficientFunds
	}
	platformAcc, err := e.state.GetAccount(e.platform)
	if err != nil {
		return err
	}
	platformBalance, err := nativecommon.CheckedAdd(platformAcc.BalanceUSDC, fee)
	if err != nil {
		return err
	}
	ownerAcc.BalanceUSDC -= fee
	platformAcc.BalanceUSDC = platformBalance
	if err := e.state.PutAccount(owner, ownerAcc); err != nil {
		return err
	}
	return e.state.PutAccount(e.platform, platformAcc)
}
