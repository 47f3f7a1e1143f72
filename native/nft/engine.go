package nft

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
	"creditchain/native/tier"
)

var (
	errNilState          = errors.New("nft engine: state not configured")
	errInvalidTier       = errors.New("nft engine: unknown benefit tier")
	errInvalidDuration   = errors.New("nft engine: duration must be positive")
	errTokenNotFound     = errors.New("nft engine: token not found")
	errNotTokenOwner     = errors.New("nft engine: caller does not own token")
	errTokenInactive     = errors.New("nft engine: token inactive or expired")
	errAlreadyAttached   = errors.New("nft engine: wallet already has an attached token")
	errNotAttached       = errors.New("nft engine: no active attachment")
	errInsufficientFunds = errors.New("nft engine: insufficient funds for mint cost")
)

const (
	moduleName    = "nft"
	secondsPerDay = int64(24 * time.Hour / time.Second)
)

type engineState interface {
	GetBenefitToken(id [32]byte) (*Token, error)
	PutBenefitToken(id [32]byte, token *Token) error
	GetTokenAttachment(wallet types.Identity) (*Attachment, error)
	PutTokenAttachment(attachment *Attachment) error
	GetAccount(id types.Identity) (*types.Account, error)
	PutAccount(id types.Identity, account *types.Account) error
}

// Engine manages the benefit token lifecycle: mint, attach, detach. Loan
// pricing reads the active tier through ActiveNFTTier.
type Engine struct {
	state    engineState
	platform types.Identity
	events   events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
}

// NewEngine constructs a benefit token engine collecting mint costs for the
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

// Mint creates a benefit token for the caller, debiting the mint cost.
func (e *Engine) Mint(owner types.Identity, nftTier tier.NFTTier, level uint8, durationDays uint16) (*Token, [32]byte, error) {
	var id [32]byte
	if e == nil || e.state == nil {
		return nil, id, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, id, err
	}
	if !nftTier.Valid() || nftTier == tier.NFTNone {
		return nil, id, errInvalidTier
	}
	if durationDays == 0 {
		return nil, id, errInvalidDuration
	}

	ownerAcc, err := e.state.GetAccount(owner)
	if err != nil {
		return nil, id, err
	}
	if ownerAcc.BalanceUSDC < MintCost {
		return nil, id, errInsufficientFunds
	}
	platformAcc, err := e.state.GetAccount(e.platform)
	if err != nil {
		return nil, id, err
	}
	platformBalance, err := nativecommon.CheckedAdd(platformAcc.BalanceUSDC, MintCost)
	if err != nil {
		return nil, id, err
	}
	ownerAcc.BalanceUSDC -= MintCost
	platformAcc.BalanceUSDC = platformBalance

	now := e.nowFn()
	token := &Token{
		Owner:        owner,
		Tier:         nftTier,
		Level:        level,
		DurationDays: durationDays,
		CreatedAt:    now,
		ExpiresAt:    now + int64(durationDays)*secondsPerDay,
		Active:       true,
	}
	id = TokenID(owner, now)
	token.Mint = id

	if err := e.state.PutAccount(owner, ownerAcc); err != nil {
		return nil, id, err
	}
	if err := e.state.PutAccount(e.platform, platformAcc); err != nil {
		return nil, id, err
	}
	if err := e.state.PutBenefitToken(id, token); err != nil {
		return nil, id, err
	}

	e.events.Emit(events.BenefitMinted{
		TokenID: id,
		Owner:   owner,
		Tier:    nftTier.String(),
		Cost:    MintCost,
	})
	return token.Clone(), id, nil
}

// Attach binds a token to the owner's card wallet. One active attachment per
// wallet; expired or deactivated tokens cannot be attached.
func (e *Engine) Attach(owner types.Identity, tokenID, cardID [32]byte) (*Attachment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	token, err := e.state.GetBenefitToken(tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, errTokenNotFound
	}
	if token.Owner != owner {
		return nil, errNotTokenOwner
	}
	now := e.nowFn()
	if !token.Active || token.ExpiredAt(now) {
		return nil, errTokenInactive
	}

	existing, err := e.state.GetTokenAttachment(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Active {
		return nil, errAlreadyAttached
	}

	attachment := &Attachment{
		Mint:       tokenID,
		Wallet:     owner,
		CardID:     cardID,
		AttachedAt: now,
		Active:     true,
	}
	if err := e.state.PutTokenAttachment(attachment); err != nil {
		return nil, err
	}
	e.events.Emit(events.BenefitAttached{TokenID: tokenID, Owner: owner, Expiry: token.ExpiresAt})
	return attachment.Clone(), nil
}

// Detach unbinds the wallet's active token.
func (e *Engine) Detach(owner types.Identity) (*Attachment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	attachment, err := e.state.GetTokenAttachment(owner)
	if err != nil {
		return nil, err
	}
	if attachment == nil || !attachment.Active {
		return nil, errNotAttached
	}
	attachment.Active = false
	if err := e.state.PutTokenAttachment(attachment); err != nil {
		return nil, err
	}
	e.events.Emit(events.BenefitDetached{TokenID: attachment.Mint, Owner: owner})
	return attachment.Clone(), nil
}

// ActiveNFTTier resolves the benefit tier in force on the owner's wallet.
// Missing, detached, deactivated, or expired tokens all resolve to None.
func (e *Engine) ActiveNFTTier(owner types.Identity, now int64) (tier.NFTTier, error) {
	if e == nil || e.state == nil {
		return tier.NFTNone, errNilState
	}
	attachment, err := e.state.GetTokenAttachment(owner)
	if err != nil {
		return tier.NFTNone, err
	}
	if attachment == nil || !attachment.Active {
		return tier.NFTNone, nil
	}
	token, err := e.state.GetBenefitToken(attachment.Mint)
	if err != nil {
		return tier.NFTNone, err
	}
	if token == nil || !token.Active || token.ExpiredAt(now) {
		return tier.NFTNone, nil
	}
	return token.Tier, nil
}

// Token returns a copy of the stored record for queries.
func (e *Engine) Token(id [32]byte) (*Token, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	token, err := e.state.GetBenefitToken(id)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, errTokenNotFound
	}
	return token.Clone(), nil
}
