package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"creditchain/core/events"
	"creditchain/core/state"
	"creditchain/core/tx"
	"creditchain/core/types"
	"creditchain/native/bnpl"
	"creditchain/native/card"
	"creditchain/native/collateral"
	nativecommon "creditchain/native/common"
	"creditchain/native/creditline"
	"creditchain/native/nft"
	"creditchain/native/score"
	"creditchain/native/tier"
	"creditchain/native/whitelist"
	"creditchain/native/yieldtrack"
	"creditchain/observability/metrics"
)

var (
	// ErrNotWhitelisted rejects commands from identities outside the access
	// set.
	ErrNotWhitelisted = errors.New("processor: signer not whitelisted")
	// ErrNonceMismatch rejects replayed or out-of-order envelopes.
	ErrNonceMismatch = errors.New("processor: nonce mismatch")
	// ErrUnauthorized rejects commands reserved for the protocol authority.
	ErrUnauthorized = errors.New("processor: authority required")

	errUnhandledCommand = errors.New("processor: unhandled command")
)

// Processor is the single entry point for mutating the ledger. Every envelope
// runs signature recovery, the whitelist gate, a nonce check, and the engine
// call inside one transaction that commits only when the whole command
// succeeds.
type Processor struct {
	mu sync.Mutex

	manager   *state.Manager
	authority types.Identity
	platform  types.Identity
	asset     types.Identity

	collateral *collateral.Engine
	scores     *score.Engine
	credit     *creditline.Engine
	loans      *bnpl.Engine
	yield      *yieldtrack.Engine
	cards      *card.Engine
	benefits   *nft.Engine
	access     *whitelist.Engine

	gate whitelist.Checker

	log     *slog.Logger
	metrics *metrics.ProcessorMetrics
	nowFn   func() int64
}

// ProcessorConfig carries the identities and policy knobs the processor needs
// at construction.
type ProcessorConfig struct {
	// Authority administers the whitelist and signs protocol-side commands
	// (score adjustments, yield routing, delegated spends).
	Authority types.Identity
	// Platform receives fees, seized collateral, and installment payments.
	Platform types.Identity
	// Asset is the settlement asset identity all balances denominate in.
	Asset types.Identity
	// StaticWhitelist holds identities granted access at build time, checked
	// before the on-ledger records.
	StaticWhitelist []types.Identity
	// Pauses optionally wires governance pause switches into every engine.
	Pauses nativecommon.PauseView
}

// NewProcessor wires the native engines around a state manager.
func NewProcessor(manager *state.Manager, cfg ProcessorConfig, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	p := &Processor{
		manager:   manager,
		authority: cfg.Authority,
		platform:  cfg.Platform,
		asset:     cfg.Asset,
		log:       log,
		metrics:   metrics.Processor(),
		nowFn:     func() int64 { return time.Now().Unix() },

		collateral: collateral.NewEngine(cfg.Platform),
		scores:     score.NewEngine(),
		credit:     creditline.NewEngine(cfg.Authority, cfg.Asset),
		loans:      bnpl.NewEngine(cfg.Platform, cfg.Asset),
		yield:      yieldtrack.NewEngine(cfg.Platform),
		cards:      card.NewEngine(cfg.Platform),
		benefits:   nft.NewEngine(cfg.Platform),
		access:     whitelist.NewEngine(),
	}

	p.credit.SetCollateral(p.collateral)
	p.loans.SetCollateral(p.collateral)
	p.loans.SetScores(scoreAdapter{p.scores})
	p.loans.SetWallets(p.cards)
	p.loans.SetBenefits(p.benefits)

	static := whitelist.NewStaticSet(cfg.StaticWhitelist...)
	p.gate = whitelist.AnyOf{static, p.access}

	for _, engine := range []interface {
		SetPauses(nativecommon.PauseView)
	}{p.collateral, p.scores, p.credit, p.loans, p.yield, p.cards, p.benefits, p.access} {
		engine.SetPauses(cfg.Pauses)
	}
	return p
}

// SetNowFunc overrides the wall clock across every engine, primarily for
// deterministic tests.
func (p *Processor) SetNowFunc(now func() int64) {
	if p == nil || now == nil {
		return
	}
	p.nowFn = now
	p.collateral.SetNowFunc(now)
	p.scores.SetNowFunc(now)
	p.credit.SetNowFunc(now)
	p.loans.SetNowFunc(now)
	p.yield.SetNowFunc(now)
	p.cards.SetNowFunc(now)
	p.benefits.SetNowFunc(now)
	p.access.SetNowFunc(now)
}

func (p *Processor) bind(txn *state.Txn) {
	p.collateral.SetState(txn)
	p.scores.SetState(txn)
	p.credit.SetState(txn)
	p.loans.SetState(txn)
	p.yield.SetState(txn)
	p.cards.SetState(txn)
	p.benefits.SetState(txn)
	p.access.SetState(txn)
}

// Apply verifies, routes, and commits one command. On any error the
// transaction is discarded and the ledger is untouched.
func (p *Processor) Apply(env *tx.Envelope) (result any, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kind := kindName(env.Kind)
	signer, err := env.Signer()
	if err != nil {
		p.metrics.ObserveRejected(kind, "signature")
		return nil, fmt.Errorf("processor: verify envelope: %w", err)
	}
	cmd, err := env.Decode()
	if err != nil {
		p.metrics.ObserveRejected(kind, "payload")
		return nil, err
	}

	txn := p.manager.Begin()
	defer func() {
		if err != nil {
			txn.Discard()
		}
	}()
	p.bind(txn)

	recorder := &recordingEmitter{}
	p.setEmitters(recorder)
	defer p.setEmitters(events.NoopEmitter{})

	if err = p.checkAccess(env.Kind, signer); err != nil {
		p.metrics.ObserveRejected(kind, "whitelist")
		return nil, err
	}
	if err = p.consumeNonce(txn, signer, env.Nonce); err != nil {
		p.metrics.ObserveRejected(kind, "nonce")
		return nil, err
	}

	result, err = p.dispatch(signer, cmd)
	// A default that exhausts the vault still commits the defaulted loan and
	// whatever was seized; the error travels back to the caller alongside it.
	exhausted := errors.Is(err, bnpl.ErrCollateralExhausted)
	if err != nil && !exhausted {
		p.metrics.ObserveRejected(kind, "engine")
		return nil, err
	}
	if commitErr := txn.Commit(); commitErr != nil {
		p.metrics.ObserveRejected(kind, "commit")
		return nil, commitErr
	}

	p.metrics.ObserveProcessed(kind)
	p.observeCascade(recorder)
	p.log.Info("command applied", "kind", kind, "events", len(recorder.events))
	return result, err
}

// checkAccess enforces the whitelist gate. Whitelist administration is exempt
// so the authority can bootstrap and service the set; the engine enforces the
// authority match itself.
func (p *Processor) checkAccess(kind tx.Kind, signer types.Identity) error {
	switch kind {
	case tx.KindInitializeWhitelist, tx.KindAddToWhitelist, tx.KindRemoveFromWhitelist:
		return nil
	}
	ok, err := p.gate.IsWhitelisted(signer)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotWhitelisted
	}
	return nil
}

func (p *Processor) consumeNonce(txn *state.Txn, signer types.Identity, nonce uint64) error {
	account, err := txn.GetAccount(signer)
	if err != nil {
		return err
	}
	if account.Nonce != nonce {
		return fmt.Errorf("%w: have %d, got %d", ErrNonceMismatch, account.Nonce, nonce)
	}
	account.Nonce++
	return txn.PutAccount(signer, account)
}

func (p *Processor) dispatch(signer types.Identity, cmd any) (any, error) {
	switch c := cmd.(type) {
	case *tx.InitializeWhitelist:
		return p.access.Initialize(signer)
	case *tx.AddToWhitelist:
		return p.access.Add(signer, c.User)
	case *tx.RemoveFromWhitelist:
		return p.access.Remove(signer, c.User)

	case *tx.DepositCollateral:
		return p.collateral.Deposit(signer, c.Asset, c.Amount, c.LockDays)
	case *tx.WithdrawCollateral:
		return p.collateral.Withdraw(signer, c.Asset, c.Amount)
	case *tx.RefreshLock:
		return p.collateral.RefreshLock(signer, c.Asset)

	case *tx.CreateWallet:
		return p.cards.Create(signer, tier.CardTier(c.CardTier))
	case *tx.UpgradeCardTier:
		return p.cards.Upgrade(signer, tier.CardTier(c.NewTier))

	case *tx.MintBenefitToken:
		token, _, err := p.benefits.Mint(signer, tier.NFTTier(c.Tier), c.Level, c.DurationDays)
		return token, err
	case *tx.AttachBenefitToken:
		return p.benefits.Attach(signer, c.Mint, c.CardID)
	case *tx.DetachBenefitToken:
		return p.benefits.Detach(signer)

	case *tx.InitializeScore:
		return p.scores.Initialize(signer)
	case *tx.UpdateScore:
		if signer != p.authority {
			return nil, ErrUnauthorized
		}
		return p.scores.Update(c.Owner, c.Delta, c.Reason)

	case *tx.SetYieldStrategy:
		return p.yield.SetStrategy(signer, yieldtrack.Strategy(c.Strategy), c.AutoReinvest, c.Custom)
	case *tx.RouteYield:
		if signer != p.authority {
			return nil, ErrUnauthorized
		}
		return p.yield.RouteYield(c.Owner, c.Amount)
	case *tx.ClaimYield:
		return p.yield.Claim(signer, c.Amount)

	case *tx.InitializeAuthorization:
		return p.credit.Initialize(signer, c.Amount, c.DurationDays)
	case *tx.Spend:
		// The owner spends their own line; the authority may spend on a
		// cardholder's behalf as the card network delegate.
		if signer != c.Owner && signer != p.authority {
			return nil, ErrUnauthorized
		}
		return p.credit.Spend(c.Owner, c.Merchant, c.Amount)
	case *tx.RevokeAuthorization:
		return p.credit.Revoke(signer)

	case *tx.CreateInstallmentLoan:
		loan, _, err := p.loans.Create(signer, c.Merchant, c.Amount, c.Installments, c.IntervalDays)
		return loan, err
	case *tx.MakePayment:
		return p.loans.MakePayment(signer, c.LoanID)
	case *tx.CancelLoan:
		return p.loans.Cancel(signer, c.LoanID)
	case *tx.CheckRepayment:
		loan, err := p.loans.CheckRepayment(c.LoanID)
		// The cascade reports an exhausted vault alongside the state it
		// already committed to the transaction; surface both.
		if err != nil && !errors.Is(err, bnpl.ErrCollateralExhausted) {
			return nil, err
		}
		return loan, err

	default:
		return nil, fmt.Errorf("%w: %T", errUnhandledCommand, cmd)
	}
}

func (p *Processor) setEmitters(emitter events.Emitter) {
	p.collateral.SetEmitter(emitter)
	p.scores.SetEmitter(emitter)
	p.credit.SetEmitter(emitter)
	p.loans.SetEmitter(emitter)
	p.yield.SetEmitter(emitter)
	p.cards.SetEmitter(emitter)
	p.benefits.SetEmitter(emitter)
	p.access.SetEmitter(emitter)
}

func (p *Processor) observeCascade(recorder *recordingEmitter) {
	for _, event := range recorder.events {
		switch e := event.(type) {
		case events.LoanDefaulted:
			p.metrics.ObserveDefault()
			p.log.Warn("loan defaulted", "loan", fmt.Sprintf("%x", e.LoanID[:8]))
		case events.CollateralSeized:
			p.metrics.ObserveSeizure(e.Seized)
		}
	}
}

// recordingEmitter buffers events for post-commit observation.
type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(event events.Event) {
	r.events = append(r.events, event)
}

// scoreAdapter narrows the score engine to the loan engine's view of it.
type scoreAdapter struct {
	engine *score.Engine
}

func (a scoreAdapter) Update(owner types.Identity, delta int32, reason string) error {
	_, err := a.engine.Update(owner, delta, reason)
	return err
}

func (a scoreAdapter) RecordNewLoan(owner types.Identity) error {
	return a.engine.RecordNewLoan(owner)
}

func kindName(kind tx.Kind) string {
	switch kind {
	case tx.KindInitializeWhitelist:
		return "initialize_whitelist"
	case tx.KindAddToWhitelist:
		return "add_to_whitelist"
	case tx.KindRemoveFromWhitelist:
		return "remove_from_whitelist"
	case tx.KindDepositCollateral:
		return "deposit_collateral"
	case tx.KindWithdrawCollateral:
		return "withdraw_collateral"
	case tx.KindRefreshLock:
		return "refresh_lock"
	case tx.KindCreateWallet:
		return "create_wallet"
	case tx.KindUpgradeCardTier:
		return "upgrade_card_tier"
	case tx.KindMintBenefitToken:
		return "mint_benefit_token"
	case tx.KindAttachBenefitToken:
		return "attach_benefit_token"
	case tx.KindDetachBenefitToken:
		return "detach_benefit_token"
	case tx.KindInitializeScore:
		return "initialize_score"
	case tx.KindUpdateScore:
		return "update_score"
	case tx.KindSetYieldStrategy:
		return "set_yield_strategy"
	case tx.KindRouteYield:
		return "route_yield"
	case tx.KindClaimYield:
		return "claim_yield"
	case tx.KindInitializeAuthorization:
		return "initialize_authorization"
	case tx.KindSpend:
		return "spend"
	case tx.KindRevokeAuthorization:
		return "revoke_authorization"
	case tx.KindCreateInstallmentLoan:
		return "create_installment_loan"
	case tx.KindMakePayment:
		return "make_payment"
	case tx.KindCancelLoan:
		return "cancel_loan"
	case tx.KindCheckRepayment:
		return "check_repayment"
	default:
		return "unknown"
	}
}
