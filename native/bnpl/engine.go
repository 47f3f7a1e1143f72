package bnpl

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
	"creditchain/native/tier"
)

var (
	errNilState               = errors.New("bnpl engine: state not configured")
	errNilCollateral          = errors.New("bnpl engine: collateral keeper not configured")
	errNilScore               = errors.New("bnpl engine: score keeper not configured")
	errZeroAmount             = errors.New("bnpl engine: amount must be positive")
	errInstallmentsNotAllowed = errors.New("bnpl engine: installment count not allowed for card tier")
	errInvalidInterval        = errors.New("bnpl engine: payment interval out of bounds")
	errLoanNotFound           = errors.New("bnpl engine: loan not found")
	errLoanNotActive          = errors.New("bnpl engine: loan is not active")
	errLoanStarted            = errors.New("bnpl engine: loan already has paid installments")
	errNotBorrower            = errors.New("bnpl engine: caller is not the borrower")
	errTooManyLoans           = errors.New("bnpl engine: yearly loan limit reached")
	errInsufficientFunds      = errors.New("bnpl engine: insufficient funds for payment")
	errInsufficientCollateral = errors.New("bnpl engine: locked collateral below loan amount")
	// ErrCollateralExhausted surfaces a default where no collateral remained
	// to seize. The loan is marked Defaulted before this error returns.
	ErrCollateralExhausted = errors.New("bnpl engine: collateral exhausted")
)

const (
	// MinInstallments and MaxInstallments bound the contract length; the
	// per-tier allowed set narrows this further.
	MinInstallments uint8 = 3
	MaxInstallments uint8 = 36
	// MinIntervalDays and MaxIntervalDays bound the payment cadence.
	MinIntervalDays     uint8 = 15
	MaxIntervalDays     uint8 = 90
	DefaultIntervalDays uint8 = 30
	// GraceDays is the window after a missed due date before collateral
	// seizure begins.
	GraceDays = 15
	// MaxLoansPerYear caps contracts opened per borrower per calendar year.
	MaxLoansPerYear uint32 = 5

	bpsDenominator uint64 = 10_000

	moduleName    = "bnpl"
	secondsPerDay = int64(24 * time.Hour / time.Second)
)

// Score deltas applied by the repayment cascade. The classification buckets
// on the score ledger depend on these exact values.
const (
	scoreOnTime     int32 = 5
	scoreCompletion int32 = 20
	scoreGraceLate  int32 = -10
	scoreSeized     int32 = -20
	scoreDefault    int32 = -50
)

type engineState interface {
	GetLoan(id [32]byte) (*Loan, error)
	PutLoan(id [32]byte, loan *Loan) error
	GetAccount(id types.Identity) (*types.Account, error)
	PutAccount(id types.Identity, account *types.Account) error
	LoanYearCount(borrower types.Identity, year int32) (uint32, error)
	PutLoanYearCount(borrower types.Identity, year int32, count uint32) error
}

// CollateralKeeper exposes the collateral ledger calls the loan engine needs:
// the locked balance backing a new contract and the seizure hook the default
// cascade triggers. LockedAmount must reject Frozen and Closed positions.
type CollateralKeeper interface {
	LockedAmount(owner, asset types.Identity) (uint64, error)
	Seize(owner, asset types.Identity, amount uint64) (uint64, error)
}

// ScoreKeeper applies repayment-driven score deltas and loan counters.
type ScoreKeeper interface {
	Update(owner types.Identity, delta int32, reason string) error
	RecordNewLoan(owner types.Identity) error
}

// WalletView resolves a borrower's card tier at loan creation.
type WalletView interface {
	CardTier(owner types.Identity) (tier.CardTier, error)
}

// BenefitView resolves the benefit-token tier active on a borrower's wallet.
type BenefitView interface {
	ActiveNFTTier(owner types.Identity, now int64) (tier.NFTTier, error)
}

// Engine creates and services installment loans. The repayment cascade calls
// into the collateral and score engines synchronously so a whole check either
// commits or aborts with the rest of the transaction.
type Engine struct {
	state      engineState
	collateral CollateralKeeper
	scores     ScoreKeeper
	wallets    WalletView
	benefits   BenefitView
	platform   types.Identity
	asset      types.Identity
	events     events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64
}

// NewEngine constructs a loan engine collecting installments into the
// platform treasury, denominated in the given settlement asset.
func NewEngine(platform, asset types.Identity) *Engine {
	return &Engine{
		platform: platform,
		asset:    asset,
		events:   events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollateral wires the collateral ledger.
func (e *Engine) SetCollateral(keeper CollateralKeeper) {
	if e == nil {
		return
	}
	e.collateral = keeper
}

// SetScores wires the credit score ledger.
func (e *Engine) SetScores(scores ScoreKeeper) {
	if e == nil {
		return
	}
	e.scores = scores
}

// SetWallets wires the card wallet view used for tier snapshots.
func (e *Engine) SetWallets(wallets WalletView) {
	if e == nil {
		return
	}
	e.wallets = wallets
}

// SetBenefits wires the benefit-token view used for tier snapshots.
func (e *Engine) SetBenefits(benefits BenefitView) {
	if e == nil {
		return
	}
	e.benefits = benefits
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

// Create opens an installment contract and disburses the principal from the
// borrower to the merchant in the same transaction. Terms are computed once
// from the borrower's current card and benefit-token tiers and frozen into
// the record.
func (e *Engine) Create(borrower, merchant types.Identity, amount uint64, installments, intervalDays uint8) (*Loan, [32]byte, error) {
	var id [32]byte
	if e == nil || e.state == nil {
		return nil, id, errNilState
	}
	if e.collateral == nil {
		return nil, id, errNilCollateral
	}
	if e.scores == nil {
		return nil, id, errNilScore
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, id, err
	}
	if amount == 0 {
		return nil, id, errZeroAmount
	}
	if intervalDays == 0 {
		intervalDays = DefaultIntervalDays
	}
	if intervalDays < MinIntervalDays || intervalDays > MaxIntervalDays {
		return nil, id, errInvalidInterval
	}
	if installments < MinInstallments || installments > MaxInstallments {
		return nil, id, errInstallmentsNotAllowed
	}

	cardTier := tier.CardStandard
	if e.wallets != nil {
		resolved, err := e.wallets.CardTier(borrower)
		if err != nil {
			return nil, id, err
		}
		cardTier = resolved
	}
	if !tier.InstallmentsAllowed(cardTier, installments) {
		return nil, id, errInstallmentsNotAllowed
	}

	now := e.nowFn()
	nftTier := tier.NFTNone
	if e.benefits != nil {
		resolved, err := e.benefits.ActiveNFTTier(borrower, now)
		if err != nil {
			return nil, id, err
		}
		nftTier = resolved
	}

	year := int32(time.Unix(now, 0).UTC().Year())
	count, err := e.state.LoanYearCount(borrower, year)
	if err != nil {
		return nil, id, err
	}
	if count >= MaxLoansPerYear {
		return nil, id, errTooManyLoans
	}

	// Every loan is backed 1:1 by collateral locked at creation time. A
	// Frozen or Closed position surfaces here as an error from the ledger.
	locked, err := e.collateral.LockedAmount(borrower, e.asset)
	if err != nil {
		return nil, id, err
	}
	if locked < amount {
		return nil, id, errInsufficientCollateral
	}

	cfg := tier.Config(cardTier)
	feeBps := cfg.BNPLFeeBps
	if installments == 12 {
		feeBps = cfg.BNPLFee12moBps
	}
	aprBps := cfg.AprBps + tier.NFTAprBonusBps(nftTier)

	total, perInstallment, err := amortize(amount, feeBps, aprBps, installments)
	if err != nil {
		return nil, id, err
	}

	borrowerAcc, err := e.state.GetAccount(borrower)
	if err != nil {
		return nil, id, err
	}
	if borrowerAcc.BalanceUSDC < amount {
		return nil, id, errInsufficientFunds
	}
	merchantAcc, err := e.state.GetAccount(merchant)
	if err != nil {
		return nil, id, err
	}
	merchantBalance, err := nativecommon.CheckedAdd(merchantAcc.BalanceUSDC, amount)
	if err != nil {
		return nil, id, err
	}
	borrowerAcc.BalanceUSDC -= amount
	merchantAcc.BalanceUSDC = merchantBalance

	loan := &Loan{
		Borrower:       borrower,
		Merchant:       merchant,
		Principal:      amount,
		Asset:          e.asset,
		Installments:   installments,
		NextPaymentDue: now + int64(intervalDays)*secondsPerDay,
		IntervalDays:   intervalDays,
		PerInstallment: perInstallment,
		Status:         StatusActive,
		CreatedAt:      now,
		FeeBps:         feeBps,
		AprBps:         aprBps,
		CardTier:       cardTier,
		NFTTier:        nftTier,
	}
	id = LoanID(borrower, merchant, now)

	if err := e.state.PutAccount(borrower, borrowerAcc); err != nil {
		return nil, id, err
	}
	if err := e.state.PutAccount(merchant, merchantAcc); err != nil {
		return nil, id, err
	}
	if err := e.state.PutLoan(id, loan); err != nil {
		return nil, id, err
	}
	if err := e.state.PutLoanYearCount(borrower, year, count+1); err != nil {
		return nil, id, err
	}
	if err := e.scores.RecordNewLoan(borrower); err != nil {
		return nil, id, err
	}

	e.events.Emit(events.LoanCreated{
		LoanID:         id,
		Borrower:       borrower,
		Merchant:       merchant,
		Principal:      amount,
		TotalDebt:      total,
		Installments:   installments,
		PerInstallment: perInstallment,
		FirstDue:       loan.NextPaymentDue,
	})
	return loan.Clone(), id, nil
}

// amortize computes the total debt and fixed installment amount. The fee and
// APR components use checked arithmetic; per-installment uses floor division
// so the remainder is absorbed, never redistributed.
func amortize(amount uint64, feeBps, aprBps uint16, installments uint8) (total, perInstallment uint64, err error) {
	fee, err := nativecommon.CheckedMul(amount, uint64(feeBps))
	if err != nil {
		return 0, 0, err
	}
	fee /= bpsDenominator

	apr, err := nativecommon.CheckedMul(amount, uint64(aprBps))
	if err != nil {
		return 0, 0, err
	}
	apr /= bpsDenominator
	apr, err = nativecommon.CheckedMul(apr, uint64(installments))
	if err != nil {
		return 0, 0, err
	}
	apr /= 12

	total, err = nativecommon.CheckedAdd(amount, fee)
	if err != nil {
		return 0, 0, err
	}
	total, err = nativecommon.CheckedAdd(total, apr)
	if err != nil {
		return 0, 0, err
	}
	return total, total / uint64(installments), nil
}

// MakePayment settles one installment from the borrower's own funds. The
// borrower can pay ahead of the due date; the schedule simply advances.
func (e *Engine) MakePayment(caller types.Identity, id [32]byte) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	loan, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, errLoanNotFound
	}
	if loan.Borrower != caller {
		return nil, errNotBorrower
	}
	if loan.Status != StatusActive || loan.Paid >= loan.Installments {
		return nil, errLoanNotActive
	}

	now := e.nowFn()
	if err := e.debitBorrower(loan.Borrower, loan.PerInstallment); err != nil {
		return nil, err
	}
	e.advance(loan, now)
	if err := e.state.PutLoan(id, loan); err != nil {
		return nil, err
	}

	e.events.Emit(events.LoanPayment{
		LoanID:   id,
		Borrower: loan.Borrower,
		Amount:   loan.PerInstallment,
		Paid:     loan.Paid,
		Total:    loan.Installments,
	})
	if loan.Status == StatusCompleted {
		e.events.Emit(events.LoanCompleted{LoanID: id, Borrower: loan.Borrower})
	}
	return loan.Clone(), nil
}

// Cancel voids a loan before any installment has been paid. Once the first
// payment lands the contract can only complete or default.
func (e *Engine) Cancel(caller types.Identity, id [32]byte) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	loan, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, errLoanNotFound
	}
	if loan.Borrower != caller {
		return nil, errNotBorrower
	}
	if loan.Status != StatusActive {
		return nil, errLoanNotActive
	}
	if loan.Paid != 0 {
		return nil, errLoanStarted
	}

	loan.Status = StatusCancelled
	if err := e.state.PutLoan(id, loan); err != nil {
		return nil, err
	}
	e.events.Emit(events.LoanCancelled{LoanID: id, Borrower: loan.Borrower})
	return loan.Clone(), nil
}

// CheckRepayment runs the collection cascade for a due installment. The
// branch order is load-bearing: direct debit, then grace, then seizure with a
// three-way sufficiency split. Callers trigger checks; nothing runs on a
// timer.
func (e *Engine) CheckRepayment(id [32]byte) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.collateral == nil {
		return nil, errNilCollateral
	}
	if e.scores == nil {
		return nil, errNilScore
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	loan, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, errLoanNotFound
	}

	now := e.nowFn()
	if loan.Status != StatusActive || now < loan.NextPaymentDue {
		return loan.Clone(), nil
	}

	if err := e.debitBorrower(loan.Borrower, loan.PerInstallment); err == nil {
		e.advance(loan, now)
		if err := e.state.PutLoan(id, loan); err != nil {
			return nil, err
		}
		if err := e.scores.Update(loan.Borrower, scoreOnTime, "installment collected"); err != nil {
			return nil, err
		}
		if loan.Status == StatusCompleted {
			if err := e.scores.Update(loan.Borrower, scoreCompletion, "loan completed"); err != nil {
				return nil, err
			}
			e.events.Emit(events.LoanCompleted{LoanID: id, Borrower: loan.Borrower})
		}
		e.events.Emit(events.LoanPayment{
			LoanID:    id,
			Borrower:  loan.Borrower,
			Amount:    loan.PerInstallment,
			Paid:      loan.Paid,
			Total:     loan.Installments,
			Collected: true,
		})
		return loan.Clone(), nil
	}

	elapsed := now - loan.NextPaymentDue
	if elapsed <= GraceDays*secondsPerDay {
		if err := e.scores.Update(loan.Borrower, scoreGraceLate, "payment missed within grace"); err != nil {
			return nil, err
		}
		e.events.Emit(events.LoanLate{LoanID: id, Borrower: loan.Borrower, Due: loan.NextPaymentDue})
		return loan.Clone(), nil
	}

	penalty, err := nativecommon.CheckedMul(loan.PerInstallment, uint64(tier.LatePenaltyBps(loan.CardTier, loan.NFTTier)))
	if err != nil {
		return nil, err
	}
	penalty /= bpsDenominator
	totalDue, err := nativecommon.CheckedAdd(loan.PerInstallment, penalty)
	if err != nil {
		return nil, err
	}

	seized, err := e.collateral.Seize(loan.Borrower, loan.Asset, totalDue)
	if err != nil {
		return nil, err
	}

	switch {
	case seized == 0:
		loan.Status = StatusDefaulted
		if err := e.state.PutLoan(id, loan); err != nil {
			return nil, err
		}
		if err := e.scores.Update(loan.Borrower, scoreDefault, "default with no collateral"); err != nil {
			return nil, err
		}
		e.events.Emit(events.LoanDefaulted{LoanID: id, Borrower: loan.Borrower, Owed: totalDue, Seized: 0})
		return loan.Clone(), ErrCollateralExhausted
	case seized >= loan.PerInstallment:
		// Full coverage or penalty-only shortfall: the installment counts
		// as paid and the shortfall is absorbed, not chased.
		e.advance(loan, now)
		if err := e.state.PutLoan(id, loan); err != nil {
			return nil, err
		}
		if err := e.scores.Update(loan.Borrower, scoreSeized, "installment collected via seizure"); err != nil {
			return nil, err
		}
		e.events.Emit(events.LoanPayment{
			LoanID:    id,
			Borrower:  loan.Borrower,
			Amount:    loan.PerInstallment,
			Penalty:   penalty,
			Paid:      loan.Paid,
			Total:     loan.Installments,
			Collected: true,
		})
		if loan.Status == StatusCompleted {
			e.events.Emit(events.LoanCompleted{LoanID: id, Borrower: loan.Borrower})
		}
		return loan.Clone(), nil
	default:
		loan.Status = StatusDefaulted
		if err := e.state.PutLoan(id, loan); err != nil {
			return nil, err
		}
		if err := e.scores.Update(loan.Borrower, scoreDefault, "collateral below installment"); err != nil {
			return nil, err
		}
		e.events.Emit(events.LoanDefaulted{LoanID: id, Borrower: loan.Borrower, Owed: totalDue, Seized: seized})
		return loan.Clone(), nil
	}
}

// Loan returns a copy of the stored record for queries.
func (e *Engine) Loan(id [32]byte) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	loan, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, errLoanNotFound
	}
	return loan.Clone(), nil
}

func (e *Engine) debitBorrower(borrower types.Identity, amount uint64) error {
	borrowerAcc, err := e.state.GetAccount(borrower)
	if err != nil {
		return err
	}
	if borrowerAcc.BalanceUSDC < amount {
		return errInsufficientFunds
	}
	platformAcc, err := e.state.GetAccount(e.platform)
	if err != nil {
		return err
	}
	platformBalance, err := nativecommon.CheckedAdd(platformAcc.BalanceUSDC, amount)
	if err != nil {
		return err
	}
	borrowerAcc.BalanceUSDC -= amount
	platformAcc.BalanceUSDC = platformBalance
	if err := e.state.PutAccount(borrower, borrowerAcc); err != nil {
		return err
	}
	return e.state.PutAccount(e.platform, platformAcc)
}

func (e *Engine) advance(loan *Loan, now int64) {
	loan.Paid++
	loan.LastPaymentAt = now
	loan.NextPaymentDue += int64(loan.IntervalDays) * secondsPerDay
	if loan.Paid >= loan.Installments {
		loan.Status = StatusCompleted
	}
}
