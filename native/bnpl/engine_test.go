package bnpl

import (
	"errors"
	"fmt"
	"testing"

	"creditchain/core/types"
	"creditchain/native/tier"
)

type mockState struct {
	loans     map[[32]byte]*Loan
	accounts  map[types.Identity]*types.Account
	yearCount map[string]uint32
}

func newMockState() *mockState {
	return &mockState{
		loans:     make(map[[32]byte]*Loan),
		accounts:  make(map[types.Identity]*types.Account),
		yearCount: make(map[string]uint32),
	}
}

func (m *mockState) GetLoan(id [32]byte) (*Loan, error) {
	loan, ok := m.loans[id]
	if !ok {
		return nil, nil
	}
	return loan.Clone(), nil
}

func (m *mockState) PutLoan(id [32]byte, loan *Loan) error {
	m.loans[id] = loan.Clone()
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

func yearKey(borrower types.Identity, year int32) string {
	return fmt.Sprintf("%x/%d", borrower[:4], year)
}

func (m *mockState) LoanYearCount(borrower types.Identity, year int32) (uint32, error) {
	return m.yearCount[yearKey(borrower, year)], nil
}

func (m *mockState) PutLoanYearCount(borrower types.Identity, year int32, count uint32) error {
	m.yearCount[yearKey(borrower, year)] = count
	return nil
}

func (m *mockState) balance(id types.Identity) uint64 {
	if acc, ok := m.accounts[id]; ok {
		return acc.BalanceUSDC
	}
	return 0
}

type mockCollateral struct {
	locked    uint64
	lockedErr error
	available uint64
	requests  []uint64
}

func (m *mockCollateral) LockedAmount(owner, asset types.Identity) (uint64, error) {
	if m.lockedErr != nil {
		return 0, m.lockedErr
	}
	return m.locked, nil
}

func (m *mockCollateral) Seize(owner, asset types.Identity, amount uint64) (uint64, error) {
	m.requests = append(m.requests, amount)
	seized := amount
	if seized > m.available {
		seized = m.available
	}
	m.available -= seized
	return seized, nil
}

type mockScores struct {
	deltas []int32
	loans  int
}

func (m *mockScores) Update(owner types.Identity, delta int32, reason string) error {
	m.deltas = append(m.deltas, delta)
	return nil
}

func (m *mockScores) RecordNewLoan(owner types.Identity) error {
	m.loans++
	return nil
}

type mockWallets struct{ tier tier.CardTier }

func (m *mockWallets) CardTier(owner types.Identity) (tier.CardTier, error) {
	return m.tier, nil
}

type mockBenefits struct{ tier tier.NFTTier }

func (m *mockBenefits) ActiveNFTTier(owner types.Identity, now int64) (tier.NFTTier, error) {
	return m.tier, nil
}

func testIdentity(b byte) types.Identity {
	var id types.Identity
	id[0] = b
	return id
}

type testEnv struct {
	engine     *Engine
	state      *mockState
	collateral *mockCollateral
	scores     *mockScores
	wallets    *mockWallets
	benefits   *mockBenefits
	platform   types.Identity
}

func newTestEnv(t *testing.T, now int64) *testEnv {
	t.Helper()
	env := &testEnv{
		state:      newMockState(),
		collateral: &mockCollateral{locked: 1_000_000},
		scores:     &mockScores{},
		wallets:    &mockWallets{tier: tier.CardStandard},
		benefits:   &mockBenefits{tier: tier.NFTNone},
		platform:   testIdentity(0xFF),
	}
	env.engine = NewEngine(env.platform, testIdentity(0xAA))
	env.engine.SetState(env.state)
	env.engine.SetCollateral(env.collateral)
	env.engine.SetScores(env.scores)
	env.engine.SetWallets(env.wallets)
	env.engine.SetBenefits(env.benefits)
	env.engine.SetNowFunc(func() int64 { return now })
	return env
}

func TestCreateAmortization(t *testing.T) {
	// 1200 over 3 installments at fee 700bps, apr 400bps:
	// fee = 84, apr = 1200*400/10000*3/12 = 12, total = 1296, per = 432.
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	merchant := testIdentity(2)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	loan, _, err := env.engine.Create(borrower, merchant, 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if loan.FeeBps != 700 || loan.AprBps != 400 {
		t.Fatalf("rates = %d/%d, want 700/400", loan.FeeBps, loan.AprBps)
	}
	if loan.PerInstallment != 432 {
		t.Fatalf("perInstallment = %d, want 432", loan.PerInstallment)
	}
	if got := env.state.balance(merchant); got != 1_200 {
		t.Fatalf("merchant balance = %d, want 1200", got)
	}
	if got := env.state.balance(borrower); got != 8_800 {
		t.Fatalf("borrower balance = %d, want 8800", got)
	}
	if env.scores.loans != 1 {
		t.Fatalf("recorded loans = %d, want 1", env.scores.loans)
	}
	if loan.NextPaymentDue != 1_000+30*secondsPerDay {
		t.Fatalf("firstDue = %d, want %d", loan.NextPaymentDue, 1_000+30*secondsPerDay)
	}
}

func TestCreateRequiresLockedCollateral(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	merchant := testIdentity(2)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	// No collateral at all: the loan must not open even with a funded account.
	env.collateral.locked = 0
	if _, _, err := env.engine.Create(borrower, merchant, 1_200, 3, 30); !errors.Is(err, errInsufficientCollateral) {
		t.Fatalf("err = %v, want insufficient collateral", err)
	}
	if got := env.state.balance(merchant); got != 0 {
		t.Fatalf("merchant balance = %d, want no disbursement", got)
	}
	if env.scores.loans != 0 {
		t.Fatalf("recorded loans = %d, want 0", env.scores.loans)
	}

	// One unit short of the 1:1 backing requirement.
	env.collateral.locked = 1_199
	if _, _, err := env.engine.Create(borrower, merchant, 1_200, 3, 30); !errors.Is(err, errInsufficientCollateral) {
		t.Fatalf("err = %v, want insufficient collateral", err)
	}

	// A frozen or closed position surfaces as the ledger's error.
	frozen := errors.New("collateral engine: position frozen")
	env.collateral.lockedErr = frozen
	if _, _, err := env.engine.Create(borrower, merchant, 1_200, 3, 30); !errors.Is(err, frozen) {
		t.Fatalf("err = %v, want frozen position rejected", err)
	}
	env.collateral.lockedErr = nil

	// Exact 1:1 backing is sufficient.
	env.collateral.locked = 1_200
	if _, _, err := env.engine.Create(borrower, merchant, 1_200, 3, 30); err != nil {
		t.Fatalf("create at exact backing: %v", err)
	}
}

func TestAmortizeFloorDivision(t *testing.T) {
	cases := []struct {
		amount       uint64
		feeBps       uint16
		aprBps       uint16
		installments uint8
		wantTotal    uint64
		wantPer      uint64
	}{
		// fee=48, apr=1200*500/10000*3/12=15, total=1263, per=421, remainder 0.
		{1_200, 400, 500, 3, 1_263, 421},
		// fee=40, apr=1000*500/10000*3/12=12, total=1052, per=350, remainder 2
		// absorbed by floor division.
		{1_000, 400, 500, 3, 1_052, 350},
	}
	for _, tc := range cases {
		total, per, err := amortize(tc.amount, tc.feeBps, tc.aprBps, tc.installments)
		if err != nil {
			t.Fatalf("amortize(%d): %v", tc.amount, err)
		}
		if total != tc.wantTotal || per != tc.wantPer {
			t.Fatalf("amortize(%d) = %d/%d, want %d/%d", tc.amount, total, per, tc.wantTotal, tc.wantPer)
		}
	}
}

func TestAmortizeOverflowFails(t *testing.T) {
	if _, _, err := amortize(^uint64(0)/100, 700, 400, 3); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestCreateUses12moFeeAndNFTBonus(t *testing.T) {
	env := newTestEnv(t, 1_000)
	env.wallets.tier = tier.CardGold
	env.benefits.tier = tier.NFTSilver
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	loan, _, err := env.engine.Create(borrower, testIdentity(2), 1_200, 12, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if loan.FeeBps != 500 {
		t.Fatalf("feeBps = %d, want 12mo rate 500", loan.FeeBps)
	}
	if loan.AprBps != 600+150 {
		t.Fatalf("aprBps = %d, want 750 with NFT bonus", loan.AprBps)
	}
	if loan.CardTier != tier.CardGold || loan.NFTTier != tier.NFTSilver {
		t.Fatalf("tier snapshot = %s/%s, want gold/silver", loan.CardTier, loan.NFTTier)
	}
}

func TestCreateRejectsDisallowedInstallments(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	// Standard tier allows {3,4,6}; 12 needs Silver or better.
	if _, _, err := env.engine.Create(borrower, testIdentity(2), 1_200, 12, 30); !errors.Is(err, errInstallmentsNotAllowed) {
		t.Fatalf("err = %v, want installments not allowed", err)
	}
	if _, _, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 14); !errors.Is(err, errInvalidInterval) {
		t.Fatalf("err = %v, want invalid interval", err)
	}
	if _, _, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 91); !errors.Is(err, errInvalidInterval) {
		t.Fatalf("err = %v, want invalid interval", err)
	}
}

func TestCreateEnforcesYearlyLimit(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 1_000_000})

	now := int64(1_000)
	for i := 0; i < int(MaxLoansPerYear); i++ {
		now++
		env.engine.SetNowFunc(func() int64 { return now })
		if _, _, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30); err != nil {
			t.Fatalf("loan %d: %v", i+1, err)
		}
	}
	if _, _, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30); !errors.Is(err, errTooManyLoans) {
		t.Fatalf("err = %v, want yearly limit", err)
	}
}

func TestMakePaymentAdvancesAndCompletes(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	loan, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	firstDue := loan.NextPaymentDue

	for i := 1; i <= 3; i++ {
		loan, err = env.engine.MakePayment(borrower, id)
		if err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
		if int(loan.Paid) != i {
			t.Fatalf("paid = %d, want %d", loan.Paid, i)
		}
	}
	if loan.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", loan.Status)
	}
	if loan.NextPaymentDue != firstDue+3*30*secondsPerDay {
		t.Fatalf("due drifted: %d", loan.NextPaymentDue)
	}
	if got := env.state.balance(env.platform); got != 3*loan.PerInstallment {
		t.Fatalf("platform balance = %d, want %d", got, 3*loan.PerInstallment)
	}

	if _, err := env.engine.MakePayment(borrower, id); !errors.Is(err, errLoanNotActive) {
		t.Fatalf("err = %v, want not active", err)
	}
}

func TestCancelOnlyBeforeFirstPayment(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	_, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.engine.Cancel(testIdentity(9), id); !errors.Is(err, errNotBorrower) {
		t.Fatalf("err = %v, want not borrower", err)
	}
	if _, err := env.engine.MakePayment(borrower, id); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := env.engine.Cancel(borrower, id); !errors.Is(err, errLoanStarted) {
		t.Fatalf("err = %v, want loan started", err)
	}
}

func TestCancelVoidsUnstartedLoan(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	_, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loan, err := env.engine.Cancel(borrower, id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if loan.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", loan.Status)
	}
}

func TestCheckRepaymentNoOpBeforeDue(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue - 1 })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Paid != 0 || len(env.scores.deltas) != 0 {
		t.Fatalf("check before due must not mutate: paid=%d deltas=%v", loan.Paid, env.scores.deltas)
	}
}

func TestCheckRepaymentDirectDebit(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Paid != 1 {
		t.Fatalf("paid = %d, want 1", loan.Paid)
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != 5 {
		t.Fatalf("deltas = %v, want [5]", env.scores.deltas)
	}
}

func TestCheckRepaymentCompletionAwardsBonus(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.engine.MakePayment(borrower, id); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := env.engine.MakePayment(borrower, id); err != nil {
		t.Fatalf("payment: %v", err)
	}

	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + 3*30*secondsPerDay })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", loan.Status)
	}
	// The final collected installment awards both the on-time delta and the
	// completion bonus as two separate score updates.
	if len(env.scores.deltas) != 2 || env.scores.deltas[0] != 5 || env.scores.deltas[1] != 20 {
		t.Fatalf("deltas = %v, want [5 20]", env.scores.deltas)
	}
}

func TestCheckRepaymentGracePeriod(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Drain the borrower so direct debit fails.
	env.state.accounts[borrower].BalanceUSDC = 0

	// One day before the grace window closes: small penalty, loan untouched.
	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + (GraceDays-1)*secondsPerDay })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Status != StatusActive || loan.Paid != 0 {
		t.Fatalf("loan mutated inside grace: %+v", loan)
	}
	if loan.NextPaymentDue != created.NextPaymentDue {
		t.Fatalf("due changed inside grace")
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != -10 {
		t.Fatalf("deltas = %v, want [-10]", env.scores.deltas)
	}
	if len(env.collateral.requests) != 0 {
		t.Fatalf("collateral touched inside grace")
	}

	// The boundary itself is still grace: seizure needs strictly more.
	env.scores.deltas = nil
	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + GraceDays*secondsPerDay })
	if _, err := env.engine.CheckRepayment(id); err != nil {
		t.Fatalf("check at boundary: %v", err)
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != -10 {
		t.Fatalf("boundary deltas = %v, want [-10]", env.scores.deltas)
	}
}

func TestCheckRepaymentSeizureCoversInstallment(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.state.accounts[borrower].BalanceUSDC = 0
	env.collateral.available = 10_000

	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + (GraceDays+1)*secondsPerDay })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Paid != 1 || loan.Status != StatusActive {
		t.Fatalf("loan = %+v, want one installment collected", loan)
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != -20 {
		t.Fatalf("deltas = %v, want [-20]", env.scores.deltas)
	}
	// Standard card with no NFT hits the default 1000bps penalty:
	// 432 + 43 = 475 requested from collateral.
	if len(env.collateral.requests) != 1 || env.collateral.requests[0] != 475 {
		t.Fatalf("seize requests = %v, want [475]", env.collateral.requests)
	}
}

func TestCheckRepaymentPartialSeizureAbsorbsPenalty(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.state.accounts[borrower].BalanceUSDC = 0
	// Enough for the installment (432) but not the penalty on top.
	env.collateral.available = 440

	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + (GraceDays+1)*secondsPerDay })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Paid != 1 || loan.Status != StatusActive {
		t.Fatalf("loan = %+v, want advanced despite penalty shortfall", loan)
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != -20 {
		t.Fatalf("deltas = %v, want [-20]", env.scores.deltas)
	}
}

func TestCheckRepaymentInsufficientSeizureDefaults(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.state.accounts[borrower].BalanceUSDC = 0
	// Below the 432 installment: the contract defaults without an error.
	env.collateral.available = 100

	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + (GraceDays+1)*secondsPerDay })
	loan, err := env.engine.CheckRepayment(id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if loan.Status != StatusDefaulted {
		t.Fatalf("status = %s, want defaulted", loan.Status)
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != -50 {
		t.Fatalf("deltas = %v, want [-50]", env.scores.deltas)
	}
}

func TestCheckRepaymentZeroCollateralErrors(t *testing.T) {
	env := newTestEnv(t, 1_000)
	borrower := testIdentity(1)
	env.state.PutAccount(borrower, &types.Account{BalanceUSDC: 10_000})

	created, id, err := env.engine.Create(borrower, testIdentity(2), 1_200, 3, 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.state.accounts[borrower].BalanceUSDC = 0
	env.collateral.available = 0

	// One second past the grace boundary with nothing to seize.
	env.engine.SetNowFunc(func() int64 { return created.NextPaymentDue + GraceDays*secondsPerDay + 1 })
	loan, err := env.engine.CheckRepayment(id)
	if !errors.Is(err, ErrCollateralExhausted) {
		t.Fatalf("err = %v, want collateral exhausted", err)
	}
	if loan.Status != StatusDefaulted {
		t.Fatalf("status = %s, want defaulted", loan.Status)
	}
	if len(env.scores.deltas) != 1 || env.scores.deltas[0] != -50 {
		t.Fatalf("deltas = %v, want [-50]", env.scores.deltas)
	}
}
