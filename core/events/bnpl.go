package events

import (
	"encoding/hex"
	"strconv"

	"creditchain/core/types"
)

const (
	// TypeLoanCreated is emitted when an installment plan is opened and disbursed.
	TypeLoanCreated = "bnpl.created"
	// TypeLoanPayment captures an installment payment, voluntary or collected.
	TypeLoanPayment = "bnpl.payment"
	// TypeLoanCompleted is emitted when the final installment settles.
	TypeLoanCompleted = "bnpl.completed"
	// TypeLoanCancelled is emitted when an unstarted plan is cancelled.
	TypeLoanCancelled = "bnpl.cancelled"
	// TypeLoanLate captures a missed due date still inside the grace period.
	TypeLoanLate = "bnpl.late"
	// TypeLoanDefaulted is emitted when collateral could not cover an installment.
	TypeLoanDefaulted = "bnpl.defaulted"
)

func loanIDAttr(id [32]byte) string { return hex.EncodeToString(id[:]) }

// LoanCreated captures an installment plan opening.
type LoanCreated struct {
	LoanID         [32]byte
	Borrower       types.Identity
	Merchant       types.Identity
	Principal      uint64
	TotalDebt      uint64
	Installments   uint8
	PerInstallment uint64
	FirstDue       int64
}

// EventType satisfies the Event interface.
func (LoanCreated) EventType() string { return TypeLoanCreated }

// Event converts the structured payload into a broadcastable event.
func (e LoanCreated) Event() *types.Event {
	return &types.Event{Type: TypeLoanCreated, Attributes: map[string]string{
		"loanId":         loanIDAttr(e.LoanID),
		"borrower":       identityAttr(e.Borrower),
		"merchant":       identityAttr(e.Merchant),
		"principal":      formatAmount(e.Principal),
		"totalDebt":      formatAmount(e.TotalDebt),
		"installments":   strconv.FormatUint(uint64(e.Installments), 10),
		"perInstallment": formatAmount(e.PerInstallment),
		"firstDue":       formatUnix(e.FirstDue),
	}}
}

// LoanPayment captures a settled installment.
type LoanPayment struct {
	LoanID    [32]byte
	Borrower  types.Identity
	Amount    uint64
	Penalty   uint64
	Paid      uint8
	Total     uint8
	Collected bool
}

// EventType satisfies the Event interface.
func (LoanPayment) EventType() string { return TypeLoanPayment }

// Event converts the structured payload into a broadcastable event.
func (e LoanPayment) Event() *types.Event {
	attrs := map[string]string{
		"loanId":   loanIDAttr(e.LoanID),
		"borrower": identityAttr(e.Borrower),
		"amount":   formatAmount(e.Amount),
		"paid":     strconv.FormatUint(uint64(e.Paid), 10),
		"total":    strconv.FormatUint(uint64(e.Total), 10),
	}
	if e.Penalty > 0 {
		attrs["penalty"] = formatAmount(e.Penalty)
	}
	if e.Collected {
		attrs["collected"] = "true"
	}
	return &types.Event{Type: TypeLoanPayment, Attributes: attrs}
}

// LoanCompleted captures the final installment settling.
type LoanCompleted struct {
	LoanID   [32]byte
	Borrower types.Identity
}

// EventType satisfies the Event interface.
func (LoanCompleted) EventType() string { return TypeLoanCompleted }

// Event converts the structured payload into a broadcastable event.
func (e LoanCompleted) Event() *types.Event {
	return &types.Event{Type: TypeLoanCompleted, Attributes: map[string]string{
		"loanId":   loanIDAttr(e.LoanID),
		"borrower": identityAttr(e.Borrower),
	}}
}

// LoanCancelled captures an unstarted plan being voided.
type LoanCancelled struct {
	LoanID   [32]byte
	Borrower types.Identity
}

// EventType satisfies the Event interface.
func (LoanCancelled) EventType() string { return TypeLoanCancelled }

// Event converts the structured payload into a broadcastable event.
func (e LoanCancelled) Event() *types.Event {
	return &types.Event{Type: TypeLoanCancelled, Attributes: map[string]string{
		"loanId":   loanIDAttr(e.LoanID),
		"borrower": identityAttr(e.Borrower),
	}}
}

// LoanLate captures a failed collection inside the grace period.
type LoanLate struct {
	LoanID   [32]byte
	Borrower types.Identity
	Due      int64
}

// EventType satisfies the Event interface.
func (LoanLate) EventType() string { return TypeLoanLate }

// Event converts the structured payload into a broadcastable event.
func (e LoanLate) Event() *types.Event {
	return &types.Event{Type: TypeLoanLate, Attributes: map[string]string{
		"loanId":   loanIDAttr(e.LoanID),
		"borrower": identityAttr(e.Borrower),
		"due":      formatUnix(e.Due),
	}}
}

// LoanDefaulted captures collateral failing to cover a past-due installment.
type LoanDefaulted struct {
	LoanID   [32]byte
	Borrower types.Identity
	Owed     uint64
	Seized   uint64
}

// EventType satisfies the Event interface.
func (LoanDefaulted) EventType() string { return TypeLoanDefaulted }

// Event converts the structured payload into a broadcastable event.
func (e LoanDefaulted) Event() *types.Event {
	return &types.Event{Type: TypeLoanDefaulted, Attributes: map[string]string{
		"loanId":   loanIDAttr(e.LoanID),
		"borrower": identityAttr(e.Borrower),
		"owed":     formatAmount(e.Owed),
		"seized":   formatAmount(e.Seized),
	}}
}
