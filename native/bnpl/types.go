package bnpl

import (
	"encoding/binary"
	"fmt"

	"creditchain/core/types"
	"creditchain/native/tier"

	"lukechampine.com/blake3"
)

// Status tracks the lifecycle of an installment loan. Transitions are
// monotonic: Active is the only non-terminal state.
type Status uint8

const (
	StatusActive Status = iota
	StatusCompleted
	StatusDefaulted
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDefaulted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusDefaulted:
		return "defaulted"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Loan is an amortized installment contract. The payment amount and the tier
// snapshot are fixed at creation and never recomputed; later card upgrades do
// not change the terms of an open loan.
type Loan struct {
	Borrower       types.Identity
	Merchant       types.Identity
	Principal      uint64
	Asset          types.Identity
	Installments   uint8
	Paid           uint8
	NextPaymentDue int64
	IntervalDays   uint8
	PerInstallment uint64
	Status         Status
	CreatedAt      int64
	LastPaymentAt  int64
	FeeBps         uint16
	AprBps         uint16
	CardTier       tier.CardTier
	NFTTier        tier.NFTTier
}

// Clone returns a copy callers can mutate without touching the stored record.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

const loanSeed = "bnpl_contract"

// LoanID derives the deterministic record key for a loan. Including the
// creation timestamp lets a borrower hold several loans with the same
// merchant.
func LoanID(borrower, merchant types.Identity, createdAt int64) [32]byte {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt))
	h := blake3.New(32, nil)
	h.Write([]byte(loanSeed))
	h.Write(borrower[:])
	h.Write(merchant[:])
	h.Write(ts[:])
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}
