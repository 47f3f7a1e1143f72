package card

import (
	"creditchain/core/types"
	"creditchain/native/tier"
)

// Wallet is the card account provisioned for a user. One wallet exists per
// owner; the tier only moves upward.
type Wallet struct {
	Owner     types.Identity
	Active    bool
	CardTier  tier.CardTier
	CreatedAt int64
}

// Clone returns a copy callers can mutate without touching the stored record.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	clone := *w
	return &clone
}

var annualFees = map[tier.CardTier]uint64{
	tier.CardStandard: 0,
	tier.CardSilver:   50_000_000,
	tier.CardGold:     150_000_000,
	tier.CardPlatinum: 300_000_000,
}

// AnnualFee returns the yearly fee charged for a card class.
func AnnualFee(card tier.CardTier) uint64 {
	return annualFees[card]
}
