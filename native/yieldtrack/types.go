package yieldtrack

import (
	"fmt"

	"creditchain/core/types"

	"lukechampine.com/blake3"
)

// Strategy tags where a user's earned yield is routed.
type Strategy uint8

const (
	StrategyAutoCompound Strategy = iota
	StrategyStableCoin
	StrategyHighYield
	StrategyRealWorldAssets
	StrategyCustom
)

// Valid reports whether the strategy value is within the supported range.
func (s Strategy) Valid() bool { return s <= StrategyCustom }

func (s Strategy) String() string {
	switch s {
	case StrategyAutoCompound:
		return "auto_compound"
	case StrategyStableCoin:
		return "stable_coin"
	case StrategyHighYield:
		return "high_yield"
	case StrategyRealWorldAssets:
		return "real_world_assets"
	case StrategyCustom:
		return "custom"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// Position tracks earned and claimed yield for a user. total_claimed never
// exceeds total_earned; the reinvest path bumps both together to preserve the
// invariant without a transfer.
type Position struct {
	Owner          types.Identity
	Strategy       Strategy
	CustomStrategy types.Identity
	AutoReinvest   bool
	TotalEarned    uint64
	TotalClaimed   uint64
	LastClaimAt    int64
	CreatedAt      int64
}

// Clone returns a copy callers can mutate without touching the stored record.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Claimable reports the yield not yet paid out, saturating at zero.
func (p *Position) Claimable() uint64 {
	if p == nil || p.TotalClaimed > p.TotalEarned {
		return 0
	}
	return p.TotalEarned - p.TotalClaimed
}

const vaultSeed = "yield_vault"

// VaultIdentity derives the custody identity holding a user's routed yield.
func VaultIdentity(owner types.Identity) types.Identity {
	h := blake3.New(32, nil)
	h.Write([]byte(vaultSeed))
	h.Write(owner[:])
	var id types.Identity
	copy(id[:], h.Sum(nil))
	return id
}
