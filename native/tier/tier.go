package tier

import "fmt"

// CardTier enumerates the issued card classes, ordered from entry level to the
// highest product.
type CardTier uint8

const (
	CardStandard CardTier = iota
	CardSilver
	CardGold
	CardPlatinum
)

// NFTTier enumerates the benefit-token classes that can boost a card.
type NFTTier uint8

const (
	NFTNone NFTTier = iota
	NFTBronze
	NFTSilver
	NFTGold
)

// Valid reports whether the card tier is a known class.
func (t CardTier) Valid() bool { return t <= CardPlatinum }

// Valid reports whether the benefit-token tier is a known class.
func (t NFTTier) Valid() bool { return t <= NFTGold }

func (t CardTier) String() string {
	switch t {
	case CardStandard:
		return "standard"
	case CardSilver:
		return "silver"
	case CardGold:
		return "gold"
	case CardPlatinum:
		return "platinum"
	default:
		return fmt.Sprintf("card(%d)", uint8(t))
	}
}

func (t NFTTier) String() string {
	switch t {
	case NFTNone:
		return "none"
	case NFTBronze:
		return "bronze"
	case NFTSilver:
		return "silver"
	case NFTGold:
		return "gold"
	default:
		return fmt.Sprintf("nft(%d)", uint8(t))
	}
}

// CardConfig groups the fee, APR and limit modifiers attached to a card class.
// Rates are basis points; monetary caps are in the settlement asset's smallest
// unit (6 decimals).
type CardConfig struct {
	AprBps              uint16
	BNPLFeeBps          uint16
	BNPLFee12moBps      uint16
	MaxInstallments     uint8
	AllowedInstallments []uint8
	CashbackBps         uint16
	CashbackCap         uint64
	NFTCost             uint64
}

var cardConfigs = map[CardTier]CardConfig{
	CardStandard: {
		AprBps:              400,
		BNPLFeeBps:          700,
		BNPLFee12moBps:      700,
		MaxInstallments:     6,
		AllowedInstallments: []uint8{3, 4, 6},
		CashbackBps:         0,
		CashbackCap:         0,
		NFTCost:             0,
	},
	CardSilver: {
		AprBps:              500,
		BNPLFeeBps:          400,
		BNPLFee12moBps:      700,
		MaxInstallments:     12,
		AllowedInstallments: []uint8{3, 4, 6, 12},
		CashbackBps:         0,
		CashbackCap:         0,
		NFTCost:             20_000_000,
	},
	CardGold: {
		AprBps:              600,
		BNPLFeeBps:          350,
		BNPLFee12moBps:      500,
		MaxInstallments:     12,
		AllowedInstallments: []uint8{3, 4, 6, 12},
		CashbackBps:         50,
		CashbackCap:         150_000_000,
		NFTCost:             15_000_000,
	},
	CardPlatinum: {
		AprBps:              700,
		BNPLFeeBps:          300,
		BNPLFee12moBps:      300,
		MaxInstallments:     12,
		AllowedInstallments: []uint8{3, 4, 6, 12},
		CashbackBps:         150,
		CashbackCap:         300_000_000,
		NFTCost:             0,
	},
}

// Config resolves the benefit configuration for a card tier. Unknown tiers
// fall back to the entry-level configuration rather than erroring; the
// resolver is total over its input domain.
func Config(card CardTier) CardConfig {
	cfg, ok := cardConfigs[card]
	if !ok {
		cfg = cardConfigs[CardStandard]
	}
	out := cfg
	out.AllowedInstallments = append([]uint8(nil), cfg.AllowedInstallments...)
	return out
}

// InstallmentsAllowed reports whether the card tier permits the requested
// installment count. Each tier carries an enumerated list, not a range.
func InstallmentsAllowed(card CardTier, installments uint8) bool {
	for _, allowed := range Config(card).AllowedInstallments {
		if allowed == installments {
			return true
		}
	}
	return false
}

// NFTAprBonusBps returns the APR boost granted by an attached benefit token.
func NFTAprBonusBps(nft NFTTier) uint16 {
	switch nft {
	case NFTBronze:
		return 50
	case NFTSilver:
		return 150
	case NFTGold:
		return 200
	default:
		return 0
	}
}

// DefaultLatePenaltyBps applies to any (card, token) pair missing from the
// pairwise table.
const DefaultLatePenaltyBps uint16 = 1000

type penaltyKey struct {
	card CardTier
	nft  NFTTier
}

var latePenalties = map[penaltyKey]uint16{
	{CardSilver, NFTBronze}:   700,
	{CardSilver, NFTSilver}:   600,
	{CardGold, NFTBronze}:     500,
	{CardGold, NFTSilver}:     400,
	{CardPlatinum, NFTBronze}: 200,
	{CardPlatinum, NFTGold}:   100,
}

// LatePenaltyBps resolves the late-payment penalty rate for an exact
// (card, token) combination, defaulting to the maximum penalty for unmatched
// pairs.
func LatePenaltyBps(card CardTier, nft NFTTier) uint16 {
	if bps, ok := latePenalties[penaltyKey{card, nft}]; ok {
		return bps
	}
	return DefaultLatePenaltyBps
}
