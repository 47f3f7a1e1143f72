package tier

import "testing"

func TestConfigFallsBackToStandard(t *testing.T) {
	unknown := Config(CardTier(42))
	standard := Config(CardStandard)
	if unknown.AprBps != standard.AprBps || unknown.BNPLFeeBps != standard.BNPLFeeBps {
		t.Fatalf("unknown tier should resolve to standard config, got %+v", unknown)
	}
}

func TestConfigReturnsCopy(t *testing.T) {
	cfg := Config(CardSilver)
	cfg.AllowedInstallments[0] = 99
	if Config(CardSilver).AllowedInstallments[0] == 99 {
		t.Fatalf("Config must not expose the shared installment slice")
	}
}

func TestInstallmentsAllowed(t *testing.T) {
	cases := []struct {
		card         CardTier
		installments uint8
		want         bool
	}{
		{CardStandard, 3, true},
		{CardStandard, 6, true},
		{CardStandard, 12, false},
		{CardSilver, 12, true},
		{CardGold, 4, true},
		{CardPlatinum, 5, false},
	}
	for _, tc := range cases {
		if got := InstallmentsAllowed(tc.card, tc.installments); got != tc.want {
			t.Fatalf("InstallmentsAllowed(%s, %d) = %v, want %v", tc.card, tc.installments, got, tc.want)
		}
	}
}

func TestNFTAprBonus(t *testing.T) {
	if got := NFTAprBonusBps(NFTBronze); got != 50 {
		t.Fatalf("bronze bonus = %d, want 50", got)
	}
	if got := NFTAprBonusBps(NFTSilver); got != 150 {
		t.Fatalf("silver bonus = %d, want 150", got)
	}
	if got := NFTAprBonusBps(NFTGold); got != 200 {
		t.Fatalf("gold bonus = %d, want 200", got)
	}
	if got := NFTAprBonusBps(NFTNone); got != 0 {
		t.Fatalf("none bonus = %d, want 0", got)
	}
}

func TestLatePenaltyPairs(t *testing.T) {
	cases := []struct {
		card CardTier
		nft  NFTTier
		want uint16
	}{
		{CardSilver, NFTBronze, 700},
		{CardSilver, NFTSilver, 600},
		{CardGold, NFTBronze, 500},
		{CardGold, NFTSilver, 400},
		{CardPlatinum, NFTBronze, 200},
		{CardPlatinum, NFTGold, 100},
		{CardStandard, NFTNone, DefaultLatePenaltyBps},
		{CardSilver, NFTGold, DefaultLatePenaltyBps},
		{CardPlatinum, NFTSilver, DefaultLatePenaltyBps},
	}
	for _, tc := range cases {
		if got := LatePenaltyBps(tc.card, tc.nft); got != tc.want {
			t.Fatalf("LatePenaltyBps(%s, %s) = %d, want %d", tc.card, tc.nft, got, tc.want)
		}
	}
}
