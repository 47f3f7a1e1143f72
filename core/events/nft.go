package events

import (
	"encoding/hex"

	"creditchain/core/types"
)

const (
	// TypeBenefitMinted is emitted when a benefit token is minted.
	TypeBenefitMinted = "benefit.minted"
	// TypeBenefitAttached is emitted when a token is attached to a wallet.
	TypeBenefitAttached = "benefit.attached"
	// TypeBenefitDetached is emitted when a token is detached from a wallet.
	TypeBenefitDetached = "benefit.detached"
)

// BenefitMinted captures a benefit token entering circulation.
type BenefitMinted struct {
	TokenID [32]byte
	Owner   types.Identity
	Tier    string
	Cost    uint64
}

// EventType satisfies the Event interface.
func (BenefitMinted) EventType() string { return TypeBenefitMinted }

// Event converts the structured payload into a broadcastable event.
func (e BenefitMinted) Event() *types.Event {
	attrs := map[string]string{
		"tokenId": hex.EncodeToString(e.TokenID[:]),
		"owner":   identityAttr(e.Owner),
		"tier":    e.Tier,
	}
	if e.Cost > 0 {
		attrs["cost"] = formatAmount(e.Cost)
	}
	return &types.Event{Type: TypeBenefitMinted, Attributes: attrs}
}

// BenefitAttached captures a token being bound to a card wallet.
type BenefitAttached struct {
	TokenID [32]byte
	Owner   types.Identity
	Expiry  int64
}

// EventType satisfies the Event interface.
func (BenefitAttached) EventType() string { return TypeBenefitAttached }

// Event converts the structured payload into a broadcastable event.
func (e BenefitAttached) Event() *types.Event {
	return &types.Event{Type: TypeBenefitAttached, Attributes: map[string]string{
		"tokenId": hex.EncodeToString(e.TokenID[:]),
		"owner":   identityAttr(e.Owner),
		"expiry":  formatUnix(e.Expiry),
	}}
}

// BenefitDetached captures a token being unbound from a card wallet.
type BenefitDetached struct {
	TokenID [32]byte
	Owner   types.Identity
}

// EventType satisfies the Event interface.
func (BenefitDetached) EventType() string { return TypeBenefitDetached }

// Event converts the structured payload into a broadcastable event.
func (e BenefitDetached) Event() *types.Event {
	return &types.Event{Type: TypeBenefitDetached, Attributes: map[string]string{
		"tokenId": hex.EncodeToString(e.TokenID[:]),
		"owner":   identityAttr(e.Owner),
	}}
}
