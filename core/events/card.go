package events

import "creditchain/core/types"

const (
	// TypeCardCreated is emitted when a card wallet is provisioned.
	TypeCardCreated = "card.created"
	// TypeCardUpgraded is emitted when a wallet moves to a higher card class.
	TypeCardUpgraded = "card.upgraded"
)

// CardCreated captures a card wallet being provisioned for a user.
type CardCreated struct {
	User types.Identity
	Tier string
	Fee  uint64
}

// EventType satisfies the Event interface.
func (CardCreated) EventType() string { return TypeCardCreated }

// Event converts the structured payload into a broadcastable event.
func (e CardCreated) Event() *types.Event {
	attrs := map[string]string{
		"user": identityAttr(e.User),
		"tier": e.Tier,
	}
	if e.Fee > 0 {
		attrs["fee"] = formatAmount(e.Fee)
	}
	return &types.Event{Type: TypeCardCreated, Attributes: attrs}
}

// CardUpgraded captures a wallet moving to a higher card class.
type CardUpgraded struct {
	User     types.Identity
	FromTier string
	ToTier   string
	FeeDelta uint64
}

// EventType satisfies the Event interface.
func (CardUpgraded) EventType() string { return TypeCardUpgraded }

// Event converts the structured payload into a broadcastable event.
func (e CardUpgraded) Event() *types.Event {
	return &types.Event{Type: TypeCardUpgraded, Attributes: map[string]string{
		"user":     identityAttr(e.User),
		"from":     e.FromTier,
		"to":       e.ToTier,
		"feeDelta": formatAmount(e.FeeDelta),
	}}
}
