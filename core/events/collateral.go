package events

import (
	"strconv"

	"creditchain/core/types"
)

const (
	// TypeCollateralDeposited is emitted when a deposit lands in a position vault.
	TypeCollateralDeposited = "collateral.deposited"
	// TypeCollateralWithdrawn is emitted when locked funds are released to the owner.
	TypeCollateralWithdrawn = "collateral.withdrawn"
	// TypeCollateralUnlocked signals a lock period elapsing.
	TypeCollateralUnlocked = "collateral.unlocked"
	// TypeCollateralSeized records collateral taken during a default cascade.
	TypeCollateralSeized = "collateral.seized"
)

// CollateralDeposited captures a successful deposit into a position.
type CollateralDeposited struct {
	Owner      types.Identity
	Asset      types.Identity
	Amount     uint64
	Locked     uint64
	LockExpiry int64
}

// EventType satisfies the Event interface.
func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

// Event converts the structured payload into a broadcastable event.
func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{Type: TypeCollateralDeposited, Attributes: map[string]string{
		"owner":      identityAttr(e.Owner),
		"asset":      identityAttr(e.Asset),
		"amount":     formatAmount(e.Amount),
		"locked":     formatAmount(e.Locked),
		"lockExpiry": formatUnix(e.LockExpiry),
	}}
}

// CollateralWithdrawn captures a release of locked funds back to the owner.
type CollateralWithdrawn struct {
	Owner     types.Identity
	Asset     types.Identity
	Amount    uint64
	Remaining uint64
	Closed    bool
}

// EventType satisfies the Event interface.
func (CollateralWithdrawn) EventType() string { return TypeCollateralWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e CollateralWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeCollateralWithdrawn, Attributes: map[string]string{
		"owner":     identityAttr(e.Owner),
		"asset":     identityAttr(e.Asset),
		"amount":    formatAmount(e.Amount),
		"remaining": formatAmount(e.Remaining),
		"closed":    strconv.FormatBool(e.Closed),
	}}
}

// CollateralUnlocked signals that a position's lock period has elapsed.
type CollateralUnlocked struct {
	Owner types.Identity
	Asset types.Identity
}

// EventType satisfies the Event interface.
func (CollateralUnlocked) EventType() string { return TypeCollateralUnlocked }

// Event converts the structured payload into a broadcastable event.
func (e CollateralUnlocked) Event() *types.Event {
	return &types.Event{Type: TypeCollateralUnlocked, Attributes: map[string]string{
		"owner": identityAttr(e.Owner),
		"asset": identityAttr(e.Asset),
	}}
}

// CollateralSeized records collateral routed to the platform treasury during a
// default cascade.
type CollateralSeized struct {
	Owner     types.Identity
	Asset     types.Identity
	Requested uint64
	Seized    uint64
	Remaining uint64
}

// EventType satisfies the Event interface.
func (CollateralSeized) EventType() string { return TypeCollateralSeized }

// Event converts the structured payload into a broadcastable event.
func (e CollateralSeized) Event() *types.Event {
	return &types.Event{Type: TypeCollateralSeized, Attributes: map[string]string{
		"owner":     identityAttr(e.Owner),
		"asset":     identityAttr(e.Asset),
		"requested": formatAmount(e.Requested),
		"seized":    formatAmount(e.Seized),
		"remaining": formatAmount(e.Remaining),
	}}
}
