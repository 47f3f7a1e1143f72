package events

import "creditchain/core/types"

const (
	// TypeYieldStrategySet is emitted when a user selects a yield strategy.
	TypeYieldStrategySet = "yield.strategySet"
	// TypeYieldRouted captures yield credited to a user's tracking position.
	TypeYieldRouted = "yield.routed"
	// TypeYieldClaimed is emitted when accrued yield is paid out.
	TypeYieldClaimed = "yield.claimed"
	// TypeYieldReinvested is emitted when a claim below the payout threshold is
	// folded back into the position.
	TypeYieldReinvested = "yield.reinvested"
)

// YieldStrategySet captures a strategy selection.
type YieldStrategySet struct {
	User     types.Identity
	Strategy string
}

// EventType satisfies the Event interface.
func (YieldStrategySet) EventType() string { return TypeYieldStrategySet }

// Event converts the structured payload into a broadcastable event.
func (e YieldStrategySet) Event() *types.Event {
	return &types.Event{Type: TypeYieldStrategySet, Attributes: map[string]string{
		"user":     identityAttr(e.User),
		"strategy": e.Strategy,
	}}
}

// YieldRouted captures yield accrued to a tracking position.
type YieldRouted struct {
	User    types.Identity
	Amount  uint64
	Accrued uint64
}

// EventType satisfies the Event interface.
func (YieldRouted) EventType() string { return TypeYieldRouted }

// Event converts the structured payload into a broadcastable event.
func (e YieldRouted) Event() *types.Event {
	return &types.Event{Type: TypeYieldRouted, Attributes: map[string]string{
		"user":    identityAttr(e.User),
		"amount":  formatAmount(e.Amount),
		"accrued": formatAmount(e.Accrued),
	}}
}

// YieldClaimed captures an accrued-yield payout.
type YieldClaimed struct {
	User   types.Identity
	Amount uint64
}

// EventType satisfies the Event interface.
func (YieldClaimed) EventType() string { return TypeYieldClaimed }

// Event converts the structured payload into a broadcastable event.
func (e YieldClaimed) Event() *types.Event {
	return &types.Event{Type: TypeYieldClaimed, Attributes: map[string]string{
		"user":   identityAttr(e.User),
		"amount": formatAmount(e.Amount),
	}}
}

// YieldReinvested captures a below-threshold claim folded back into principal.
type YieldReinvested struct {
	User   types.Identity
	Amount uint64
}

// EventType satisfies the Event interface.
func (YieldReinvested) EventType() string { return TypeYieldReinvested }

// Event converts the structured payload into a broadcastable event.
func (e YieldReinvested) Event() *types.Event {
	return &types.Event{Type: TypeYieldReinvested, Attributes: map[string]string{
		"user":   identityAttr(e.User),
		"amount": formatAmount(e.Amount),
	}}
}
