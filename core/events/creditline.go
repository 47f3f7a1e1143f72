package events

import "creditchain/core/types"

const (
	// TypeAuthorizationCreated is emitted when a spend authorization is opened.
	TypeAuthorizationCreated = "creditline.authorized"
	// TypeAuthorizationSpent captures a delegated debit against an authorization.
	TypeAuthorizationSpent = "creditline.spent"
	// TypeAuthorizationRevoked is emitted when an authorization is cancelled.
	TypeAuthorizationRevoked = "creditline.revoked"
)

// AuthorizationCreated captures the opening of a delegated spend authorization.
type AuthorizationCreated struct {
	User       types.Identity
	Delegate   types.Identity
	Authorized uint64
	Expiry     int64
}

// EventType satisfies the Event interface.
func (AuthorizationCreated) EventType() string { return TypeAuthorizationCreated }

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationCreated) Event() *types.Event {
	return &types.Event{Type: TypeAuthorizationCreated, Attributes: map[string]string{
		"user":       identityAttr(e.User),
		"delegate":   identityAttr(e.Delegate),
		"authorized": formatAmount(e.Authorized),
		"expiry":     formatUnix(e.Expiry),
	}}
}

// AuthorizationSpent captures a debit executed under a spend authorization.
type AuthorizationSpent struct {
	User     types.Identity
	Merchant types.Identity
	Amount   uint64
	Used     uint64
}

// EventType satisfies the Event interface.
func (AuthorizationSpent) EventType() string { return TypeAuthorizationSpent }

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationSpent) Event() *types.Event {
	return &types.Event{Type: TypeAuthorizationSpent, Attributes: map[string]string{
		"user":     identityAttr(e.User),
		"merchant": identityAttr(e.Merchant),
		"amount":   formatAmount(e.Amount),
		"used":     formatAmount(e.Used),
	}}
}

// AuthorizationRevoked captures the cancellation of a spend authorization.
type AuthorizationRevoked struct {
	User types.Identity
	Used uint64
}

// EventType satisfies the Event interface.
func (AuthorizationRevoked) EventType() string { return TypeAuthorizationRevoked }

// Event converts the structured payload into a broadcastable event.
func (e AuthorizationRevoked) Event() *types.Event {
	return &types.Event{Type: TypeAuthorizationRevoked, Attributes: map[string]string{
		"user": identityAttr(e.User),
		"used": formatAmount(e.Used),
	}}
}
