package events

import "creditchain/core/types"

const (
	// TypeWhitelistAdded is emitted when an identity gains access.
	TypeWhitelistAdded = "whitelist.added"
	// TypeWhitelistRemoved is emitted when an identity loses access.
	TypeWhitelistRemoved = "whitelist.removed"
)

// WhitelistAdded captures an identity gaining protocol access.
type WhitelistAdded struct {
	User      types.Identity
	Authority types.Identity
}

// EventType satisfies the Event interface.
func (WhitelistAdded) EventType() string { return TypeWhitelistAdded }

// Event converts the structured payload into a broadcastable event.
func (e WhitelistAdded) Event() *types.Event {
	return &types.Event{Type: TypeWhitelistAdded, Attributes: map[string]string{
		"user":      identityAttr(e.User),
		"authority": identityAttr(e.Authority),
	}}
}

// WhitelistRemoved captures an identity losing protocol access.
type WhitelistRemoved struct {
	User      types.Identity
	Authority types.Identity
}

// EventType satisfies the Event interface.
func (WhitelistRemoved) EventType() string { return TypeWhitelistRemoved }

// Event converts the structured payload into a broadcastable event.
func (e WhitelistRemoved) Event() *types.Event {
	return &types.Event{Type: TypeWhitelistRemoved, Attributes: map[string]string{
		"user":      identityAttr(e.User),
		"authority": identityAttr(e.Authority),
	}}
}
