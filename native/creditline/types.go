package creditline

import "creditchain/core/types"

// Authorization grants the protocol delegated spending authority over a
// bounded slice of the owner's backing collateral. The delegate moves funds
// without a per-transaction user signature; that capability ends at expiry or
// on revoke.
type Authorization struct {
	Owner      types.Identity
	Delegate   types.Identity
	Authorized uint64
	Used       uint64
	Active     bool
	CreatedAt  int64
	ExpiresAt  int64
}

// Clone returns a copy callers can mutate without touching the stored record.
func (a *Authorization) Clone() *Authorization {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Remaining reports the unspent credit, saturating at zero.
func (a *Authorization) Remaining() uint64 {
	if a == nil || a.Used > a.Authorized {
		return 0
	}
	return a.Authorized - a.Used
}

// ValidAt reports whether the authorization can back a spend at the given
// time. Expiry is a derived state checked on read, never an explicit
// transition.
func (a *Authorization) ValidAt(now int64) bool {
	return a != nil && a.Active && now < a.ExpiresAt
}
