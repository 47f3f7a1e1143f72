package whitelist

import "creditchain/core/types"

// Status records an identity's access grant.
type Status struct {
	User          types.Identity
	Whitelisted   bool
	WhitelistedAt int64
	WhitelistedBy types.Identity
}

// Clone returns a copy callers can mutate without touching the stored record.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Registry anchors the dynamic whitelist under a single controlling
// authority.
type Registry struct {
	Authority  types.Identity
	Active     bool
	TotalUsers uint64
}

// Clone returns a copy callers can mutate without touching the stored record.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
