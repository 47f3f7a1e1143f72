package whitelist

import "creditchain/core/types"

// Checker answers the single capability question every mutating operation
// asks before touching state.
type Checker interface {
	IsWhitelisted(user types.Identity) (bool, error)
}

// StaticSet is a compiled-in allow list. It backs operator and treasury
// identities that must never depend on ledger state to act.
type StaticSet map[types.Identity]struct{}

// NewStaticSet builds a set from the given identities.
func NewStaticSet(ids ...types.Identity) StaticSet {
	set := make(StaticSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IsWhitelisted implements Checker by set membership.
func (s StaticSet) IsWhitelisted(user types.Identity) (bool, error) {
	_, ok := s[user]
	return ok, nil
}

// AnyOf composes checkers with short-circuit OR: the first positive answer
// wins, errors propagate.
type AnyOf []Checker

// IsWhitelisted implements Checker over the composed set.
func (c AnyOf) IsWhitelisted(user types.Identity) (bool, error) {
	for _, checker := range c {
		if checker == nil {
			continue
		}
		ok, err := checker.IsWhitelisted(user)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
