package collateral

import (
	"fmt"

	"creditchain/core/types"

	"lukechampine.com/blake3"
)

// Status tracks the lifecycle of a collateral position.
type Status uint8

const (
	StatusActive Status = iota
	StatusLocked
	StatusFrozen
	StatusClosed
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusLocked, StatusFrozen, StatusClosed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusLocked:
		return "locked"
	case StatusFrozen:
		return "frozen"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Position records the locked collateral backing a user's credit. At most one
// position exists per (owner, asset) pair; the record key is derived from
// those identities so duplicates cannot be created.
type Position struct {
	Owner        types.Identity
	Asset        types.Identity
	AmountLocked uint64
	Status       Status
	LockExpiry   int64
	CreatedAt    int64
	LastUpdate   int64
}

// Clone returns a copy callers can mutate without touching the stored record.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

const vaultSeed = "usdc_vault"

// VaultIdentity derives the custody identity holding a position's backing
// funds. The vault's spending authority is the position itself; no external
// key controls it.
func VaultIdentity(owner, asset types.Identity) types.Identity {
	h := blake3.New(32, nil)
	h.Write([]byte(vaultSeed))
	h.Write(owner[:])
	h.Write(asset[:])
	var id types.Identity
	copy(id[:], h.Sum(nil))
	return id
}
