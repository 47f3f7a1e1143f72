package nft

import (
	"encoding/binary"

	"creditchain/core/types"
	"creditchain/native/tier"

	"lukechampine.com/blake3"
)

// MintCost is debited from the minter for every benefit token.
const MintCost uint64 = 20_000_000

// Token is a tiered benefit pass. Loan terms read the tier through the
// attachment, so an unattached or expired token confers nothing.
type Token struct {
	Mint         [32]byte
	Owner        types.Identity
	Tier         tier.NFTTier
	Level        uint8
	DurationDays uint16
	CreatedAt    int64
	ExpiresAt    int64
	Active       bool
}

// Clone returns a copy callers can mutate without touching the stored record.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// ExpiredAt reports whether the token has lapsed at the given time.
func (t *Token) ExpiredAt(now int64) bool {
	return t != nil && t.ExpiresAt > 0 && now >= t.ExpiresAt
}

// Attachment binds a token to a card wallet. One active attachment exists per
// wallet.
type Attachment struct {
	Mint       [32]byte
	Wallet     types.Identity
	CardID     [32]byte
	AttachedAt int64
	Active     bool
}

// Clone returns a copy callers can mutate without touching the stored record.
func (a *Attachment) Clone() *Attachment {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

const mintSeed = "benefit_meta"

// TokenID derives the deterministic mint identifier for a token. Including
// the mint timestamp lets an owner hold several tokens.
func TokenID(owner types.Identity, createdAt int64) [32]byte {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt))
	h := blake3.New(32, nil)
	h.Write([]byte(mintSeed))
	h.Write(owner[:])
	h.Write(ts[:])
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}
