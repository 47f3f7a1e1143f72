package types

import "creditchain/crypto"

// Identity is the raw 32-byte form of an on-ledger identity. Records persist
// identities in this form; bech32 rendering happens only at the edges.
type Identity [crypto.IdentityLength]byte

// IdentityFromAddress extracts the raw identity bytes from a decoded address.
func IdentityFromAddress(addr crypto.Address) Identity {
	var id Identity
	copy(id[:], addr.Bytes())
	return id
}

// Address renders the identity with the standard user prefix.
func (id Identity) Address() crypto.Address {
	return crypto.MustNewAddress(crypto.UserPrefix, id[:])
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Account holds the fungible balance tracked for an identity. Amounts are
// denominated in the backing settlement asset's smallest unit (6 decimals) and
// kept as unsigned 64-bit integers so every balance mutation goes through the
// checked/saturating helpers.
type Account struct {
	Nonce       uint64 `json:"nonce"`
	BalanceUSDC uint64 `json:"balanceUSDC"`
}
