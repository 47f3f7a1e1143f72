package state

import "lukechampine.com/blake3"

// Record key seeds. Every persisted entity lives under a key recomputed from
// (seed, owner[, aux]); nothing stores free-form primary keys, so at most one
// record exists per derivation input.
const (
	seedAccount           = "account"
	seedCollateral        = "collateral"
	seedAuthorization     = "authorization"
	seedLoan              = "bnpl_contract"
	seedLoanYear          = "bnpl_year"
	seedScore             = "score"
	seedYield             = "yield_config"
	seedWallet            = "wallet"
	seedBenefitToken      = "benefit_meta"
	seedBenefitAttachment = "benefit_attach"
	seedWhitelist         = "whitelist"
	seedWhitelistRegistry = "whitelist_registry"
)

// stateKey derives the storage key for a record from its seed and identity
// parts.
func stateKey(seed string, parts ...[]byte) []byte {
	h := blake3.New(32, nil)
	h.Write([]byte(seed))
	for _, part := range parts {
		h.Write(part)
	}
	return h.Sum(nil)
}
