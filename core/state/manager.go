package state

import (
	"encoding/binary"
	"errors"

	"creditchain/core/types"
	"creditchain/native/bnpl"
	"creditchain/native/card"
	"creditchain/native/collateral"
	"creditchain/native/creditline"
	"creditchain/native/nft"
	"creditchain/native/score"
	"creditchain/native/whitelist"
	"creditchain/native/yieldtrack"
	"creditchain/storage"
)

var errTxnClosed = errors.New("state: transaction already committed or discarded")

// Manager owns the ledger's key-value backend. All reads and writes go
// through transactions so an aborted operation leaves no partial state.
type Manager struct {
	db storage.Database
}

// NewManager wraps a storage backend.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transaction. Writes buffer in memory until Commit flushes
// them to the backend; Discard drops them.
func (m *Manager) Begin() *Txn {
	return &Txn{db: m.db, writes: make(map[string][]byte)}
}

// View opens a read-only snapshot for query handlers. It is a transaction
// the caller never commits.
func (m *Manager) View() *Txn {
	return m.Begin()
}

// Txn is a write-buffered view over the backend. It satisfies the state
// interface of every native engine, so one transaction spans a whole
// cross-engine operation.
type Txn struct {
	db     storage.Database
	writes map[string][]byte
	closed bool
}

// Commit flushes buffered writes to the backend.
func (t *Txn) Commit() error {
	if t.closed {
		return errTxnClosed
	}
	t.closed = true
	for key, value := range t.writes {
		if err := t.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops all buffered writes.
func (t *Txn) Discard() {
	t.closed = true
	t.writes = nil
}

func (t *Txn) get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, errTxnClosed
	}
	if value, ok := t.writes[string(key)]; ok {
		return value, nil
	}
	value, err := t.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (t *Txn) put(key, value []byte) error {
	if t.closed {
		return errTxnClosed
	}
	t.writes[string(key)] = value
	return nil
}

// GetAccount loads the balance record for an identity, returning a zeroed
// account when none exists yet.
func (t *Txn) GetAccount(id types.Identity) (*types.Account, error) {
	raw, err := t.get(stateKey(seedAccount, id[:]))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return &types.Account{}, nil
	}
	return decodeAccount(raw)
}

// PutAccount persists the balance record for an identity.
func (t *Txn) PutAccount(id types.Identity, account *types.Account) error {
	return t.put(stateKey(seedAccount, id[:]), encodeAccount(account))
}

// GetCollateralPosition loads a position, nil when absent.
func (t *Txn) GetCollateralPosition(owner, asset types.Identity) (*collateral.Position, error) {
	raw, err := t.get(stateKey(seedCollateral, owner[:], asset[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeCollateral(raw)
}

// PutCollateralPosition persists a position under its derived key.
func (t *Txn) PutCollateralPosition(position *collateral.Position) error {
	key := stateKey(seedCollateral, position.Owner[:], position.Asset[:])
	return t.put(key, encodeCollateral(position))
}

// GetAuthorization loads the owner's spend authorization, nil when absent.
func (t *Txn) GetAuthorization(owner types.Identity) (*creditline.Authorization, error) {
	raw, err := t.get(stateKey(seedAuthorization, owner[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeAuthorization(raw)
}

// PutAuthorization persists the owner's spend authorization.
func (t *Txn) PutAuthorization(auth *creditline.Authorization) error {
	return t.put(stateKey(seedAuthorization, auth.Owner[:]), encodeAuthorization(auth))
}

// GetLoan loads an installment loan by its derived identifier, nil when
// absent.
func (t *Txn) GetLoan(id [32]byte) (*bnpl.Loan, error) {
	raw, err := t.get(stateKey(seedLoan, id[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeLoan(raw)
}

// PutLoan persists an installment loan.
func (t *Txn) PutLoan(id [32]byte, loan *bnpl.Loan) error {
	return t.put(stateKey(seedLoan, id[:]), encodeLoan(loan))
}

func loanYearKey(borrower types.Identity, year int32) []byte {
	var y [4]byte
	binary.LittleEndian.PutUint32(y[:], uint32(year))
	return stateKey(seedLoanYear, borrower[:], y[:])
}

// LoanYearCount reports how many loans the borrower opened in a calendar
// year.
func (t *Txn) LoanYearCount(borrower types.Identity, year int32) (uint32, error) {
	raw, err := t.get(loanYearKey(borrower, year))
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 4 {
		return 0, sizeError("loan year counter", 4, len(raw))
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// PutLoanYearCount stores the borrower's yearly loan counter.
func (t *Txn) PutLoanYearCount(borrower types.Identity, year int32, count uint32) error {
	var value [4]byte
	binary.LittleEndian.PutUint32(value[:], count)
	return t.put(loanYearKey(borrower, year), value[:])
}

// GetScoreProfile loads a credit profile, nil when absent.
func (t *Txn) GetScoreProfile(owner types.Identity) (*score.Profile, error) {
	raw, err := t.get(stateKey(seedScore, owner[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeScore(raw)
}

// PutScoreProfile persists a credit profile.
func (t *Txn) PutScoreProfile(profile *score.Profile) error {
	return t.put(stateKey(seedScore, profile.Owner[:]), encodeScore(profile))
}

// GetYieldPosition loads a yield position, nil when absent.
func (t *Txn) GetYieldPosition(owner types.Identity) (*yieldtrack.Position, error) {
	raw, err := t.get(stateKey(seedYield, owner[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeYield(raw)
}

// PutYieldPosition persists a yield position.
func (t *Txn) PutYieldPosition(position *yieldtrack.Position) error {
	return t.put(stateKey(seedYield, position.Owner[:]), encodeYield(position))
}

// GetWallet loads a card wallet, nil when absent.
func (t *Txn) GetWallet(owner types.Identity) (*card.Wallet, error) {
	raw, err := t.get(stateKey(seedWallet, owner[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeWallet(raw)
}

// PutWallet persists a card wallet.
func (t *Txn) PutWallet(wallet *card.Wallet) error {
	return t.put(stateKey(seedWallet, wallet.Owner[:]), encodeWallet(wallet))
}

// GetBenefitToken loads a benefit token by mint identifier, nil when absent.
func (t *Txn) GetBenefitToken(id [32]byte) (*nft.Token, error) {
	raw, err := t.get(stateKey(seedBenefitToken, id[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeBenefitToken(raw)
}

// PutBenefitToken persists a benefit token.
func (t *Txn) PutBenefitToken(id [32]byte, token *nft.Token) error {
	return t.put(stateKey(seedBenefitToken, id[:]), encodeBenefitToken(token))
}

// GetTokenAttachment loads the wallet's token attachment, nil when absent.
func (t *Txn) GetTokenAttachment(wallet types.Identity) (*nft.Attachment, error) {
	raw, err := t.get(stateKey(seedBenefitAttachment, wallet[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeAttachment(raw)
}

// PutTokenAttachment persists the wallet's token attachment.
func (t *Txn) PutTokenAttachment(attachment *nft.Attachment) error {
	key := stateKey(seedBenefitAttachment, attachment.Wallet[:])
	return t.put(key, encodeAttachment(attachment))
}

// GetWhitelistStatus loads a user's access grant, nil when absent.
func (t *Txn) GetWhitelistStatus(user types.Identity) (*whitelist.Status, error) {
	raw, err := t.get(stateKey(seedWhitelist, user[:]))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeWhitelistStatus(raw)
}

// PutWhitelistStatus persists a user's access grant.
func (t *Txn) PutWhitelistStatus(status *whitelist.Status) error {
	return t.put(stateKey(seedWhitelist, status.User[:]), encodeWhitelistStatus(status))
}

// GetWhitelistRegistry loads the registry singleton, nil when absent.
func (t *Txn) GetWhitelistRegistry() (*whitelist.Registry, error) {
	raw, err := t.get(stateKey(seedWhitelistRegistry))
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeWhitelistRegistry(raw)
}

// PutWhitelistRegistry persists the registry singleton.
func (t *Txn) PutWhitelistRegistry(registry *whitelist.Registry) error {
	return t.put(stateKey(seedWhitelistRegistry), encodeWhitelistRegistry(registry))
}
