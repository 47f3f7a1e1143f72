package state

import (
	"encoding/binary"
	"fmt"

	"creditchain/core/types"
	"creditchain/native/bnpl"
	"creditchain/native/card"
	"creditchain/native/collateral"
	"creditchain/native/creditline"
	"creditchain/native/nft"
	"creditchain/native/score"
	"creditchain/native/tier"
	"creditchain/native/whitelist"
	"creditchain/native/yieldtrack"
)

// Fixed record sizes in bytes. These layouts are the durable on-disk
// contract; field order and widths must never change for persisted state to
// remain readable.
const (
	accountSize           = 16
	collateralSize        = 98
	authorizationSize     = 98
	loanSize              = 147
	scoreSize             = 57
	yieldSize             = 99
	walletSize            = 43
	benefitTokenSize      = 86
	benefitAttachmentSize = 106
	whitelistStatusSize   = 74
	whitelistRegistrySize = 42
)

func sizeError(record string, want, got int) error {
	return fmt.Errorf("state: %s record is %d bytes, want %d", record, got, want)
}

type writer struct {
	buf []byte
	off int
}

func newWriter(size int) *writer { return &writer{buf: make([]byte, size)} }

func (w *writer) bytes(b []byte) {
	copy(w.buf[w.off:], b)
	w.off += len(b)
}

func (w *writer) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *writer) bool(v bool) {
	if v {
		w.buf[w.off] = 1
	}
	w.off++
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *writer) i64(v int64) { w.u64(uint64(v)) }

type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) identity() types.Identity {
	var id types.Identity
	copy(id[:], r.bytes(32))
	return id
}

func (r *reader) hash() [32]byte {
	var h [32]byte
	copy(h[:], r.bytes(32))
	return h
}

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func encodeAccount(acc *types.Account) []byte {
	w := newWriter(accountSize)
	w.u64(acc.Nonce)
	w.u64(acc.BalanceUSDC)
	return w.buf
}

func decodeAccount(b []byte) (*types.Account, error) {
	if len(b) != accountSize {
		return nil, sizeError("account", accountSize, len(b))
	}
	r := &reader{buf: b}
	return &types.Account{Nonce: r.u64(), BalanceUSDC: r.u64()}, nil
}

func encodeCollateral(p *collateral.Position) []byte {
	w := newWriter(collateralSize)
	w.bytes(p.Owner[:])
	w.bytes(p.Asset[:])
	w.u64(p.AmountLocked)
	w.u8(uint8(p.Status))
	w.i64(p.LockExpiry)
	w.i64(p.CreatedAt)
	w.i64(p.LastUpdate)
	w.u8(0)
	return w.buf
}

func decodeCollateral(b []byte) (*collateral.Position, error) {
	if len(b) != collateralSize {
		return nil, sizeError("collateral", collateralSize, len(b))
	}
	r := &reader{buf: b}
	return &collateral.Position{
		Owner:        r.identity(),
		Asset:        r.identity(),
		AmountLocked: r.u64(),
		Status:       collateral.Status(r.u8()),
		LockExpiry:   r.i64(),
		CreatedAt:    r.i64(),
		LastUpdate:   r.i64(),
	}, nil
}

func encodeAuthorization(a *creditline.Authorization) []byte {
	w := newWriter(authorizationSize)
	w.bytes(a.Owner[:])
	w.bytes(a.Delegate[:])
	w.u64(a.Authorized)
	w.u64(a.Used)
	w.bool(a.Active)
	w.i64(a.CreatedAt)
	w.i64(a.ExpiresAt)
	w.u8(0)
	return w.buf
}

func decodeAuthorization(b []byte) (*creditline.Authorization, error) {
	if len(b) != authorizationSize {
		return nil, sizeError("authorization", authorizationSize, len(b))
	}
	r := &reader{buf: b}
	return &creditline.Authorization{
		Owner:      r.identity(),
		Delegate:   r.identity(),
		Authorized: r.u64(),
		Used:       r.u64(),
		Active:     r.bool(),
		CreatedAt:  r.i64(),
		ExpiresAt:  r.i64(),
	}, nil
}

func encodeLoan(l *bnpl.Loan) []byte {
	w := newWriter(loanSize)
	w.bytes(l.Borrower[:])
	w.bytes(l.Merchant[:])
	w.u64(l.Principal)
	w.bytes(l.Asset[:])
	w.u8(l.Installments)
	w.u8(l.Paid)
	w.i64(l.NextPaymentDue)
	w.u8(l.IntervalDays)
	w.u64(l.PerInstallment)
	w.u8(uint8(l.Status))
	w.i64(l.CreatedAt)
	w.i64(l.LastPaymentAt)
	w.u16(l.FeeBps)
	w.u16(l.AprBps)
	w.u8(uint8(l.CardTier))
	w.u8(uint8(l.NFTTier))
	w.u8(0)
	return w.buf
}

func decodeLoan(b []byte) (*bnpl.Loan, error) {
	if len(b) != loanSize {
		return nil, sizeError("loan", loanSize, len(b))
	}
	r := &reader{buf: b}
	return &bnpl.Loan{
		Borrower:       r.identity(),
		Merchant:       r.identity(),
		Principal:      r.u64(),
		Asset:          r.identity(),
		Installments:   r.u8(),
		Paid:           r.u8(),
		NextPaymentDue: r.i64(),
		IntervalDays:   r.u8(),
		PerInstallment: r.u64(),
		Status:         bnpl.Status(r.u8()),
		CreatedAt:      r.i64(),
		LastPaymentAt:  r.i64(),
		FeeBps:         r.u16(),
		AprBps:         r.u16(),
		CardTier:       tier.CardTier(r.u8()),
		NFTTier:        tier.NFTTier(r.u8()),
	}, nil
}

func encodeScore(p *score.Profile) []byte {
	w := newWriter(scoreSize)
	w.bytes(p.Owner[:])
	w.u16(p.Score)
	w.u32(p.OnTime)
	w.u32(p.Late)
	w.u16(p.Defaults)
	w.u32(p.TotalLoans)
	w.i64(p.LastUpdated)
	w.u8(0)
	return w.buf
}

func decodeScore(b []byte) (*score.Profile, error) {
	if len(b) != scoreSize {
		return nil, sizeError("score", scoreSize, len(b))
	}
	r := &reader{buf: b}
	return &score.Profile{
		Owner:       r.identity(),
		Score:       r.u16(),
		OnTime:      r.u32(),
		Late:        r.u32(),
		Defaults:    r.u16(),
		TotalLoans:  r.u32(),
		LastUpdated: r.i64(),
	}, nil
}

func encodeYield(p *yieldtrack.Position) []byte {
	w := newWriter(yieldSize)
	w.bytes(p.Owner[:])
	w.u8(uint8(p.Strategy))
	w.bytes(p.CustomStrategy[:])
	w.bool(p.AutoReinvest)
	w.u64(p.TotalEarned)
	w.u64(p.TotalClaimed)
	w.i64(p.LastClaimAt)
	w.i64(p.CreatedAt)
	w.u8(0)
	return w.buf
}

func decodeYield(b []byte) (*yieldtrack.Position, error) {
	if len(b) != yieldSize {
		return nil, sizeError("yield", yieldSize, len(b))
	}
	r := &reader{buf: b}
	return &yieldtrack.Position{
		Owner:          r.identity(),
		Strategy:       yieldtrack.Strategy(r.u8()),
		CustomStrategy: r.identity(),
		AutoReinvest:   r.bool(),
		TotalEarned:    r.u64(),
		TotalClaimed:   r.u64(),
		LastClaimAt:    r.i64(),
		CreatedAt:      r.i64(),
	}, nil
}

func encodeWallet(wlt *card.Wallet) []byte {
	w := newWriter(walletSize)
	w.bytes(wlt.Owner[:])
	w.bool(wlt.Active)
	w.u8(uint8(wlt.CardTier))
	w.i64(wlt.CreatedAt)
	w.u8(0)
	return w.buf
}

func decodeWallet(b []byte) (*card.Wallet, error) {
	if len(b) != walletSize {
		return nil, sizeError("wallet", walletSize, len(b))
	}
	r := &reader{buf: b}
	return &card.Wallet{
		Owner:     r.identity(),
		Active:    r.bool(),
		CardTier:  tier.CardTier(r.u8()),
		CreatedAt: r.i64(),
	}, nil
}

func encodeBenefitToken(t *nft.Token) []byte {
	w := newWriter(benefitTokenSize)
	w.bytes(t.Mint[:])
	w.bytes(t.Owner[:])
	w.u8(uint8(t.Tier))
	w.u8(t.Level)
	w.u16(t.DurationDays)
	w.i64(t.CreatedAt)
	w.i64(t.ExpiresAt)
	w.bool(t.Active)
	w.u8(0)
	return w.buf
}

func decodeBenefitToken(b []byte) (*nft.Token, error) {
	if len(b) != benefitTokenSize {
		return nil, sizeError("benefit token", benefitTokenSize, len(b))
	}
	r := &reader{buf: b}
	return &nft.Token{
		Mint:         r.hash(),
		Owner:        r.identity(),
		Tier:         tier.NFTTier(r.u8()),
		Level:        r.u8(),
		DurationDays: r.u16(),
		CreatedAt:    r.i64(),
		ExpiresAt:    r.i64(),
		Active:       r.bool(),
	}, nil
}

func encodeAttachment(a *nft.Attachment) []byte {
	w := newWriter(benefitAttachmentSize)
	w.bytes(a.Mint[:])
	w.bytes(a.Wallet[:])
	w.bytes(a.CardID[:])
	w.i64(a.AttachedAt)
	w.bool(a.Active)
	w.u8(0)
	return w.buf
}

func decodeAttachment(b []byte) (*nft.Attachment, error) {
	if len(b) != benefitAttachmentSize {
		return nil, sizeError("attachment", benefitAttachmentSize, len(b))
	}
	r := &reader{buf: b}
	return &nft.Attachment{
		Mint:       r.hash(),
		Wallet:     r.identity(),
		CardID:     r.hash(),
		AttachedAt: r.i64(),
		Active:     r.bool(),
	}, nil
}

func encodeWhitelistStatus(s *whitelist.Status) []byte {
	w := newWriter(whitelistStatusSize)
	w.bytes(s.User[:])
	w.bool(s.Whitelisted)
	w.i64(s.WhitelistedAt)
	w.bytes(s.WhitelistedBy[:])
	w.u8(0)
	return w.buf
}

func decodeWhitelistStatus(b []byte) (*whitelist.Status, error) {
	if len(b) != whitelistStatusSize {
		return nil, sizeError("whitelist status", whitelistStatusSize, len(b))
	}
	r := &reader{buf: b}
	return &whitelist.Status{
		User:          r.identity(),
		Whitelisted:   r.bool(),
		WhitelistedAt: r.i64(),
		WhitelistedBy: r.identity(),
	}, nil
}

func encodeWhitelistRegistry(reg *whitelist.Registry) []byte {
	w := newWriter(whitelistRegistrySize)
	w.bytes(reg.Authority[:])
	w.bool(reg.Active)
	w.u64(reg.TotalUsers)
	w.u8(0)
	return w.buf
}

func decodeWhitelistRegistry(b []byte) (*whitelist.Registry, error) {
	if len(b) != whitelistRegistrySize {
		return nil, sizeError("whitelist registry", whitelistRegistrySize, len(b))
	}
	r := &reader{buf: b}
	return &whitelist.Registry{
		Authority:  r.identity(),
		Active:     r.bool(),
		TotalUsers: r.u64(),
	}, nil
}
