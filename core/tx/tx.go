package tx

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"creditchain/core/types"
	"creditchain/crypto"
)

// Kind discriminates the command carried by an envelope.
type Kind byte

const (
	KindInitializeWhitelist Kind = 0x01
	KindAddToWhitelist      Kind = 0x02
	KindRemoveFromWhitelist Kind = 0x03

	KindDepositCollateral  Kind = 0x10
	KindWithdrawCollateral Kind = 0x11
	KindRefreshLock        Kind = 0x12

	KindCreateWallet    Kind = 0x20
	KindUpgradeCardTier Kind = 0x21

	KindMintBenefitToken   Kind = 0x30
	KindAttachBenefitToken Kind = 0x31
	KindDetachBenefitToken Kind = 0x32

	KindInitializeScore Kind = 0x40
	KindUpdateScore     Kind = 0x41

	KindSetYieldStrategy Kind = 0x50
	KindRouteYield       Kind = 0x51
	KindClaimYield       Kind = 0x52

	KindInitializeAuthorization Kind = 0x60
	KindSpend                   Kind = 0x61
	KindRevokeAuthorization     Kind = 0x62

	KindCreateInstallmentLoan Kind = 0x70
	KindMakePayment           Kind = 0x71
	KindCancelLoan            Kind = 0x72
	KindCheckRepayment        Kind = 0x73
)

var (
	errUnknownKind    = errors.New("tx: unknown command kind")
	errMissingPayload = errors.New("tx: missing payload")
	errBadSignature   = errors.New("tx: signature must be 65 bytes")
)

// Command payloads. The signer is always recovered from the envelope
// signature; payloads never carry the actor, so a command cannot claim an
// identity its signature does not prove.

type InitializeWhitelist struct{}

type AddToWhitelist struct {
	User types.Identity `json:"user"`
}

type RemoveFromWhitelist struct {
	User types.Identity `json:"user"`
}

type DepositCollateral struct {
	Asset    types.Identity `json:"asset"`
	Amount   uint64         `json:"amount"`
	LockDays uint16         `json:"lockDays"`
}

type WithdrawCollateral struct {
	Asset  types.Identity `json:"asset"`
	Amount uint64         `json:"amount"`
}

type RefreshLock struct {
	Asset types.Identity `json:"asset"`
}

type CreateWallet struct {
	CardTier uint8 `json:"cardTier"`
}

type UpgradeCardTier struct {
	NewTier uint8 `json:"newTier"`
}

type MintBenefitToken struct {
	Tier         uint8  `json:"tier"`
	Level        uint8  `json:"level"`
	DurationDays uint16 `json:"durationDays"`
}

type AttachBenefitToken struct {
	Mint   [32]byte `json:"mint"`
	CardID [32]byte `json:"cardId"`
}

type DetachBenefitToken struct{}

type InitializeScore struct{}

type UpdateScore struct {
	Owner  types.Identity `json:"owner"`
	Delta  int32          `json:"delta"`
	Reason string         `json:"reason"`
}

type SetYieldStrategy struct {
	Strategy     uint8          `json:"strategy"`
	AutoReinvest bool           `json:"autoReinvest"`
	Custom       types.Identity `json:"custom"`
}

type RouteYield struct {
	Owner  types.Identity `json:"owner"`
	Amount uint64         `json:"amount"`
}

type ClaimYield struct {
	Amount uint64 `json:"amount"`
}

type InitializeAuthorization struct {
	Amount       uint64 `json:"amount"`
	DurationDays uint16 `json:"durationDays"`
}

type Spend struct {
	Owner    types.Identity `json:"owner"`
	Merchant types.Identity `json:"merchant"`
	Amount   uint64         `json:"amount"`
}

type RevokeAuthorization struct{}

type CreateInstallmentLoan struct {
	Merchant     types.Identity `json:"merchant"`
	Amount       uint64         `json:"amount"`
	Installments uint8          `json:"installments"`
	IntervalDays uint8          `json:"intervalDays"`
}

type MakePayment struct {
	LoanID [32]byte `json:"loanId"`
}

type CancelLoan struct {
	LoanID [32]byte `json:"loanId"`
}

type CheckRepayment struct {
	LoanID [32]byte `json:"loanId"`
}

// Envelope is the signed wire form of a command. The digest covers kind,
// nonce, and payload; the 65-byte recoverable signature binds the signer
// identity to all three.
type Envelope struct {
	Kind      Kind            `json:"kind"`
	Nonce     uint64          `json:"nonce"`
	Payload   json.RawMessage `json:"payload"`
	Signature []byte          `json:"signature,omitempty"`
}

// NewEnvelope marshals the payload for the given kind.
func NewEnvelope(kind Kind, nonce uint64, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tx: encode payload: %w", err)
	}
	return &Envelope{Kind: kind, Nonce: nonce, Payload: raw}, nil
}

// Digest returns the 32-byte hash the signature covers.
func (e *Envelope) Digest() ([]byte, error) {
	body := struct {
		Kind    Kind            `json:"kind"`
		Nonce   uint64          `json:"nonce"`
		Payload json.RawMessage `json:"payload"`
	}{e.Kind, e.Nonce, e.Payload}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(raw)
	return digest[:], nil
}

// Sign attaches a recoverable signature over the envelope digest.
func (e *Envelope) Sign(key *crypto.PrivateKey) error {
	digest, err := e.Digest()
	if err != nil {
		return err
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return err
	}
	e.Signature = sig
	return nil
}

// Signer recovers the identity that signed the envelope.
func (e *Envelope) Signer() (types.Identity, error) {
	var id types.Identity
	if len(e.Signature) != 65 {
		return id, errBadSignature
	}
	digest, err := e.Digest()
	if err != nil {
		return id, err
	}
	return crypto.RecoverIdentity(digest, e.Signature)
}

// Decode unmarshals the payload into the concrete command for the envelope's
// kind.
func (e *Envelope) Decode() (any, error) {
	if len(e.Payload) == 0 {
		return nil, errMissingPayload
	}
	target, err := payloadFor(e.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("tx: decode %d payload: %w", e.Kind, err)
	}
	return target, nil
}

func payloadFor(kind Kind) (any, error) {
	switch kind {
	case KindInitializeWhitelist:
		return &InitializeWhitelist{}, nil
	case KindAddToWhitelist:
		return &AddToWhitelist{}, nil
	case KindRemoveFromWhitelist:
		return &RemoveFromWhitelist{}, nil
	case KindDepositCollateral:
		return &DepositCollateral{}, nil
	case KindWithdrawCollateral:
		return &WithdrawCollateral{}, nil
	case KindRefreshLock:
		return &RefreshLock{}, nil
	case KindCreateWallet:
		return &CreateWallet{}, nil
	case KindUpgradeCardTier:
		return &UpgradeCardTier{}, nil
	case KindMintBenefitToken:
		return &MintBenefitToken{}, nil
	case KindAttachBenefitToken:
		return &AttachBenefitToken{}, nil
	case KindDetachBenefitToken:
		return &DetachBenefitToken{}, nil
	case KindInitializeScore:
		return &InitializeScore{}, nil
	case KindUpdateScore:
		return &UpdateScore{}, nil
	case KindSetYieldStrategy:
		return &SetYieldStrategy{}, nil
	case KindRouteYield:
		return &RouteYield{}, nil
	case KindClaimYield:
		return &ClaimYield{}, nil
	case KindInitializeAuthorization:
		return &InitializeAuthorization{}, nil
	case KindSpend:
		return &Spend{}, nil
	case KindRevokeAuthorization:
		return &RevokeAuthorization{}, nil
	case KindCreateInstallmentLoan:
		return &CreateInstallmentLoan{}, nil
	case KindMakePayment:
		return &MakePayment{}, nil
	case KindCancelLoan:
		return &CancelLoan{}, nil
	case KindCheckRepayment:
		return &CheckRepayment{}, nil
	default:
		return nil, errUnknownKind
	}
}
