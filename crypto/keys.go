package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable prefixes used by creditchain
// identities.
type AddressPrefix string

const (
	// UserPrefix is carried by end-user identities (cardholders, merchants).
	UserPrefix AddressPrefix = "crd"
	// ModulePrefix is carried by protocol-controlled custody identities.
	ModulePrefix AddressPrefix = "crdm"
)

// IdentityLength is the byte width of every on-ledger identity. Record layouts
// reserve exactly this many bytes per identity field.
const IdentityLength = 32

// Address represents a 32-byte creditchain identity with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != IdentityLength {
		panic("address must be 32 bytes long")
	}
	return Address{prefix: prefix, bytes: b}
}

// MustNewAddress clones the provided bytes before constructing the address so
// callers cannot mutate the stored identity.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	cloned := append([]byte(nil), b...)
	return NewAddress(prefix, cloned)
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// Equal reports whether two addresses carry the same identity bytes.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.bytes, other.bytes)
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != IdentityLength {
		return Address{}, fmt.Errorf("identity must be %d bytes, got %d", IdentityLength, len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Identity derives the 32-byte ledger identity for the public key: the
// keccak256 digest of the uncompressed key without the format byte.
func (k *PublicKey) Identity() [IdentityLength]byte {
	raw := ethcrypto.FromECDSAPub(k.PublicKey)
	var id [IdentityLength]byte
	copy(id[:], ethcrypto.Keccak256(raw[1:]))
	return id
}

func (k *PublicKey) Address() Address {
	id := k.Identity()
	return MustNewAddress(UserPrefix, id[:])
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Sign produces a 65-byte recoverable signature over the supplied digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	return ethcrypto.Sign(digest, k.PrivateKey)
}

// RecoverIdentity recovers the signer identity from a 65-byte recoverable
// signature over the supplied digest.
func RecoverIdentity(digest, sig []byte) ([IdentityLength]byte, error) {
	var id [IdentityLength]byte
	if len(digest) != 32 {
		return id, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return id, err
	}
	raw := ethcrypto.FromECDSAPub(pub)
	copy(id[:], ethcrypto.Keccak256(raw[1:]))
	return id, nil
}
