package crypto

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// The authority signing key rests on disk as a passphrase-encrypted v3
// keystore file (scrypt at standard parameters). The node loads it once at
// startup; the plaintext key never touches disk.

// SaveToKeystore encrypts the signing key under the passphrase and writes it
// to path as a single keystore file with 0600 permissions. An existing file at
// path is replaced.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	if key == nil {
		return errors.New("cannot persist a nil signing key")
	}
	if path == "" {
		return errors.New("keystore path must not be empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// The keystore package only writes into a directory it manages, so the
	// key is imported into a scratch directory and the resulting file is
	// renamed into place.
	scratch, err := os.MkdirTemp(dir, "keystore-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	ks := keystore.NewKeyStore(scratch, keystore.StandardScryptN, keystore.StandardScryptP)
	if _, err := ks.ImportECDSA(key.PrivateKey, passphrase); err != nil {
		return fmt.Errorf("encrypt signing key: %w", err)
	}
	written, err := os.ReadDir(scratch)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		return errors.New("keystore import produced no file")
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(filepath.Join(scratch, written[0].Name()), path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// LoadFromKeystore decrypts the keystore file at path and returns the signing
// key. A wrong passphrase surfaces as the keystore package's decryption error.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("keystore path must not be empty")
	}
	encrypted, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey(encrypted, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", filepath.Base(path), err)
	}
	return &PrivateKey{PrivateKey: key.PrivateKey}, nil
}
