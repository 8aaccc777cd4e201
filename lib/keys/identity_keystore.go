// Package keys stores and loads the long-lived X25519 identity keypairs
// used to authenticate the numscull key exchange. An identity file is 64
// bytes: the public key followed by the secret key.
package keys

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/numscull/go-numscull/lib/crypto"
	"github.com/numscull/go-numscull/lib/util/logger"
	"github.com/numscull/go-numscull/lib/wire"
)

var log = logger.GetNumscullLogger()

const identityFileSize = 2 * wire.KeyLen

var (
	ErrIdentityNotFound = errors.New("keys: identity not found")
	ErrInvalidKeyFormat = errors.New("keys: invalid key format")
)

// IdentityKeystore loads and stores one named identity keypair under
// <dir>/identities/<name>.
type IdentityKeystore struct {
	dir  string
	name string
}

// NewIdentityKeystore creates a keystore rooted at configDir for the
// named identity. No filesystem access happens until Load or Store.
func NewIdentityKeystore(configDir, name string) *IdentityKeystore {
	return &IdentityKeystore{dir: configDir, name: name}
}

func (ks *IdentityKeystore) path() string {
	return filepath.Join(ks.dir, "identities", ks.name)
}

// Load reads the identity file and splits it into its keypair.
func (ks *IdentityKeystore) Load() (pub, sec [wire.KeyLen]byte, err error) {
	raw, err := os.ReadFile(ks.path())
	if err != nil {
		if os.IsNotExist(err) {
			return pub, sec, oops.Errorf("%w: %s", ErrIdentityNotFound, ks.name)
		}
		return pub, sec, oops.Errorf("keys: reading identity %s: %w", ks.name, err)
	}
	if len(raw) != identityFileSize {
		return pub, sec, oops.Errorf("%w: expected %d-byte identity file, got %d",
			ErrInvalidKeyFormat, identityFileSize, len(raw))
	}
	copy(pub[:], raw[:wire.KeyLen])
	copy(sec[:], raw[wire.KeyLen:])
	log.WithFields(logrus.Fields{
		"at":       "keys.Load",
		"identity": ks.name,
	}).Debug("identity_loaded")
	return pub, sec, nil
}

// Store writes the keypair to the identity file, creating the
// identities directory if needed.
func (ks *IdentityKeystore) Store(pub, sec [wire.KeyLen]byte) error {
	dir := filepath.Join(ks.dir, "identities")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Errorf("keys: creating %s: %w", dir, err)
	}
	raw := make([]byte, 0, identityFileSize)
	raw = append(raw, pub[:]...)
	raw = append(raw, sec[:]...)
	if err := os.WriteFile(ks.path(), raw, 0o600); err != nil {
		return oops.Errorf("keys: writing identity %s: %w", ks.name, err)
	}
	return nil
}

// Provision loads the identity keypair, generating and storing a fresh
// one if no identity file exists yet. Used by the out-of-band keygen
// step, never by the connection path.
func (ks *IdentityKeystore) Provision() (pub, sec [wire.KeyLen]byte, created bool, err error) {
	pub, sec, err = ks.Load()
	if err == nil {
		return pub, sec, false, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return pub, sec, false, err
	}
	pub, sec, err = crypto.GenerateKeypair()
	if err != nil {
		return pub, sec, false, err
	}
	if err = ks.Store(pub, sec); err != nil {
		return pub, sec, false, err
	}
	log.WithField("identity", ks.name).Debug("identity_provisioned")
	return pub, sec, true, nil
}
