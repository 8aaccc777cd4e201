package keys

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/numscull/go-numscull/lib/crypto"
	"github.com/numscull/go-numscull/lib/wire"
)

// ServerKeystore holds the server's static keypair at
// <dir>/server.keypair (64 bytes, public then secret).
type ServerKeystore struct {
	dir string
}

func NewServerKeystore(configDir string) *ServerKeystore {
	return &ServerKeystore{dir: configDir}
}

func (ks *ServerKeystore) path() string {
	return filepath.Join(ks.dir, "server.keypair")
}

// LoadOrCreate returns the server static keypair, generating and
// persisting a fresh one on first run.
func (ks *ServerKeystore) LoadOrCreate() (pub, sec [wire.KeyLen]byte, err error) {
	raw, err := os.ReadFile(ks.path())
	if err == nil && len(raw) == identityFileSize {
		copy(pub[:], raw[:wire.KeyLen])
		copy(sec[:], raw[wire.KeyLen:])
		return pub, sec, nil
	}
	pub, sec, err = crypto.GenerateKeypair()
	if err != nil {
		return pub, sec, err
	}
	if err = os.MkdirAll(ks.dir, 0o700); err != nil {
		return pub, sec, oops.Errorf("keys: creating %s: %w", ks.dir, err)
	}
	out := append(append(make([]byte, 0, identityFileSize), pub[:]...), sec[:]...)
	if err = os.WriteFile(ks.path(), out, 0o600); err != nil {
		return pub, sec, oops.Errorf("keys: writing server keypair: %w", err)
	}
	log.Debug("server_keypair_created")
	return pub, sec, nil
}

// LookupUserPublic finds a client identity's public key on the server
// side: <dir>/users/<identity>.pub (32 bytes), falling back to the full
// identity file under identities/.
func LookupUserPublic(configDir, identity string) (pub [wire.KeyLen]byte, err error) {
	raw, err := os.ReadFile(filepath.Join(configDir, "users", identity+".pub"))
	if err == nil {
		if len(raw) < wire.KeyLen {
			return pub, oops.Errorf("%w: user key for %s is %d bytes", ErrInvalidKeyFormat, identity, len(raw))
		}
		copy(pub[:], raw[:wire.KeyLen])
		return pub, nil
	}
	raw, err = os.ReadFile(filepath.Join(configDir, "identities", identity))
	if err != nil {
		return pub, oops.Errorf("%w: %s", ErrIdentityNotFound, identity)
	}
	if len(raw) < wire.KeyLen {
		return pub, oops.Errorf("%w: identity file for %s is %d bytes", ErrInvalidKeyFormat, identity, len(raw))
	}
	copy(pub[:], raw[:wire.KeyLen])
	return pub, nil
}
