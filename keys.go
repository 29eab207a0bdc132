package authgate

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-errors"
)

// SigningAlgorithm is the only algorithm the gateway signs or accepts.
const SigningAlgorithm = "HS512"

// MinKeyBytes is the minimum key material length for HS512.
const MinKeyBytes = 64

// SigningKey is the resolved key material. Immutable once resolved; an
// ephemeral key is never persisted.
type SigningKey struct {
	Bytes     []byte
	Algorithm string
	Ephemeral bool
}

// KeyManager resolves and caches the process signing key. Resolution is
// lazy and happens at most once: the mutex serializes first callers while
// the atomic pointer keeps every later read lock-free. A weak configured
// secret is never cached, so each key-dependent operation keeps failing
// until the configuration is corrected.
type KeyManager struct {
	secret string
	logger Logger

	mu  sync.Mutex
	key atomic.Pointer[SigningKey]
}

// NewKeyManager returns a KeyManager for the configured secret. A blank
// secret selects the ephemeral single-instance fallback.
func NewKeyManager(secret string, logger Logger) *KeyManager {
	if logger == nil {
		logger = defLogger{}
	}
	return &KeyManager{secret: secret, logger: logger}
}

// Resolve returns the process signing key, computing it on first use.
func (m *KeyManager) Resolve() (*SigningKey, error) {
	if k := m.key.Load(); k != nil {
		return k, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if k := m.key.Load(); k != nil {
		return k, nil
	}

	k, err := m.compute()
	if err != nil {
		return nil, err
	}

	m.key.Store(k)
	return k, nil
}

func (m *KeyManager) compute() (*SigningKey, error) {
	if strings.TrimSpace(m.secret) == "" {
		m.logger.Warn(
			"signing secret is empty, generating a random in-memory %s key; tokens will not survive a restart and are not valid across instances",
			SigningAlgorithm,
		)
		material := make([]byte, MinKeyBytes)
		if _, err := rand.Read(material); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate ephemeral signing key")
		}
		return &SigningKey{Bytes: material, Algorithm: SigningAlgorithm, Ephemeral: true}, nil
	}

	// Try Base64 first; if that fails the literal secret bytes are the key.
	material, err := base64.StdEncoding.DecodeString(m.secret)
	if err != nil {
		material = []byte(m.secret)
	}

	if len(material) < MinKeyBytes {
		m.logger.Error(
			"signing secret decodes to %d bytes, below the %d byte minimum for %s",
			len(material), MinKeyBytes, SigningAlgorithm,
		)
		return nil, ErrWeakKey
	}

	return &SigningKey{Bytes: material, Algorithm: SigningAlgorithm}, nil
}
