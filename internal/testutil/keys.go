package testutil

import (
	"sync"
	"testing"

	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// TestRSABits keeps key generation in tests fast.
const TestRSABits = pgp.MinRSABits

var keyCache sync.Map

// KeyPair returns a real key pair for address, generated once per test binary.
func KeyPair(t testing.TB, address, passphrase string) model.KeyPair {
	t.Helper()

	cacheKey := address + "\x00" + passphrase
	if kp, ok := keyCache.Load(cacheKey); ok {
		return kp.(model.KeyPair)
	}

	kp, err := pgp.NewForge(TestRSABits).GenerateKeyPair(address, []byte(passphrase))
	if err != nil {
		t.Fatalf("failed to generate test key pair: %v", err)
	}
	actual, _ := keyCache.LoadOrStore(cacheKey, kp)
	return actual.(model.KeyPair)
}
