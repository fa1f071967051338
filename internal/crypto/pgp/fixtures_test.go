package pgp

import (
	"sync"
	"testing"

	"github.com/dtroode/pgpmail-server/internal/model"
)

const (
	testBits       = 2048
	testPassphrase = "correct horse battery staple"
)

var (
	fixtureOnce sync.Once
	fixtureA    model.KeyPair
	fixtureB    model.KeyPair
	fixtureErr  error
)

// fixtures generates two key pairs once per test binary; RSA generation
// dominates the run time otherwise.
func fixtures(t *testing.T) (model.KeyPair, model.KeyPair) {
	t.Helper()

	fixtureOnce.Do(func() {
		forge := NewForge(testBits)
		fixtureA, fixtureErr = forge.GenerateKeyPair("a@x.com", []byte(testPassphrase))
		if fixtureErr != nil {
			return
		}
		fixtureB, fixtureErr = forge.GenerateKeyPair("b@x.com", []byte(testPassphrase))
	})
	if fixtureErr != nil {
		t.Fatalf("failed to generate fixture keys: %v", fixtureErr)
	}

	return fixtureA, fixtureB
}
