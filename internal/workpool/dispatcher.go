package workpool

import (
	"context"
	"errors"
	"time"

	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
	"github.com/dtroode/pgpmail-server/internal/metrics"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// Forge generates key pairs synchronously.
type Forge interface {
	GenerateKeyPair(ownerAddress string, passphrase []byte) (model.KeyPair, error)
}

// Engine performs synchronous encryption and decryption.
type Engine interface {
	Encrypt(plaintext []byte, publicKeyArmored string) (string, error)
	Decrypt(ciphertextArmored, privateKeyArmored string, passphrase []byte) ([]byte, error)
	VerifyPassphrase(privateKeyArmored string, passphrase []byte) error
}

var (
	_ model.KeyForge     = (*Dispatcher)(nil)
	_ model.CryptoEngine = (*Dispatcher)(nil)
)

// Dispatcher runs a Forge and an Engine on pool lanes and records metrics.
type Dispatcher struct {
	pool    *Pool
	forge   Forge
	engine  Engine
	metrics *metrics.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(pool *Pool, forge Forge, engine Engine, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{pool: pool, forge: forge, engine: engine, metrics: m}
}

// GenerateKeyPair runs key generation on the keygen lane.
func (d *Dispatcher) GenerateKeyPair(ctx context.Context, ownerAddress string, passphrase []byte) (model.KeyPair, error) {
	var (
		kp    model.KeyPair
		opErr error
	)
	err := d.pool.Run(ctx, LaneKeygen, func() {
		start := time.Now()
		kp, opErr = d.forge.GenerateKeyPair(ownerAddress, passphrase)
		d.metrics.ObserveCrypto("generate_key_pair", start, resultLabel(opErr))
	})
	if err != nil {
		return model.KeyPair{}, err
	}

	return kp, opErr
}

// Encrypt runs encryption on the crypto lane.
func (d *Dispatcher) Encrypt(ctx context.Context, plaintext []byte, publicKeyArmored string) (string, error) {
	var (
		ciphertext string
		opErr      error
	)
	err := d.pool.Run(ctx, LaneCrypto, func() {
		start := time.Now()
		ciphertext, opErr = d.engine.Encrypt(plaintext, publicKeyArmored)
		d.metrics.ObserveCrypto("encrypt", start, resultLabel(opErr))
	})
	if err != nil {
		return "", err
	}

	return ciphertext, opErr
}

// Decrypt runs decryption on the crypto lane.
func (d *Dispatcher) Decrypt(ctx context.Context, ciphertextArmored, privateKeyArmored string, passphrase []byte) ([]byte, error) {
	var (
		plaintext []byte
		opErr     error
	)
	err := d.pool.Run(ctx, LaneCrypto, func() {
		start := time.Now()
		plaintext, opErr = d.engine.Decrypt(ciphertextArmored, privateKeyArmored, passphrase)
		d.metrics.ObserveCrypto("decrypt", start, resultLabel(opErr))
	})
	if err != nil {
		return nil, err
	}

	return plaintext, opErr
}

// VerifyPassphrase runs a passphrase check on the crypto lane.
func (d *Dispatcher) VerifyPassphrase(ctx context.Context, privateKeyArmored string, passphrase []byte) error {
	var opErr error
	err := d.pool.Run(ctx, LaneCrypto, func() {
		start := time.Now()
		opErr = d.engine.VerifyPassphrase(privateKeyArmored, passphrase)
		d.metrics.ObserveCrypto("verify_passphrase", start, resultLabel(opErr))
	})
	if err != nil {
		return err
	}

	return opErr
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pgp.ErrInvalidKeyFormat):
		return "invalid_key"
	case errors.Is(err, pgp.ErrInvalidPassphrase):
		return "invalid_passphrase"
	default:
		return "error"
	}
}
