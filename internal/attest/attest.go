package attest

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// NonceIssuer hands out strictly increasing nonces per wallet. The nonce is
// bound into each attestation so a signature can be redeemed at most once.
type NonceIssuer interface {
	Next(wallet string) uint64
}

// CounterIssuer is the in-memory issuer: one monotonic counter per wallet.
type CounterIssuer struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewCounterIssuer() *CounterIssuer {
	return &CounterIssuer{counters: make(map[string]uint64)}
}

func (c *CounterIssuer) Next(wallet string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[wallet]++
	return c.counters[wallet]
}

// Signer produces signatures binding (round, wallet, solution hash, nonce)
// for later on-chain redemption.
type Signer interface {
	Sign(roundID int, wallet, solutionHash string, nonce uint64) (string, error)
	PubKey() string
}

// digest is the signed message: a blake256 hash over a versioned encoding
// of the attestation fields. Redeemers must recompute it the same way.
func digest(roundID int, wallet, solutionHash string, nonce uint64) [32]byte {
	return blake256.Sum256(fmt.Appendf(nil, "zktrials/attest/v1|%d|%s|%s|%d", roundID, wallet, solutionHash, nonce))
}

// SchnorrSigner signs attestation digests with a secp256k1 schnorr key.
type SchnorrSigner struct {
	priv *secp256k1.PrivateKey
}

// NewSchnorrSigner loads the signing key from a 32-byte hex seed, or
// generates a fresh key when the seed is empty.
func NewSchnorrSigner(seedHex string) (*SchnorrSigner, error) {
	if seedHex == "" {
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generating attestation key: %w", err)
		}
		return &SchnorrSigner{priv: priv}, nil
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decoding attestation key seed: %w", err)
	}
	if len(seed) != 32 {
		return nil, fmt.Errorf("attestation key seed must be 32 bytes, got %d", len(seed))
	}
	return &SchnorrSigner{priv: secp256k1.PrivKeyFromBytes(seed)}, nil
}

func (s *SchnorrSigner) Sign(roundID int, wallet, solutionHash string, nonce uint64) (string, error) {
	m := digest(roundID, wallet, solutionHash, nonce)
	sig, err := schnorr.Sign(s.priv, m[:])
	if err != nil {
		return "", fmt.Errorf("signing attestation: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// PubKey returns the compressed public key redeemers verify against.
func (s *SchnorrSigner) PubKey() string {
	return hex.EncodeToString(s.priv.PubKey().SerializeCompressed())
}

// VerifySignature checks an attestation signature against the signer's
// public key. Used by tests and by out-of-process redeemer tooling.
func VerifySignature(pubKeyHex, sigHex string, roundID int, wallet, solutionHash string, nonce uint64) (bool, error) {
	pkBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("decoding public key: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(pkBytes)
	if err != nil {
		return false, fmt.Errorf("parsing public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("decoding signature: %w", err)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("parsing signature: %w", err)
	}
	m := digest(roundID, wallet, solutionHash, nonce)
	return sig.Verify(m[:], pub), nil
}
