package proof

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashOf(solution string) string {
	digest := sha256.Sum256([]byte(solution))
	return hex.EncodeToString(digest[:])
}

func TestLocalProverRoundTrip(t *testing.T) {
	p, err := NewLocalProver()
	require.NoError(t, err)

	ctx := context.Background()
	art, err := p.Generate(ctx, "open sesame", hashOf("open sesame"), "0xalice", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, art.RoundID)
	assert.Equal(t, "0xalice", art.Wallet)

	ok, err := p.Verify(ctx, art)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalProverRejectsTampering(t *testing.T) {
	p, err := NewLocalProver()
	require.NoError(t, err)

	ctx := context.Background()
	art, err := p.Generate(ctx, "open sesame", hashOf("open sesame"), "0xalice", 2)
	require.NoError(t, err)

	tampered := art
	tampered.Wallet = "0xmallory"
	ok, err := p.Verify(ctx, tampered)
	require.NoError(t, err)
	assert.False(t, ok, "artifact must not transfer to another wallet")

	tampered = art
	tampered.RoundID = 3
	ok, err = p.Verify(ctx, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalProverArtifactsDoNotCrossVerify(t *testing.T) {
	a, err := NewLocalProver()
	require.NoError(t, err)
	b, err := NewLocalProver()
	require.NoError(t, err)

	ctx := context.Background()
	art, err := a.Generate(ctx, "open sesame", hashOf("open sesame"), "0xalice", 1)
	require.NoError(t, err)

	ok, err := b.Verify(ctx, art)
	require.NoError(t, err)
	assert.False(t, ok, "a different prover's secret must not accept the artifact")
}

func TestLocalProverRejectsMismatchedWitness(t *testing.T) {
	p, err := NewLocalProver()
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "wrong witness", hashOf("open sesame"), "0xalice", 1)
	assert.Error(t, err)
}

func TestLocalProverRequiresFields(t *testing.T) {
	p, err := NewLocalProver()
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "", hashOf("open sesame"), "0xalice", 1)
	assert.Error(t, err)
}
