package proof

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"
)

// Artifact is the opaque output of proof generation. Verify only trusts an
// artifact it can recompute the commitment for.
type Artifact struct {
	RoundID      int    `json:"round_id"`
	Wallet       string `json:"wallet"`
	SolutionHash string `json:"solution_hash"`
	Commitment   string `json:"commitment"`
}

// Prover produces and checks proof artifacts for validated solutions. The
// zero-knowledge prover itself lives outside this process; the coordinator
// only invokes it through this contract. Generate receives the raw solution
// as the private witness alongside its public hash; the witness never
// appears in the artifact.
type Prover interface {
	Generate(ctx context.Context, solution, solutionHash, wallet string, roundID int) (Artifact, error)
	Verify(ctx context.Context, art Artifact) (bool, error)
}

// LocalProver is a keyed-commitment stand-in for the external zk prover,
// good enough for local play and tests. The commitment binds round, wallet
// and solution hash under a per-process secret, so an artifact cannot be
// forged or replayed against different fields.
type LocalProver struct {
	secret []byte
}

func NewLocalProver() (*LocalProver, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating prover secret: %w", err)
	}
	return &LocalProver{secret: secret}, nil
}

func (p *LocalProver) commit(solutionHash, wallet string, roundID int) string {
	h := blake256.New()
	h.Write(p.secret)
	fmt.Fprintf(h, "|%d|%s|%s", roundID, wallet, solutionHash)
	return hex.EncodeToString(h.Sum(nil))
}

func (p *LocalProver) Generate(ctx context.Context, solution, solutionHash, wallet string, roundID int) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if solution == "" || solutionHash == "" || wallet == "" {
		return Artifact{}, fmt.Errorf("solution, solution hash and wallet are required")
	}
	digest := sha256.Sum256([]byte(solution))
	if hex.EncodeToString(digest[:]) != solutionHash {
		return Artifact{}, fmt.Errorf("witness does not match solution hash")
	}
	return Artifact{
		RoundID:      roundID,
		Wallet:       wallet,
		SolutionHash: solutionHash,
		Commitment:   p.commit(solutionHash, wallet, roundID),
	}, nil
}

func (p *LocalProver) Verify(ctx context.Context, art Artifact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return art.Commitment == p.commit(art.SolutionHash, art.Wallet, art.RoundID), nil
}
