package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"zktrials/internal/attest"
	"zktrials/internal/game"
	"zktrials/internal/proof"
	"zktrials/internal/queue"
	"zktrials/internal/trials"
)

var (
	ErrValidation        = errors.New("missing or malformed submission fields")
	ErrIncorrectSolution = errors.New("solution is incorrect")
	ErrProofGeneration   = errors.New("proof generation failed")
	ErrProofVerification = errors.New("proof verification failed")
)

type Request struct {
	RoomID   string
	Wallet   string
	RoundID  int
	Solution string
}

// Attestation is handed back to the caller, who owns its on-chain
// redemption. The player's score is never part of the response.
type Attestation struct {
	Signature    string `json:"signature"`
	SolutionHash string `json:"solution_hash"`
	Nonce        uint64 `json:"nonce"`
	RoundID      int    `json:"round_id"`
	Player       string `json:"player"`
}

type Result struct {
	RoundComplete    bool
	AlreadySubmitted bool
	Attestation      Attestation
}

// Pipeline chains answer validation, proof generation and verification,
// scoring, and attestation signing into one submission operation. Any
// failing step aborts the whole thing with no state committed.
type Pipeline struct {
	coord  *game.Coordinator
	key    trials.AnswerKey
	prover proof.Prover
	nonces attest.NonceIssuer
	signer attest.Signer
	outbox *queue.Outbox
	logger *slog.Logger
}

func New(coord *game.Coordinator, key trials.AnswerKey, prover proof.Prover, nonces attest.NonceIssuer, signer attest.Signer, outbox *queue.Outbox, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		coord:  coord,
		key:    key,
		prover: prover,
		nonces: nonces,
		signer: signer,
		outbox: outbox,
		logger: logger,
	}
}

// Submit runs one submission end to end. The cryptographic steps run on
// transient data outside any room lock; only the scoring step serializes
// against the room.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Result, error) {
	if req.RoomID == "" || req.Wallet == "" || req.Solution == "" || req.RoundID < 1 {
		return Result{}, ErrValidation
	}

	// Wrong answers are rejected before any proof work happens, so proof
	// generation timing never leaks anything about incorrect guesses.
	if !p.key.Validate(req.RoundID, req.Solution) {
		return Result{}, ErrIncorrectSolution
	}

	sum := sha256.Sum256([]byte(req.Solution))
	solutionHash := hex.EncodeToString(sum[:])

	art, err := p.prover.Generate(ctx, req.Solution, solutionHash, req.Wallet, req.RoundID)
	if err != nil {
		p.logger.Error("proof generation failed", "room_id", req.RoomID, "round", req.RoundID, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}

	valid, err := p.prover.Verify(ctx, art)
	if err != nil {
		p.logger.Error("proof verification errored", "room_id", req.RoomID, "round", req.RoundID, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrProofVerification, err)
	}
	if !valid {
		return Result{}, ErrProofVerification
	}

	outcome, err := p.coord.RecordAcceptedSubmission(req.RoomID, req.Wallet, req.RoundID, solutionHash)
	if err != nil {
		return Result{}, err
	}

	nonce := p.nonces.Next(req.Wallet)
	signature, err := p.signer.Sign(req.RoundID, req.Wallet, solutionHash, nonce)
	if err != nil {
		return Result{}, err
	}

	att := Attestation{
		Signature:    signature,
		SolutionHash: solutionHash,
		Nonce:        nonce,
		RoundID:      req.RoundID,
		Player:       req.Wallet,
	}

	// Best effort: the caller already holds the attestation either way.
	if err := p.outbox.Publish(ctx, att); err != nil {
		p.logger.Warn("attestation publish failed", "room_id", req.RoomID, "round", req.RoundID, "error", err)
	}

	p.logger.Info("submission accepted",
		"room_id", req.RoomID,
		"round", req.RoundID,
		"round_complete", outcome.RoundComplete,
		"finished", outcome.Finished)

	return Result{
		RoundComplete:    outcome.RoundComplete,
		AlreadySubmitted: outcome.AlreadySubmitted,
		Attestation:      att,
	}, nil
}
