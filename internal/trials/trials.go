package trials

import (
	"crypto/sha256"
	"encoding/hex"
)

// AnswerKey reports whether a candidate solution solves a round's trial.
// The real key service runs outside this process; this is its boundary.
type AnswerKey interface {
	Validate(roundID int, solution string) bool
}

// StaticKey checks candidates against a fixed table of answer digests, one
// per round. It stores sha256 digests rather than plaintext answers so a
// process dump never yields the solutions themselves.
type StaticKey struct {
	digests map[int]string
}

// NewStaticKey builds a key from plaintext answers keyed by round id.
func NewStaticKey(answers map[int]string) *StaticKey {
	digests := make(map[int]string, len(answers))
	for round, answer := range answers {
		sum := sha256.Sum256([]byte(answer))
		digests[round] = hex.EncodeToString(sum[:])
	}
	return &StaticKey{digests: digests}
}

func (k *StaticKey) Validate(roundID int, solution string) bool {
	want, ok := k.digests[roundID]
	if !ok {
		return false
	}
	sum := sha256.Sum256([]byte(solution))
	return hex.EncodeToString(sum[:]) == want
}
