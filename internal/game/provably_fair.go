package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/lameck-sudo/aviator-game/internal/rng"
)

// SALT_BYTES is the size of the secret salt mixed into the seed commitment. A seed
// has only 2^32 values, so without it the commitment could be brute forced.
const SALT_BYTES = 32

// NewSalt returns SALT_BYTES of crypto/rand, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, SALT_BYTES)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SeedCommitment is HMAC-SHA256 of the decimal seed keyed by the salt. It is
// published before play; salt and seed are revealed together afterwards.
func SeedCommitment(salt string, seed uint32) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(strconv.FormatUint(uint64(seed), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// CrashPointFor replays the generator and returns the crash point of the given round.
// Round k consumes the k-th draw, counting from 1.
func CrashPointFor(seed uint32, round uint64, houseEdge float64) float64 {
	if round == 0 {
		return 0
	}
	gen := rng.New(seed)
	var draw float64
	for i := uint64(0); i < round; i++ {
		draw = gen.Float64()
	}
	return ComputeCrashPoint(draw, houseEdge)
}

// VerifyRound reports whether claimed matches the replayed crash point.
func VerifyRound(seed uint32, round uint64, houseEdge, claimed float64) bool {
	if round == 0 {
		return false
	}
	// Allow small floating point differences
	return math.Abs(CrashPointFor(seed, round, houseEdge)-claimed) < 0.001
}

// VerifyCommitment checks a revealed salt and seed against the published commitment.
func VerifyCommitment(salt string, seed uint32, commitment string) bool {
	return hmac.Equal([]byte(SeedCommitment(salt, seed)), []byte(commitment))
}
