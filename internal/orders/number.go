package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderNumberPrefix = "TTS"

var randomSuffixMax = big.NewInt(10000)

// NewOrderNumber builds a human-facing order number of the form
// TTS-YYYYMMDD-NNNN where NNNN is a random four digit suffix. Collisions are
// possible within a day and are handled by the caller retrying on the unique
// constraint.
func NewOrderNumber(now time.Time) (string, error) {
	suffix, err := rand.Int(rand.Reader, randomSuffixMax)
	if err != nil {
		return "", fmt.Errorf("generating order number suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", orderNumberPrefix, now.Format("20060102"), suffix.Int64()), nil
}
