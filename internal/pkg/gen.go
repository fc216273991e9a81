package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const maxMatchID = 99999999

// GenerateMatchID - random decimal id in [0, 99999999).
func GenerateMatchID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxMatchID))
	if err != nil {
		return "", fmt.Errorf("failed to generate match id: %w", err)
	}

	return n.String(), nil
}

// GenerateSessionID - opaque id handed to players and observers.
func GenerateSessionID() string {
	return uuid.NewString()
}

// GenerateBotSessionID - bot sessions carry a prefix so logs tell them apart.
func GenerateBotSessionID() string {
	return "bot:" + uuid.NewString()
}

func GenerateConnectionID() string {
	return uuid.NewString()
}
