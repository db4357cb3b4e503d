package tool

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateShortID returns 8 hex chars, used to suffix MQTT client ids so two controllers never collide.
func GenerateShortID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return GenerateRandomUUID()[:8]
	}
	return hex.EncodeToString(b)
}
