package handle

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultLength is the number of random bytes in a generated handle.
const DefaultLength = 32

// Generator produces opaque, high-entropy handles for single-use protocol
// artifacts. Handles are never derived from the stored content.
type Generator interface {
	Generate() (string, error)
}

type randomGenerator struct {
	length int
}

var _ Generator = randomGenerator{}

// NewGenerator returns a Generator producing base64url handles of length
// random bytes. Non-positive lengths fall back to DefaultLength.
func NewGenerator(length int) Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return randomGenerator{length: length}
}

func (g randomGenerator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
