package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
)

// GenerateGameCode creates a random, human-friendly game code
func GenerateGameCode() string {
	code := make([]byte, GameCodeLength)
	for i := range GameCodeLength {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(GameCodeChars))))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = GameCodeChars[rand.IntN(len(GameCodeChars))]
			continue
		}
		code[i] = GameCodeChars[n.Int64()]
	}
	return string(code)
}

// UniqueGameCode generates a game code that taken does not report as in use
func UniqueGameCode(taken func(code string) bool) string {
	for {
		code := GenerateGameCode()
		if !taken(code) {
			return code
		}
	}
}
