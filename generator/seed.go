package generator

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// SeedRandom is the request seed value asking for a fresh random seed.
const SeedRandom = "random"

// RandomSeed generates a random non-negative seed for image generation.
// Uses crypto/rand; falls back to a fixed seed if the source fails, which is
// better than panicking in production.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 42
	}

	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	if seed < 0 {
		seed = -seed
	}
	// -MinInt64 == MinInt64, still negative
	if seed < 0 {
		seed = 0
	}
	return seed
}

// ResolveSeed turns a request seed string into a concrete value.
//
// "random", "" and negative integers all resolve to a fresh random seed.
// Resolution happens BEFORE fingerprinting so cache keys stay stable: the
// concrete integer is what gets fingerprinted and persisted, never the
// literal "random".
func ResolveSeed(raw string) (int64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == SeedRandom {
		return RandomSeed(), nil
	}

	seed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidSeed, raw)
	}
	if seed < 0 {
		return RandomSeed(), nil
	}
	return seed, nil
}
