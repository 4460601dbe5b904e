// Package rng provides cryptographically random values for shuffle seeding
package rng

import (
	"crypto/rand"
	"encoding/binary"
)

// Seed returns a strictly positive shuffle seed. Seeds must be positive so
// a completed hand can reveal its seed for replay verification.
func Seed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}

	seed := int64(binary.BigEndian.Uint64(b[:]) >> 1)
	if seed == 0 {
		seed = 1
	}

	return seed
}
