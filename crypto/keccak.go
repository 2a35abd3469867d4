package crypto

import (
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/ethforge/txpool-core/common"
)

// NewKeccakState returns a new Keccak-256 hash.Hash. Calling Read on the
// returned state squeezes the digest without the copy Sum makes; after a
// Read the state accepts no further Write until it is Reset.
func NewKeccakState() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) common.Hash {
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b) //nolint:errcheck // hash.Hash.Write never errors
	}
	var h common.Hash
	d.(interface {
		Read([]byte) (int, error)
	}).Read(h[:])
	return h
}
