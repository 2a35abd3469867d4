package common

import (
	"encoding/hex"
	"math/big"
	"math/bits"
	"strings"

	"github.com/ethforge/txpool-core/common/length"
)

// Hash is a 32-byte Keccak-256 digest.
type Hash [length.Hash]byte

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// BytesToHash returns Hash with value b.
// If b is larger than len(h), b will be cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > length.Hash {
		b = b[len(b)-length.Hash:]
	}
	copy(h[length.Hash-len(b):], b)
	return h
}

// HexToHash returns Hash with byte values of s.
func HexToHash(s string) Hash {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}
	}
	return BytesToHash(b)
}

// BigToHash sets byte representation of b to hash.
// If b is larger than len(h), b will be cropped from the left.
func BigToHash(b *big.Int) Hash { return BytesToHash(b.Bytes()) }

// Copy returns a freshly allocated copy of b.
func Copy(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// BitLenToByteLen returns the minimal number of bytes required to hold a
// value of the given bit length; 0 bits needs 0 bytes.
func BitLenToByteLen(bitLen int) int {
	return (bitLen + 7) / 8
}

// ByteLenOfUint64 mirrors BitLenToByteLen for a raw uint64, handy in the RLP
// scalar encoder.
func ByteLenOfUint64(v uint64) int {
	return BitLenToByteLen(bits.Len64(v))
}
