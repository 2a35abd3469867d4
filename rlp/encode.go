package rlp

import (
	"github.com/holiman/uint256"
)

// EncodeString returns the canonical RLP encoding of a byte string.
func EncodeString(b []byte) []byte {
	if len(b) == 1 && b[0] < shortStringOffset {
		return []byte{b[0]}
	}
	return append(encodeHead(shortStringOffset, longStringOffset, len(b)), b...)
}

// EncodeUint64 returns the canonical RLP scalar encoding of i: the shortest
// big-endian byte string with no leading zero, empty for zero.
func EncodeUint64(i uint64) []byte {
	return EncodeString(trimLeadingZeros(beUint64(i)))
}

// EncodeUint256 returns the canonical RLP scalar encoding of i.
func EncodeUint256(i *uint256.Int) []byte {
	if i == nil || i.IsZero() {
		return []byte{shortStringOffset}
	}
	b := i.Bytes() // uint256.Bytes() already omits leading zero bytes
	return EncodeString(b)
}

// EncodeList concatenates the already-encoded items and prepends the
// canonical list header for their combined length.
func EncodeList(items ...[]byte) []byte {
	total := 0
	for _, it := range items {
		total += len(it)
	}
	out := encodeHead(shortListOffset, longListOffset, total)
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// encodeHead builds the length-prefix bytes for a string or list of the
// given content length, using shortOffset for the 0-55 byte range and
// longOffset+lenOfLen for longer content, matching the canonical RLP rules.
func encodeHead(shortOffset, longOffset, length int) []byte {
	if length <= 55 {
		return []byte{byte(shortOffset + length)}
	}
	lb := trimLeadingZeros(beUint64(uint64(length)))
	head := make([]byte, 0, 1+len(lb))
	head = append(head, byte(longOffset+len(lb)))
	head = append(head, lb...)
	return head
}

func beUint64(i uint64) []byte {
	b := make([]byte, 8)
	for idx := 7; idx >= 0; idx-- {
		b[idx] = byte(i)
		i >>= 8
	}
	return b
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}
