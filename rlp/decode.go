// Package rlp implements the canonical Recursive-Length-Prefix encoding used
// throughout the Ethereum wire protocol. The decoder is deliberately strict:
// non-minimal scalars, non-minimal length prefixes, and under/overrun all
// fail with an error wrapping ErrParse, rather than silently accepting
// non-canonical input.
package rlp

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	shortStringOffset = 0x80
	longStringOffset  = 0xb7
	shortListOffset   = 0xc0
	longListOffset    = 0xf7
)

// Prefix parses the RLP element header located at payload[pos] and returns
// the position and length of its content, plus whether the element is a
// list. It does not advance past the content.
func Prefix(payload []byte, pos int) (dataPos, dataLen int, isList bool, err error) {
	if pos >= len(payload) {
		return 0, 0, false, fmt.Errorf("%w: unexpected end of payload, want prefix byte", ErrParse)
	}
	first := payload[pos]
	switch {
	case first < shortStringOffset:
		return pos, 1, false, nil
	case first <= longStringOffset:
		// short string: 0x80 + len, len in [0, 55]
		l := int(first) - shortStringOffset
		dataPos = pos + 1
		if dataPos+l > len(payload) {
			return 0, 0, false, fmt.Errorf("%w: short string overrun", ErrParse)
		}
		if l == 1 && payload[dataPos] < shortStringOffset {
			return 0, 0, false, fmt.Errorf("%w: non-canonical single-byte string", ErrParse)
		}
		return dataPos, l, false, nil
	case first < shortListOffset:
		// long string: 0xb7 + lenOfLen, followed by big-endian length > 55
		lenOfLen := int(first) - longStringOffset
		return parseLongForm(payload, pos, lenOfLen, false)
	case first <= longListOffset:
		// short list: 0xc0 + len, len in [0, 55]
		l := int(first) - shortListOffset
		dataPos = pos + 1
		if dataPos+l > len(payload) {
			return 0, 0, false, fmt.Errorf("%w: short list overrun", ErrParse)
		}
		return dataPos, l, true, nil
	default:
		// long list: 0xf7 + lenOfLen, followed by big-endian length > 55
		lenOfLen := int(first) - longListOffset
		return parseLongForm(payload, pos, lenOfLen, true)
	}
}

func parseLongForm(payload []byte, pos, lenOfLen int, isList bool) (dataPos, dataLen int, isListOut bool, err error) {
	if lenOfLen == 0 || lenOfLen > 8 {
		return 0, 0, false, fmt.Errorf("%w: invalid length-of-length %d", ErrParse, lenOfLen)
	}
	lenPos := pos + 1
	if lenPos+lenOfLen > len(payload) {
		return 0, 0, false, fmt.Errorf("%w: length prefix overrun", ErrParse)
	}
	if payload[lenPos] == 0 {
		return 0, 0, false, fmt.Errorf("%w: non-canonical length prefix (leading zero)", ErrParse)
	}
	var lenBuf [8]byte
	copy(lenBuf[8-lenOfLen:], payload[lenPos:lenPos+lenOfLen])
	l64 := binary.BigEndian.Uint64(lenBuf[:])
	if l64 <= 55 {
		return 0, 0, false, fmt.Errorf("%w: non-canonical long-form length %d", ErrParse, l64)
	}
	if l64 > uint64(^uint(0)>>1) {
		return 0, 0, false, fmt.Errorf("%w: length too large", ErrParse)
	}
	l := int(l64)
	dataPos = lenPos + lenOfLen
	if dataPos+l > len(payload) || dataPos+l < 0 {
		return 0, 0, false, fmt.Errorf("%w: long-form content overrun", ErrParse)
	}
	return dataPos, l, isList, nil
}

// String parses the RLP element at pos and requires it to be a string
// (byte-array) element, returning the position and length of its content.
func String(payload []byte, pos int) (dataPos, dataLen int, err error) {
	dataPos, dataLen, isList, err := Prefix(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	if isList {
		return 0, 0, fmt.Errorf("%w: expected string, got list", ErrParse)
	}
	return dataPos, dataLen, nil
}

// List parses the RLP element at pos and requires it to be a list element,
// returning the position and length of its content.
func List(payload []byte, pos int) (dataPos, dataLen int, err error) {
	dataPos, dataLen, isList, err := Prefix(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	if !isList {
		return 0, 0, fmt.Errorf("%w: expected list, got string", ErrParse)
	}
	return dataPos, dataLen, nil
}

// SkipString parses a string element and returns the position right after
// its content, along with the content's length.
func SkipString(payload []byte, pos int) (newPos, dataLen int, err error) {
	dataPos, dataLen, err := String(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	return dataPos + dataLen, dataLen, nil
}

// StringOfLen parses a string element, requires its length to equal want,
// and returns the position where the content begins (not past it — callers
// commonly need the start position to copy out of payload directly).
func StringOfLen(payload []byte, pos, want int) (dataPos int, err error) {
	dataPos, dataLen, err := String(payload, pos)
	if err != nil {
		return 0, err
	}
	if dataLen != want {
		return 0, fmt.Errorf("%w: expected string of length %d, got %d", ErrParse, want, dataLen)
	}
	return dataPos, nil
}

// ParseHash parses a 32-byte string element into dst and returns the
// position right after its content.
func ParseHash(payload []byte, pos int, dst []byte) (newPos int, err error) {
	dataPos, err := StringOfLen(payload, pos, len(dst))
	if err != nil {
		return 0, fmt.Errorf("hash: %w", err)
	}
	copy(dst, payload[dataPos:dataPos+len(dst)])
	return dataPos + len(dst), nil
}

// U64 parses a canonical RLP scalar (minimal big-endian byte string, empty
// for zero) into a uint64 and returns the position right after its content.
func U64(payload []byte, pos int) (newPos int, value uint64, err error) {
	dataPos, dataLen, err := String(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	if dataLen > 8 {
		return 0, 0, fmt.Errorf("%w: uint64 overflow, %d bytes", ErrParse, dataLen)
	}
	if dataLen > 0 && payload[dataPos] == 0 {
		return 0, 0, fmt.Errorf("%w: non-canonical leading zero in scalar", ErrParse)
	}
	var buf [8]byte
	copy(buf[8-dataLen:], payload[dataPos:dataPos+dataLen])
	return dataPos + dataLen, binary.BigEndian.Uint64(buf[:]), nil
}

// U256 parses a canonical RLP scalar into a uint256.Int and returns the
// position right after its content.
func U256(payload []byte, pos int, x *uint256.Int) (newPos int, err error) {
	dataPos, dataLen, err := String(payload, pos)
	if err != nil {
		return 0, err
	}
	if dataLen > 32 {
		return 0, fmt.Errorf("%w: uint256 overflow, %d bytes", ErrParse, dataLen)
	}
	if dataLen > 0 && payload[dataPos] == 0 {
		return 0, fmt.Errorf("%w: non-canonical leading zero in scalar", ErrParse)
	}
	x.SetBytes(payload[dataPos : dataPos+dataLen])
	return dataPos + dataLen, nil
}
