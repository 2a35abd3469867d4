package common

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethforge/txpool-core/common/length"
)

// Address is a 20-byte Ethereum account address.
type Address [length.Addr]byte

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) Hex() string { return a.String() }

// BytesToAddress returns Address with value b.
// If b is larger than length.Addr, b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > length.Addr {
		b = b[len(b)-length.Addr:]
	}
	copy(a[length.Addr-len(b):], b)
	return a
}

// HexToAddress returns Address with byte values of s.
// If s decodes to more than length.Addr bytes, it will be cropped from the left.
func HexToAddress(s string) Address {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}
	}
	return BytesToAddress(b)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed := HexToAddress(string(text))
	if parsed == (Address{}) && string(text) != "0x0000000000000000000000000000000000000000" {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
		if len(trimmed) != 2*length.Addr {
			return fmt.Errorf("common: invalid address length %d", len(trimmed))
		}
	}
	*a = parsed
	return nil
}
