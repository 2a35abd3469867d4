package rlp_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ethforge/txpool-core/rlp"
)

func TestEncodeUint64RoundTrip(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		v := rapid.Uint64().Draw(tt, "v")
		enc := rlp.EncodeUint64(v)
		_, got, err := rlp.U64(enc, 0)
		require.NoError(tt, err)
		require.Equal(tt, v, got)
	})
}

func TestEncodeUint256RoundTrip(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		hi := rapid.Uint64().Draw(tt, "hi")
		lo := rapid.Uint64().Draw(tt, "lo")
		var x uint256.Int
		x.SetUint64(hi)
		x.Lsh(&x, 64)
		var loI uint256.Int
		loI.SetUint64(lo)
		x.Add(&x, &loI)

		enc := rlp.EncodeUint256(x.Clone())
		var got uint256.Int
		_, err := rlp.U256(enc, 0, &got)
		require.NoError(tt, err)
		require.True(tt, x.Eq(&got))
	})
}

func TestZeroScalarIsEmptyString(t *testing.T) {
	require.Equal(t, []byte{0x80}, rlp.EncodeUint64(0))
	require.Equal(t, []byte{0x80}, rlp.EncodeUint256(uint256.NewInt(0)))
}

func TestNonMinimalScalarRejected(t *testing.T) {
	// 0x82 0x00 0x01 is a 2-byte string "00 01" - a scalar with a leading zero.
	_, _, err := rlp.U64([]byte{0x82, 0x00, 0x01}, 0)
	require.Error(t, err)
}

func TestNonCanonicalSingleByteStringRejected(t *testing.T) {
	// 0x81 0x05 should have been encoded as just 0x05.
	_, _, err := rlp.String([]byte{0x81, 0x05}, 0)
	require.Error(t, err)
}

func TestNonCanonicalLongFormRejected(t *testing.T) {
	// length 10 encoded in long form (0xb8 0x0a ...) is non-minimal; should be short form.
	payload := append([]byte{0xb8, 0x0a}, make([]byte, 10)...)
	_, _, err := rlp.String(payload, 0)
	require.Error(t, err)
}

func TestListRoundTrip(t *testing.T) {
	items := [][]byte{rlp.EncodeUint64(1), rlp.EncodeString([]byte("hi")), rlp.EncodeUint64(0)}
	enc := rlp.EncodeList(items...)
	dataPos, dataLen, err := rlp.List(enc, 0)
	require.NoError(t, err)
	require.Equal(t, len(enc)-1, dataLen)

	p := dataPos
	p, n1, err := rlp.U64(enc, p)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n1)

	sPos, sLen, err := rlp.String(enc, p)
	require.NoError(t, err)
	require.Equal(t, "hi", string(enc[sPos:sPos+sLen]))
	p = sPos + sLen

	_, n3, err := rlp.U64(enc, p)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n3)
}

func TestUnderrunRejected(t *testing.T) {
	_, _, err := rlp.String([]byte{0x83, 0x01, 0x02}, 0) // declares 3 bytes, only 2 present
	require.Error(t, err)
}
