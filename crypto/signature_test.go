package crypto_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ethforge/txpool-core/crypto"
)

func TestTransactionSignatureIsValidRejectsZero(t *testing.T) {
	r := uint256.NewInt(0)
	s := uint256.NewInt(1)
	require.False(t, crypto.TransactionSignatureIsValid(0, r, s, false))
}

func TestTransactionSignatureIsValidRejectsHighS(t *testing.T) {
	// secp256k1 half-N + 1: just above the canonical low-s boundary.
	halfNPlus1 := new(uint256.Int)
	_ = halfNPlus1.SetFromHex("0x7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a1")
	r := uint256.NewInt(1)
	require.False(t, crypto.TransactionSignatureIsValid(0, r, halfNPlus1, false))
	require.True(t, crypto.TransactionSignatureIsValid(0, r, halfNPlus1, true))
}

func TestTransactionSignatureIsValidAcceptsLowS(t *testing.T) {
	r := uint256.NewInt(1)
	s := uint256.NewInt(1)
	require.True(t, crypto.TransactionSignatureIsValid(0, r, s, false))
	require.True(t, crypto.TransactionSignatureIsValid(1, r, s, false))
}

func TestTransactionSignatureIsValidRejectsBadRecoveryID(t *testing.T) {
	r := uint256.NewInt(1)
	s := uint256.NewInt(1)
	require.False(t, crypto.TransactionSignatureIsValid(2, r, s, false))
}
