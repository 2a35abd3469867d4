package types_test

import (
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/erigontech/secp256k1"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/types"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	prv, err := ecdsa.GenerateKey(secp256k1.S256(), rand.Reader)
	require.NoError(t, err)
	return prv
}

func TestLegacyTxRoundTripUnprotected(t *testing.T) {
	prv := testKey(t)
	to := common.HexToAddress("0x00000000000000000000000000000000001234")

	tx := &types.LegacyTx{}
	tx.Nonce = 7
	tx.GasLimit = 21000
	tx.To = &to
	tx.Value = *uint256.NewInt(1000)
	tx.GasPriceField = *uint256.NewInt(1_000_000_000)

	require.NoError(t, types.SignTx(tx, prv))

	sender, err := tx.Sender(nil)
	require.NoError(t, err)

	encoded := types.Encode(tx)
	require.GreaterOrEqual(t, encoded[0], byte(0xc0), "unprotected legacy tx must be a bare RLP list")

	decoded, err := types.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, types.LegacyTxType, decoded.Type())
	require.Equal(t, tx.Hash(), decoded.Hash())

	decodedSender, err := decoded.Sender(nil)
	require.NoError(t, err)
	require.Equal(t, sender, decodedSender)
}

func TestLegacyTxRoundTripEIP155Protected(t *testing.T) {
	prv := testKey(t)
	chainID := uint256.NewInt(1)

	tx := &types.LegacyTx{}
	tx.Nonce = 3
	tx.GasLimit = 21000
	tx.Value = *uint256.NewInt(0)
	tx.GasPriceField = *uint256.NewInt(2_000_000_000)
	tx.ChainID = chainID

	require.NoError(t, types.SignTx(tx, prv))

	sender, err := tx.Sender(chainID)
	require.NoError(t, err)

	encoded := types.Encode(tx)
	decoded, err := types.Decode(encoded)
	require.NoError(t, err)

	decodedSender, err := decoded.Sender(chainID)
	require.NoError(t, err)
	require.Equal(t, sender, decodedSender)

	_, err = decoded.Sender(uint256.NewInt(2))
	require.ErrorIs(t, err, types.ErrChainIDMismatch)
}

func TestAccessListTxRoundTrip(t *testing.T) {
	prv := testKey(t)
	to := common.HexToAddress("0x00000000000000000000000000000000005678")
	chainID := uint256.NewInt(5)

	tx := &types.AccessListTx{}
	tx.Nonce = 1
	tx.GasLimit = 50000
	tx.To = &to
	tx.Value = *uint256.NewInt(0)
	tx.GasPriceField = *uint256.NewInt(3_000_000_000)
	tx.ChainID = chainID
	tx.AccessListF = types.AccessList{{
		Address:     to,
		StorageKeys: []common.Hash{common.HexToHash("0x01")},
	}}

	require.NoError(t, types.SignTx(tx, prv))

	encoded := types.Encode(tx)
	require.Equal(t, byte(types.AccessListTxType), encoded[0])

	decoded, err := types.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, types.AccessListTxType, decoded.Type())
	require.Equal(t, tx.Hash(), decoded.Hash())
	require.True(t, decoded.GetAccessList().HasAddress(to))
}

func TestFeeMarketTxRoundTrip(t *testing.T) {
	prv := testKey(t)
	chainID := uint256.NewInt(1)

	tx := &types.FeeMarketTx{}
	tx.Nonce = 9
	tx.GasLimit = 21000
	tx.Value = *uint256.NewInt(42)
	tx.ChainID = chainID
	tx.MaxPriorityFeePerGasField = *uint256.NewInt(1_000_000_000)
	tx.MaxFeePerGasField = *uint256.NewInt(5_000_000_000)

	require.NoError(t, types.SignTx(tx, prv))
	sender, err := tx.Sender(chainID)
	require.NoError(t, err)

	encoded := types.Encode(tx)
	require.Equal(t, byte(types.FeeMarketTxType), encoded[0])

	decoded, err := types.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), decoded.Hash())

	decodedSender, err := decoded.Sender(chainID)
	require.NoError(t, err)
	require.Equal(t, sender, decodedSender)
}

func TestFeeMarketTxValidateRejectsTipAboveFeeCap(t *testing.T) {
	tx := &types.FeeMarketTx{}
	tx.MaxPriorityFeePerGasField = *uint256.NewInt(10)
	tx.MaxFeePerGasField = *uint256.NewInt(5)
	require.ErrorIs(t, tx.Validate(), types.ErrTipAboveFeeCap)
}

func TestDecodeUnsupportedTypeByte(t *testing.T) {
	_, err := types.Decode([]byte{0x7f, 0x00})
	require.ErrorIs(t, err, types.ErrUnsupportedTxType)
}
