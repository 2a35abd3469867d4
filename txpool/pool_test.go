package txpool_test

import (
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/erigontech/secp256k1"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/txpool"
	"github.com/ethforge/txpool-core/txpool/txpoolcfg"
	"github.com/ethforge/txpool-core/types"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	prv, err := ecdsa.GenerateKey(secp256k1.S256(), rand.Reader)
	require.NoError(t, err)
	return prv
}

// testRecipient gives the fixtures a `to` address, so they are plain
// transfers costing the 21000 base intrinsic gas rather than contract
// creations.
var testRecipient = common.HexToAddress("0x3535353535353535353535353535353535353535")

// feeMarketTx builds and signs a minimal EIP-1559 transaction for a given
// sender key, nonce and fee pair.
func feeMarketTx(t *testing.T, prv *ecdsa.PrivateKey, chainID *uint256.Int, nonce uint64, tip, feeCap uint64) *types.FeeMarketTx {
	t.Helper()
	tx := &types.FeeMarketTx{}
	tx.Nonce = nonce
	tx.GasLimit = 21000
	to := testRecipient
	tx.To = &to
	tx.Value = *uint256.NewInt(0)
	tx.ChainID = chainID
	tx.MaxPriorityFeePerGasField = *uint256.NewInt(tip)
	tx.MaxFeePerGasField = *uint256.NewInt(feeCap)
	require.NoError(t, types.SignTx(tx, prv))
	return tx
}

func legacyTx(t *testing.T, prv *ecdsa.PrivateKey, chainID *uint256.Int, nonce uint64, gasPrice uint64) *types.LegacyTx {
	t.Helper()
	tx := &types.LegacyTx{}
	tx.Nonce = nonce
	tx.GasLimit = 21000
	to := testRecipient
	tx.To = &to
	tx.Value = *uint256.NewInt(0)
	tx.ChainID = chainID
	tx.GasPriceField = *uint256.NewInt(gasPrice)
	require.NoError(t, types.SignTx(tx, prv))
	return tx
}

func newTestPool(t *testing.T, baseFee uint64) (*txpool.Pool, *uint256.Int) {
	t.Helper()
	chainID := uint256.NewInt(1)
	cfg := txpoolcfg.DefaultConfig
	return txpool.New(cfg, baseFee, *chainID), chainID
}

func TestAddAndGet(t *testing.T) {
	pool, chainID := newTestPool(t, 10)
	prv := newKey(t)
	tx := feeMarketTx(t, prv, chainID, 0, 2, 20)

	outcome, err := pool.AddRemote(tx)
	require.NoError(t, err)
	require.Equal(t, txpool.Added, outcome)
	require.True(t, pool.Contains(tx.Hash()))
	require.Equal(t, 1, pool.Size())

	_, err = pool.AddRemote(tx)
	require.ErrorIs(t, err, txpool.ErrAlreadyKnown)
}

func TestReplacementRequiresPriceBump(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)

	original := feeMarketTx(t, prv, chainID, 0, 10, 20)
	_, err := pool.AddRemote(original)
	require.NoError(t, err)

	// A same-nonce transaction below the 10% bump must be rejected.
	underpriced := feeMarketTx(t, prv, chainID, 0, 10, 21)
	_, err = pool.AddRemote(underpriced)
	require.ErrorIs(t, err, txpool.ErrUnderpricedReplacement)
	require.True(t, pool.Contains(original.Hash()))

	// A transaction clearing the bump on both tip and fee cap replaces it.
	replacement := feeMarketTx(t, prv, chainID, 0, 12, 23)
	outcome, err := pool.AddRemote(replacement)
	require.NoError(t, err)
	require.Equal(t, txpool.Added, outcome)
	require.False(t, pool.Contains(original.Hash()))
	require.True(t, pool.Contains(replacement.Hash()))
}

func TestNextNonceTracksContiguousRun(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	sender, err := feeMarketTx(t, prv, chainID, 0, 2, 10).Sender(chainID)
	require.NoError(t, err)

	_, ok := pool.NextNonce(sender)
	require.False(t, ok)

	for _, n := range []uint64{0, 1, 2} {
		_, err := pool.AddRemote(feeMarketTx(t, prv, chainID, n, 2, 10))
		require.NoError(t, err)
	}
	// Leave a gap at nonce 3; nonce 4 shouldn't extend the contiguous run.
	_, err = pool.AddRemote(feeMarketTx(t, prv, chainID, 4, 2, 10))
	require.NoError(t, err)

	next, ok := pool.NextNonce(sender)
	require.True(t, ok)
	require.Equal(t, uint64(3), next)
}

func TestUpdateBaseFeeReclassifiesStaticRange(t *testing.T) {
	pool, chainID := newTestPool(t, 5)
	prv := newKey(t)

	// tip=2, feeCap=10: at baseFee=5, effective tip is min(2, 5)=2 == tip,
	// so not clipped -> static-eligible.
	tx := feeMarketTx(t, prv, chainID, 0, 2, 10)
	_, err := pool.AddRemote(tx)
	require.NoError(t, err)
	ti, ok := pool.Get(tx.Hash())
	require.True(t, ok)
	require.NotNil(t, ti)

	// Raising the base fee above feeCap-tip clips it into the dynamic range.
	pool.UpdateBaseFee(9)
	ti, ok = pool.Get(tx.Hash())
	require.True(t, ok)
	require.NotNil(t, ti)

	// Lowering it back below the clip point should restore static eligibility.
	// Range membership is unexported, so from this package the test checks
	// that the entry stays in the pool across both repartitions.
	pool.UpdateBaseFee(5)
	_, ok = pool.Get(tx.Hash())
	require.True(t, ok)
}

func TestCapacityEvictionPrefersRemoteOverLocal(t *testing.T) {
	cfg := txpoolcfg.DefaultConfig
	cfg.PendingPoolLimit = 1
	pool := txpool.New(cfg, 1, *uint256.NewInt(1))
	chainID := uint256.NewInt(1)

	remotePrv := newKey(t)
	localPrv := newKey(t)

	remoteTx := feeMarketTx(t, remotePrv, chainID, 0, 100, 200)
	_, err := pool.AddRemote(remoteTx)
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())

	// A local transaction with much lower priority still must not be the
	// one evicted to make room, since ReceivedLocal sorts ahead.
	localTx := feeMarketTx(t, localPrv, chainID, 0, 1, 2)
	_, err = pool.AddLocal(localTx)
	require.NoError(t, err)

	require.Equal(t, 1, pool.Size())
	require.True(t, pool.Contains(localTx.Hash()))
	require.False(t, pool.Contains(remoteTx.Hash()))
}

// A remote transaction that is itself the lowest-priority entry in an
// already-full pool must not be admitted at all: it would be evicted right
// back out by its own admission, so on_added must never fire for it and it
// must not be retrievable afterwards.
func TestSelfEvictionDoesNotFireAddedListener(t *testing.T) {
	cfg := txpoolcfg.DefaultConfig
	cfg.PendingPoolLimit = 1
	pool := txpool.New(cfg, 1, *uint256.NewInt(1))
	chainID := uint256.NewInt(1)

	incumbentPrv := newKey(t)
	challengerPrv := newKey(t)

	incumbentTx := feeMarketTx(t, incumbentPrv, chainID, 0, 100, 200)
	_, err := pool.AddRemote(incumbentTx)
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())

	var addedFired bool
	id := pool.SubscribeAdded(func(types.Transaction) { addedFired = true })
	defer pool.UnsubscribeAdded(id)

	challengerTx := feeMarketTx(t, challengerPrv, chainID, 0, 1, 2)
	outcome, err := pool.AddRemote(challengerTx)
	require.ErrorIs(t, err, txpool.ErrUnderpriced)
	require.Equal(t, txpool.Underpriced, outcome)

	require.False(t, addedFired, "on_added must not fire for a transaction evicted right back out by its own admission")
	require.False(t, pool.Contains(challengerTx.Hash()))
	require.Equal(t, 1, pool.Size())
	require.True(t, pool.Contains(incumbentTx.Hash()))
}

func TestRemoveByHashFiresDroppedListener(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	tx := feeMarketTx(t, prv, chainID, 0, 2, 10)
	_, err := pool.AddRemote(tx)
	require.NoError(t, err)

	notified := make(chan types.Transaction, 1)
	id := pool.SubscribeDropped(func(dropped types.Transaction) { notified <- dropped })
	defer pool.UnsubscribeDropped(id)

	ok := pool.RemoveByHash(tx.Hash(), false)
	require.True(t, ok)

	select {
	case dropped := <-notified:
		require.Equal(t, tx.Hash(), dropped.Hash())
	default:
		t.Fatal("expected dropped listener to fire synchronously after unlock")
	}
}

func TestSelectOffersNoncesInOrderPerSender(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	for _, n := range []uint64{0, 1, 2} {
		_, err := pool.AddRemote(feeMarketTx(t, prv, chainID, n, 2, 10))
		require.NoError(t, err)
	}

	var seen []uint64
	pool.Select(func(ti *txpool.TransactionInfo) txpool.Decision {
		seen = append(seen, ti.Tx.GetNonce())
		return txpool.Keep
	})
	require.Equal(t, []uint64{0, 1, 2}, seen)
}

func TestSelectDropAndContinueRemovesEntry(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	tx := feeMarketTx(t, prv, chainID, 0, 2, 10)
	_, err := pool.AddRemote(tx)
	require.NoError(t, err)

	pool.Select(func(ti *txpool.TransactionInfo) txpool.Decision {
		return txpool.DropAndContinue
	})
	require.False(t, pool.Contains(tx.Hash()))
}

func TestClosePoolRejectsFurtherAdmissions(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	pool.Close()

	_, err := pool.AddRemote(feeMarketTx(t, prv, chainID, 0, 2, 10))
	require.ErrorIs(t, err, txpool.ErrPoolClosed)
}

func TestIntrinsicGasExceedsLimitIsRejected(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)

	tx := &types.FeeMarketTx{}
	tx.Nonce = 0
	tx.GasLimit = 1000 // below the 21000 base intrinsic cost
	tx.Value = *uint256.NewInt(0)
	tx.ChainID = chainID
	tx.MaxPriorityFeePerGasField = *uint256.NewInt(2)
	tx.MaxFeePerGasField = *uint256.NewInt(10)
	require.NoError(t, types.SignTx(tx, prv))

	outcome, err := pool.AddRemote(tx)
	require.ErrorIs(t, err, txpool.ErrIntrinsicGasExceedsLimit)
	require.Equal(t, txpool.IntrinsicGasTooLow, outcome)
	require.False(t, pool.Contains(tx.Hash()))
}

func TestAddRemoteRLPFastPathMatchesFullDecode(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	tx := feeMarketTx(t, prv, chainID, 0, 2, 10)

	outcome, err := pool.AddRemoteRLP(types.Encode(tx))
	require.NoError(t, err)
	require.Equal(t, txpool.Added, outcome)
	require.True(t, pool.Contains(tx.Hash()))

	// A second submission of the identical wire bytes must be caught by the
	// TxSlot fast path's IDHash lookup, not just the full-decode path.
	outcome, err = pool.AddRemoteRLP(types.Encode(tx))
	require.ErrorIs(t, err, txpool.ErrAlreadyKnown)
	require.Equal(t, txpool.AlreadyKnown, outcome)
}

func TestAddRemoteRLPRejectsMalformedBytes(t *testing.T) {
	pool, _ := newTestPool(t, 1)
	_, err := pool.AddRemoteRLP([]byte{0xff, 0xff})
	require.Error(t, err)
}

func TestLegacyTxParticipatesInDynamicRange(t *testing.T) {
	pool, chainID := newTestPool(t, 1)
	prv := newKey(t)
	tx := legacyTx(t, prv, chainID, 0, 5)

	// Range membership is unexported; this checks that a legacy transaction
	// (always placed in the dynamic range) is admitted and held.
	outcome, err := pool.AddRemote(tx)
	require.NoError(t, err)
	require.Equal(t, txpool.Added, outcome)
	require.True(t, pool.Contains(tx.Hash()))
}
