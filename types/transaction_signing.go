package types

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/crypto"
	"github.com/ethforge/txpool-core/rlp"
)

// toOrEmpty encodes the `to` field: the address string, or the canonical
// empty string for contract creation.
func toOrEmpty(to *common.Address) []byte {
	if to == nil {
		return rlp.EncodeString(nil)
	}
	return rlp.EncodeString(to.Bytes())
}

func encodeAccessList(al AccessList) []byte {
	tuples := make([][]byte, 0, len(al))
	for _, t := range al {
		keys := make([][]byte, 0, len(t.StorageKeys))
		for _, k := range t.StorageKeys {
			keys = append(keys, rlp.EncodeString(k.Bytes()))
		}
		tuples = append(tuples, rlp.EncodeList(rlp.EncodeString(t.Address.Bytes()), rlp.EncodeList(keys...)))
	}
	return rlp.EncodeList(tuples...)
}

// legacySigningHash implements §4.2's legacy digests: unprotected when
// ChainID is nil, EIP-155-protected (chain id, 0, 0 appended) otherwise.
func legacySigningHash(tx *LegacyTx) common.Hash {
	fields := []([]byte){
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeUint256(&tx.GasPriceField),
		rlp.EncodeUint64(tx.GasLimit),
		toOrEmpty(tx.To),
		rlp.EncodeUint256(&tx.Value),
		rlp.EncodeString(tx.Data),
	}
	if tx.ChainID != nil {
		fields = append(fields, rlp.EncodeUint256(tx.ChainID), rlp.EncodeUint64(0), rlp.EncodeUint64(0))
	}
	return crypto.Keccak256(rlp.EncodeList(fields...))
}

func accessListSigningHash(tx *AccessListTx) common.Hash {
	chainID := tx.ChainID
	if chainID == nil {
		chainID = uint256.NewInt(0)
	}
	body := rlp.EncodeList(
		rlp.EncodeUint256(chainID),
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeUint256(&tx.GasPriceField),
		rlp.EncodeUint64(tx.GasLimit),
		toOrEmpty(tx.To),
		rlp.EncodeUint256(&tx.Value),
		rlp.EncodeString(tx.Data),
		encodeAccessList(tx.AccessListF),
	)
	return crypto.Keccak256([]byte{byte(AccessListTxType)}, body)
}

func feeMarketSigningHash(tx *FeeMarketTx) common.Hash {
	chainID := tx.ChainID
	if chainID == nil {
		chainID = uint256.NewInt(0)
	}
	body := rlp.EncodeList(
		rlp.EncodeUint256(chainID),
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeUint256(&tx.MaxPriorityFeePerGasField),
		rlp.EncodeUint256(&tx.MaxFeePerGasField),
		rlp.EncodeUint64(tx.GasLimit),
		toOrEmpty(tx.To),
		rlp.EncodeUint256(&tx.Value),
		rlp.EncodeString(tx.Data),
		encodeAccessList(tx.AccessListF),
	)
	return crypto.Keccak256([]byte{byte(FeeMarketTxType)}, body)
}

// signatureBytes packs (r, s, recoveryID) into the 65-byte [R||S||V] form
// the crypto package's recovery primitives expect.
func signatureBytes(r, s *uint256.Int, recoveryID uint8) []byte {
	buf := make([]byte, 65)
	r.WriteToSlice(buf[0:32])
	s.WriteToSlice(buf[32:64])
	buf[64] = recoveryID
	return buf
}

func recoverSender(sighash common.Hash, r, s *uint256.Int, recoveryID uint8, allowPreEip2s bool) (common.Address, error) {
	if !crypto.TransactionSignatureIsValid(recoveryID, r, s, allowPreEip2s) {
		return common.Address{}, crypto.ErrInvalidSignature
	}
	return crypto.SenderFromSignature(sighash.Bytes(), signatureBytes(r, s, recoveryID))
}

// SignTx signs tx's appropriate digest with prv and stores the resulting
// (r, s, recoveryID) on it, the counterpart to Sender(): the local node's
// own outbound transactions are authored through this path rather than
// arriving pre-signed off the wire.
func SignTx(tx Transaction, prv *ecdsa.PrivateKey) error {
	var digest common.Hash
	switch t := tx.(type) {
	case *LegacyTx:
		digest = legacySigningHash(t)
	case *AccessListTx:
		digest = accessListSigningHash(t)
	case *FeeMarketTx:
		digest = feeMarketSigningHash(t)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedTxType, tx)
	}
	sig, err := crypto.Sign(digest.Bytes(), prv)
	if err != nil {
		return err
	}
	var r, s uint256.Int
	r.SetBytes(sig[0:32])
	s.SetBytes(sig[32:64])
	tx.SetSignature(&r, &s, sig[64])
	return nil
}

func (tx *LegacyTx) Hash() common.Hash {
	if h, ok := tx.cachedHash(); ok {
		return h
	}
	h := crypto.Keccak256(encodeLegacyTx(tx))
	tx.storeHash(h)
	return h
}

func (tx *LegacyTx) Sender(configuredChainID *uint256.Int) (common.Address, error) {
	if tx.ChainID != nil && !tx.ChainID.Eq(configuredChainID) {
		return common.Address{}, ErrChainIDMismatch
	}
	if a, ok := tx.cachedSender(); ok {
		return a, nil
	}
	addr, err := recoverSender(legacySigningHash(tx), &tx.Sig.R, &tx.Sig.S, tx.Sig.RecoveryID, false)
	if err != nil {
		return common.Address{}, err
	}
	tx.storeSender(addr)
	return addr, nil
}

func (tx *AccessListTx) Hash() common.Hash {
	if h, ok := tx.cachedHash(); ok {
		return h
	}
	h := crypto.Keccak256(encodeAccessListTx(tx))
	tx.storeHash(h)
	return h
}

func (tx *AccessListTx) Sender(configuredChainID *uint256.Int) (common.Address, error) {
	if tx.ChainID != nil && !tx.ChainID.Eq(configuredChainID) {
		return common.Address{}, ErrChainIDMismatch
	}
	if a, ok := tx.cachedSender(); ok {
		return a, nil
	}
	addr, err := recoverSender(accessListSigningHash(tx), &tx.Sig.R, &tx.Sig.S, tx.Sig.RecoveryID, false)
	if err != nil {
		return common.Address{}, err
	}
	tx.storeSender(addr)
	return addr, nil
}

func (tx *FeeMarketTx) Hash() common.Hash {
	if h, ok := tx.cachedHash(); ok {
		return h
	}
	h := crypto.Keccak256(encodeFeeMarketTx(tx))
	tx.storeHash(h)
	return h
}

func (tx *FeeMarketTx) Sender(configuredChainID *uint256.Int) (common.Address, error) {
	if tx.ChainID != nil && !tx.ChainID.Eq(configuredChainID) {
		return common.Address{}, ErrChainIDMismatch
	}
	if a, ok := tx.cachedSender(); ok {
		return a, nil
	}
	addr, err := recoverSender(feeMarketSigningHash(tx), &tx.Sig.R, &tx.Sig.S, tx.Sig.RecoveryID, false)
	if err != nil {
		return common.Address{}, err
	}
	tx.storeSender(addr)
	return addr, nil
}
