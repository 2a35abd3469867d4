package types

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/rlp"
)

// legacyV encodes recoveryID/chainID per §3: unprotected (27/28) when
// chainID is nil, EIP-155-protected (35+2*chainID+recoveryID) otherwise.
func legacyV(recoveryID uint8, chainID *uint256.Int) uint64 {
	if chainID == nil {
		return uint64(recoveryID) + 27
	}
	v := new(uint256.Int).Mul(chainID, uint256.NewInt(2))
	v.AddUint64(v, 35+uint64(recoveryID))
	return v.Uint64()
}

// decodeLegacyV reconstructs (chainID, recoveryID) from a legacy v value.
// v ∈ {27, 28} ⇒ unprotected; v > 36 ⇒ EIP-155; anything else is malformed.
func decodeLegacyV(v *uint256.Int) (chainID *uint256.Int, recoveryID uint8, err error) {
	if v.Eq(uint256.NewInt(27)) {
		return nil, 0, nil
	}
	if v.Eq(uint256.NewInt(28)) {
		return nil, 1, nil
	}
	if v.LtUint64(37) {
		return nil, 0, fmt.Errorf("%w: v=%s not in {27,28} and not above 36", ErrInvalidSignatureEncoding, v)
	}
	tmp := new(uint256.Int).Sub(v, uint256.NewInt(35))
	recoveryID = uint8(tmp.Uint64() % 2)
	id := new(uint256.Int).Rsh(tmp, 1)
	return id, recoveryID, nil
}

func encodeLegacyTx(tx *LegacyTx) []byte {
	v := legacyV(tx.Sig.RecoveryID, tx.ChainID)
	return rlp.EncodeList(
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeUint256(&tx.GasPriceField),
		rlp.EncodeUint64(tx.GasLimit),
		toOrEmpty(tx.To),
		rlp.EncodeUint256(&tx.Value),
		rlp.EncodeString(tx.Data),
		rlp.EncodeUint64(v),
		rlp.EncodeUint256(&tx.Sig.R),
		rlp.EncodeUint256(&tx.Sig.S),
	)
}

func encodeAccessListTx(tx *AccessListTx) []byte {
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
		rlp.EncodeUint64(uint64(tx.Sig.RecoveryID)),
		rlp.EncodeUint256(&tx.Sig.R),
		rlp.EncodeUint256(&tx.Sig.S),
	)
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(AccessListTxType))
	return append(out, body...)
}

func encodeFeeMarketTx(tx *FeeMarketTx) []byte {
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
		rlp.EncodeUint64(uint64(tx.Sig.RecoveryID)),
		rlp.EncodeUint256(&tx.Sig.R),
		rlp.EncodeUint256(&tx.Sig.S),
	)
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(FeeMarketTxType))
	return append(out, body...)
}

// Encode returns the canonical wire encoding of tx: a bare RLP list for
// Legacy, or `type_byte || rlp(payload)` for typed envelopes.
func Encode(tx Transaction) []byte {
	switch t := tx.(type) {
	case *LegacyTx:
		return encodeLegacyTx(t)
	case *AccessListTx:
		return encodeAccessListTx(t)
	case *FeeMarketTx:
		return encodeFeeMarketTx(t)
	default:
		panic(fmt.Sprintf("types: unknown transaction implementation %T", tx))
	}
}

// Decode parses a transaction envelope: a list prefix selects Legacy,
// otherwise the first byte is a type discriminator dispatching to the
// matching typed decoder.
func Decode(data []byte) (Transaction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", rlp.ErrParse)
	}
	if data[0] >= 0xc0 {
		return decodeLegacyTx(data)
	}
	switch TxType(data[0]) {
	case AccessListTxType:
		return decodeAccessListTx(data[1:])
	case FeeMarketTxType:
		return decodeFeeMarketTx(data[1:])
	default:
		return nil, fmt.Errorf("%w: type byte 0x%x", ErrUnsupportedTxType, data[0])
	}
}

func decodeLegacyTx(data []byte) (*LegacyTx, error) {
	listPos, listLen, err := rlp.List(data, 0)
	if err != nil {
		return nil, fmt.Errorf("legacy tx envelope: %w", err)
	}
	if listPos+listLen != len(data) {
		return nil, fmt.Errorf("%w: trailing bytes after legacy tx", rlp.ErrParse)
	}
	p := listPos
	tx := &LegacyTx{}

	p, tx.Nonce, err = rlp.U64(data, p)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	p, err = rlp.U256(data, p, &tx.GasPriceField)
	if err != nil {
		return nil, fmt.Errorf("gasPrice: %w", err)
	}
	p, tx.GasLimit, err = rlp.U64(data, p)
	if err != nil {
		return nil, fmt.Errorf("gasLimit: %w", err)
	}
	p, err = decodeTo(data, p, &tx.To)
	if err != nil {
		return nil, err
	}
	p, err = rlp.U256(data, p, &tx.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	var dataPos, dataLen int
	dataPos, dataLen, err = rlp.String(data, p)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	tx.Data = common.Copy(data[dataPos : dataPos+dataLen])
	p = dataPos + dataLen

	var v uint256.Int
	p, err = rlp.U256(data, p, &v)
	if err != nil {
		return nil, fmt.Errorf("v: %w", err)
	}
	chainID, recoveryID, err := decodeLegacyV(&v)
	if err != nil {
		return nil, err
	}
	tx.ChainID = chainID
	tx.Sig.RecoveryID = recoveryID

	p, err = rlp.U256(data, p, &tx.Sig.R)
	if err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	p, err = rlp.U256(data, p, &tx.Sig.S)
	if err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	if p != len(data) {
		return nil, fmt.Errorf("%w: extraneous bytes in legacy tx", rlp.ErrParse)
	}
	return tx, nil
}

func decodeAccessListTx(body []byte) (*AccessListTx, error) {
	listPos, listLen, err := rlp.List(body, 0)
	if err != nil {
		return nil, fmt.Errorf("access-list tx envelope: %w", err)
	}
	if listPos+listLen != len(body) {
		return nil, fmt.Errorf("%w: trailing bytes after access-list tx", rlp.ErrParse)
	}
	p := listPos
	tx := &AccessListTx{}
	var chainID uint256.Int
	p, err = rlp.U256(body, p, &chainID)
	if err != nil {
		return nil, fmt.Errorf("chainId: %w", err)
	}
	tx.ChainID = chainID.Clone()

	p, tx.Nonce, err = rlp.U64(body, p)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	p, err = rlp.U256(body, p, &tx.GasPriceField)
	if err != nil {
		return nil, fmt.Errorf("gasPrice: %w", err)
	}
	p, tx.GasLimit, err = rlp.U64(body, p)
	if err != nil {
		return nil, fmt.Errorf("gasLimit: %w", err)
	}
	p, err = decodeTo(body, p, &tx.To)
	if err != nil {
		return nil, err
	}
	p, err = rlp.U256(body, p, &tx.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	var dataPos, dataLen int
	dataPos, dataLen, err = rlp.String(body, p)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	tx.Data = common.Copy(body[dataPos : dataPos+dataLen])
	p = dataPos + dataLen

	tx.AccessListF, p, err = decodeAccessList(body, p)
	if err != nil {
		return nil, err
	}

	var recID uint64
	p, recID, err = rlp.U64(body, p)
	if err != nil {
		return nil, fmt.Errorf("recoveryId: %w", err)
	}
	if recID > 1 {
		return nil, fmt.Errorf("%w: recoveryId %d", ErrInvalidSignatureEncoding, recID)
	}
	tx.Sig.RecoveryID = uint8(recID)
	p, err = rlp.U256(body, p, &tx.Sig.R)
	if err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	p, err = rlp.U256(body, p, &tx.Sig.S)
	if err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	if p != len(body) {
		return nil, fmt.Errorf("%w: extraneous bytes in access-list tx", rlp.ErrParse)
	}
	return tx, nil
}

func decodeFeeMarketTx(body []byte) (*FeeMarketTx, error) {
	listPos, listLen, err := rlp.List(body, 0)
	if err != nil {
		return nil, fmt.Errorf("fee-market tx envelope: %w", err)
	}
	if listPos+listLen != len(body) {
		return nil, fmt.Errorf("%w: trailing bytes after fee-market tx", rlp.ErrParse)
	}
	p := listPos
	tx := &FeeMarketTx{}
	var chainID uint256.Int
	p, err = rlp.U256(body, p, &chainID)
	if err != nil {
		return nil, fmt.Errorf("chainId: %w", err)
	}
	tx.ChainID = chainID.Clone()

	p, tx.Nonce, err = rlp.U64(body, p)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	p, err = rlp.U256(body, p, &tx.MaxPriorityFeePerGasField)
	if err != nil {
		return nil, fmt.Errorf("maxPriorityFeePerGas: %w", err)
	}
	p, err = rlp.U256(body, p, &tx.MaxFeePerGasField)
	if err != nil {
		return nil, fmt.Errorf("maxFeePerGas: %w", err)
	}
	p, tx.GasLimit, err = rlp.U64(body, p)
	if err != nil {
		return nil, fmt.Errorf("gasLimit: %w", err)
	}
	p, err = decodeTo(body, p, &tx.To)
	if err != nil {
		return nil, err
	}
	p, err = rlp.U256(body, p, &tx.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	var dataPos, dataLen int
	dataPos, dataLen, err = rlp.String(body, p)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	tx.Data = common.Copy(body[dataPos : dataPos+dataLen])
	p = dataPos + dataLen

	tx.AccessListF, p, err = decodeAccessList(body, p)
	if err != nil {
		return nil, err
	}

	var recID uint64
	p, recID, err = rlp.U64(body, p)
	if err != nil {
		return nil, fmt.Errorf("recoveryId: %w", err)
	}
	if recID > 1 {
		return nil, fmt.Errorf("%w: recoveryId %d", ErrInvalidSignatureEncoding, recID)
	}
	tx.Sig.RecoveryID = uint8(recID)
	p, err = rlp.U256(body, p, &tx.Sig.R)
	if err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	p, err = rlp.U256(body, p, &tx.Sig.S)
	if err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	if p != len(body) {
		return nil, fmt.Errorf("%w: extraneous bytes in fee-market tx", rlp.ErrParse)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

func decodeTo(data []byte, p int, to **common.Address) (newPos int, err error) {
	dataPos, dataLen, err := rlp.String(data, p)
	if err != nil {
		return 0, fmt.Errorf("to: %w", err)
	}
	if dataLen != 0 {
		if dataLen != 20 {
			return 0, fmt.Errorf("%w: unexpected length of to field: %d", rlp.ErrParse, dataLen)
		}
		addr := common.BytesToAddress(data[dataPos : dataPos+dataLen])
		*to = &addr
	} else {
		*to = nil
	}
	return dataPos + dataLen, nil
}

func decodeAccessList(data []byte, p int) (AccessList, int, error) {
	dataPos, dataLen, err := rlp.List(data, p)
	if err != nil {
		return nil, 0, fmt.Errorf("accessList: %w", err)
	}
	var al AccessList
	tuplePos := dataPos
	for tuplePos < dataPos+dataLen {
		tupleDataPos, tupleDataLen, err := rlp.List(data, tuplePos)
		if err != nil {
			return nil, 0, fmt.Errorf("accessList tuple: %w", err)
		}
		addrPos, err := rlp.StringOfLen(data, tupleDataPos, 20)
		if err != nil {
			return nil, 0, fmt.Errorf("accessList address: %w", err)
		}
		tuple := AccessTuple{Address: common.BytesToAddress(data[addrPos : addrPos+20])}
		storagePos, storageLen, err := rlp.List(data, addrPos+20)
		if err != nil {
			return nil, 0, fmt.Errorf("accessList storage keys: %w", err)
		}
		keyPos := storagePos
		for keyPos < storagePos+storageLen {
			kp, err := rlp.StringOfLen(data, keyPos, 32)
			if err != nil {
				return nil, 0, fmt.Errorf("accessList storage key: %w", err)
			}
			tuple.StorageKeys = append(tuple.StorageKeys, common.BytesToHash(data[kp:kp+32]))
			keyPos = kp + 32
		}
		if keyPos != storagePos+storageLen {
			return nil, 0, fmt.Errorf("%w: extraneous space in storage key list", rlp.ErrParse)
		}
		al = append(al, tuple)
		tuplePos = tupleDataPos + tupleDataLen
		if tuplePos != keyPos {
			return nil, 0, fmt.Errorf("%w: extraneous space in access-list tuple", rlp.ErrParse)
		}
	}
	if tuplePos != dataPos+dataLen {
		return nil, 0, fmt.Errorf("%w: extraneous space in access list", rlp.ErrParse)
	}
	return al, dataPos + dataLen, nil
}
