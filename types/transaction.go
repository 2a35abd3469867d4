package types

import (
	"errors"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/common/fixedgas"
)

// TxType tags which wire envelope a Transaction uses.
type TxType byte

const (
	LegacyTxType     TxType = 0
	AccessListTxType TxType = 1 // EIP-2930
	FeeMarketTxType  TxType = 2 // EIP-1559
)

func (t TxType) String() string {
	switch t {
	case LegacyTxType:
		return "legacy"
	case AccessListTxType:
		return "access-list"
	case FeeMarketTxType:
		return "fee-market"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidSig               = errors.New("invalid transaction v, r, s values")
	ErrUnsupportedTxType        = errors.New("transaction type not supported")
	ErrTipAboveFeeCap           = errors.New("max priority fee per gas higher than max fee per gas")
	ErrChainIDMismatch          = errors.New("transaction chain id does not match configured chain id")
	ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")
)

// Signature is the recoverable secp256k1 signature of a transaction's
// signing hash.
type Signature struct {
	R, S       uint256.Int
	RecoveryID uint8 // 0 or 1
}

// commonTx holds the fields shared by every transaction variant, plus the
// memoized derived fields (hash, sender). These are pure functions of the
// immutable fields above them, so a compare-and-swap fill-in lets a single
// Transaction be shared safely across goroutines without a lock.
type commonTx struct {
	Nonce    uint64
	GasLimit uint64
	To       *common.Address // nil ⇒ contract creation
	Value    uint256.Int
	Data     []byte
	ChainID  *uint256.Int // nil if absent on the wire
	Sig      Signature

	hash   atomic.Pointer[common.Hash]
	sender atomic.Pointer[common.Address]
}

func (c *commonTx) cachedHash() (common.Hash, bool) {
	if h := c.hash.Load(); h != nil {
		return *h, true
	}
	return common.Hash{}, false
}

func (c *commonTx) storeHash(h common.Hash) {
	c.hash.CompareAndSwap(nil, &h)
}

func (c *commonTx) cachedSender() (common.Address, bool) {
	if a := c.sender.Load(); a != nil {
		return *a, true
	}
	return common.Address{}, false
}

func (c *commonTx) storeSender(a common.Address) {
	c.sender.CompareAndSwap(nil, &a)
}

// Transaction is the tagged-variant interface implemented by LegacyTx,
// AccessListTx and FeeMarketTx. Capability checks (does it have a fee cap?
// an access list? a chain id?) are pattern branches on Type(), not dynamic
// dispatch through optional interfaces.
type Transaction interface {
	Type() TxType
	GetNonce() uint64
	GetGasLimit() uint64
	GetTo() *common.Address
	GetValue() *uint256.Int
	GetData() []byte
	GetChainID() *uint256.Int
	GetAccessList() AccessList
	// GasPrice returns the legacy/access-list gas price; zero for fee-market.
	GasPrice() *uint256.Int
	// Tip returns the priority fee the sender is willing to pay: gas price
	// for legacy/access-list transactions, max_priority_fee_per_gas for
	// fee-market ones.
	Tip() *uint256.Int
	// FeeCap returns the maximum total fee per gas the sender will pay:
	// gas price for legacy/access-list transactions, max_fee_per_gas for
	// fee-market ones.
	FeeCap() *uint256.Int
	RawSignatureValues() (r, s *uint256.Int, recoveryID uint8)
	SetSignature(r, s *uint256.Int, recoveryID uint8)

	// Hash returns the canonical transaction hash, computing and memoizing
	// it on first call.
	Hash() common.Hash
	// Sender returns the address recovered from the signature, computing
	// and memoizing it on first call. chainID is the node's configured
	// chain id, used to validate any chain id carried on the transaction.
	Sender(chainID *uint256.Int) (common.Address, error)

	// Validate checks variant-specific structural invariants (e.g.
	// max_priority_fee_per_gas <= max_fee_per_gas) beyond what the codec
	// already enforces while parsing.
	Validate() error

	// IntrinsicGas returns the static gas cost of the transaction: base
	// cost, payload bytes, and access-list entries. It never touches the
	// EVM.
	IntrinsicGas() uint64

	copy() Transaction
}

// LegacyTx is the original, un-typed transaction envelope.
type LegacyTx struct {
	commonTx
	GasPriceField uint256.Int
}

func (tx *LegacyTx) Type() TxType                 { return LegacyTxType }
func (tx *LegacyTx) GetNonce() uint64              { return tx.Nonce }
func (tx *LegacyTx) GetGasLimit() uint64           { return tx.GasLimit }
func (tx *LegacyTx) GetTo() *common.Address        { return tx.To }
func (tx *LegacyTx) GetValue() *uint256.Int        { return &tx.Value }
func (tx *LegacyTx) GetData() []byte               { return tx.Data }
func (tx *LegacyTx) GetChainID() *uint256.Int      { return tx.ChainID }
func (tx *LegacyTx) GetAccessList() AccessList      { return nil }
func (tx *LegacyTx) GasPrice() *uint256.Int         { return &tx.GasPriceField }
func (tx *LegacyTx) Tip() *uint256.Int              { return &tx.GasPriceField }
func (tx *LegacyTx) FeeCap() *uint256.Int           { return &tx.GasPriceField }
func (tx *LegacyTx) RawSignatureValues() (*uint256.Int, *uint256.Int, uint8) {
	return &tx.Sig.R, &tx.Sig.S, tx.Sig.RecoveryID
}
func (tx *LegacyTx) SetSignature(r, s *uint256.Int, recoveryID uint8) {
	tx.Sig.R.Set(r)
	tx.Sig.S.Set(s)
	tx.Sig.RecoveryID = recoveryID
}
func (tx *LegacyTx) Validate() error { return nil }

func (tx *LegacyTx) IntrinsicGas() uint64 {
	return intrinsicGas(tx.To == nil, tx.Data, nil)
}

func (tx *LegacyTx) copy() Transaction {
	cpy := &LegacyTx{GasPriceField: tx.GasPriceField}
	copyCommon(&cpy.commonTx, &tx.commonTx)
	return cpy
}

// AccessListTx is the EIP-2930 typed transaction.
type AccessListTx struct {
	commonTx
	GasPriceField uint256.Int
	AccessListF   AccessList
}

func (tx *AccessListTx) Type() TxType            { return AccessListTxType }
func (tx *AccessListTx) GetNonce() uint64         { return tx.Nonce }
func (tx *AccessListTx) GetGasLimit() uint64      { return tx.GasLimit }
func (tx *AccessListTx) GetTo() *common.Address   { return tx.To }
func (tx *AccessListTx) GetValue() *uint256.Int   { return &tx.Value }
func (tx *AccessListTx) GetData() []byte          { return tx.Data }
func (tx *AccessListTx) GetChainID() *uint256.Int { return tx.ChainID }
func (tx *AccessListTx) GetAccessList() AccessList { return tx.AccessListF }
func (tx *AccessListTx) GasPrice() *uint256.Int    { return &tx.GasPriceField }
func (tx *AccessListTx) Tip() *uint256.Int         { return &tx.GasPriceField }
func (tx *AccessListTx) FeeCap() *uint256.Int      { return &tx.GasPriceField }
func (tx *AccessListTx) RawSignatureValues() (*uint256.Int, *uint256.Int, uint8) {
	return &tx.Sig.R, &tx.Sig.S, tx.Sig.RecoveryID
}
func (tx *AccessListTx) SetSignature(r, s *uint256.Int, recoveryID uint8) {
	tx.Sig.R.Set(r)
	tx.Sig.S.Set(s)
	tx.Sig.RecoveryID = recoveryID
}
func (tx *AccessListTx) Validate() error { return nil }

func (tx *AccessListTx) IntrinsicGas() uint64 {
	return intrinsicGas(tx.To == nil, tx.Data, tx.AccessListF)
}

func (tx *AccessListTx) copy() Transaction {
	cpy := &AccessListTx{GasPriceField: tx.GasPriceField, AccessListF: tx.AccessListF.Copy()}
	copyCommon(&cpy.commonTx, &tx.commonTx)
	return cpy
}

// FeeMarketTx is the EIP-1559 typed transaction.
type FeeMarketTx struct {
	commonTx
	MaxPriorityFeePerGasField uint256.Int
	MaxFeePerGasField         uint256.Int
	AccessListF               AccessList
}

func (tx *FeeMarketTx) Type() TxType            { return FeeMarketTxType }
func (tx *FeeMarketTx) GetNonce() uint64         { return tx.Nonce }
func (tx *FeeMarketTx) GetGasLimit() uint64      { return tx.GasLimit }
func (tx *FeeMarketTx) GetTo() *common.Address   { return tx.To }
func (tx *FeeMarketTx) GetValue() *uint256.Int   { return &tx.Value }
func (tx *FeeMarketTx) GetData() []byte          { return tx.Data }
func (tx *FeeMarketTx) GetChainID() *uint256.Int { return tx.ChainID }
func (tx *FeeMarketTx) GetAccessList() AccessList { return tx.AccessListF }
func (tx *FeeMarketTx) GasPrice() *uint256.Int     { return uint256.NewInt(0) }
func (tx *FeeMarketTx) Tip() *uint256.Int          { return &tx.MaxPriorityFeePerGasField }
func (tx *FeeMarketTx) FeeCap() *uint256.Int       { return &tx.MaxFeePerGasField }
func (tx *FeeMarketTx) RawSignatureValues() (*uint256.Int, *uint256.Int, uint8) {
	return &tx.Sig.R, &tx.Sig.S, tx.Sig.RecoveryID
}
func (tx *FeeMarketTx) SetSignature(r, s *uint256.Int, recoveryID uint8) {
	tx.Sig.R.Set(r)
	tx.Sig.S.Set(s)
	tx.Sig.RecoveryID = recoveryID
}

func (tx *FeeMarketTx) Validate() error {
	if tx.MaxPriorityFeePerGasField.Gt(&tx.MaxFeePerGasField) {
		return ErrTipAboveFeeCap
	}
	return nil
}

func (tx *FeeMarketTx) IntrinsicGas() uint64 {
	return intrinsicGas(tx.To == nil, tx.Data, tx.AccessListF)
}

func (tx *FeeMarketTx) copy() Transaction {
	cpy := &FeeMarketTx{
		MaxPriorityFeePerGasField: tx.MaxPriorityFeePerGasField,
		MaxFeePerGasField:         tx.MaxFeePerGasField,
		AccessListF:               tx.AccessListF.Copy(),
	}
	copyCommon(&cpy.commonTx, &tx.commonTx)
	return cpy
}

func copyCommon(dst, src *commonTx) {
	dst.Nonce = src.Nonce
	dst.GasLimit = src.GasLimit
	if src.To != nil {
		to := *src.To
		dst.To = &to
	}
	dst.Value = src.Value
	dst.Data = common.Copy(src.Data)
	if src.ChainID != nil {
		id := src.ChainID.Clone()
		dst.ChainID = id
	}
	dst.Sig = src.Sig
}

// intrinsicGas implements the EIP-2028/EIP-2930 static gas formula: base
// cost, per-byte payload cost (non-zero bytes cost more), and per-entry
// access-list cost. It never touches the EVM or dynamic state.
func intrinsicGas(isCreate bool, data []byte, al AccessList) uint64 {
	gas := fixedgas.TxGas
	if isCreate {
		gas = fixedgas.TxGasContractCreation
	}
	var nz uint64
	for _, b := range data {
		if b != 0 {
			nz++
		}
	}
	z := uint64(len(data)) - nz
	gas += nz * fixedgas.TxDataNonZeroGasEIP2028
	gas += z * fixedgas.TxDataZeroGas
	if len(al) > 0 {
		gas += uint64(len(al)) * fixedgas.TxAccessListAddressGas
		gas += uint64(al.StorageKeys()) * fixedgas.TxAccessListStorageKeyGas
	}
	return gas
}
