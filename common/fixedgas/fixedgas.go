// Package fixedgas holds the static, protocol-defined gas costs needed to
// compute a transaction's intrinsic gas without touching the EVM.
package fixedgas

const (
	// TxGas is the base intrinsic gas for any transaction.
	TxGas uint64 = 21000
	// TxGasContractCreation is the base intrinsic gas for a contract-creation
	// transaction (empty `to`).
	TxGasContractCreation uint64 = 53000

	// TxDataZeroGas is the gas cost of a single zero byte of payload.
	TxDataZeroGas uint64 = 4
	// TxDataNonZeroGasEIP2028 is the gas cost of a single non-zero byte of
	// payload after EIP-2028 (Istanbul).
	TxDataNonZeroGasEIP2028 uint64 = 16

	// TxAccessListAddressGas is the gas cost per address entry in an EIP-2930
	// access list.
	TxAccessListAddressGas uint64 = 2400
	// TxAccessListStorageKeyGas is the gas cost per storage key entry in an
	// EIP-2930 access list.
	TxAccessListStorageKeyGas uint64 = 1900
)
