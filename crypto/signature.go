package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/erigontech/secp256k1"
	"github.com/holiman/uint256"

	"github.com/ethforge/txpool-core/common"
)

var (
	// secp256k1N is the order of the secp256k1 curve group.
	secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	// secp256k1halfN is n/2, the low-s canonicalization boundary (EIP-2).
	secp256k1halfN = new(big.Int).Rsh(secp256k1N, 1)

	secp256k1NUint256, _     = uint256.FromBig(secp256k1N)
	secp256k1halfNUint256, _ = uint256.FromBig(secp256k1halfN)
)

// ErrInvalidSignature is returned when a signature fails the low-s /
// recovery-id / recoverability checks.
var ErrInvalidSignature = errors.New("invalid signature")

// SignatureLength is the byte length of an [R || S || V] signature.
const SignatureLength = 64 + 1

// RecoveryIDOffset is the index of the recovery byte within a signature.
const RecoveryIDOffset = 64

// Sign calculates an ECDSA signature over a 32-byte digest, returning the
// canonical low-s [R || S || V] encoding.
func Sign(digestHash []byte, prv *ecdsa.PrivateKey) (sig []byte, err error) {
	if len(digestHash) != 32 {
		return nil, fmt.Errorf("crypto.Sign: hash is required to be exactly 32 bytes (%d)", len(digestHash))
	}
	seckey := make([]byte, 32)
	blob := prv.D.Bytes()
	copy(seckey[32-len(blob):], blob)
	defer zeroBytes(seckey)
	return secp256k1.Sign(digestHash, seckey)
}

// Ecrecover returns the uncompressed public key that produced the given
// signature over the given digest.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	return secp256k1.RecoverPubkeyWithContext(secp256k1.DefaultContext, hash, sig, nil)
}

// SigToPub returns the ecdsa.PublicKey that created the given signature.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	pub, err := Ecrecover(hash, sig)
	if err != nil {
		return nil, err
	}
	return unmarshalPubkey(pub)
}

// PubkeyToAddress derives the 20-byte Ethereum address from an uncompressed
// public key (65 bytes, leading 0x04 prefix byte included).
func PubkeyToAddress(pub []byte) common.Address {
	h := Keccak256(pub[1:])
	return common.BytesToAddress(h[12:])
}

// SenderFromSignature recovers the sender address directly from the signing
// hash and an [R || S || V] signature, without allocating an *ecdsa.PublicKey.
func SenderFromSignature(sighash, sig []byte) (common.Address, error) {
	pub, err := Ecrecover(sighash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	return PubkeyToAddress(pub), nil
}

// TransactionSignatureIsValid reports whether (v, r, s) are admissible
// signature values for a transaction. allowPreEip2s relaxes the low-s
// requirement for legacy transactions signed before EIP-2/EIP-155.
func TransactionSignatureIsValid(v byte, r, s *uint256.Int, allowPreEip2s bool) bool {
	if r.IsZero() || s.IsZero() {
		return false
	}
	if r.Gt(secp256k1NUint256) || s.Gt(secp256k1NUint256) {
		return false
	}
	if !allowPreEip2s && s.Gt(secp256k1halfNUint256) {
		return false
	}
	return v == 0 || v == 1
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func unmarshalPubkey(pub []byte) (*ecdsa.PublicKey, error) {
	if len(pub) != 65 || pub[0] != 4 {
		return nil, errors.New("invalid public key")
	}
	x := new(big.Int).SetBytes(pub[1:33])
	y := new(big.Int).SetBytes(pub[33:65])
	return &ecdsa.PublicKey{Curve: secp256k1.S256(), X: x, Y: y}, nil
}
