package types

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"math/bits"

	"github.com/erigontech/secp256k1"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/common/u256"
	"github.com/ethforge/txpool-core/crypto"
	"github.com/ethforge/txpool-core/rlp"
)

// TxParseConfig fixes the chain id a TxParseContext validates incoming
// transactions against.
type TxParseConfig struct {
	ChainID uint256.Int
}

// txSignature holds the raw (v, r, s) triple recovered while parsing, ahead
// of the yParity/chainID split that legacy encoding requires.
type txSignature struct {
	ChainID uint256.Int
	V       uint256.Int
	R       uint256.Int
	S       uint256.Int
}

// TxParseContext is a reusable flyweight for extracting TxSlot data out of
// wire-format transaction payloads without the allocations a full Decode
// into a Transaction would cost. The pool's wire-format ingestion path uses
// it ahead of Decode, to reject a duplicate or gas-starved transaction
// before the full decode.
type TxParseContext struct {
	txSignature
	keccak1       hash.Hash
	keccak2       hash.Hash
	cfg           TxParseConfig
	buf           [65]byte
	sig           [65]byte
	sighash       [32]byte
	withSender    bool
	allowPreEip2s bool
}

func NewTxParseContext(chainID uint256.Int) *TxParseContext {
	if chainID.IsZero() {
		panic("types: NewTxParseContext requires a non-zero chain id")
	}
	ctx := &TxParseContext{
		withSender: true,
		keccak1:    sha3.NewLegacyKeccak256(),
		keccak2:    sha3.NewLegacyKeccak256(),
	}
	ctx.cfg.ChainID.Set(&chainID)
	return ctx
}

func (ctx *TxParseContext) WithSender(v bool)        { ctx.withSender = v }
func (ctx *TxParseContext) WithAllowPreEip2s(v bool) { ctx.allowPreEip2s = v }

// TxSlot is the information the pool needs to rank and store a transaction,
// extracted directly from its RLP without building a full Transaction.
type TxSlot struct {
	Rlp            []byte
	Value          uint256.Int
	Tip            uint256.Int
	FeeCap         uint256.Int
	Nonce          uint64
	DataLen        int
	DataNonZeroLen int
	AlAddrCount    int
	AlStorCount    int
	Gas            uint64
	IDHash         [32]byte
	Creation       bool
	Type           byte
	Size           uint32
	FastLzSize     uint64
}

var ErrParseTxn = fmt.Errorf("%w transaction", rlp.ErrParse)

// PeekTransactionType returns the type byte of a wire-encoded transaction
// without parsing its body: LegacyTxType for a bare RLP list, else the byte
// following the envelope prefix.
func PeekTransactionType(serialized []byte) (byte, error) {
	dataPos, _, isList, err := rlp.Prefix(serialized, 0)
	if err != nil {
		return byte(LegacyTxType), fmt.Errorf("%w: %s", ErrParseTxn, err)
	}
	if isList {
		return byte(LegacyTxType), nil
	}
	return serialized[dataPos], nil
}

// ParseTransaction extracts a TxSlot from payload starting at pos, writing
// the recovered sender address (20 bytes) into sender when withSender is
// set. It returns the position immediately after the consumed transaction.
func (ctx *TxParseContext) ParseTransaction(payload []byte, pos int, slot *TxSlot, sender []byte) (p int, err error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("%w: empty rlp", ErrParseTxn)
	}
	if ctx.withSender && len(sender) != length20 {
		return 0, fmt.Errorf("%w: sender buffer must be %d bytes", ErrParseTxn, length20)
	}

	dataPos, dataLen, isList, err := rlp.Prefix(payload, pos)
	if err != nil {
		return 0, fmt.Errorf("%w: prefix: %s", ErrParseTxn, err)
	}
	if dataLen == 0 {
		return 0, fmt.Errorf("%w: transaction must be either a list or a string", ErrParseTxn)
	}

	p = dataPos
	legacy := isList
	if legacy {
		slot.Type = byte(LegacyTxType)
		slot.Rlp = payload[pos : dataPos+dataLen]
	} else {
		slot.Type = payload[p]
		if slot.Type != byte(AccessListTxType) && slot.Type != byte(FeeMarketTxType) {
			return 0, fmt.Errorf("%w: unknown transaction type: %d", ErrParseTxn, slot.Type)
		}
		p++
		envPos, envLen, err := rlp.List(payload, p)
		if err != nil {
			return 0, fmt.Errorf("%w: envelope: %s", ErrParseTxn, err)
		}
		slot.Rlp = payload[pos : envPos+envLen]
	}

	p, err = ctx.parseTransactionBody(payload, pos, p, slot, sender)
	if err != nil {
		return p, err
	}
	slot.Size = uint32(len(slot.Rlp))
	return p, nil
}

const length20 = 20

func (ctx *TxParseContext) parseTransactionBody(payload []byte, pos, p0 int, slot *TxSlot, sender []byte) (p int, err error) {
	p = p0
	legacy := slot.Type == byte(LegacyTxType)

	ctx.keccak1.Reset()
	ctx.keccak2.Reset()
	if !legacy {
		typeByte := []byte{slot.Type}
		if _, err = ctx.keccak1.Write(typeByte); err != nil {
			return 0, fmt.Errorf("%w: hashing type byte: %s", ErrParseTxn, err)
		}
		if _, err = ctx.keccak2.Write(typeByte); err != nil {
			return 0, fmt.Errorf("%w: hashing type byte: %s", ErrParseTxn, err)
		}
		dataPos, dataLen, err := rlp.List(payload, p)
		if err != nil {
			return 0, fmt.Errorf("%w: envelope: %s", ErrParseTxn, err)
		}
		if _, err = ctx.keccak1.Write(payload[p : dataPos+dataLen]); err != nil {
			return 0, fmt.Errorf("%w: hashing envelope: %s", ErrParseTxn, err)
		}
		p = dataPos
	}

	sigHashPos := p

	if !legacy {
		p, err = rlp.U256(payload, p, &ctx.ChainID)
		if err != nil {
			return 0, fmt.Errorf("%w: chainId: %s", ErrParseTxn, err)
		}
		if !ctx.ChainID.Eq(&ctx.cfg.ChainID) {
			return 0, fmt.Errorf("%w: invalid chainID %s (expected %s)", ErrParseTxn, &ctx.ChainID, &ctx.cfg.ChainID)
		}
	}

	p, slot.Nonce, err = rlp.U64(payload, p)
	if err != nil {
		return 0, fmt.Errorf("%w: nonce: %s", ErrParseTxn, err)
	}
	p, err = rlp.U256(payload, p, &slot.Tip)
	if err != nil {
		return 0, fmt.Errorf("%w: tip: %s", ErrParseTxn, err)
	}
	if slot.Type < byte(FeeMarketTxType) {
		slot.FeeCap = slot.Tip
	} else {
		p, err = rlp.U256(payload, p, &slot.FeeCap)
		if err != nil {
			return 0, fmt.Errorf("%w: feeCap: %s", ErrParseTxn, err)
		}
	}
	p, slot.Gas, err = rlp.U64(payload, p)
	if err != nil {
		return 0, fmt.Errorf("%w: gas: %s", ErrParseTxn, err)
	}
	dataPos, dataLen, err := rlp.String(payload, p)
	if err != nil {
		return 0, fmt.Errorf("%w: to: %s", ErrParseTxn, err)
	}
	if dataLen != 0 && dataLen != length20 {
		return 0, fmt.Errorf("%w: unexpected length of to field: %d", ErrParseTxn, dataLen)
	}
	slot.Creation = dataLen == 0
	p = dataPos + dataLen

	p, err = rlp.U256(payload, p, &slot.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: value: %s", ErrParseTxn, err)
	}

	dataPos, dataLen, err = rlp.String(payload, p)
	if err != nil {
		return 0, fmt.Errorf("%w: data: %s", ErrParseTxn, err)
	}
	slot.DataLen = dataLen
	slot.DataNonZeroLen = 0
	for _, b := range payload[dataPos : dataPos+dataLen] {
		if b != 0 {
			slot.DataNonZeroLen++
		}
	}
	slot.FastLzSize = uint64(FlzCompressLen(payload))
	p = dataPos + dataLen

	if !legacy {
		dataPos, dataLen, err = rlp.List(payload, p)
		if err != nil {
			return 0, fmt.Errorf("%w: access list: %s", ErrParseTxn, err)
		}
		tuplePos := dataPos
		for tuplePos < dataPos+dataLen {
			var tupleLen int
			tuplePos, tupleLen, err = rlp.List(payload, tuplePos)
			if err != nil {
				return 0, fmt.Errorf("%w: access-list tuple: %s", ErrParseTxn, err)
			}
			var addrPos int
			addrPos, err = rlp.StringOfLen(payload, tuplePos, length20)
			if err != nil {
				return 0, fmt.Errorf("%w: access-list address: %s", ErrParseTxn, err)
			}
			slot.AlAddrCount++
			storagePos, storageLen, err := rlp.List(payload, addrPos+length20)
			if err != nil {
				return 0, fmt.Errorf("%w: storage key list: %s", ErrParseTxn, err)
			}
			keyPos := storagePos
			for keyPos < storagePos+storageLen {
				keyPos, err = rlp.StringOfLen(payload, keyPos, 32)
				if err != nil {
					return 0, fmt.Errorf("%w: storage key: %s", ErrParseTxn, err)
				}
				slot.AlStorCount++
				keyPos += 32
			}
			if keyPos != storagePos+storageLen {
				return 0, fmt.Errorf("%w: extraneous space in storage keys", ErrParseTxn)
			}
			tuplePos += tupleLen
			if tuplePos != keyPos {
				return 0, fmt.Errorf("%w: extraneous space in access-list tuple", ErrParseTxn)
			}
		}
		if tuplePos != dataPos+dataLen {
			return 0, fmt.Errorf("%w: extraneous space in access list", ErrParseTxn)
		}
		p = dataPos + dataLen
	}

	var vByte byte
	sigHashEnd := p
	sigHashLen := uint(sigHashEnd - sigHashPos)
	var chainIDBits, chainIDLen int

	p, vByte, err = ctx.parseSignature(payload, p, legacy)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrParseTxn, err)
	}

	if legacy {
		preEip155 := ctx.V.Eq(u256.N27) || ctx.V.Eq(u256.N28)
		if !preEip155 {
			chainIDBits = ctx.ChainID.BitLen()
			if chainIDBits <= 7 {
				chainIDLen = 1
			} else {
				chainIDLen = common.BitLenToByteLen(chainIDBits)
				sigHashLen++
			}
			sigHashLen += uint(chainIDLen)
			sigHashLen += 2
		}
	}

	if legacy {
		if _, err = ctx.keccak1.Write(payload[pos:p]); err != nil {
			return 0, fmt.Errorf("%w: hashing envelope: %s", ErrParseTxn, err)
		}
	}
	if _, err = ctx.keccak1.(io.Reader).Read(slot.IDHash[:32]); err != nil {
		return 0, fmt.Errorf("%w: squeezing id hash: %s", ErrParseTxn, err)
	}

	if !ctx.withSender {
		return p, nil
	}

	if !crypto.TransactionSignatureIsValid(vByte, &ctx.R, &ctx.S, ctx.allowPreEip2s && legacy) {
		return 0, fmt.Errorf("%w: invalid v, r, s: %d, %s, %s", ErrParseTxn, vByte, &ctx.R, &ctx.S)
	}

	if sigHashLen < 56 {
		ctx.buf[0] = byte(sigHashLen) + 192
		if _, err := ctx.keccak2.Write(ctx.buf[:1]); err != nil {
			return 0, fmt.Errorf("%w: hashing sig prefix: %s", ErrParseTxn, err)
		}
	} else {
		beLen := common.BitLenToByteLen(bits.Len(sigHashLen))
		binary.BigEndian.PutUint64(ctx.buf[1:], uint64(sigHashLen))
		ctx.buf[8-beLen] = byte(beLen) + 247
		if _, err := ctx.keccak2.Write(ctx.buf[8-beLen : 9]); err != nil {
			return 0, fmt.Errorf("%w: hashing sig prefix: %s", ErrParseTxn, err)
		}
	}
	if _, err = ctx.keccak2.Write(payload[sigHashPos:sigHashEnd]); err != nil {
		return 0, fmt.Errorf("%w: hashing sig body: %s", ErrParseTxn, err)
	}
	if legacy && chainIDLen > 0 {
		if chainIDBits <= 7 {
			ctx.buf[0] = byte(ctx.ChainID.Uint64())
			if _, err := ctx.keccak2.Write(ctx.buf[:1]); err != nil {
				return 0, fmt.Errorf("%w: hashing legacy chainId: %s", ErrParseTxn, err)
			}
		} else {
			chainIDBytes := ctx.ChainID.Bytes32()
			ctx.buf[0] = 128 + byte(chainIDLen)
			copy(ctx.buf[1:1+chainIDLen], chainIDBytes[32-chainIDLen:])
			if _, err = ctx.keccak2.Write(ctx.buf[:1+chainIDLen]); err != nil {
				return 0, fmt.Errorf("%w: hashing legacy chainId: %s", ErrParseTxn, err)
			}
		}
		ctx.buf[0] = 128
		ctx.buf[1] = 128
		if _, err := ctx.keccak2.Write(ctx.buf[:2]); err != nil {
			return 0, fmt.Errorf("%w: hashing legacy trailer: %s", ErrParseTxn, err)
		}
	}
	if _, err = ctx.keccak2.(io.Reader).Read(ctx.sighash[:32]); err != nil {
		return 0, fmt.Errorf("%w: squeezing sig hash: %s", ErrParseTxn, err)
	}

	ctx.R.WriteToSlice(ctx.sig[0:32])
	ctx.S.WriteToSlice(ctx.sig[32:64])
	ctx.sig[64] = vByte

	if _, err = secp256k1.RecoverPubkeyWithContext(secp256k1.DefaultContext, ctx.sighash[:], ctx.sig[:], ctx.buf[:0]); err != nil {
		return 0, fmt.Errorf("%w: recovering sender: %s", ErrParseTxn, err)
	}
	ctx.keccak2.Reset()
	if _, err = ctx.keccak2.Write(ctx.buf[1:65]); err != nil {
		return 0, fmt.Errorf("%w: hashing pubkey: %s", ErrParseTxn, err)
	}
	if _, err = ctx.keccak2.(io.Reader).Read(ctx.buf[:32]); err != nil {
		return 0, fmt.Errorf("%w: squeezing sender: %s", ErrParseTxn, err)
	}
	copy(sender, ctx.buf[12:32])

	return p, nil
}

// parseSignature reads (v, r, s) and, for legacy transactions, splits v
// back into (chainID, yParity) per the EIP-155 rule.
func (ctx *TxParseContext) parseSignature(payload []byte, pos int, legacy bool) (p int, yParity byte, err error) {
	p = pos
	p, err = rlp.U256(payload, p, &ctx.V)
	if err != nil {
		return 0, 0, fmt.Errorf("v: %w", err)
	}
	if legacy {
		preEip155 := ctx.V.Eq(u256.N27) || ctx.V.Eq(u256.N28)
		if preEip155 {
			yParity = byte(ctx.V.Uint64() - 27)
			ctx.ChainID.Set(&ctx.cfg.ChainID)
		} else {
			if ctx.V.LtUint64(35) {
				return 0, 0, fmt.Errorf("EIP-155 implies v>=35 (was %d)", ctx.V.Uint64())
			}
			ctx.ChainID.Sub(&ctx.V, u256.N35)
			yParity = byte(ctx.ChainID.Uint64() % 2)
			ctx.ChainID.Rsh(&ctx.ChainID, 1)
			if !ctx.ChainID.Eq(&ctx.cfg.ChainID) {
				return 0, 0, fmt.Errorf("invalid chainID %s (expected %s)", &ctx.ChainID, &ctx.cfg.ChainID)
			}
		}
	} else {
		if !ctx.V.LtUint64(2) {
			return 0, 0, fmt.Errorf("v is too big: %s", &ctx.V)
		}
		yParity = byte(ctx.V.Uint64())
	}
	p, err = rlp.U256(payload, p, &ctx.R)
	if err != nil {
		return 0, 0, fmt.Errorf("r: %w", err)
	}
	p, err = rlp.U256(payload, p, &ctx.S)
	if err != nil {
		return 0, 0, fmt.Errorf("s: %w", err)
	}
	return p, yParity, nil
}

// FlzCompressLen returns the length data would compress to under FastLZ,
// the estimate rollup fee calculators use for L1 calldata cost, without
// actually running the compressor. Here it only feeds TxSlot.FastLzSize.
func FlzCompressLen(ib []byte) uint32 {
	n := uint32(0)
	ht := make([]uint32, 8192)
	u24 := func(i uint32) uint32 {
		return uint32(ib[i]) | (uint32(ib[i+1]) << 8) | (uint32(ib[i+2]) << 16)
	}
	cmp := func(p, q, e uint32) uint32 {
		l := uint32(0)
		for e -= q; l < e; l++ {
			if ib[p+l] != ib[q+l] {
				e = 0
			}
		}
		return l
	}
	literals := func(r uint32) {
		n += 0x21 * (r / 0x20)
		r %= 0x20
		if r != 0 {
			n += r + 1
		}
	}
	match := func(l uint32) {
		l--
		n += 3 * (l / 262)
		if l%262 >= 6 {
			n += 3
		} else {
			n += 2
		}
	}
	hashOf := func(v uint32) uint32 { return ((2654435769 * v) >> 19) & 0x1fff }
	setNextHash := func(ip uint32) uint32 {
		ht[hashOf(u24(ip))] = ip
		return ip + 1
	}
	if len(ib) < 13 {
		return uint32(len(ib))
	}
	a := uint32(0)
	ipLimit := uint32(len(ib)) - 13
	for ip := a + 2; ip < ipLimit; {
		var r, d uint32
		for {
			s := u24(ip)
			h := hashOf(s)
			r = ht[h]
			ht[h] = ip
			d = ip - r
			if ip >= ipLimit {
				break
			}
			ip++
			if d <= 0x1fff && s == u24(r) {
				break
			}
		}
		if ip >= ipLimit {
			break
		}
		ip--
		if ip > a {
			literals(ip - a)
		}
		l := cmp(r+3, ip+3, ipLimit+9)
		match(l)
		ip = setNextHash(setNextHash(ip + l))
		a = ip
	}
	literals(uint32(len(ib)) - a)
	return n
}
