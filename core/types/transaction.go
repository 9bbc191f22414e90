// Package types defines the transaction data model consumed by the mempool.
//
// The pool treats a transaction as an opaque, already fee-complete and
// already signature-recovered payload: everything the subpool engine,
// validator and blob store need is exposed as plain fields or cheap
// accessors, mirroring how go-ethereum family clients shape
// core/types.Transaction for consumption by core/txpool.
package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TxType enumerates the transaction envelopes the pool understands. The
// numeric values intentionally mirror the EIP-2718 envelope ids used by
// go-ethereum so logging and metrics labels line up with the wider
// ecosystem.
type TxType uint8

const (
	LegacyTxType TxType = iota
	AccessListTxType
	DynamicFeeTxType
	BlobTxType
	SetCodeTxType
)

func (t TxType) String() string {
	switch t {
	case LegacyTxType:
		return "legacy"
	case AccessListTxType:
		return "access_list"
	case DynamicFeeTxType:
		return "dynamic_fee"
	case BlobTxType:
		return "blob"
	case SetCodeTxType:
		return "set_code"
	default:
		return "unknown"
	}
}

// IsBlob reports whether the envelope carries blob data (EIP-4844).
func (t TxType) IsBlob() bool { return t == BlobTxType }

// Authorization is an EIP-7702 set-code authorization tuple. Only the
// fields the pool's stateful bytecode check needs are kept.
type Authorization struct {
	ChainID uint64
	Address common.Address
	Nonce   uint64
}

// Tx is the validated transaction payload held by the pool. Equality and
// identity are by Hash; every other field is immutable once constructed.
type Tx struct {
	TxHash     common.Hash
	Sender     common.Address
	TxNonce    uint64
	GasLimit   uint64
	GasFeeCap  *uint256.Int // max_fee_per_gas
	GasTipCap  *uint256.Int // max_priority_fee_per_gas
	BlobFeeCap *uint256.Int // max_fee_per_blob_gas, nil for non-blob types
	BlobHashes []common.Hash
	BlobGas    uint64 // blob_gas_limit = len(BlobHashes) * params.BlobTxBlobGasPerBlob
	Type       TxType
	TxValue    *uint256.Int
	Size       uint64 // encoded_size
	Authlist   []Authorization

	// ChainID is used by the stateless chain-id check; zero means the
	// legacy (pre-EIP-155) "replay on any chain" envelope.
	ChainID uint64
}

// Hash returns the transaction's identifying hash.
func (tx *Tx) Hash() common.Hash { return tx.TxHash }

// From returns the transaction's signer/sender address.
func (tx *Tx) From() common.Address { return tx.Sender }

// Nonce returns the transaction's sender-scoped nonce.
func (tx *Tx) Nonce() uint64 { return tx.TxNonce }

// Gas returns the transaction's gas limit.
func (tx *Tx) Gas() uint64 { return tx.GasLimit }

// Value returns the wei value transferred by the transaction.
func (tx *Tx) Value() *uint256.Int { return tx.TxValue }

// EncodedSize returns the transaction's wire size in bytes, used for
// subpool byte accounting.
func (tx *Tx) EncodedSize() uint64 { return tx.Size }

// IsBlobTx reports whether this is an EIP-4844 blob-carrying transaction.
func (tx *Tx) IsBlobTx() bool { return tx.Type.IsBlob() }

// Cost returns value + gas_limit*max_fee_per_gas + blob_gas*max_fee_per_blob_gas,
// the worst-case wei a sender's balance must cover for this transaction
// alone (see spec §3, "cost").
func (tx *Tx) Cost() *uint256.Int {
	total := new(uint256.Int).Set(tx.TxValue)

	gasCost := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.GasFeeCap)
	total.Add(total, gasCost)

	if tx.BlobFeeCap != nil && tx.BlobGas > 0 {
		blobCost := new(uint256.Int).Mul(uint256.NewInt(tx.BlobGas), tx.BlobFeeCap)
		total.Add(total, blobCost)
	}
	return total
}

// EffectiveGasTip returns min(max_priority_fee_per_gas, max_fee_per_gas-base_fee),
// clamped at zero, the per-gas wei a proposer actually collects at the
// given base fee. Used by the default CoinbaseTip ordering.
func (tx *Tx) EffectiveGasTip(baseFee *uint256.Int) *uint256.Int {
	if baseFee == nil {
		return new(uint256.Int).Set(tx.GasTipCap)
	}
	if tx.GasFeeCap.Cmp(baseFee) < 0 {
		return uint256.NewInt(0)
	}
	headroom := new(uint256.Int).Sub(tx.GasFeeCap, baseFee)
	if tx.GasTipCap.Cmp(headroom) < 0 {
		return new(uint256.Int).Set(tx.GasTipCap)
	}
	return headroom
}

// GasFeeCapIntCmp compares the max fee per gas against a *big.Int,
// convenience for call sites still speaking math/big (chain-config
// derived base fees typically arrive this way).
func (tx *Tx) GasFeeCapIntCmp(other *big.Int) int {
	return tx.GasFeeCap.ToBig().Cmp(other)
}
