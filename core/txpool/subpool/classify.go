package subpool

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
)

// poolFees is the pool-wide fee snapshot the classifier compares every
// transaction against (spec §4.4.2).
type poolFees struct {
	baseFee *uint256.Int
	blobFee *uint256.Int
}

// classify is the pure classification function of spec §4.4.2: given a
// transaction's position in its sender's gapless chain (affordable means
// the cumulative cost of every transaction up to and including this one,
// starting from the account's current balance, still clears), decide
// which of the four subpools it belongs in.
//
// A transaction that is not the gapless continuation of its sender's
// on-chain nonce, or that the sender cannot afford alongside every
// cheaper-nonced transaction ahead of it, is always Queued regardless of
// fee. Otherwise a blob transaction whose blob fee cap is underpriced
// against the pool's current blob fee is classified Blob; every other
// transaction, blob or not, is Pending when its fee cap meets the base
// fee and BaseFee otherwise.
func classify(h *heldTx, gapless, affordable bool, fees poolFees) txpool.SubPoolKind {
	if !gapless || !affordable {
		return txpool.Queued
	}
	tx := h.valid.Tx
	if tx.IsBlobTx() && tx.BlobFeeCap.Cmp(fees.blobFee) < 0 {
		return txpool.Blob
	}
	if tx.GasFeeCap.Cmp(fees.baseFee) >= 0 {
		return txpool.Pending
	}
	return txpool.BaseFee
}

// feeDelta returns how far below (negative) or above (non-negative,
// clamped to zero) the pool's current fee a transaction's fee cap sits,
// the key the BaseFee and Blob subpools order their "worst" end by.
//
// The spec leaves the exact BaseFee/Blob tie-break ordering as an open
// question (see design notes); this pool resolves it as
// fee_delta_ascending: transactions furthest below the current fee sort
// first (worst), with submission_id as the secondary key so insertion
// order breaks exact ties deterministically.
func feeDelta(tx *uint256.Int, current *uint256.Int) int64 {
	if tx.Cmp(current) >= 0 {
		return 0
	}
	diff := new(uint256.Int).Sub(current, tx)
	if diff.IsUint64() {
		v := diff.Uint64()
		if v > 1<<62 {
			return -(1 << 62)
		}
		return -int64(v)
	}
	return -(1 << 62)
}
