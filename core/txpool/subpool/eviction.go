package subpool

import (
	"github.com/ethereum/go-ethereum/common/prque"

	"github.com/luxfi/mempool/core/txpool"
)

// scoreScale spaces out the primary "how bad" component of an eviction
// score so the secondary submission_id component can never flip the
// primary ordering (spec design notes: BaseFee/Blob tie-break resolved as
// fee_delta_ascending with submission_id as the secondary key).
const scoreScale = int64(1) << 40

// compositeScore folds a primary badness score and a submission_id into
// a single comparable value for prque, which always pops the largest
// score first. Larger primary badness is evicted first; among equal
// badness, the lower (older) submission_id is evicted first.
func compositeScore(primary int64, subID uint64) int64 {
	return primary*scoreScale - int64(subID&0x7fffffffff)
}

// worstScore computes a kind-specific "how evictable" score for a single
// held transaction (spec §4.4.7, "subpool-specific worst ordering").
// Larger is worse.
func (p *Pool) worstScore(kind txpool.SubPoolKind, h *heldTx) int64 {
	tx := h.valid.Tx
	switch kind {
	case txpool.Pending:
		tip := tx.EffectiveGasTip(p.fees.baseFee)
		if !tip.IsUint64() {
			return 0
		}
		return -int64(tip.Uint64())
	case txpool.BaseFee:
		return -feeDelta(tx.GasFeeCap, p.fees.baseFee)
	case txpool.Blob:
		if tx.BlobFeeCap != nil {
			return -feeDelta(tx.BlobFeeCap, p.fees.blobFee)
		}
		return 0
	}
	return 0
}

// queuedWorstScore ranks queued transactions by how far their nonce sits
// past the sender's base nonce: the deepest gaps are least likely ever to
// become executable and are evicted first.
func (p *Pool) queuedWorstScore(state *senderState, h *heldTx) int64 {
	return int64(h.valid.Tx.TxNonce - state.baseNonce)
}

// evictWorst frees capacity from kind by removing its worst-ranked
// transactions, cascading to each victim's descendants, until needCount
// and needBytes both drop to zero or below. removeCascade already fires
// the Discarded notification for every victim, so the caller only needs
// the freed byte total.
func (p *Pool) evictWorst(kind txpool.SubPoolKind, needCount, needBytes int64) (freedCount int, freedBytes int64) {
	q := prque.New[int64, txpool.TransactionId](nil)
	for id, h := range p.byKind[kind] {
		var score int64
		if kind == txpool.Queued {
			score = compositeScore(p.queuedWorstScore(p.senders[id.Sender], h), h.subID)
		} else {
			score = compositeScore(p.worstScore(kind, h), h.subID)
		}
		q.Push(id, score)
	}

	for !q.Empty() && (needCount > 0 || needBytes > 0) {
		id, _ := q.Pop()
		if _, ok := p.byKind[kind][id]; !ok {
			continue // already removed as a descendant of an earlier victim
		}
		var size int64
		for _, d := range p.senders[id.Sender].descendants(id.Nonce) {
			size += int64(d.valid.Tx.EncodedSize())
		}
		removed := p.removeCascade(id, txpool.DiscardReasonEvicted)
		if len(removed) == 0 {
			continue
		}
		freedCount += len(removed)
		freedBytes += size
		needCount -= int64(len(removed))
		needBytes -= size
		evictedMeter.Mark(int64(len(removed)))
	}
	return freedCount, freedBytes
}

// enforceLimits evicts from kind until it satisfies its configured
// SubPoolLimit, called after every admission (spec §4.4.3 step 6,
// §4.4.7).
func (p *Pool) enforceLimits(kind txpool.SubPoolKind) {
	limit := p.limits[kind]
	if limit.MaxCount == 0 && limit.MaxBytes == 0 {
		return
	}
	count := uint64(len(p.byKind[kind]))
	var bytes uint64
	for _, h := range p.byKind[kind] {
		bytes += h.valid.Tx.EncodedSize()
	}
	var needCount, needBytes int64
	if limit.MaxCount > 0 && count > limit.MaxCount {
		needCount = int64(count - limit.MaxCount)
	}
	if limit.MaxBytes > 0 && bytes > limit.MaxBytes {
		needBytes = int64(bytes - limit.MaxBytes)
	}
	if needCount <= 0 && needBytes <= 0 {
		return
	}
	p.evictWorst(kind, needCount, needBytes)
}
