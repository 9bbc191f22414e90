package subpool

import (
	"container/heap"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
	"github.com/luxfi/mempool/core/txpool/interner"
	"github.com/luxfi/mempool/core/types"
)

// BestFilter lets a caller reject candidates the iterator would
// otherwise yield without marking them permanently invalid, the
// supplemented generalization of skip-blobs (spec §4.4.4 names
// skip_blobs explicitly; a proposer excluding other transaction shapes
// needs the same hook).
type BestFilter func(tx *types.Tx) bool

// bestCandidate is one entry waiting in a Best iterator's priority heap:
// always the lowest not-yet-yielded nonce for its sender, since a
// transaction can never be proposed before its ancestor (spec §4.4.4,
// "priority-monotonic yield guarantee" + per-sender nonce ordering).
type bestCandidate struct {
	id       txpool.TransactionId
	tx       *types.Tx
	priority txpool.Priority
}

// bestHeap is a container/heap max-heap over Priority.Less, so Pop
// always returns the currently-highest-priority candidate.
type bestHeap []*bestCandidate

func (h bestHeap) Len() int { return len(h) }
func (h bestHeap) Less(i, j int) bool {
	// h[i] sorts first (i.e. is popped first) when it outranks h[j]:
	// h[j] ranking below h[i] is exactly h[j].priority.Less(h[i].priority).
	return h[j].priority.Less(h[i].priority)
}
func (h bestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bestHeap) Push(x any)   { *h = append(*h, x.(*bestCandidate)) }
func (h *bestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// prioritizedPriority wraps an underlying Priority so every candidate
// from a caller-designated sender always outranks every candidate from
// any other sender, implementing BestWithPrioritizedSenders (spec
// design notes, supplemented from the reth ancestor's
// prioritized-sender best-transactions wrapper).
type prioritizedPriority struct {
	prioritized bool
	inner       txpool.Priority
}

func (p prioritizedPriority) Less(other txpool.Priority) bool {
	o := other.(prioritizedPriority)
	if p.prioritized != o.prioritized {
		return !p.prioritized
	}
	return p.inner.Less(o.inner)
}

// Best is the lazy, priority-ordered transaction iterator of spec
// §4.4.4, used by block building to pull transactions in decreasing
// priority order while respecting each sender's nonce chain. It records
// each sender's lowest Pending nonce under the pool's single exclusive
// lock; it does not copy the Pending subpool. Every Next call takes the
// pool lock again and reads the live Pending subpool, so a descendant is
// queued only if it is still Pending at that moment. Transactions
// admitted straight into Pending after construction arrive through a
// non-blocking live-update channel.
type Best struct {
	pool     *Pool
	ordering txpool.Ordering

	baseFee *uint256.Int // overridden by BestWithFees, otherwise the pool's current fee

	heap       bestHeap
	senderHead map[interner.SenderId]uint64 // most recently queued nonce per sender (its frontier)

	invalid mapset.Set[common.Hash]
	filter  BestFilter

	prioritized map[common.Address]bool

	live chan *types.Tx
}

// Best returns an iterator over the Pending subpool ordered by ordering,
// evaluated against the pool's current base fee.
func (p *Pool) Best(ordering txpool.Ordering) *Best {
	return p.bestWithFees(ordering, nil, nil, nil)
}

// BestWithFees evaluates ordering against an alternate base fee instead
// of the pool's live one, letting a proposer look ahead to a block whose
// base fee it has already computed (spec design notes; supplemented from
// the reth ancestor's best_transactions_with_attributes). A candidate
// whose fee cap is below that base fee is skipped, and so are its
// descendants. The blob fee is not taken into account: blob transactions
// are filtered by base fee only.
func (p *Pool) BestWithFees(ordering txpool.Ordering, baseFee *uint256.Int) *Best {
	var filter BestFilter
	if baseFee != nil {
		filter = func(tx *types.Tx) bool { return tx.GasFeeCap.Cmp(baseFee) >= 0 }
	}
	return p.bestWithFees(ordering, baseFee, nil, filter)
}

// BestWithPrioritizedSenders behaves like Best but guarantees every
// transaction from a prioritized sender is yielded ahead of every
// transaction from any other sender (spec design notes).
func (p *Pool) BestWithPrioritizedSenders(ordering txpool.Ordering, prioritized []common.Address) *Best {
	set := make(map[common.Address]bool, len(prioritized))
	for _, addr := range prioritized {
		set[addr] = true
	}
	return p.bestWithFees(ordering, nil, set, nil)
}

func (p *Pool) bestWithFees(ordering txpool.Ordering, baseFee *uint256.Int, prioritized map[common.Address]bool, filter BestFilter) *Best {
	p.mu.Lock()
	defer p.mu.Unlock()

	fee := baseFee
	if fee == nil {
		fee = p.fees.baseFee
	}

	b := &Best{
		pool:        p,
		ordering:    ordering,
		baseFee:     fee,
		senderHead:  make(map[interner.SenderId]uint64),
		invalid:     mapset.NewThreadUnsafeSet[common.Hash](),
		filter:      filter,
		prioritized: prioritized,
	}
	heap.Init(&b.heap)

	lowest := make(map[interner.SenderId]uint64)
	for id := range p.byKind[txpool.Pending] {
		if cur, ok := lowest[id.Sender]; !ok || id.Nonce < cur {
			lowest[id.Sender] = id.Nonce
		}
	}
	for sender, nonce := range lowest {
		id := txpool.NewTransactionId(sender, nonce)
		b.pushCandidate(id)
	}

	ch := make(chan *types.Tx, txpool.MaxNewPendingTxsNotifications)
	p.liveUpdates = append(p.liveUpdates, ch)
	b.live = ch
	return b
}

// pushCandidate computes priority for the held Pending transaction at id
// and, if the Ordering accepts it, pushes it into the heap, recording
// that this sender's frontier has advanced to id.Nonce. Must be called
// with pool.mu held.
func (b *Best) pushCandidate(id txpool.TransactionId) {
	h, ok := b.pool.byKind[txpool.Pending][id]
	if !ok {
		return
	}
	pr := b.ordering.Priority(h.valid.Tx, b.baseFee)
	if pr == nil {
		return
	}
	if b.prioritized != nil {
		pr = prioritizedPriority{prioritized: b.prioritized[h.valid.Tx.Sender], inner: pr}
	}
	heap.Push(&b.heap, &bestCandidate{id: id, tx: h.valid.Tx, priority: pr})
	b.senderHead[id.Sender] = id.Nonce
}

// SkipBlobs configures the iterator to silently skip blob-carrying
// candidates, used by a proposer that has already filled its blob
// target for the block (spec §4.4.4, "skip-blobs").
func (b *Best) SkipBlobs() *Best {
	return b.Filter(func(tx *types.Tx) bool { return !tx.IsBlobTx() })
}

// Filter composes pred into the iterator's filter chain: a candidate
// must clear every filter applied so far to be yielded. This is the
// general form SkipBlobs specializes, matching the reth ancestor's
// BestTransactionFilter wrapper (spec design notes).
func (b *Best) Filter(pred BestFilter) *Best {
	existing := b.filter
	b.filter = func(tx *types.Tx) bool {
		if !pred(tx) {
			return false
		}
		if existing != nil {
			return existing(tx)
		}
		return true
	}
	return b
}

// MarkInvalid excludes tx and every descendant of the same sender from
// the remainder of this iteration, used when a proposer discovers a
// yielded transaction does not actually execute (spec §4.4.4).
func (b *Best) MarkInvalid(tx *types.Tx) {
	b.invalid.Add(tx.Hash())
	// At most one candidate per sender waits in the heap; dropping it
	// stops any later nonce of this sender from being queued.
	for i, c := range b.heap {
		if c.tx.Sender == tx.Sender && c.tx.TxNonce >= tx.TxNonce {
			heap.Remove(&b.heap, i)
			break
		}
	}
}

// Next returns the next highest-priority transaction, or nil once the
// iterator is exhausted. Skipped (filtered or invalidated) candidates
// still advance the per-sender frontier but never queue their
// descendant, since a block builder that rejected or filtered a
// transaction cannot include anything depending on its nonce either.
func (b *Best) Next() *types.Tx {
	b.pool.mu.Lock()
	defer b.pool.mu.Unlock()

	b.drainLive()

	for b.heap.Len() > 0 {
		cand := heap.Pop(&b.heap).(*bestCandidate)

		if b.invalid.Contains(cand.tx.Hash()) {
			continue
		}
		if b.filter != nil && !b.filter(cand.tx) {
			continue
		}

		b.pushCandidate(cand.id.Descendant())
		return cand.tx
	}
	return nil
}

// drainLive non-blockingly folds in transactions admitted straight into
// Pending since construction or the last Next call. Only a sender's true
// head-of-line nonce is queued; anything else arrives later through
// normal descendant promotion. Must be called with pool.mu held.
func (b *Best) drainLive() {
	for {
		select {
		case tx := <-b.live:
			sender, ok := b.pool.interner.Lookup(tx.Sender)
			if !ok {
				continue
			}
			if _, tracked := b.senderHead[sender]; tracked {
				continue
			}
			id := txpool.NewTransactionId(sender, tx.TxNonce)
			b.pushCandidate(id)
		default:
			return
		}
	}
}

// Close releases the iterator's live-update channel registration. Safe
// to call multiple times.
func (b *Best) Close() {
	b.pool.mu.Lock()
	defer b.pool.mu.Unlock()
	for i, ch := range b.pool.liveUpdates {
		if ch == b.live {
			b.pool.liveUpdates = append(b.pool.liveUpdates[:i], b.pool.liveUpdates[i+1:]...)
			break
		}
	}
}
