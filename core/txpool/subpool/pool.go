package subpool

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
	"github.com/luxfi/mempool/core/txpool/interner"
	"github.com/luxfi/mempool/core/types"
)

// recentlyEvictedCacheSize bounds the anti-thrash cache of just-evicted
// hashes: large enough to cover a burst of evictions from one base fee
// jump without holding memory indefinitely.
const recentlyEvictedCacheSize = 4096

// EventSink receives every lifecycle notification the pool emits, kept as
// an interface so this package never depends on the top-level TxPool
// aggregator's concrete event bus (spec component E).
type EventSink interface {
	NotifyNewTransaction(tx *types.Tx, sub txpool.SubPoolKind, propagate bool)
	NotifyTxEvent(hash common.Hash, kind txpool.TxEventKind, reason txpool.DiscardReason)
	NotifyPoolEvent(tx *types.Tx, kind txpool.TxEventKind, reason txpool.DiscardReason, propagate bool)
	NotifyBlobSidecar(hash common.Hash, sidecar *types.BlobTxSidecar)
}

var (
	pendingGauge = metrics.NewRegisteredGauge("subpool/pending/count", nil)
	basefeeGauge = metrics.NewRegisteredGauge("subpool/basefee/count", nil)
	blobGauge    = metrics.NewRegisteredGauge("subpool/blob/count", nil)
	queuedGauge  = metrics.NewRegisteredGauge("subpool/queued/count", nil)
	evictedMeter = metrics.NewRegisteredMeter("subpool/evicted", nil)
	addedMeter   = metrics.NewRegisteredMeter("subpool/added", nil)
)

// Pool is component D: the unified four-subpool engine. A single
// exclusive lock guards all mutation and every Best iterator step (spec
// §5); a Best iterator takes this lock on construction and again on each
// Next call.
type Pool struct {
	mu sync.Mutex

	interner *interner.Interner
	senders  map[interner.SenderId]*senderState

	byHash map[common.Hash]txpool.TransactionId
	byKind [4]map[txpool.TransactionId]*heldTx

	fees poolFees

	limits           [4]txpool.SubPoolLimit
	priceBump        txpool.PriceBumpConfig
	maxSlotsPerSender uint64
	reserve          txpool.AddressReserver

	sink EventSink

	nextSubID uint64

	liveUpdates []chan *types.Tx

	// recentlyEvicted suppresses immediate re-admission thrash: a hash
	// evicted to make room is rejected on resubmission until it ages out
	// of this bounded LRU cache rather than being re-admitted and
	// re-evicted on every subsequent Add.
	recentlyEvicted *lru.Cache
}

// New constructs an empty Pool.
func New(limits [4]txpool.SubPoolLimit, priceBump txpool.PriceBumpConfig, maxSlotsPerSender uint64, reserve txpool.AddressReserver, sink EventSink) *Pool {
	evicted, _ := lru.New(recentlyEvictedCacheSize)
	p := &Pool{
		interner:          interner.New(),
		senders:           make(map[interner.SenderId]*senderState),
		byHash:            make(map[common.Hash]txpool.TransactionId),
		limits:            limits,
		priceBump:         priceBump,
		maxSlotsPerSender: maxSlotsPerSender,
		reserve:           reserve,
		sink:              sink,
		fees:              poolFees{baseFee: uint256.NewInt(0), blobFee: uint256.NewInt(0)},
		recentlyEvicted:   evicted,
	}
	for i := range p.byKind {
		p.byKind[i] = make(map[txpool.TransactionId]*heldTx)
	}
	return p
}

// SetFees updates the pool-wide base fee and blob fee used by the
// classifier and by eviction scoring. Callers normally invoke this from
// canonical state reconciliation (spec §4.4.5).
func (p *Pool) SetFees(baseFee, blobFee *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fees.baseFee = baseFee
	p.fees.blobFee = blobFee
	for _, state := range p.senders {
		p.reclassifyChain(state)
	}
	for _, kind := range [4]txpool.SubPoolKind{txpool.Pending, txpool.BaseFee, txpool.Blob, txpool.Queued} {
		p.enforceLimits(kind)
	}
	p.updateGauges()
}

// Add runs the admission algorithm of spec §4.4.3 against an
// already-validated transaction.
func (p *Pool) Add(valid *txpool.ValidTransaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(valid)
}

func (p *Pool) addLocked(valid *txpool.ValidTransaction) error {
	tx := valid.Tx
	hash := tx.Hash()
	if _, known := p.byHash[hash]; known {
		return txpool.ErrAlreadyKnown
	}
	if p.recentlyEvicted != nil && p.recentlyEvicted.Contains(hash) {
		return txpool.ErrRecentlyEvicted
	}

	if p.reserve != nil {
		if err := p.reserve(tx.Sender, true); err != nil {
			return err
		}
	}

	senderID := p.interner.Intern(tx.Sender)
	state, ok := p.senders[senderID]
	if !ok {
		state = newSenderState(senderID, valid.StateNonce, valid.Balance)
		p.senders[senderID] = state
	} else {
		state.baseNonce = valid.StateNonce
		state.balance = valid.Balance
	}

	id := txpool.NewTransactionId(senderID, tx.TxNonce)

	if existing, exists := state.get(tx.TxNonce); exists {
		if err := p.checkReplacement(existing, valid); err != nil {
			return err
		}
		p.removeCascade(id, txpool.DiscardReasonReplaced)
		if _, still := p.senders[senderID]; !still {
			// The incumbent was the sender's only transaction, so
			// removeCascade dropped the sender; register it again.
			if p.reserve != nil {
				if err := p.reserve(tx.Sender, true); err != nil {
					return err
				}
			}
			senderID = p.interner.Intern(tx.Sender)
			state.id = senderID
			p.senders[senderID] = state
			id = txpool.NewTransactionId(senderID, tx.TxNonce)
		}
	} else if uint64(len(state.nonces)) >= p.maxSlotsPerSender {
		return txpool.ErrSpammerExceededCap
	}

	p.nextSubID++
	h := &heldTx{valid: valid, subID: p.nextSubID}
	state.insert(h)
	p.byHash[hash] = id

	p.reclassifyChain(state)
	kind := h.sub

	p.enforceLimits(kind)

	if _, stillHeld := p.byKind[kind][id]; !stillHeld {
		return txpool.ErrDiscardedOnInsert
	}

	if p.sink != nil {
		p.sink.NotifyNewTransaction(tx, kind, valid.Propagate)
		evKind := txpool.TxEventQueued
		if kind != txpool.Queued {
			evKind = txpool.TxEventPending
		}
		p.sink.NotifyTxEvent(hash, evKind, 0)
		p.sink.NotifyPoolEvent(tx, evKind, 0, valid.Propagate)
		if valid.Sidecar != nil {
			p.sink.NotifyBlobSidecar(hash, valid.Sidecar)
		}
	}
	p.broadcastLive(tx, kind)
	addedMeter.Mark(1)
	p.updateGauges()
	return nil
}

// checkReplacement enforces the replacement economics of spec §4.4.6: a
// challenger at an already-held (sender, nonce) must clear every
// applicable fee field of the incumbent by at least the configured
// percentage bump, a larger bump for blob transactions.
func (p *Pool) checkReplacement(existing *heldTx, challenger *txpool.ValidTransaction) error {
	old := existing.valid.Tx
	next := challenger.Tx

	bump := p.priceBump.DefaultPct
	if old.IsBlobTx() || next.IsBlobTx() {
		bump = p.priceBump.BlobPct
	}

	if !clearsBump(next.GasFeeCap, old.GasFeeCap, bump) {
		return txpool.ErrReplacementUnderpriced
	}
	if !clearsBump(next.GasTipCap, old.GasTipCap, bump) {
		return txpool.ErrReplacementUnderpriced
	}
	if old.IsBlobTx() {
		if next.BlobFeeCap == nil || !clearsBump(next.BlobFeeCap, old.BlobFeeCap, bump) {
			return txpool.ErrReplacementUnderpriced
		}
	}
	return nil
}

// clearsBump reports whether next >= old*(100+bumpPct)/100.
func clearsBump(next, old *uint256.Int, bumpPct uint64) bool {
	threshold := new(uint256.Int).Mul(old, uint256.NewInt(100+bumpPct))
	actual := new(uint256.Int).Mul(next, uint256.NewInt(100))
	return actual.Cmp(threshold) >= 0
}

// reclassifyChain re-runs the classification function over every
// transaction a sender holds: the gapless prefix from the sender's base
// nonce classifies by fee and affordability (spec §4.4.2), everything
// past the first gap is Queued. Classification rule 1 also demands that a
// transaction's predecessor actually resolved to Pending, not merely that
// the nonce sequence is contiguous (spec invariant #4, "Pending
// gaplessness"): once one transaction in the chain lands in BaseFee or
// Blob, every nonce-contiguous descendant is forced to Queued regardless
// of its own fee or affordability, since it can never be mined ahead of
// an ancestor that isn't itself Pending.
func (p *Pool) reclassifyChain(state *senderState) {
	seen := make(map[uint64]bool)
	predecessorPending := true
	for _, h := range state.chain() {
		id := txpool.NewTransactionId(state.id, h.valid.Tx.TxNonce)
		affordable := h.cumCost.Cmp(state.balance) <= 0
		kind := classify(h, predecessorPending, affordable, p.fees)
		p.moveKind(id, h, kind)
		seen[h.valid.Tx.TxNonce] = true
		predecessorPending = kind == txpool.Pending
	}
	for _, nonce := range state.nonces {
		if seen[nonce] {
			continue
		}
		h := state.byNonce[nonce]
		id := txpool.NewTransactionId(state.id, nonce)
		p.moveKind(id, h, txpool.Queued)
	}
}

// moveKind relocates a held transaction between subpool indices. Calling
// delete on a map with a key it does not hold is a safe no-op, so this
// works uniformly whether h was previously indexed or is brand new.
func (p *Pool) moveKind(id txpool.TransactionId, h *heldTx, newKind txpool.SubPoolKind) {
	delete(p.byKind[h.sub], id)
	h.sub = newKind
	p.byKind[newKind][id] = h
}

// removeCascade removes the transaction at id and every descendant held
// for the same sender (spec §4.4.7, "removing a transaction removes
// everything that depends on it"), returning every hash removed.
func (p *Pool) removeCascade(id txpool.TransactionId, reason txpool.DiscardReason) []common.Hash {
	state, ok := p.senders[id.Sender]
	if !ok {
		return nil
	}
	victims := state.descendants(id.Nonce)
	hashes := make([]common.Hash, 0, len(victims))
	for _, h := range victims {
		nonce := h.valid.Tx.TxNonce
		vid := txpool.NewTransactionId(id.Sender, nonce)
		hash := h.valid.Tx.Hash()
		delete(p.byKind[h.sub], vid)
		delete(p.byHash, hash)
		state.remove(nonce)
		hashes = append(hashes, hash)
		if reason == txpool.DiscardReasonEvicted && p.recentlyEvicted != nil {
			p.recentlyEvicted.Add(hash, struct{}{})
		}
		if p.sink != nil {
			p.sink.NotifyTxEvent(hash, txpool.TxEventDiscarded, reason)
			p.sink.NotifyPoolEvent(h.valid.Tx, txpool.TxEventDiscarded, reason, h.valid.Propagate)
		}
	}
	if state.empty() {
		addr := addressOf(p.interner, id.Sender)
		delete(p.senders, id.Sender)
		p.interner.Release(id.Sender)
		if p.reserve != nil {
			_ = p.reserve(addr, false)
		}
	}
	return hashes
}

// addressOf best-effort resolves an already-released sender back to its
// address for the reservation callback; callers only reach this path
// while the address mapping is still intact (release happens after).
func addressOf(in *interner.Interner, id interner.SenderId) common.Address {
	addr, _ := in.Address(id)
	return addr
}

// Remove deletes the transaction hash, if held, cascading to its
// descendants, and reports whether anything was removed (spec §6, Query
// API "remove_transaction").
func (p *Pool) Remove(hash common.Hash, reason txpool.DiscardReason) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byHash[hash]
	if !ok {
		return false
	}
	p.removeCascade(id, reason)
	p.updateGauges()
	return true
}

// Get returns the held transaction for hash, if any.
func (p *Pool) Get(hash common.Hash) (*types.Tx, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byHash[hash]
	if !ok {
		return nil, false
	}
	state, ok := p.senders[id.Sender]
	if !ok {
		return nil, false
	}
	h, ok := state.get(id.Nonce)
	if !ok {
		return nil, false
	}
	return h.valid.Tx, true
}

// Len returns the number of transactions held in kind.
func (p *Pool) Len(kind txpool.SubPoolKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byKind[kind])
}

func (p *Pool) hashOf(id txpool.TransactionId) (common.Hash, bool) {
	state, ok := p.senders[id.Sender]
	if !ok {
		return common.Hash{}, false
	}
	h, ok := state.get(id.Nonce)
	if !ok {
		return common.Hash{}, false
	}
	return h.valid.Tx.Hash(), true
}

func (p *Pool) broadcastLive(tx *types.Tx, kind txpool.SubPoolKind) {
	if kind != txpool.Pending {
		return
	}
	live := p.liveUpdates[:0]
	for _, ch := range p.liveUpdates {
		select {
		case ch <- tx:
			live = append(live, ch)
		default:
			// Backpressure policy (spec §5): a full live-update channel
			// means that Best iterator is lagging; it will miss this
			// update and fall back to whatever it already snapshotted.
			live = append(live, ch)
		}
	}
	p.liveUpdates = live
}

func (p *Pool) updateGauges() {
	pendingGauge.Update(int64(len(p.byKind[txpool.Pending])))
	basefeeGauge.Update(int64(len(p.byKind[txpool.BaseFee])))
	blobGauge.Update(int64(len(p.byKind[txpool.Blob])))
	queuedGauge.Update(int64(len(p.byKind[txpool.Queued])))
}
