package subpool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
	"github.com/luxfi/mempool/core/types"
)

// AccountState is the post-block nonce and balance for one sender,
// carried by CanonicalUpdate (spec §4.4.5).
type AccountState struct {
	Nonce   uint64
	Balance *uint256.Int
}

// ReorgedOutTx is a transaction that was mined in a block the new
// canonical chain no longer includes. The pool drops a transaction's
// body the moment MinedHashes removes it, so once a reorg un-mines it
// the caller is the only side still holding it; re-admission needs the
// full transaction (and sidecar, for a blob transaction) back, not just
// its hash (spec §4.4.5 step 3, "re-admit through the validator path").
type ReorgedOutTx struct {
	Tx      *types.Tx
	Sidecar *types.BlobTxSidecar
}

// CanonicalUpdate describes a new canonical chain head the pool must
// reconcile its held state against (spec §4.4.5, "canonical state
// update"). A reorg is expressed the same way a simple extension is:
// MinedHashes lists whatever the new head actually included, and
// StateChanges carries the resulting nonce/balance for every sender the
// pool needs to re-check, regardless of whether that sender's nonce
// advanced or rewound.
type CanonicalUpdate struct {
	MinedHashes  []common.Hash
	StateChanges map[common.Address]AccountState
	BaseFee      *uint256.Int
	BlobFee      *uint256.Int

	// ReorgedOut lists every transaction un-mined by this update, in the
	// order the caller wants them reconsidered. The subpool engine has no
	// validator of its own to re-admit them through, so
	// OnCanonicalStateChange does not touch this field at all; it exists
	// on CanonicalUpdate so the top-level pool, which owns both the
	// Validator and this engine, can read it back off the same update it
	// passed in and feed each entry through Validate + Add once this call
	// returns (spec §4.4.5 step 3).
	ReorgedOut []ReorgedOutTx
}

// OnCanonicalStateChange applies a new chain head to the pool: mined
// transactions are removed with a Mined event, every touched sender's
// nonce/balance bookkeeping is refreshed, held transactions whose nonce
// the new account nonce has already consumed are discarded, the
// pool-wide fee snapshot is updated, and
// every remaining transaction for a touched sender is reclassified
// against the new state (spec §4.4.5). update.ReorgedOut is left
// untouched here; re-admitting those transactions requires a Validator,
// which this engine doesn't have, so the top-level pool handles that
// leg itself after this call returns.
func (p *Pool) OnCanonicalStateChange(update CanonicalUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, hash := range update.MinedHashes {
		id, ok := p.byHash[hash]
		if !ok {
			continue
		}
		state, ok := p.senders[id.Sender]
		if !ok {
			continue
		}
		h, ok := state.get(id.Nonce)
		if !ok {
			continue
		}
		delete(p.byKind[h.sub], id)
		delete(p.byHash, hash)
		state.remove(id.Nonce)
		if p.sink != nil {
			p.sink.NotifyTxEvent(hash, txpool.TxEventMined, 0)
			p.sink.NotifyPoolEvent(h.valid.Tx, txpool.TxEventMined, 0, h.valid.Propagate)
		}
		if state.empty() {
			delete(p.senders, id.Sender)
			p.interner.Release(id.Sender)
		}
	}

	if update.BaseFee != nil {
		p.fees.baseFee = update.BaseFee
	}
	if update.BlobFee != nil {
		p.fees.blobFee = update.BlobFee
	}

	for addr, acct := range update.StateChanges {
		p.reconcileSender(addr, acct)
	}

	for _, kind := range [4]txpool.SubPoolKind{txpool.Pending, txpool.BaseFee, txpool.Blob, txpool.Queued} {
		p.enforceLimits(kind)
	}
	p.updateGauges()
}

// reconcileSender refreshes one sender's bookkeeping against its
// post-block account state, discards any held transaction whose nonce
// the new canonical chain has already consumed with some other
// transaction (DiscardReasonMinedElsewhere: it can never execute again,
// unlike an ordinary queued transaction with a future nonce), and
// reclassifies whatever remains. A nonce that a reorg rewinds back below
// what the pool holds is not discarded here: state.baseNonce simply
// drops, which reclassifyChain turns into an ordinary gap. Transactions
// actually un-mined by the reorg are handled separately, through
// CanonicalUpdate.ReorgedOut.
func (p *Pool) reconcileSender(addr common.Address, acct AccountState) {
	senderID, ok := p.interner.Lookup(addr)
	if !ok {
		return
	}
	state, ok := p.senders[senderID]
	if !ok {
		return
	}
	state.baseNonce = acct.Nonce
	state.balance = acct.Balance

	for _, nonce := range append([]uint64(nil), state.nonces...) {
		if nonce >= acct.Nonce {
			continue
		}
		id := txpool.NewTransactionId(senderID, nonce)
		h, ok := state.get(nonce)
		if !ok {
			continue
		}
		hash := h.valid.Tx.Hash()
		delete(p.byKind[h.sub], id)
		delete(p.byHash, hash)
		state.remove(nonce)
		if p.sink != nil {
			p.sink.NotifyTxEvent(hash, txpool.TxEventDiscarded, txpool.DiscardReasonMinedElsewhere)
			p.sink.NotifyPoolEvent(h.valid.Tx, txpool.TxEventDiscarded, txpool.DiscardReasonMinedElsewhere, h.valid.Propagate)
		}
	}

	if state.empty() {
		delete(p.senders, senderID)
		p.interner.Release(senderID)
		return
	}
	p.reclassifyChain(state)
}
