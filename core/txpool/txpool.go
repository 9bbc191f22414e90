package txpool

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool/blobstore"
	"github.com/luxfi/mempool/core/txpool/locals"
	"github.com/luxfi/mempool/core/txpool/subpool"
	"github.com/luxfi/mempool/core/types"
)

// TxPool is the top-level aggregator: the Admission, Query, Maintenance
// and Event API surface of spec §6, wired around the subpool engine
// (component D), the blob store (component B) and a pluggable validator
// (component C). Unlike the teacher's multi-subpool aggregator, this
// pool owns exactly one engine spanning all four subpool tags, matching
// spec §5's single pool-wide exclusive lock.
type TxPool struct {
	cfg Config

	engine    *subpool.Pool
	blobs     blobstore.Store
	validator Validator
	locals    *locals.Tracker

	events *eventBus
}

// New constructs a TxPool. blobs and validator are supplied by the
// caller so storage backend and chain-state wiring stay outside this
// package's concerns (spec §1, execution/storage layers out of scope).
func New(cfg Config, blobs blobstore.Store, validator Validator) (*TxPool, error) {
	cfg = cfg.Sanitize()

	p := &TxPool{
		cfg:       cfg,
		blobs:     blobs,
		validator: validator,
		locals:    locals.New(),
		events:    newEventBus(),
	}

	var limits [4]SubPoolLimit
	limits[Pending] = cfg.PendingLimit
	limits[BaseFee] = cfg.BaseFeeLimit
	limits[Blob] = cfg.BlobLimit
	limits[Queued] = cfg.QueuedLimit

	p.engine = subpool.New(limits, cfg.PriceBump, cfg.MaxAccountSlotsPerSender, nil, p)
	return p, nil
}

var _ subpool.EventSink = (*TxPool)(nil)

// NotifyNewTransaction implements subpool.EventSink.
func (p *TxPool) NotifyNewTransaction(tx *types.Tx, sub SubPoolKind, propagate bool) {
	p.events.notifyNewTransaction(tx, sub, propagate)
}

// NotifyTxEvent implements subpool.EventSink.
func (p *TxPool) NotifyTxEvent(hash common.Hash, kind TxEventKind, reason DiscardReason) {
	p.events.notifyTx(hash, kind, reason)
}

// NotifyPoolEvent implements subpool.EventSink.
func (p *TxPool) NotifyPoolEvent(tx *types.Tx, kind TxEventKind, reason DiscardReason, propagate bool) {
	p.events.notifyPoolWide(tx, kind, reason, propagate)
}

// NotifyBlobSidecar implements subpool.EventSink.
func (p *TxPool) NotifyBlobSidecar(hash common.Hash, sidecar *types.BlobTxSidecar) {
	p.events.notifyBlobSidecar(hash, sidecar)
}

// AddTransaction runs tx through validation and, on success, admission
// into the subpool engine (spec §6, Admission API "add_transaction").
func (p *TxPool) AddTransaction(ctx context.Context, origin Origin, tx *types.Tx, sidecar *types.BlobTxSidecar) error {
	if tx.TxValue != nil && tx.TxValue.Sign() < 0 {
		return ErrNegativeValue
	}
	if tx.Sender == (common.Address{}) {
		return ErrInvalidSender
	}
	if origin.IsLocal() {
		p.locals.Track(tx)
	}

	outcome := p.validator.Validate(ctx, origin, tx, sidecar)
	if outcome.Err != nil {
		return outcome.Err
	}
	if outcome.Invalid != nil {
		p.events.notifyPoolWide(tx, TxEventInvalid, 0, origin != Private)
		return outcome.Invalid
	}

	if sidecar != nil {
		if err := p.blobs.Insert(tx.Hash(), sidecar); err != nil {
			return err
		}
	}

	if err := p.engine.Add(outcome.Valid); err != nil {
		if sidecar != nil {
			_ = p.blobs.Delete(tx.Hash())
		}
		return err
	}
	return nil
}

// AddTransactionAndSubscribe admits tx and returns a handle that streams
// every subsequent lifecycle event for it (spec §6,
// "add_transaction_and_subscribe").
func (p *TxPool) AddTransactionAndSubscribe(ctx context.Context, origin Origin, tx *types.Tx, sidecar *types.BlobTxSidecar) (*TransactionEvents, error) {
	sub := p.events.subscribeTx(tx.Hash())
	if err := p.AddTransaction(ctx, origin, tx, sidecar); err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	return sub, nil
}

// AddTransactions admits a batch, returning one error slot per input
// (nil on success), matching spec §6's batched admission entrypoint.
func (p *TxPool) AddTransactions(ctx context.Context, origin Origin, txs []*types.Tx, sidecars []*types.BlobTxSidecar) []error {
	errs := make([]error, len(txs))
	for i, tx := range txs {
		var sidecar *types.BlobTxSidecar
		if i < len(sidecars) {
			sidecar = sidecars[i]
		}
		errs[i] = p.AddTransaction(ctx, origin, tx, sidecar)
	}
	return errs
}

// Get returns the held transaction for hash (spec §6, Query API).
func (p *TxPool) Get(hash common.Hash) (*types.Tx, bool) {
	return p.engine.Get(hash)
}

// Has reports whether hash is currently held.
func (p *TxPool) Has(hash common.Hash) bool {
	_, ok := p.engine.Get(hash)
	return ok
}

// IsLocalSender reports whether addr has been tracked as a local
// submitter.
func (p *TxPool) IsLocalSender(addr common.Address) bool {
	return p.locals.IsLocal(addr) || p.cfg.Local.IsLocalSender(addr)
}

// RemoveTransaction evicts hash, if held (spec §6, "remove_transaction").
func (p *TxPool) RemoveTransaction(hash common.Hash) bool {
	return p.engine.Remove(hash, DiscardReasonInvalidated)
}

// Stats returns the held transaction count per subpool.
func (p *TxPool) Stats() (pending, basefee, blob, queued int) {
	return p.engine.Len(Pending), p.engine.Len(BaseFee), p.engine.Len(Blob), p.engine.Len(Queued)
}

// Best returns a lazy, priority-ordered transaction iterator over the
// Pending subpool (spec §4.4.4, Query API "best_transactions").
func (p *TxPool) Best(ordering Ordering) *subpool.Best {
	return p.engine.Best(ordering)
}

// BestWithFees evaluates ordering against an alternate fee snapshot
// instead of the pool's live fee state.
func (p *TxPool) BestWithFees(ordering Ordering, baseFee *uint256.Int) *subpool.Best {
	return p.engine.BestWithFees(ordering, baseFee)
}

// BestWithPrioritizedSenders returns a Best iterator that always yields
// transactions from the given senders ahead of everyone else.
func (p *TxPool) BestWithPrioritizedSenders(ordering Ordering, senders []common.Address) *subpool.Best {
	return p.engine.BestWithPrioritizedSenders(ordering, senders)
}

// OnCanonicalStateChange applies a new chain head to the pool (spec
// §4.4.5, Maintenance API). Every transaction update.ReorgedOut names is
// then re-admitted through the same validation path fresh transactions
// take (spec §4.4.5 step 3): it may fail the stateful checks against the
// new chain state, in which case it is simply dropped rather than held,
// the same outcome AddTransaction gives any other invalid submission.
func (p *TxPool) OnCanonicalStateChange(update subpool.CanonicalUpdate) {
	p.engine.OnCanonicalStateChange(update)

	for _, r := range update.ReorgedOut {
		outcome := p.validator.Validate(context.Background(), Local, r.Tx, r.Sidecar)
		if outcome.Err != nil || outcome.Invalid != nil {
			continue
		}
		if r.Sidecar != nil {
			if err := p.blobs.Insert(r.Tx.Hash(), r.Sidecar); err != nil {
				continue
			}
			if err := p.engine.Add(outcome.Valid); err != nil {
				_ = p.blobs.Delete(r.Tx.Hash())
			}
			continue
		}
		_ = p.engine.Add(outcome.Valid)
	}
}

// SetFees updates the pool-wide base fee and blob fee used for
// classification and eviction scoring outside of a full canonical state
// update (e.g. a speculative next-block estimate).
func (p *TxPool) SetFees(baseFee, blobFee *uint256.Int) {
	p.engine.SetFees(baseFee, blobFee)
}

// SubscribeAllTransactions registers a pool-wide listener for every
// lifecycle event (spec §6, Event API). kind controls whether
// Private-origin transactions are withheld from this particular
// subscriber (spec §6, pending_transactions_listener_for /
// new_transactions_listener_for).
func (p *TxPool) SubscribeAllTransactions(ch chan<- PoolEvent, kind TransactionListenerKind) event.Subscription {
	return p.events.SubscribeAllTransactions(ch, kind)
}

// SubscribePendingTransactions registers a listener for newly-pending
// transactions only, gated the same way SubscribeAllTransactions is.
func (p *TxPool) SubscribePendingTransactions(ch chan<- NewTransactionEvent, kind TransactionListenerKind) event.Subscription {
	return p.events.SubscribePendingTransactions(ch, kind)
}

// SubscribeNewTransactions registers a listener for every newly admitted
// transaction regardless of subpool, gated the same way
// SubscribeAllTransactions is.
func (p *TxPool) SubscribeNewTransactions(ch chan<- NewTransactionEvent, kind TransactionListenerKind) event.Subscription {
	return p.events.SubscribeNewTransactions(ch, kind)
}

// SubscribeBlobSidecars registers a listener for newly admitted blob
// sidecars.
func (p *TxPool) SubscribeBlobSidecars(ch chan<- BlobSidecarEvent) event.Subscription {
	return p.events.SubscribeBlobSidecars(ch)
}

// Close releases the pool's event subscriptions and blob store.
func (p *TxPool) Close() error {
	p.events.Close()
	return p.blobs.Close()
}
