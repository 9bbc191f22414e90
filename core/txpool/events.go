package txpool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/luxfi/mempool/core/types"
)

// TxEventKind enumerates the lifecycle events a single transaction can
// pass through (spec §6, "Event API").
type TxEventKind uint8

const (
	TxEventPending TxEventKind = iota
	TxEventQueued
	TxEventMined
	TxEventReplaced
	TxEventDiscarded
	TxEventInvalid
	TxEventPropagated
)

func (k TxEventKind) String() string {
	switch k {
	case TxEventPending:
		return "pending"
	case TxEventQueued:
		return "queued"
	case TxEventMined:
		return "mined"
	case TxEventReplaced:
		return "replaced"
	case TxEventDiscarded:
		return "discarded"
	case TxEventInvalid:
		return "invalid"
	case TxEventPropagated:
		return "propagated"
	default:
		return "unknown"
	}
}

// DiscardReason explains why TxEventDiscarded fired.
type DiscardReason uint8

const (
	DiscardReasonEvicted DiscardReason = iota
	DiscardReasonReplaced
	DiscardReasonMinedElsewhere
	DiscardReasonInvalidated
)

// TxEvent is the payload delivered to a per-transaction subscriber.
type TxEvent struct {
	Hash common.Hash
	Kind TxEventKind
	// Reason is only meaningful when Kind == TxEventDiscarded.
	Reason DiscardReason
}

// TransactionEvents is a per-transaction subscription handle, returned by
// add_transaction_and_subscribe (spec §6).
type TransactionEvents struct {
	Hash string
	sub  event.Subscription
	ch   chan TxEvent
}

// Events returns the channel events are delivered on.
func (e *TransactionEvents) Events() <-chan TxEvent { return e.ch }

// Unsubscribe ends the subscription handle. The bus keeps the channel
// registered until the transaction reaches a terminal state, when it
// closes it; sends to a full channel are dropped, so an abandoned
// channel never blocks the pool.
func (e *TransactionEvents) Unsubscribe() { e.sub.Unsubscribe() }

// PoolEvent is a pool-wide notification fanned out via
// AllTransactionsEvents (spec §6).
type PoolEvent struct {
	Tx     *types.Tx
	Kind   TxEventKind
	Reason DiscardReason
	// Propagate is false for a Private-origin transaction; a
	// ListenPropagateOnly subscription never sees such an event.
	Propagate bool
}

// TransactionListenerKind selects whether a pool-wide listener should
// see Private-origin transactions (spec §6).
type TransactionListenerKind uint8

const (
	// ListenAll surfaces every transaction regardless of origin.
	ListenAll TransactionListenerKind = iota
	// ListenPropagateOnly hides Private-origin transactions, mirroring
	// what would actually be gossiped to peers.
	ListenPropagateOnly
)

// NewTransactionEvent is delivered to new_transactions_listener
// subscribers: a freshly admitted transaction plus its placement.
type NewTransactionEvent struct {
	Tx      *types.Tx
	SubPool SubPoolKind
	// Propagate is false for a Private-origin transaction; a
	// ListenPropagateOnly subscription never sees such an event.
	Propagate bool
}

// BlobSidecarEvent is delivered to blob_transaction_sidecars_listener
// subscribers whenever a blob transaction is admitted.
type BlobSidecarEvent struct {
	Hash    common.Hash
	Sidecar *types.BlobTxSidecar
}

// eventBus is the Event Bus & Maintenance component's pub/sub half
// (spec component E). All feeds are guarded independently of the pool
// lock; Send on a Feed with no subscribers is a cheap no-op.
type eventBus struct {
	scope event.SubscriptionScope

	allEvents          event.Feed // PoolEvent, gated per-subscription by TransactionListenerKind
	pendingFeed        event.Feed // NewTransactionEvent, Pending subpool only, gated by TransactionListenerKind
	newTxFeed          event.Feed // NewTransactionEvent, any subpool, gated by TransactionListenerKind
	blobSidecarFeed    event.Feed // BlobSidecarEvent
	perTxSubscriptions map[common.Hash][]chan TxEvent
}

func newEventBus() *eventBus {
	return &eventBus{perTxSubscriptions: make(map[common.Hash][]chan TxEvent)}
}

// subscribeTx registers a per-transaction listener (component E,
// add_transaction_and_subscribe). The channel is closed automatically
// once the transaction reaches a terminal state (Mined, Replaced,
// Discarded), by notifyTx.
func (b *eventBus) subscribeTx(hash common.Hash) *TransactionEvents {
	ch := make(chan TxEvent, 8)
	b.perTxSubscriptions[hash] = append(b.perTxSubscriptions[hash], ch)
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	})
	return &TransactionEvents{Hash: hash.Hex(), sub: sub, ch: ch}
}

func (b *eventBus) notifyTx(hash common.Hash, kind TxEventKind, reason DiscardReason) {
	subs := b.perTxSubscriptions[hash]
	if len(subs) == 0 {
		return
	}
	ev := TxEvent{Hash: hash, Kind: kind, Reason: reason}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Backpressure policy (spec §5): drop rather than block the
			// pool lock holder.
		}
	}
	switch kind {
	case TxEventMined, TxEventReplaced, TxEventDiscarded:
		for _, ch := range subs {
			close(ch)
		}
		delete(b.perTxSubscriptions, hash)
	}
}

func (b *eventBus) notifyPoolWide(tx *types.Tx, kind TxEventKind, reason DiscardReason, propagate bool) {
	b.allEvents.Send(PoolEvent{Tx: tx, Kind: kind, Reason: reason, Propagate: propagate})
}

func (b *eventBus) notifyNewTransaction(tx *types.Tx, sp SubPoolKind, propagate bool) {
	b.newTxFeed.Send(NewTransactionEvent{Tx: tx, SubPool: sp, Propagate: propagate})
	if sp == Pending {
		b.pendingFeed.Send(NewTransactionEvent{Tx: tx, SubPool: sp, Propagate: propagate})
	}
}

func (b *eventBus) notifyBlobSidecar(hash common.Hash, sidecar *types.BlobTxSidecar) {
	b.blobSidecarFeed.Send(BlobSidecarEvent{Hash: hash, Sidecar: sidecar})
}

// SubscribeAllTransactions registers a pool-wide listener for every
// lifecycle event (spec AllTransactionsEvents). kind == ListenAll
// subscribes to the feed directly; kind == ListenPropagateOnly drops any
// event whose transaction must never reach a peer before it reaches ch.
func (b *eventBus) SubscribeAllTransactions(ch chan<- PoolEvent, kind TransactionListenerKind) event.Subscription {
	if kind == ListenAll {
		return b.scope.Track(b.allEvents.Subscribe(ch))
	}
	internal := make(chan PoolEvent, cap(ch))
	sub := b.scope.Track(b.allEvents.Subscribe(internal))
	go forwardPropagateOnly(internal, ch, sub, func(ev PoolEvent) bool { return ev.Propagate })
	return sub
}

// SubscribePendingTransactions registers a listener for newly-pending
// transactions only, gated the same way SubscribeAllTransactions is.
func (b *eventBus) SubscribePendingTransactions(ch chan<- NewTransactionEvent, kind TransactionListenerKind) event.Subscription {
	if kind == ListenAll {
		return b.scope.Track(b.pendingFeed.Subscribe(ch))
	}
	internal := make(chan NewTransactionEvent, cap(ch))
	sub := b.scope.Track(b.pendingFeed.Subscribe(internal))
	go forwardPropagateOnly(internal, ch, sub, func(ev NewTransactionEvent) bool { return ev.Propagate })
	return sub
}

// SubscribeNewTransactions registers a listener for every newly admitted
// transaction regardless of subpool, gated the same way
// SubscribeAllTransactions is.
func (b *eventBus) SubscribeNewTransactions(ch chan<- NewTransactionEvent, kind TransactionListenerKind) event.Subscription {
	if kind == ListenAll {
		return b.scope.Track(b.newTxFeed.Subscribe(ch))
	}
	internal := make(chan NewTransactionEvent, cap(ch))
	sub := b.scope.Track(b.newTxFeed.Subscribe(internal))
	go forwardPropagateOnly(internal, ch, sub, func(ev NewTransactionEvent) bool { return ev.Propagate })
	return sub
}

// forwardPropagateOnly relays values from internal to ch, dropping
// anything keep reports false for, until sub is unsubscribed or internal
// is closed. It is how ListenPropagateOnly is implemented on top of an
// event.Feed, which has no per-subscriber filtering of its own.
func forwardPropagateOnly[T any](internal <-chan T, ch chan<- T, sub event.Subscription, keep func(T) bool) {
	for {
		select {
		case ev, ok := <-internal:
			if !ok {
				return
			}
			if !keep(ev) {
				continue
			}
			select {
			case ch <- ev:
			case <-sub.Err():
				return
			}
		case <-sub.Err():
			return
		}
	}
}

// SubscribeBlobSidecars registers a listener for newly admitted blob
// sidecars.
func (b *eventBus) SubscribeBlobSidecars(ch chan<- BlobSidecarEvent) event.Subscription {
	return b.scope.Track(b.blobSidecarFeed.Subscribe(ch))
}

// Close unsubscribes every listener registered through this bus.
func (b *eventBus) Close() { b.scope.Close() }
