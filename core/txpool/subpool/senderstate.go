// Package subpool implements component D, the heart of the mempool: the
// four-subpool state machine (Pending/BaseFee/Blob/Queued), per-sender
// nonce and balance accounting, the Best iterator, canonical-state
// reconciliation and eviction (spec §4.4).
package subpool

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
	"github.com/luxfi/mempool/core/txpool/interner"
)

// heldTx is a single transaction tracked by the pool, alongside the
// bookkeeping the engine needs that isn't part of the validated payload
// itself (spec §3 "Pool-wide state", §4.4.1).
type heldTx struct {
	valid   *txpool.ValidTransaction
	sub     txpool.SubPoolKind
	subID   uint64 // submission_id, monotonic admission order (spec §4.4.2 tie-break)
	cumCost *uint256.Int
}

// senderState is the per-sender slice of pool state: every transaction
// currently held for one sender, keyed by nonce and kept in ascending
// order (spec §4.4.1, "Per-sender data").
type senderState struct {
	id        interner.SenderId
	byNonce   map[uint64]*heldTx
	nonces    []uint64 // sorted ascending, kept in sync with byNonce
	baseNonce uint64   // last known canonical account nonce
	balance   *uint256.Int
}

func newSenderState(id interner.SenderId, nonce uint64, balance *uint256.Int) *senderState {
	return &senderState{
		id:        id,
		byNonce:   make(map[uint64]*heldTx),
		baseNonce: nonce,
		balance:   balance,
	}
}

// insert adds tx at its nonce, keeping nonces sorted. It overwrites any
// existing transaction at the same nonce (replacement is decided by the
// caller before insert is reached).
func (s *senderState) insert(h *heldTx) {
	nonce := h.valid.Tx.TxNonce
	if _, exists := s.byNonce[nonce]; !exists {
		i := sort.Search(len(s.nonces), func(i int) bool { return s.nonces[i] >= nonce })
		s.nonces = append(s.nonces, 0)
		copy(s.nonces[i+1:], s.nonces[i:])
		s.nonces[i] = nonce
	}
	s.byNonce[nonce] = h
}

// remove deletes the transaction at nonce, if any, returning it.
func (s *senderState) remove(nonce uint64) *heldTx {
	h, ok := s.byNonce[nonce]
	if !ok {
		return nil
	}
	delete(s.byNonce, nonce)
	i := sort.Search(len(s.nonces), func(i int) bool { return s.nonces[i] >= nonce })
	if i < len(s.nonces) && s.nonces[i] == nonce {
		s.nonces = append(s.nonces[:i], s.nonces[i+1:]...)
	}
	return h
}

// get returns the transaction at nonce, if held.
func (s *senderState) get(nonce uint64) (*heldTx, bool) {
	h, ok := s.byNonce[nonce]
	return h, ok
}

// empty reports whether the sender holds no transactions at all, the
// condition under which its SenderId may be released back to the
// interner (spec §4.1).
func (s *senderState) empty() bool { return len(s.nonces) == 0 }

// lowestNonce returns the smallest held nonce. Only valid when !empty().
func (s *senderState) lowestNonce() uint64 { return s.nonces[0] }

// chain walks the sender's held transactions starting at baseNonce,
// stopping at the first gap, and returns them along with the cumulative
// cost each would impose if included back-to-back starting from the
// account's current balance. This is the gapless-prefix the classifier
// operates over (spec §4.4.2).
func (s *senderState) chain() []*heldTx {
	out := make([]*heldTx, 0, len(s.nonces))
	want := s.baseNonce
	cum := new(uint256.Int)
	for _, nonce := range s.nonces {
		if nonce != want {
			break
		}
		h := s.byNonce[nonce]
		cum = new(uint256.Int).Add(cum, h.valid.Tx.Cost())
		h.cumCost = new(uint256.Int).Set(cum)
		out = append(out, h)
		want++
	}
	return out
}

// descendants returns every held transaction with nonce >= from, in
// ascending order, used when a removal must cascade to everything that
// depended on it (spec §4.4.7, "evicting a transaction evicts its
// descendants").
func (s *senderState) descendants(from uint64) []*heldTx {
	i := sort.Search(len(s.nonces), func(i int) bool { return s.nonces[i] >= from })
	out := make([]*heldTx, 0, len(s.nonces)-i)
	for _, nonce := range s.nonces[i:] {
		out = append(out, s.byNonce[nonce])
	}
	return out
}
