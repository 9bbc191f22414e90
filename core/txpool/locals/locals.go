// Package locals tracks which senders a node should treat as local,
// mirroring the teacher's core/txpool/locals tracker but without its
// on-disk journal: cross-restart persistence is explicitly out of scope
// for this pool (spec §1, Non-goals).
package locals

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/luxfi/mempool/core/types"
)

// Resubmitter describes an admission surface through which a local
// sender's transactions could be re-offered. Nothing in this package
// calls it, and the tracker does no resubmission.
type Resubmitter interface {
	Resubmit(origin int, tx *types.Tx) error
}

// Tracker records every sender address that has submitted a Local- or
// Private-origin transaction; TxPool.IsLocalSender reports these
// addresses. Admission, fee checks and eviction do not consult the
// tracker, so a tracked sender gets no exemption from them.
type Tracker struct {
	mu      sync.RWMutex
	senders map[common.Address]struct{}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{senders: make(map[common.Address]struct{})}
}

// Track records tx's sender as local.
func (t *Tracker) Track(tx *types.Tx) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.senders[tx.Sender]; !ok {
		log.Debug("Tracking new local sender", "address", tx.Sender)
	}
	t.senders[tx.Sender] = struct{}{}
}

// IsLocal reports whether addr has ever submitted a local transaction.
func (t *Tracker) IsLocal(addr common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.senders[addr]
	return ok
}

// Senders returns every address currently tracked as local.
func (t *Tracker) Senders() []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]common.Address, 0, len(t.senders))
	for addr := range t.senders {
		out = append(out, addr)
	}
	return out
}
