// Package interner implements component A of the mempool: a dense,
// reusable Address<->SenderId bijection so hot-path comparisons inside
// the subpool engine never touch a 20-byte address.
package interner

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// SenderId is a dense identifier assigned to a sender address. Ids are
// reused once a sender has no transactions held in any subpool (see
// Release).
type SenderId uint32

// Interner maps sender addresses to dense SenderIds and back. It is safe
// for concurrent use; callers doing multi-step interning under the pool
// lock still benefit from the internal lock being cheap and uncontended.
type Interner struct {
	mu      sync.RWMutex
	fwd     map[common.Address]SenderId
	rev     []common.Address // rev[id] is valid iff id is not in free
	free    []SenderId        // ids eligible for reuse, LIFO
	nextID  SenderId
}

// New creates an empty interner.
func New() *Interner {
	return &Interner{
		fwd: make(map[common.Address]SenderId),
	}
}

// Intern returns the SenderId for addr, allocating (or reusing a freed
// slot) on first sight.
func (in *Interner) Intern(addr common.Address) SenderId {
	in.mu.RLock()
	id, ok := in.fwd[addr]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.fwd[addr]; ok {
		return id
	}

	if n := len(in.free); n > 0 {
		id = in.free[n-1]
		in.free = in.free[:n-1]
		in.rev[id] = addr
	} else {
		id = in.nextID
		in.nextID++
		in.rev = append(in.rev, addr)
	}
	in.fwd[addr] = id
	return id
}

// Lookup returns the SenderId already assigned to addr, if any.
func (in *Interner) Lookup(addr common.Address) (SenderId, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.fwd[addr]
	return id, ok
}

// Address resolves a SenderId back to its address. Ok is false for a
// released or never-allocated id.
func (in *Interner) Address(id SenderId) (common.Address, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.rev) {
		return common.Address{}, false
	}
	addr := in.rev[id]
	cur, ok := in.fwd[addr]
	if !ok || cur != id {
		return common.Address{}, false
	}
	return addr, true
}

// Release returns id to the free list, forgetting its address mapping.
// Callers must only release a SenderId once the sender holds no
// transactions in any subpool (spec §4.1).
func (in *Interner) Release(id SenderId) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if int(id) >= len(in.rev) {
		return
	}
	addr := in.rev[id]
	if cur, ok := in.fwd[addr]; !ok || cur != id {
		return
	}
	delete(in.fwd, addr)
	in.free = append(in.free, id)
}

// Len returns the number of currently live (non-freed) sender mappings.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.fwd)
}
