package txpool

import (
	"fmt"

	"github.com/luxfi/mempool/core/txpool/interner"
)

// TransactionId totally orders held transactions lexicographically by
// (sender, nonce), matching spec §3. It is the key type threaded through
// the subpool engine's per-sender maps and the Best iterator's snapshot.
type TransactionId struct {
	Sender interner.SenderId
	Nonce  uint64
}

// NewTransactionId builds a TransactionId from its components.
func NewTransactionId(sender interner.SenderId, nonce uint64) TransactionId {
	return TransactionId{Sender: sender, Nonce: nonce}
}

// Less implements the total order: sender first, then nonce ascending.
func (id TransactionId) Less(other TransactionId) bool {
	if id.Sender != other.Sender {
		return id.Sender < other.Sender
	}
	return id.Nonce < other.Nonce
}

// UncheckedAncestor returns the id of the transaction directly preceding
// this one in the same sender's chain, i.e. (sender, nonce-1). It returns
// false only when Nonce is zero (spec §4.1, "Nonce-ancestor lookup").
func (id TransactionId) UncheckedAncestor() (TransactionId, bool) {
	if id.Nonce == 0 {
		return TransactionId{}, false
	}
	return TransactionId{Sender: id.Sender, Nonce: id.Nonce - 1}, true
}

// Descendant returns the id of the transaction directly following this
// one in the same sender's chain, i.e. (sender, nonce+1).
func (id TransactionId) Descendant() TransactionId {
	return TransactionId{Sender: id.Sender, Nonce: id.Nonce + 1}
}

func (id TransactionId) String() string {
	return fmt.Sprintf("%d:%d", id.Sender, id.Nonce)
}
