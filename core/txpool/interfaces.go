package txpool

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/types"
)

// ValidationOutcome is the result of running a candidate transaction
// through a Validator (spec §4.3).
type ValidationOutcome struct {
	// Valid is set when validation succeeded.
	Valid *ValidTransaction
	// Invalid is set when the transaction can never become valid; the
	// pool rejects it without retry.
	Invalid *ValidationError
	// Err is set for a transient failure; the caller may retry.
	Err error
}

// ValidTransaction is the payload a Validator hands back on success. The
// blob sidecar, if any, has already been stripped out for the caller to
// insert into the Blob Store.
type ValidTransaction struct {
	Tx            *types.Tx
	Sidecar       *types.BlobTxSidecar // nil for non-blob transactions
	Balance       *uint256.Int
	StateNonce    uint64
	BytecodeHash  common.Hash // zero hash means the account is a plain EOA
	Propagate     bool
	Authorities   []common.Address // resolved EIP-7702 delegated authorities
}

// Validator performs the stateless and stateful checks of spec §4.3. It
// is asynchronous and pluggable; a concrete chain-backed implementation
// lives in core/txpool/validate.
type Validator interface {
	// Validate checks tx against current chain-parameter and state
	// knowledge, given the origin it arrived under.
	Validate(ctx context.Context, origin Origin, tx *types.Tx, sidecar *types.BlobTxSidecar) ValidationOutcome
}

// Priority is the scalar an Ordering assigns to a transaction; higher
// wins (spec glossary, "Priority"). It is generic over the underlying
// value representation a given Ordering chooses (e.g. effective tip in
// wei), hence the interface-shaped comparator rather than a raw number.
type Priority interface {
	// Less reports whether this priority ranks below other. Equal
	// priorities return false both ways; submission_id is the secondary
	// tiebreaker applied by the caller, not by Priority itself.
	Less(other Priority) bool
}

// Ordering computes the Priority of a transaction against a base fee,
// implementing the pluggable policy spec §4.4.4 hands off to.
type Ordering interface {
	// Priority returns nil when the transaction does not qualify for
	// ordering at all (e.g. its fee cap is already below baseFee, though
	// callers typically only ask Ordering about Pending transactions
	// where this cannot happen).
	Priority(tx *types.Tx, baseFee *uint256.Int) Priority
}

// ChainStateProvider is the minimal read-only view of chain state the
// pool's validator and maintenance logic depend on; concrete instances
// are supplied by the out-of-scope execution/storage layer (spec §1).
type ChainStateProvider interface {
	// AccountState returns the on-chain nonce and balance for addr as of
	// the provider's current view.
	AccountState(addr common.Address) (nonce uint64, balance *uint256.Int, err error)
	// BytecodeHash returns the code hash for addr; the empty-code hash
	// for a plain EOA.
	BytecodeHash(addr common.Address) (common.Hash, error)
	// IsEOAHash reports whether codeHash denotes "no bytecode" for the
	// purposes of the stateful sender check.
	IsEOAHash(codeHash common.Hash) bool
}

// AddressReserver mirrors the teacher's reservation callback: it lets a
// subpool claim exclusive ownership of an address so only one subpool
// ever tracks a given sender's nonce chain at a time.
type AddressReserver func(addr common.Address, reserve bool) error
