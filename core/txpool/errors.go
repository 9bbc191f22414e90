package txpool

import "errors"

// Pool-wide error kinds (spec §7). These are returned from the Admission
// API; none of them mutate pool state except where noted.
var (
	// ErrAlreadyKnown is returned for a duplicate hash; the caller should
	// treat this as an idempotent success, not a failure.
	ErrAlreadyKnown = errors.New("transaction already known")

	// ErrReplacementUnderpriced is returned when a challenger transaction
	// at an already-held (sender, nonce) fails to clear the required fee
	// bump; the incumbent is kept unchanged.
	ErrReplacementUnderpriced = errors.New("replacement transaction underpriced")

	// ErrSpammerExceededCap is returned when admitting a transaction
	// would extend a sender's chain past max_account_slots_per_sender.
	ErrSpammerExceededCap = errors.New("sender exceeded allowed slot cap")

	// ErrDiscardedOnInsert is returned when eviction, triggered by the
	// insertion itself, chose to remove the just-inserted transaction.
	ErrDiscardedOnInsert = errors.New("transaction discarded by eviction on insert")

	// ErrPoolOverflow indicates a global byte cap would be exceeded even
	// after eviction; this is a configuration problem, not routine churn.
	ErrPoolOverflow = errors.New("pool overflow: limits too small for held set")

	// ErrTxPoolOverflow is an alias kept for external callers matching
	// the wider ecosystem's naming (go-ethereum's core/txpool uses this
	// spelling).
	ErrTxPoolOverflow = ErrPoolOverflow

	// ErrNegativeValue rejects a transaction whose value would underflow,
	// a stateless sanity check performed before validation.
	ErrNegativeValue = errors.New("negative transaction value")

	// ErrInvalidSender is returned when a transaction with no resolvable
	// sender reaches the pool; the caller is expected to have already
	// recovered the sender (spec §1, signature recovery is out of
	// scope), so this indicates a caller bug.
	ErrInvalidSender = errors.New("invalid sender")

	// ErrAlreadyReserved mirrors the teacher's AddressReserver contract:
	// a second subpool attempted to claim an address already owned by
	// another subpool.
	ErrAlreadyReserved = errors.New("address already reserved by another subpool")

	// ErrInternal marks an unclassified bug; always escalated for
	// observability rather than silently swallowed (spec §7).
	ErrInternal = errors.New("internal pool error")

	// ErrRecentlyEvicted rejects re-admission of a hash the pool evicted
	// moments ago, guarding against a sender that resubmits the exact
	// same underpriced transaction in a tight loop (spec §4.4.7 eviction
	// is meant to make room, not to be immediately undone).
	ErrRecentlyEvicted = errors.New("transaction hash recently evicted")
)

// ValidationErrorKind enumerates reasons a transaction failed the
// Validator's stateless or stateful checks (spec §4.3, §7
// ValidationRejected).
type ValidationErrorKind uint8

const (
	InvalidTxTypeNotActive ValidationErrorKind = iota
	InvalidOversizedData
	InvalidGasLimitExceedsBlock
	InvalidTipAboveFeeCap
	InvalidChainID
	InvalidIntrinsicGas
	InvalidBlobCount
	InvalidBlobKZG
	InvalidFeeCapBelowMinimum
	InvalidTipBelowMinimum
	InvalidSenderHasBytecode
	InvalidNonceTooLow
	InvalidInsufficientFunds
	InvalidUnknown
)

func (k ValidationErrorKind) String() string {
	switch k {
	case InvalidTxTypeNotActive:
		return "tx type not active for current fork"
	case InvalidOversizedData:
		return "transaction data exceeds size limit"
	case InvalidGasLimitExceedsBlock:
		return "gas limit exceeds block gas limit"
	case InvalidTipAboveFeeCap:
		return "max priority fee per gas higher than max fee per gas"
	case InvalidChainID:
		return "transaction chain id mismatch"
	case InvalidIntrinsicGas:
		return "intrinsic gas too low"
	case InvalidBlobCount:
		return "invalid blob count"
	case InvalidBlobKZG:
		return "invalid blob KZG proof"
	case InvalidFeeCapBelowMinimum:
		return "max fee per gas below minimum protocol base fee"
	case InvalidTipBelowMinimum:
		return "max priority fee per gas below configured minimum"
	case InvalidSenderHasBytecode:
		return "sender account has deployed bytecode"
	case InvalidNonceTooLow:
		return "nonce too low"
	case InvalidInsufficientFunds:
		return "insufficient funds for transaction cost"
	default:
		return "unclassified validation failure"
	}
}

// ValidationError wraps a ValidationErrorKind as an error, carried in
// ValidationOutcome.Invalid.
type ValidationError struct {
	Kind ValidationErrorKind
}

func (e *ValidationError) Error() string { return e.Kind.String() }
