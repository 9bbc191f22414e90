package txpool

// SubPoolKind tags which of the four subpools a held transaction
// currently belongs to (spec §3, "Subpool (tag)").
type SubPoolKind uint8

const (
	// Pending transactions are immediately executable: gapless from the
	// on-chain nonce and affordable at the current base/blob fee.
	Pending SubPoolKind = iota
	// BaseFee transactions would be executable but for max_fee_per_gas
	// currently sitting below the pool's base fee.
	BaseFee
	// Blob transactions are EIP-4844 transactions parked because their
	// blob fee cap is below the pool's blob fee.
	Blob
	// Queued transactions have a nonce gap ahead of them or would
	// overdraw the sender's balance once earlier transactions are
	// included.
	Queued
)

func (k SubPoolKind) String() string {
	switch k {
	case Pending:
		return "pending"
	case BaseFee:
		return "basefee"
	case Blob:
		return "blob"
	case Queued:
		return "queued"
	default:
		return "unknown"
	}
}
