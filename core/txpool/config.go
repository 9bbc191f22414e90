package txpool

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Default configuration values (spec §6). Names mirror the teacher's
// upper-snake exported constants for pool tuning knobs.
const (
	// TxPoolMaxAccountSlotsPerSender caps how many transactions a single
	// sender may have held across the pool at once.
	TxPoolMaxAccountSlotsPerSender = 16

	// DefaultPriceBumpPct is the minimum percentage a non-blob
	// replacement must exceed every applicable fee field of the
	// incumbent by.
	DefaultPriceBumpPct = 10

	// ReplaceBlobPriceBumpPct is the (larger) bump required to replace a
	// blob-carrying transaction.
	ReplaceBlobPriceBumpPct = 100

	// MaxNewPendingTxsNotifications sizes each Best iterator's
	// live-update channel.
	MaxNewPendingTxsNotifications = 200

	// DefaultAdditionalValidationTasks is the default parallel validator
	// worker count.
	DefaultAdditionalValidationTasks = 4

	// MaxInputBytes is the default stateless size ceiling on transaction
	// input data (128 KiB, spec §4.3).
	MaxInputBytes = 128 * 1024
)

// SubPoolLimit caps a single subpool's count and byte footprint (spec
// §4.4.7, §6 pending_limit/basefee_limit/queued_limit/blob_limit).
type SubPoolLimit struct {
	MaxCount uint64
	MaxBytes uint64
}

// DefaultPendingLimit, DefaultBaseFeeLimit, DefaultQueuedLimit and
// DefaultBlobLimit are the subpool-specific default caps, chosen in the
// same proportions upstream go-ethereum/reth ship (large executable
// pools, a smaller blob pool bounded more by bytes than count since
// sidecars dominate blob transaction size).
func DefaultPendingLimit() SubPoolLimit { return SubPoolLimit{MaxCount: 10_000, MaxBytes: 20 << 20} }
func DefaultBaseFeeLimit() SubPoolLimit { return SubPoolLimit{MaxCount: 10_000, MaxBytes: 20 << 20} }
func DefaultQueuedLimit() SubPoolLimit  { return SubPoolLimit{MaxCount: 10_000, MaxBytes: 20 << 20} }
func DefaultBlobLimit() SubPoolLimit    { return SubPoolLimit{MaxCount: 4_096, MaxBytes: 1 << 30} }

// PriceBumpConfig holds the minimum percentage bump a replacement
// transaction must clear (spec §4.4.6).
type PriceBumpConfig struct {
	DefaultPct uint64
	BlobPct    uint64
}

// DefaultPriceBumpConfig returns the conventional 10%/100% bump pair.
func DefaultPriceBumpConfig() PriceBumpConfig {
	return PriceBumpConfig{DefaultPct: DefaultPriceBumpPct, BlobPct: ReplaceBlobPriceBumpPct}
}

// LocalTransactionsConfig holds the local-transaction options (spec §6).
// Only WhitelistedSenders is read, through IsLocalSender; Propagate and
// NoLocalExemptions are carried but not consulted by admission,
// validation or eviction.
type LocalTransactionsConfig struct {
	// Propagate records whether local transactions are to be announced
	// to peers.
	Propagate bool
	// NoLocalExemptions records whether local transactions are to be
	// treated like external ones.
	NoLocalExemptions bool
	// WhitelistedSenders additionally treats these addresses as local
	// even when the transaction arrived with Origin external.
	WhitelistedSenders mapset.Set[common.Address]
}

// IsLocalSender reports whether addr should receive local treatment.
func (c *LocalTransactionsConfig) IsLocalSender(addr common.Address) bool {
	if c == nil || c.WhitelistedSenders == nil {
		return false
	}
	return c.WhitelistedSenders.Contains(addr)
}

// Config aggregates every tunable named in spec §6.
type Config struct {
	MaxAccountSlotsPerSender uint64

	PendingLimit SubPoolLimit
	BaseFeeLimit SubPoolLimit
	QueuedLimit  SubPoolLimit
	BlobLimit    SubPoolLimit

	PriceBump PriceBumpConfig

	// MinimalProtocolBaseFee is the floor on max_fee_per_gas for
	// External-origin transactions. The validate package does not read
	// this field; its checks use the value in its own ChainParams.
	MinimalProtocolBaseFee uint64

	Local LocalTransactionsConfig

	// GasLimit is the block gas ceiling. The validate package does not
	// read this field; its stateless gas_limit check uses the value in
	// its own ChainParams.
	GasLimit uint64

	MaxNewPendingTxsNotifications uint64
	AdditionalValidationTasks     int

	MaxInputBytes uint64
}

// DefaultConfig returns the conventional defaults named throughout spec
// §6.
func DefaultConfig() Config {
	return Config{
		MaxAccountSlotsPerSender:      TxPoolMaxAccountSlotsPerSender,
		PendingLimit:                  DefaultPendingLimit(),
		BaseFeeLimit:                  DefaultBaseFeeLimit(),
		QueuedLimit:                   DefaultQueuedLimit(),
		BlobLimit:                     DefaultBlobLimit(),
		PriceBump:                     DefaultPriceBumpConfig(),
		MinimalProtocolBaseFee:        7, // wei, matches go-ethereum's historical floor
		GasLimit:                      30_000_000,
		MaxNewPendingTxsNotifications: MaxNewPendingTxsNotifications,
		AdditionalValidationTasks:     DefaultAdditionalValidationTasks,
		MaxInputBytes:                 MaxInputBytes,
		Local:                         LocalTransactionsConfig{WhitelistedSenders: mapset.NewThreadSafeSet[common.Address]()},
	}
}

// Sanitize clamps zero/invalid fields to their defaults, logging a
// warning for each correction, matching the teacher's config.sanitize()
// convention.
func (c *Config) Sanitize() Config {
	conf := *c
	d := DefaultConfig()

	if conf.MaxAccountSlotsPerSender == 0 {
		log.Warn("Sanitizing invalid txpool account slot cap", "provided", conf.MaxAccountSlotsPerSender, "updated", d.MaxAccountSlotsPerSender)
		conf.MaxAccountSlotsPerSender = d.MaxAccountSlotsPerSender
	}
	if conf.PriceBump.DefaultPct == 0 {
		log.Warn("Sanitizing invalid txpool price bump", "provided", conf.PriceBump.DefaultPct, "updated", d.PriceBump.DefaultPct)
		conf.PriceBump.DefaultPct = d.PriceBump.DefaultPct
	}
	if conf.PriceBump.BlobPct == 0 {
		log.Warn("Sanitizing invalid txpool blob price bump", "provided", conf.PriceBump.BlobPct, "updated", d.PriceBump.BlobPct)
		conf.PriceBump.BlobPct = d.PriceBump.BlobPct
	}
	if conf.MaxNewPendingTxsNotifications == 0 {
		log.Warn("Sanitizing invalid txpool pending notification size", "provided", conf.MaxNewPendingTxsNotifications, "updated", d.MaxNewPendingTxsNotifications)
		conf.MaxNewPendingTxsNotifications = d.MaxNewPendingTxsNotifications
	}
	if conf.AdditionalValidationTasks <= 0 {
		log.Warn("Sanitizing invalid txpool validation task count", "provided", conf.AdditionalValidationTasks, "updated", d.AdditionalValidationTasks)
		conf.AdditionalValidationTasks = d.AdditionalValidationTasks
	}
	if conf.MaxInputBytes == 0 {
		log.Warn("Sanitizing invalid txpool max input size", "provided", conf.MaxInputBytes, "updated", d.MaxInputBytes)
		conf.MaxInputBytes = d.MaxInputBytes
	}
	zeroLimit := func(l SubPoolLimit) bool { return l.MaxCount == 0 && l.MaxBytes == 0 }
	if zeroLimit(conf.PendingLimit) {
		log.Warn("Sanitizing invalid txpool pending limit", "updated", d.PendingLimit)
		conf.PendingLimit = d.PendingLimit
	}
	if zeroLimit(conf.BaseFeeLimit) {
		log.Warn("Sanitizing invalid txpool basefee limit", "updated", d.BaseFeeLimit)
		conf.BaseFeeLimit = d.BaseFeeLimit
	}
	if zeroLimit(conf.QueuedLimit) {
		log.Warn("Sanitizing invalid txpool queued limit", "updated", d.QueuedLimit)
		conf.QueuedLimit = d.QueuedLimit
	}
	if zeroLimit(conf.BlobLimit) {
		log.Warn("Sanitizing invalid txpool blob limit", "updated", d.BlobLimit)
		conf.BlobLimit = d.BlobLimit
	}
	if conf.Local.WhitelistedSenders == nil {
		conf.Local.WhitelistedSenders = mapset.NewThreadSafeSet[common.Address]()
	}
	return conf
}
