package txpool

import (
	"context"
	"math"

	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/types"
)

// NoopValidator accepts every transaction unconditionally, mirroring the
// reth ancestor's noop validation component. It exists for tests and
// benchmarks that want to exercise the subpool engine without wiring a
// real chain-state-backed Validator.
type NoopValidator struct{}

var _ Validator = NoopValidator{}

// Validate always succeeds: every sender is treated as funded with an
// effectively unlimited balance and a state nonce of zero, so a caller
// can admit an arbitrary nonce sequence for a synthetic sender.
func (NoopValidator) Validate(_ context.Context, origin Origin, tx *types.Tx, sidecar *types.BlobTxSidecar) ValidationOutcome {
	return ValidationOutcome{
		Valid: &ValidTransaction{
			Tx:         tx,
			Sidecar:    sidecar,
			Balance:    uint256.NewInt(math.MaxInt64),
			StateNonce: 0,
			Propagate:  origin != Private,
		},
	}
}
