package txpool

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/types"
)

// tipPriority is the Priority CoinbaseTip hands back: a transaction's
// effective gas tip at the evaluated base fee, higher wins.
type tipPriority struct{ tip *uint256.Int }

func (p tipPriority) Less(other Priority) bool {
	return p.tip.Cmp(other.(tipPriority).tip) < 0
}

// CoinbaseTip is the default Ordering (spec §4.4.4, "pluggable Priority";
// glossary "Priority — a scalar produced by the pluggable Ordering"):
// it ranks transactions by the wei-per-gas a block proposer actually
// collects.
type CoinbaseTip struct{}

var _ Ordering = CoinbaseTip{}

// Priority implements Ordering.
func (CoinbaseTip) Priority(tx *types.Tx, baseFee *uint256.Int) Priority {
	return tipPriority{tip: tx.EffectiveGasTip(baseFee)}
}
