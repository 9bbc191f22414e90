package subpool

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
	"github.com/luxfi/mempool/core/types"
)

// recordingSink is an EventSink that just counts notifications, grounded
// on the teacher's own testing pattern of a trivial stub implementation
// of a small callback interface rather than a mock framework.
type recordingSink struct {
	mu        sync.Mutex
	newTx     []txpool.SubPoolKind
	txEvents  []txEventRecord
	poolEvent []txpool.TxEventKind
}

type txEventRecord struct {
	hash   common.Hash
	kind   txpool.TxEventKind
	reason txpool.DiscardReason
}

func (s *recordingSink) NotifyNewTransaction(_ *types.Tx, sub txpool.SubPoolKind, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newTx = append(s.newTx, sub)
}

func (s *recordingSink) NotifyTxEvent(hash common.Hash, kind txpool.TxEventKind, reason txpool.DiscardReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txEvents = append(s.txEvents, txEventRecord{hash: hash, kind: kind, reason: reason})
}

func (s *recordingSink) NotifyPoolEvent(_ *types.Tx, kind txpool.TxEventKind, _ txpool.DiscardReason, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolEvent = append(s.poolEvent, kind)
}

func (s *recordingSink) NotifyBlobSidecar(common.Hash, *types.BlobTxSidecar) {}

func (s *recordingSink) discardCount(reason txpool.DiscardReason) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.txEvents {
		if e.kind == txpool.TxEventDiscarded && e.reason == reason {
			n++
		}
	}
	return n
}

// testTx builds a minimal, internally consistent non-blob transaction for
// sender at nonce with the given fee cap and gas limit.
func testTx(sender common.Address, nonce uint64, feeCap uint64, gasLimit uint64) *types.Tx {
	return &types.Tx{
		TxHash:    common.BytesToHash(append(sender.Bytes(), byte(nonce))),
		Sender:    sender,
		TxNonce:   nonce,
		GasLimit:  gasLimit,
		GasFeeCap: uint256.NewInt(feeCap),
		GasTipCap: uint256.NewInt(feeCap),
		TxValue:   uint256.NewInt(0),
		Type:      types.DynamicFeeTxType,
		Size:      100,
	}
}

func testValid(tx *types.Tx, balance *uint256.Int, stateNonce uint64) *txpool.ValidTransaction {
	return &txpool.ValidTransaction{Tx: tx, Balance: balance, StateNonce: stateNonce}
}

func newTestPool(sink EventSink) *Pool {
	limits := [4]txpool.SubPoolLimit{
		txpool.Pending: {MaxCount: 100, MaxBytes: 1 << 20},
		txpool.BaseFee: {MaxCount: 100, MaxBytes: 1 << 20},
		txpool.Blob:    {MaxCount: 100, MaxBytes: 1 << 20},
		txpool.Queued:  {MaxCount: 100, MaxBytes: 1 << 20},
	}
	return New(limits, txpool.DefaultPriceBumpConfig(), txpool.TxPoolMaxAccountSlotsPerSender, nil, sink)
}
