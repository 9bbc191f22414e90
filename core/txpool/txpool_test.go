package txpool

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mempool/core/txpool/blobstore"
	"github.com/luxfi/mempool/core/txpool/subpool"
	"github.com/luxfi/mempool/core/types"
)

// sampleBlobSidecar builds a single-blob sidecar with a real KZG
// commitment and proof.
func sampleBlobSidecar(t *testing.T) (*types.BlobTxSidecar, []common.Hash) {
	t.Helper()
	blob := new(kzg4844.Blob)
	blob[0] = 7
	commitment, err := kzg4844.BlobToCommitment(blob)
	require.NoError(t, err)
	proof, err := kzg4844.ComputeBlobProof(blob, commitment)
	require.NoError(t, err)

	sidecar := &types.BlobTxSidecar{
		Blobs:       []kzg4844.Blob{*blob},
		Commitments: []kzg4844.Commitment{commitment},
		Proofs:      []kzg4844.Proof{proof},
	}
	vhash := common.Hash(kzg4844.CalcBlobHashV1(sha256.New(), &commitment))
	return sidecar, []common.Hash{vhash}
}

func newTestTxPool(t *testing.T) *TxPool {
	t.Helper()
	p, err := New(DefaultConfig(), blobstore.NewInMemoryStore(), NoopValidator{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

func sampleTx(sender common.Address, nonce uint64, feeCap uint64) *types.Tx {
	return &types.Tx{
		TxHash:    common.BytesToHash(append(sender.Bytes(), byte(nonce))),
		Sender:    sender,
		TxNonce:   nonce,
		GasLimit:  21_000,
		GasFeeCap: uint256.NewInt(feeCap),
		GasTipCap: uint256.NewInt(feeCap),
		TxValue:   uint256.NewInt(0),
		Type:      types.DynamicFeeTxType,
		Size:      100,
	}
}

func TestAddTransactionBecomesPending(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)

	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	got, ok := p.Get(tx.Hash())
	require.True(t, ok)
	require.Equal(t, tx.Hash(), got.Hash())

	pending, _, _, _ := p.Stats()
	require.Equal(t, 1, pending)
}

func TestAddTransactionRejectsNegativeValue(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	tx.TxValue = uint256.NewInt(0)
	tx.TxValue.Neg(uint256.NewInt(1))

	err := p.AddTransaction(context.Background(), External, tx, nil)
	require.ErrorIs(t, err, ErrNegativeValue)
}

func TestAddTransactionRejectsZeroSender(t *testing.T) {
	p := newTestTxPool(t)
	tx := sampleTx(common.Address{}, 0, 100)

	err := p.AddTransaction(context.Background(), External, tx, nil)
	require.ErrorIs(t, err, ErrInvalidSender)
}

func TestAddTransactionAndSubscribeDeliversDiscardEvent(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)

	sub, err := p.AddTransactionAndSubscribe(context.Background(), Local, tx, nil)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.True(t, p.RemoveTransaction(tx.Hash()))

	// Admission already delivered Pending; the discard follows it.
	ev := <-sub.Events()
	require.Equal(t, TxEventPending, ev.Kind)
	ev = <-sub.Events()
	require.Equal(t, tx.Hash(), ev.Hash)
	require.Equal(t, TxEventDiscarded, ev.Kind)
	require.Equal(t, DiscardReasonInvalidated, ev.Reason)
}

func TestAddTransactionsBatchReturnsPerItemErrors(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx0 := sampleTx(sender, 0, 100)
	dup := sampleTx(sender, 0, 100)
	tx1 := sampleTx(sender, 1, 100)

	errs := p.AddTransactions(context.Background(), External, []*types.Tx{tx0, dup, tx1}, nil)
	require.Len(t, errs, 3)
	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], ErrAlreadyKnown)
	require.NoError(t, errs[2])
}

func TestLocalOriginTracksSender(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	require.False(t, p.IsLocalSender(sender))

	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), Local, tx, nil))
	require.True(t, p.IsLocalSender(sender))
}

func TestRemoveTransactionReportsMiss(t *testing.T) {
	p := newTestTxPool(t)
	require.False(t, p.RemoveTransaction(common.HexToHash("0xdead")))
}

func TestHasReflectsAdmission(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.False(t, p.Has(tx.Hash()))
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))
	require.True(t, p.Has(tx.Hash()))
}

func TestBestYieldsAdmittedPendingTransaction(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	best := p.Best(CoinbaseTip{})
	defer best.Close()

	got := best.Next()
	require.NotNil(t, got)
	require.Equal(t, tx.Hash(), got.Hash())
}

func TestBestWithFeesUsesAlternateBaseFee(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	best := p.BestWithFees(CoinbaseTip{}, uint256.NewInt(1000))
	defer best.Close()

	require.Nil(t, best.Next(), "fee cap below the alternate base fee must yield nothing")
}

func TestBestWithPrioritizedSendersOrdersDesignatedFirst(t *testing.T) {
	p := newTestTxPool(t)
	low := common.HexToAddress("0x01")
	high := common.HexToAddress("0x02")
	require.NoError(t, p.AddTransaction(context.Background(), External, sampleTx(low, 0, 10), nil))
	require.NoError(t, p.AddTransaction(context.Background(), External, sampleTx(high, 0, 1_000), nil))

	best := p.BestWithPrioritizedSenders(CoinbaseTip{}, []common.Address{low})
	defer best.Close()

	got := best.Next()
	require.NotNil(t, got)
	require.Equal(t, low, got.Sender)
}

func TestOnCanonicalStateChangeThroughTopLevelPool(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	p.OnCanonicalStateChange(subpool.CanonicalUpdate{
		MinedHashes: []common.Hash{tx.Hash()},
		StateChanges: map[common.Address]subpool.AccountState{
			sender: {Nonce: 1, Balance: uint256.NewInt(1 << 30)},
		},
	})

	require.False(t, p.Has(tx.Hash()))
}

func TestOnCanonicalStateChangeReAdmitsReorgedOutTx(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	p.OnCanonicalStateChange(subpool.CanonicalUpdate{
		MinedHashes: []common.Hash{tx.Hash()},
		StateChanges: map[common.Address]subpool.AccountState{
			sender: {Nonce: 1, Balance: uint256.NewInt(1 << 30)},
		},
	})
	require.False(t, p.Has(tx.Hash()), "tx must leave the pool once mined")

	// A reorg un-mines the block tx was included in: the new chain's
	// state still shows the sender at nonce 0, so re-admission through
	// the validator path must bring tx back into the pool.
	p.OnCanonicalStateChange(subpool.CanonicalUpdate{
		StateChanges: map[common.Address]subpool.AccountState{
			sender: {Nonce: 0, Balance: uint256.NewInt(1 << 30)},
		},
		ReorgedOut: []subpool.ReorgedOutTx{{Tx: tx}},
	})

	require.True(t, p.Has(tx.Hash()), "reorged-out tx must be re-admitted through the validator path")
}

func TestSetFeesReclassifiesThroughTopLevelPool(t *testing.T) {
	p := newTestTxPool(t)
	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	pending, _, _, _ := p.Stats()
	require.Equal(t, 1, pending)

	p.SetFees(uint256.NewInt(150), uint256.NewInt(1))
	pending, basefee, _, _ := p.Stats()
	require.Equal(t, 0, pending)
	require.Equal(t, 1, basefee)
}

func TestSubscribeNewTransactionsReceivesAdmission(t *testing.T) {
	p := newTestTxPool(t)
	ch := make(chan NewTransactionEvent, 4)
	sub := p.SubscribeNewTransactions(ch, ListenAll)
	defer sub.Unsubscribe()

	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))

	ev := <-ch
	require.Equal(t, tx.Hash(), ev.Tx.Hash())
	require.Equal(t, Pending, ev.SubPool)
}

func TestSubscribePendingTransactionsSkipsQueued(t *testing.T) {
	p := newTestTxPool(t)
	ch := make(chan NewTransactionEvent, 4)
	sub := p.SubscribePendingTransactions(ch, ListenAll)
	defer sub.Unsubscribe()

	sender := common.HexToAddress("0x01")
	gapped := sampleTx(sender, 5, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, gapped, nil))

	select {
	case ev := <-ch:
		t.Fatalf("unexpected pending notification for queued transaction: %+v", ev)
	default:
	}
}

func TestSubscribeAllTransactionsReceivesDiscardEvent(t *testing.T) {
	p := newTestTxPool(t)
	ch := make(chan PoolEvent, 4)
	sub := p.SubscribeAllTransactions(ch, ListenAll)
	defer sub.Unsubscribe()

	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, tx, nil))
	require.True(t, p.RemoveTransaction(tx.Hash()))

	for {
		ev := <-ch
		if ev.Kind == TxEventDiscarded {
			require.Equal(t, tx.Hash(), ev.Tx.Hash())
			return
		}
	}
}

func TestSubscribeNewTransactionsPropagateOnlyHidesPrivateOrigin(t *testing.T) {
	p := newTestTxPool(t)
	ch := make(chan NewTransactionEvent, 4)
	sub := p.SubscribeNewTransactions(ch, ListenPropagateOnly)
	defer sub.Unsubscribe()

	sender := common.HexToAddress("0x01")
	private := sampleTx(sender, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), Private, private, nil))

	other := common.HexToAddress("0x02")
	public := sampleTx(other, 0, 100)
	require.NoError(t, p.AddTransaction(context.Background(), External, public, nil))

	ev := <-ch
	require.Equal(t, public.Hash(), ev.Tx.Hash(), "a Private-origin transaction must never reach a ListenPropagateOnly subscriber")
}

func TestSubscribeBlobSidecarsReceivesInsertedSidecar(t *testing.T) {
	p := newTestTxPool(t)
	ch := make(chan BlobSidecarEvent, 4)
	sub := p.SubscribeBlobSidecars(ch)
	defer sub.Unsubscribe()

	sender := common.HexToAddress("0x01")
	tx := sampleTx(sender, 0, 100)
	tx.Type = types.BlobTxType
	tx.BlobFeeCap = uint256.NewInt(100)

	sidecar, vhashes := sampleBlobSidecar(t)
	tx.BlobHashes = vhashes

	require.NoError(t, p.AddTransaction(context.Background(), External, tx, sidecar))

	ev := <-ch
	require.Equal(t, tx.Hash(), ev.Hash)
	require.Equal(t, sidecar, ev.Sidecar)
}

func TestCloseReleasesBlobStore(t *testing.T) {
	p, err := New(DefaultConfig(), blobstore.NewInMemoryStore(), NoopValidator{})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
