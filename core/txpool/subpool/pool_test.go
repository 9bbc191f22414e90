package subpool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mempool/core/txpool"
)

func TestAddSingleTxBecomesPending(t *testing.T) {
	sink := &recordingSink{}
	p := newTestPool(sink)
	sender := common.HexToAddress("0x01")

	tx := testTx(sender, 0, 100, 21_000)
	require.NoError(t, p.Add(testValid(tx, uint256.NewInt(1<<30), 0)))

	got, ok := p.Get(tx.Hash())
	require.True(t, ok)
	require.Equal(t, tx.Hash(), got.Hash())
	require.Equal(t, 1, p.Len(txpool.Pending))
}

func TestAddNonceGapGoesToQueued(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")

	tx := testTx(sender, 5, 100, 21_000) // state nonce is 0, this is a gap
	require.NoError(t, p.Add(testValid(tx, uint256.NewInt(1<<30), 0)))

	require.Equal(t, 1, p.Len(txpool.Queued))
	require.Equal(t, 0, p.Len(txpool.Pending))
}

func TestAddBelowBaseFeeGoesToBaseFeeSubpool(t *testing.T) {
	p := newTestPool(&recordingSink{})
	p.SetFees(uint256.NewInt(100), uint256.NewInt(1))
	sender := common.HexToAddress("0x01")

	tx := testTx(sender, 0, 50, 21_000)
	require.NoError(t, p.Add(testValid(tx, uint256.NewInt(1<<30), 0)))

	require.Equal(t, 1, p.Len(txpool.BaseFee))
}

func TestAddDuplicateHashRejected(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")
	tx := testTx(sender, 0, 100, 21_000)

	require.NoError(t, p.Add(testValid(tx, uint256.NewInt(1<<30), 0)))
	err := p.Add(testValid(tx, uint256.NewInt(1<<30), 0))
	require.ErrorIs(t, err, txpool.ErrAlreadyKnown)
}

func TestAddPromotesDescendantWhenGapFills(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")

	tx1 := testTx(sender, 1, 100, 21_000)
	require.NoError(t, p.Add(testValid(tx1, uint256.NewInt(1<<30), 0)))
	require.Equal(t, 1, p.Len(txpool.Queued))

	tx0 := testTx(sender, 0, 100, 21_000)
	require.NoError(t, p.Add(testValid(tx0, uint256.NewInt(1<<30), 0)))

	require.Equal(t, 2, p.Len(txpool.Pending))
	require.Equal(t, 0, p.Len(txpool.Queued))
}

func TestAddSpammerExceedsSlotCap(t *testing.T) {
	limits := [4]txpool.SubPoolLimit{
		txpool.Pending: {MaxCount: 1000, MaxBytes: 1 << 30},
		txpool.BaseFee: {MaxCount: 1000, MaxBytes: 1 << 30},
		txpool.Blob:    {MaxCount: 1000, MaxBytes: 1 << 30},
		txpool.Queued:  {MaxCount: 1000, MaxBytes: 1 << 30},
	}
	p := New(limits, txpool.DefaultPriceBumpConfig(), 2, nil, &recordingSink{})
	sender := common.HexToAddress("0x01")

	for i := uint64(0); i < 2; i++ {
		require.NoError(t, p.Add(testValid(testTx(sender, i, 100, 21_000), uint256.NewInt(1<<30), 0)))
	}
	err := p.Add(testValid(testTx(sender, 2, 100, 21_000), uint256.NewInt(1<<30), 0))
	require.ErrorIs(t, err, txpool.ErrSpammerExceededCap)
}

func TestReplacementRequiresPriceBump(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")

	tx := testTx(sender, 0, 100, 21_000)
	require.NoError(t, p.Add(testValid(tx, uint256.NewInt(1<<30), 0)))

	weak := testTx(sender, 0, 105, 21_000) // +5%, below the 10% default bump
	err := p.Add(testValid(weak, uint256.NewInt(1<<30), 0))
	require.ErrorIs(t, err, txpool.ErrReplacementUnderpriced)
}

func TestReplacementClearingBumpSucceeds(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")

	original := testTx(sender, 0, 100, 21_000)
	require.NoError(t, p.Add(testValid(original, uint256.NewInt(1<<30), 0)))

	stronger := testTx(sender, 0, 111, 21_000) // +11%, clears 10% bump
	require.NoError(t, p.Add(testValid(stronger, uint256.NewInt(1<<30), 0)))

	_, ok := p.Get(original.Hash())
	require.False(t, ok, "replaced transaction must be gone")
	got, ok := p.Get(stronger.Hash())
	require.True(t, ok)
	require.Equal(t, stronger.Hash(), got.Hash())
}

func TestRemoveCascadesToDescendants(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")

	tx0 := testTx(sender, 0, 100, 21_000)
	tx1 := testTx(sender, 1, 100, 21_000)
	tx2 := testTx(sender, 2, 100, 21_000)
	require.NoError(t, p.Add(testValid(tx0, uint256.NewInt(1<<30), 0)))
	require.NoError(t, p.Add(testValid(tx1, uint256.NewInt(1<<30), 0)))
	require.NoError(t, p.Add(testValid(tx2, uint256.NewInt(1<<30), 0)))
	require.Equal(t, 3, p.Len(txpool.Pending))

	require.True(t, p.Remove(tx0.Hash(), txpool.DiscardReasonInvalidated))

	_, ok := p.Get(tx1.Hash())
	require.False(t, ok, "descendant of a removed transaction must also be removed")
	_, ok = p.Get(tx2.Hash())
	require.False(t, ok)
}

func TestRecentlyEvictedHashRejectedOnResubmission(t *testing.T) {
	limits := [4]txpool.SubPoolLimit{
		txpool.Pending: {MaxCount: 1000, MaxBytes: 1 << 30},
		txpool.BaseFee: {MaxCount: 1000, MaxBytes: 1 << 30},
		txpool.Blob:    {MaxCount: 1000, MaxBytes: 1 << 30},
		txpool.Queued:  {MaxCount: 1, MaxBytes: 1 << 30},
	}
	p := New(limits, txpool.DefaultPriceBumpConfig(), txpool.TxPoolMaxAccountSlotsPerSender, nil, &recordingSink{})

	// Two distinct senders both queued (nonce gap), Queued capacity is 1,
	// so the second admission evicts the worse-ranked queued entry.
	senderA := common.HexToAddress("0x01")
	senderB := common.HexToAddress("0x02")
	txA := testTx(senderA, 9, 100, 21_000) // nonce distance 9 from base 0
	txB := testTx(senderB, 1, 100, 21_000) // nonce distance 1, evicts txA

	require.NoError(t, p.Add(testValid(txA, uint256.NewInt(1<<30), 0)))
	require.NoError(t, p.Add(testValid(txB, uint256.NewInt(1<<30), 0)))

	_, ok := p.Get(txA.Hash())
	require.False(t, ok, "txA should have been evicted to make room")

	err := p.Add(testValid(txA, uint256.NewInt(1<<30), 0))
	require.ErrorIs(t, err, txpool.ErrRecentlyEvicted)
}

func TestReclassifyChainCascadesQueuedPastNonPendingAncestor(t *testing.T) {
	p := newTestPool(&recordingSink{})
	p.SetFees(uint256.NewInt(100), uint256.NewInt(1))
	sender := common.HexToAddress("0x01")

	// tx0 is underpriced against the 100 base fee and lands in BaseFee;
	// tx1 is individually well-priced and nonce-contiguous, but it can
	// never be mined ahead of an ancestor that isn't itself Pending, so
	// it must cascade to Queued rather than resolving to Pending on its
	// own fee alone.
	tx0 := testTx(sender, 0, 50, 21_000)
	tx1 := testTx(sender, 1, 1_000, 21_000)
	require.NoError(t, p.Add(testValid(tx0, uint256.NewInt(1<<30), 0)))
	require.NoError(t, p.Add(testValid(tx1, uint256.NewInt(1<<30), 0)))

	require.Equal(t, 1, p.Len(txpool.BaseFee))
	require.Equal(t, 0, p.Len(txpool.Pending))
	require.Equal(t, 1, p.Len(txpool.Queued))

	_, ok := p.Get(tx1.Hash())
	require.True(t, ok, "tx1 is still held, just not eligible to be mined yet")
}

func TestSetFeesReclassifiesHeldTransactions(t *testing.T) {
	p := newTestPool(&recordingSink{})
	sender := common.HexToAddress("0x01")
	tx := testTx(sender, 0, 100, 21_000)
	require.NoError(t, p.Add(testValid(tx, uint256.NewInt(1<<30), 0)))
	require.Equal(t, 1, p.Len(txpool.Pending))

	p.SetFees(uint256.NewInt(150), uint256.NewInt(1))
	require.Equal(t, 0, p.Len(txpool.Pending))
	require.Equal(t, 1, p.Len(txpool.BaseFee))

	p.SetFees(uint256.NewInt(50), uint256.NewInt(1))
	require.Equal(t, 1, p.Len(txpool.Pending))
	require.Equal(t, 0, p.Len(txpool.BaseFee))
}
