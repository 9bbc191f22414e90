package locals

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mempool/core/types"
)

func TestTrackMarksSenderLocal(t *testing.T) {
	tr := New()
	addr := common.HexToAddress("0x01")
	require.False(t, tr.IsLocal(addr))

	tr.Track(&types.Tx{Sender: addr})
	require.True(t, tr.IsLocal(addr))
}

func TestTrackIsIdempotent(t *testing.T) {
	tr := New()
	addr := common.HexToAddress("0x01")
	tr.Track(&types.Tx{Sender: addr})
	tr.Track(&types.Tx{Sender: addr})

	require.Len(t, tr.Senders(), 1)
}

func TestIsLocalFalseForUntrackedSender(t *testing.T) {
	tr := New()
	require.False(t, tr.IsLocal(common.HexToAddress("0x02")))
}

func TestSendersReturnsEveryTrackedAddress(t *testing.T) {
	tr := New()
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	tr.Track(&types.Tx{Sender: a})
	tr.Track(&types.Tx{Sender: b})

	got := tr.Senders()
	require.ElementsMatch(t, []common.Address{a, b}, got)
}
