package blobstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotterYieldsIncreasingShelves(t *testing.T) {
	next := newSlotter(3 * blobSize)
	var sizes []uint32
	for {
		size, done := next()
		sizes = append(sizes, size)
		if done {
			break
		}
	}
	require.Len(t, sizes, 4) // 0,1,2,3 blobs worth of shelves, inclusive
	for i := 1; i < len(sizes); i++ {
		require.Greater(t, sizes[i], sizes[i-1])
	}
	require.Equal(t, uint32(txAvgSize), sizes[0])
}

func TestSlotterFloorsAtOneBlob(t *testing.T) {
	next := newSlotter(0)
	_, done := next()
	require.False(t, done, "maxBlobs must floor at 1, not 0")
}
