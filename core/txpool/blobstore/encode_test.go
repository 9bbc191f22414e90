package blobstore

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSidecarRoundTrip(t *testing.T) {
	sidecar, _ := sampleSidecar(t, 0x09)
	hash := common.HexToHash("0x1234")

	encoded, err := encodeSidecar(hash, sidecar)
	require.NoError(t, err)

	gotHash, gotSidecar, err := decodeSidecar(encoded)
	require.NoError(t, err)
	require.Equal(t, hash, gotHash)
	require.Equal(t, sidecar.Blobs, gotSidecar.Blobs)
	require.Equal(t, sidecar.Commitments, gotSidecar.Commitments)
	require.Equal(t, sidecar.Proofs, gotSidecar.Proofs)
}

func TestDecodeSidecarRejectsGarbage(t *testing.T) {
	_, _, err := decodeSidecar([]byte{0xff, 0x00, 0x01})
	require.Error(t, err)
}
