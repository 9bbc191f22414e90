package blobstore

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/luxfi/mempool/core/types"
)

// rlpSidecar mirrors types.BlobTxSidecar but as a plain RLP-friendly
// struct, keeping wire encoding concerns out of core/types. The owning
// transaction hash is carried alongside the sidecar bytes so a recovered
// on-disk slot can be re-indexed without any other source of truth.
type rlpSidecar struct {
	Hash        common.Hash
	Blobs       [][]byte
	Commitments [][]byte
	Proofs      [][]byte
}

func decodeSidecar(data []byte) (common.Hash, *types.BlobTxSidecar, error) {
	var w rlpSidecar
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return common.Hash{}, nil, err
	}
	s := &types.BlobTxSidecar{
		Blobs:       make([]kzg4844.Blob, len(w.Blobs)),
		Commitments: make([]kzg4844.Commitment, len(w.Commitments)),
		Proofs:      make([]kzg4844.Proof, len(w.Proofs)),
	}
	for i := range w.Blobs {
		copy(s.Blobs[i][:], w.Blobs[i])
	}
	for i := range w.Commitments {
		copy(s.Commitments[i][:], w.Commitments[i])
	}
	for i := range w.Proofs {
		copy(s.Proofs[i][:], w.Proofs[i])
	}
	return w.Hash, s, nil
}

func encodeSidecar(hash common.Hash, s *types.BlobTxSidecar) ([]byte, error) {
	w := rlpSidecar{
		Hash:        hash,
		Blobs:       make([][]byte, len(s.Blobs)),
		Commitments: make([][]byte, len(s.Commitments)),
		Proofs:      make([][]byte, len(s.Proofs)),
	}
	for i := range s.Blobs {
		w.Blobs[i] = s.Blobs[i][:]
	}
	for i := range s.Commitments {
		w.Commitments[i] = s.Commitments[i][:]
	}
	for i := range s.Proofs {
		w.Proofs[i] = s.Proofs[i][:]
	}
	return rlp.EncodeToBytes(&w)
}
