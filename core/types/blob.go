package types

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

// BlobTxSidecar is the large blob-data appendage of a blob transaction,
// carried out-of-band from the transaction's metadata (spec §3, "Blob
// duality"; §4.2, Blob Store).
type BlobTxSidecar struct {
	Blobs       []kzg4844.Blob
	Commitments []kzg4844.Commitment
	Proofs      []kzg4844.Proof
}

// VersionedHashes derives the EIP-4844 versioned hash for each commitment
// in the sidecar, in the same order the commitments were supplied.
func (s *BlobTxSidecar) VersionedHashes() []kzg4844.VersionedHash {
	hasher := sha256.New()
	hashes := make([]kzg4844.VersionedHash, len(s.Commitments))
	for i, c := range s.Commitments {
		hashes[i] = kzg4844.CalcBlobHashV1(hasher, &c)
	}
	return hashes
}

// ValidateBlobCount reports whether the sidecar's component slices are
// all of equal, non-zero length and do not exceed maxBlobs.
func (s *BlobTxSidecar) ValidateBlobCount(maxBlobs int) bool {
	n := len(s.Blobs)
	if n == 0 || n > maxBlobs {
		return false
	}
	return len(s.Commitments) == n && len(s.Proofs) == n
}

// ValidateKZG verifies every blob/commitment/proof triple in the sidecar.
func (s *BlobTxSidecar) ValidateKZG() error {
	for i := range s.Blobs {
		if err := kzg4844.VerifyBlobProof(&s.Blobs[i], s.Commitments[i], s.Proofs[i]); err != nil {
			return err
		}
	}
	return nil
}
