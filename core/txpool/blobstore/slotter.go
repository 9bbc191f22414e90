package blobstore

// blobSize is the fixed size of a single EIP-4844 blob (4096 field
// elements * 32 bytes).
const blobSize = 4096 * 32

// txAvgSize is a generous estimate of the non-blob metadata (commitments,
// proofs, transaction envelope) that accompanies a sidecar's blobs.
const txAvgSize = 4 << 10

// newSlotter returns billy's shelf-size generator: a closure that yields
// monotonically increasing shelf sizes until the cap tied to
// maxSidecarSize is reached, mirroring the teacher pack's blobpool
// slotter (one shelf per additional blob, scaled by overhead
// metadata), so differently-sized sidecars land in differently-sized
// on-disk shelves instead of all paying the worst-case slot size.
func newSlotter(maxSidecarSize uint32) func() (uint32, bool) {
	maxBlobs := int(maxSidecarSize / blobSize)
	if maxBlobs < 1 {
		maxBlobs = 1
	}
	next := 0
	return func() (uint32, bool) {
		shelf := uint32(next)*blobSize + txAvgSize
		done := next >= maxBlobs
		next++
		return shelf, done
	}
}
