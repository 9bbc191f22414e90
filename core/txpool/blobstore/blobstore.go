// Package blobstore implements component B of the mempool: a keyed store
// of blob sidecars, separated out from transaction metadata so the
// subpool engine's hot-path structures stay small (spec §4.2).
package blobstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/billy"

	"github.com/luxfi/mempool/core/types"
)

// Error kinds (spec §4.2). NotFound after a held transaction is a fatal
// invariant violation for the pool (spec §4.4.8); Inconsistent is always
// fatal.
var (
	ErrNotFound     = errors.New("blobstore: sidecar not found")
	ErrInconsistent = errors.New("blobstore: conflicting sidecar for hash")
	ErrBackend      = errors.New("blobstore: backend failure")
)

var (
	sidecarsGauge = metrics.NewRegisteredGauge("blobstore/sidecars", nil)
	bytesGauge    = metrics.NewRegisteredGauge("blobstore/bytes", nil)
	insertMeter   = metrics.NewRegisteredMeter("blobstore/insert", nil)
	deleteMeter   = metrics.NewRegisteredMeter("blobstore/delete", nil)
)

// BlobAndProof pairs a single blob with its KZG proof, the unit returned
// by versioned-hash lookups (spec §4.2).
type BlobAndProof struct {
	Blob  kzg4844.Blob
	Proof kzg4844.Proof
}

// Store is the contract any Blob Store backend must satisfy (spec §4.2).
type Store interface {
	// Insert is idempotent for an identical (hash, sidecar) pair and
	// returns ErrInconsistent if a different sidecar is already held for
	// hash.
	Insert(hash common.Hash, sidecar *types.BlobTxSidecar) error
	// Get returns the sidecar for hash, or ErrNotFound.
	Get(hash common.Hash) (*types.BlobTxSidecar, error)
	// GetAll returns every held sidecar matching hashes, skipping misses
	// rather than failing.
	GetAll(hashes []common.Hash) map[common.Hash]*types.BlobTxSidecar
	// GetExact returns every sidecar in hashes, failing entirely
	// (ErrNotFound) if any single hash is missing.
	GetExact(hashes []common.Hash) ([]*types.BlobTxSidecar, error)
	// GetByVersionedHashesV1 resolves each versioned hash to a
	// (blob, proof) pair drawn from whatever sidecar currently holds it,
	// returning nil for a hash nobody currently holds.
	GetByVersionedHashesV1(vhashes []common.Hash) ([]*BlobAndProof, error)
	// GetByVersionedHashesV2 is all-or-nothing: if any requested hash is
	// unresolvable the whole call fails.
	GetByVersionedHashesV2(vhashes []common.Hash) ([]BlobAndProof, error)
	// Delete removes the sidecar for hash, if present. Deleting a
	// missing hash is not an error (mirrors idempotent removal on
	// mining/eviction paths).
	Delete(hash common.Hash) error
	// Cleanup reclaims backend storage for any entries already deleted,
	// returning the number of bytes reclaimed.
	Cleanup() (uint64, error)
	// Close releases backend resources.
	Close() error
}

// entry is the in-memory bookkeeping kept alongside each sidecar,
// regardless of which backend stores the sidecar bytes.
type entry struct {
	sidecar *types.BlobTxSidecar
	vhashes []common.Hash
	billyID uint64 // only meaningful when backed by billy
	size    uint64
}

// DiskStore is a billy-backed Store: sidecar bytes live in an
// append-only slotted file on disk, while an in-memory index tracks
// hash -> slot and versioned-hash -> hash mappings for O(1) lookups
// (spec §4.2, §5 "Blob Store is internally synchronized").
type DiskStore struct {
	mu      sync.RWMutex
	db      billy.Database
	entries map[common.Hash]*entry
	byVHash map[common.Hash]common.Hash // versioned hash -> owning tx hash
}

// Open creates (or reopens) a disk-backed blob store rooted at dir.
func Open(dir string, maxSidecarSize uint32) (*DiskStore, error) {
	s := &DiskStore{
		entries: make(map[common.Hash]*entry),
		byVHash: make(map[common.Hash]common.Hash),
	}
	db, err := billy.Open(billy.Options{Path: dir, Repair: true}, newSlotter(maxSidecarSize), s.onMeta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	s.db = db
	return s, nil
}

// onMeta is billy's load-time callback, invoked once per slot still on
// disk when Open repairs/replays its backing file. Every recovered slot
// is decoded and re-indexed directly rather than waiting for a caller to
// reinsert it, so a reopened store is immediately queryable.
func (s *DiskStore) onMeta(id uint64, size uint32, data []byte) {
	hash, sidecar, err := decodeSidecar(data)
	if err != nil {
		log.Warn("blobstore: dropping unreadable slot during recovery", "id", id, "size", size, "err", err)
		return
	}
	vhashes := sidecar.VersionedHashes()
	e := &entry{sidecar: sidecar, vhashes: vhashes, billyID: id, size: uint64(size)}
	s.entries[hash] = e
	for _, vh := range vhashes {
		s.byVHash[common.Hash(vh)] = hash
	}
}

func (s *DiskStore) Insert(hash common.Hash, sidecar *types.BlobTxSidecar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[hash]; ok {
		if sameSidecar(existing.sidecar, sidecar) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInconsistent, hash)
	}

	encoded, err := encodeSidecar(hash, sidecar)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	id, err := s.db.Put(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	vhashes := sidecar.VersionedHashes()
	e := &entry{sidecar: sidecar, vhashes: vhashes, billyID: id, size: uint64(len(encoded))}
	s.entries[hash] = e
	for _, vh := range vhashes {
		s.byVHash[common.Hash(vh)] = hash
	}

	sidecarsGauge.Inc(1)
	bytesGauge.Inc(int64(e.size))
	insertMeter.Mark(1)
	return nil
}

func (s *DiskStore) Get(hash common.Hash) (*types.BlobTxSidecar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return e.sidecar, nil
}

func (s *DiskStore) GetAll(hashes []common.Hash) map[common.Hash]*types.BlobTxSidecar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[common.Hash]*types.BlobTxSidecar, len(hashes))
	for _, h := range hashes {
		if e, ok := s.entries[h]; ok {
			out[h] = e.sidecar
		}
	}
	return out
}

func (s *DiskStore) GetExact(hashes []common.Hash) ([]*types.BlobTxSidecar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.BlobTxSidecar, len(hashes))
	for i, h := range hashes {
		e, ok := s.entries[h]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, h)
		}
		out[i] = e.sidecar
	}
	return out, nil
}

func (s *DiskStore) GetByVersionedHashesV1(vhashes []common.Hash) ([]*BlobAndProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*BlobAndProof, len(vhashes))
	for i, vh := range vhashes {
		out[i] = s.lookupVersioned(vh)
	}
	return out, nil
}

func (s *DiskStore) GetByVersionedHashesV2(vhashes []common.Hash) ([]BlobAndProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BlobAndProof, len(vhashes))
	for i, vh := range vhashes {
		bp := s.lookupVersioned(vh)
		if bp == nil {
			return nil, fmt.Errorf("%w: versioned hash %s", ErrNotFound, vh)
		}
		out[i] = *bp
	}
	return out, nil
}

// lookupVersioned must be called with s.mu held.
func (s *DiskStore) lookupVersioned(vh common.Hash) *BlobAndProof {
	owner, ok := s.byVHash[vh]
	if !ok {
		return nil
	}
	e, ok := s.entries[owner]
	if !ok {
		return nil
	}
	for i, cvh := range e.vhashes {
		if common.Hash(cvh) == vh {
			return &BlobAndProof{Blob: e.sidecar.Blobs[i], Proof: e.sidecar.Proofs[i]}
		}
	}
	return nil
}

func (s *DiskStore) Delete(hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil
	}
	if err := s.db.Delete(e.billyID); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	delete(s.entries, hash)
	for _, vh := range e.vhashes {
		delete(s.byVHash, common.Hash(vh))
	}
	sidecarsGauge.Dec(1)
	bytesGauge.Dec(int64(e.size))
	deleteMeter.Mark(1)
	return nil
}

// Cleanup is a no-op for billy, which reclaims slots synchronously on
// Delete; it exists to satisfy the Store contract and for backends (like
// a future compacting store) that defer reclamation.
func (s *DiskStore) Cleanup() (uint64, error) { return 0, nil }

func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func sameSidecar(a, b *types.BlobTxSidecar) bool {
	if len(a.Commitments) != len(b.Commitments) {
		return false
	}
	for i := range a.Commitments {
		if a.Commitments[i] != b.Commitments[i] {
			return false
		}
	}
	return true
}
