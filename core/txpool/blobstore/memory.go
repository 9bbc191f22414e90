package blobstore

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/mempool/core/types"
)

// InMemoryStore is a Store backed by a plain map, used by tests and by
// deployments that accept losing the blob pool across a restart in
// exchange for not touching disk (spec §4.2 names no canonical backend;
// SPEC_FULL.md §4 lists this variant alongside the billy-backed store).
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[common.Hash]*entry
	byVHash map[common.Hash]common.Hash
}

// NewInMemoryStore creates an empty in-memory blob store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[common.Hash]*entry),
		byVHash: make(map[common.Hash]common.Hash),
	}
}

func (s *InMemoryStore) Insert(hash common.Hash, sidecar *types.BlobTxSidecar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[hash]; ok {
		if sameSidecar(existing.sidecar, sidecar) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInconsistent, hash)
	}
	vhashes := sidecar.VersionedHashes()
	s.entries[hash] = &entry{sidecar: sidecar, vhashes: vhashes}
	for _, vh := range vhashes {
		s.byVHash[common.Hash(vh)] = hash
	}
	sidecarsGauge.Inc(1)
	insertMeter.Mark(1)
	return nil
}

func (s *InMemoryStore) Get(hash common.Hash) (*types.BlobTxSidecar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return e.sidecar, nil
}

func (s *InMemoryStore) GetAll(hashes []common.Hash) map[common.Hash]*types.BlobTxSidecar {
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

func (s *InMemoryStore) GetExact(hashes []common.Hash) ([]*types.BlobTxSidecar, error) {
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

func (s *InMemoryStore) GetByVersionedHashesV1(vhashes []common.Hash) ([]*BlobAndProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*BlobAndProof, len(vhashes))
	for i, vh := range vhashes {
		out[i] = s.lookupVersioned(vh)
	}
	return out, nil
}

func (s *InMemoryStore) GetByVersionedHashesV2(vhashes []common.Hash) ([]BlobAndProof, error) {
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

func (s *InMemoryStore) lookupVersioned(vh common.Hash) *BlobAndProof {
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

func (s *InMemoryStore) Delete(hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil
	}
	delete(s.entries, hash)
	for _, vh := range e.vhashes {
		delete(s.byVHash, common.Hash(vh))
	}
	sidecarsGauge.Dec(1)
	deleteMeter.Mark(1)
	return nil
}

func (s *InMemoryStore) Cleanup() (uint64, error) { return 0, nil }
func (s *InMemoryStore) Close() error             { return nil }

var _ Store = (*InMemoryStore)(nil)
var _ Store = (*DiskStore)(nil)
