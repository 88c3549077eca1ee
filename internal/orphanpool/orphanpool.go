// Package orphanpool quarantines blocks that passed stateless
// validation but cannot yet be linked to a known parent.
package orphanpool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Cinder-Labs/cinder-chain/internal/log"
	"github.com/Cinder-Labs/cinder-chain/internal/storage"
	"github.com/Cinder-Labs/cinder-chain/pkg/block"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// Orphan pool errors.
var (
	ErrAlreadyExists = errors.New("block already in orphan pool")
	ErrNotFound      = errors.New("block not in orphan pool")
)

// record is the persisted form of a quarantined block.
type record struct {
	ReceivedAt int64        `json:"received_at"`
	Block      *block.Block `json:"block"`
}

// indexEntry carries the fields needed without hitting the database.
type indexEntry struct {
	receivedAt int64
	prevHash   types.Hash
}

// Pool holds orphan blocks keyed by block hash. Entries persist across
// restarts; the in-memory index is rebuilt from the database on open.
// When the pool is full the oldest entry is evicted.
type Pool struct {
	mu      sync.RWMutex
	db      storage.DB
	index   map[types.Hash]indexEntry
	maxSize int
	now     func() int64
}

// New opens an orphan pool over db, rebuilding the index from any
// persisted entries. The caller scopes db (e.g. with a PrefixDB) if it
// shares the database with other components.
func New(db storage.DB, maxSize int) (*Pool, error) {
	if maxSize <= 0 {
		maxSize = 500
	}
	p := &Pool{
		db:      db,
		index:   make(map[types.Hash]indexEntry),
		maxSize: maxSize,
		now:     func() int64 { return time.Now().Unix() },
	}

	err := db.ForEach(nil, func(key, value []byte) error {
		var hash types.Hash
		if len(key) != len(hash) {
			return fmt.Errorf("malformed orphan key of %d bytes", len(key))
		}
		copy(hash[:], key)

		var rec record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode orphan %s: %w", hash, err)
		}
		p.index[hash] = indexEntry{receivedAt: rec.ReceivedAt, prevHash: rec.Block.Header.PrevHash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(p.index) > 0 {
		log.Chain.Info().Int("count", len(p.index)).Msg("orphan pool restored")
	}
	return p, nil
}

// Add quarantines a block. If the pool is full, the oldest entry is
// evicted first.
func (p *Pool) Add(blk *block.Block) error {
	hash := blk.Hash()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[hash]; ok {
		return ErrAlreadyExists
	}
	if len(p.index) >= p.maxSize {
		if err := p.evictOldestLocked(); err != nil {
			return err
		}
	}

	rec := record{ReceivedAt: p.now(), Block: blk}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode orphan %s: %w", hash, err)
	}
	if err := p.db.Put(hash[:], data); err != nil {
		return fmt.Errorf("store orphan %s: %w", hash, err)
	}
	p.index[hash] = indexEntry{receivedAt: rec.ReceivedAt, prevHash: blk.Header.PrevHash}

	log.Chain.Debug().
		Str("hash", hash.String()).
		Uint64("height", blk.Header.Height).
		Int("pool_size", len(p.index)).
		Msg("block quarantined as orphan")
	return nil
}

// Get returns the quarantined block with the given hash.
func (p *Pool) Get(hash types.Hash) (*block.Block, error) {
	p.mu.RLock()
	_, ok := p.index[hash]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	data, err := p.db.Get(hash[:])
	if err != nil {
		return nil, fmt.Errorf("load orphan %s: %w", hash, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode orphan %s: %w", hash, err)
	}
	return rec.Block, nil
}

// Has reports whether the pool holds a block with the given hash.
func (p *Pool) Has(hash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.index[hash]
	return ok
}

// Remove drops a block from the pool, typically after it has been
// linked into the chain or rejected.
func (p *Pool) Remove(hash types.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[hash]; !ok {
		return ErrNotFound
	}
	if err := p.db.Delete(hash[:]); err != nil {
		return fmt.Errorf("delete orphan %s: %w", hash, err)
	}
	delete(p.index, hash)
	return nil
}

// ChildrenOf returns the quarantined blocks whose previous-hash field
// names the given parent. This is the lookup run when a new block
// arrives: any orphans waiting on it can now be re-examined.
func (p *Pool) ChildrenOf(parent types.Hash) ([]*block.Block, error) {
	p.mu.RLock()
	var hashes []types.Hash
	for hash, e := range p.index {
		if e.prevHash == parent {
			hashes = append(hashes, hash)
		}
	}
	p.mu.RUnlock()

	blocks := make([]*block.Block, 0, len(hashes))
	for _, hash := range hashes {
		blk, err := p.Get(hash)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

// Hashes returns the quarantined block hashes, oldest first. Ties on
// receipt time break by hash so the order is stable.
func (p *Pool) Hashes() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()

	hashes := make([]types.Hash, 0, len(p.index))
	for hash := range p.index {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool {
		a, b := p.index[hashes[i]], p.index[hashes[j]]
		if a.receivedAt != b.receivedAt {
			return a.receivedAt < b.receivedAt
		}
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}

// Len returns the number of quarantined blocks.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.index)
}

// evictOldestLocked removes the entry with the earliest receipt time.
// Caller holds p.mu.
func (p *Pool) evictOldestLocked() error {
	var (
		oldest   types.Hash
		oldestAt int64
		found    bool
	)
	for hash, e := range p.index {
		if !found || e.receivedAt < oldestAt {
			oldest, oldestAt, found = hash, e.receivedAt, true
		}
	}
	if !found {
		return nil
	}
	if err := p.db.Delete(oldest[:]); err != nil {
		return fmt.Errorf("evict orphan %s: %w", oldest, err)
	}
	delete(p.index, oldest)
	log.Chain.Debug().Str("hash", oldest.String()).Msg("oldest orphan evicted")
	return nil
}
