// Package memory keeps the chain in a slice with a hash index beside it.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// Memory implements database.Serializer over a slice.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
	byHash map[string]int
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	m := Memory{
		byHash: make(map[string]int),
	}

	return &m, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified block and appends it to the end of the slice.
// Blocks are stored in the order they are written.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep our own copy of the encoded contents.
	contents := make([]byte, len(blockData.Contents))
	copy(contents, blockData.Contents)
	blockData.Contents = contents

	m.blocks = append(m.blocks, blockData)
	if _, exists := m.byHash[blockData.Hash]; !exists {
		m.byHash[blockData.Hash] = len(m.blocks) - 1
	}

	return nil
}

// GetBlock returns the block stored at the specified position in the chain.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if num >= uint64(len(m.blocks)) {
		return database.BlockData{}, fmt.Errorf("block %d: %w", num, database.ErrNotFound)
	}

	return m.blocks[num], nil
}

// GetBlockByHash returns the first block stored with the specified hash.
func (m *Memory) GetBlockByHash(hash string) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, exists := m.byHash[hash]
	if !exists {
		return database.BlockData{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
	}

	return m.blocks[idx], nil
}

// ForEach returns an iterator over the blocks stored at the time of the
// call, starting with the genesis block. Later writes are not seen.
func (m *Memory) ForEach() database.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &memoryIterator{blocks: m.blocks[:len(m.blocks):len(m.blocks)]}
}

// Reset drops every block. Iterators already handed out keep their view.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = []database.BlockData{}
	m.byHash = make(map[string]int)
	return nil
}

// =============================================================================

// memoryIterator walks a fixed view of the slice. Written blocks are never
// modified in place, so the view needs no lock.
type memoryIterator struct {
	blocks []database.BlockData
	next   int
	eoc    bool
}

// Next returns the next block. Once the view is exhausted it reports the end
// of the chain and Done becomes true.
func (mi *memoryIterator) Next() (database.BlockData, error) {
	if mi.next >= len(mi.blocks) {
		mi.eoc = true
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData := mi.blocks[mi.next]
	mi.next++

	return blockData, nil
}

// Done reports whether the iterator has passed the last block.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}

// Release is a no-op; the view holds nothing but the slice.
func (mi *memoryIterator) Release() {}
