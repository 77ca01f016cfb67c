// Package database handles the lower level support for maintaining the
// blockchain: building and hashing blocks, appending them to storage and
// verifying the integrity of the chain.
package database

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a requested block does not exist.
var ErrNotFound = errors.New("block not found")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	GetBlockByHash(hash string) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks. Release must be
// called once the caller is finished, including when it stops early.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
	Release()
}

// =============================================================================

// DatabaseIterator walks the chain returning blocks instead of block data.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// Release frees whatever the storage holds for the walk.
func (di *DatabaseIterator) Release() {
	di.iterator.Release()
}

// =============================================================================

// Database manages the ordered sequence of blocks that make up the chain. It
// is an append only store; integrity checking is a separate operation.
type Database struct {
	mu sync.RWMutex

	genesis     Snapshot
	genesisBlk  Block
	latestBlock Block
	length      uint64

	serializer Serializer
	evHandler  func(v string, args ...any)
}

// New constructs a new database. When the serializer is empty a genesis block
// is built from the snapshot and written. Otherwise the existing blocks are
// read and validated in order, and the stored genesis must carry exactly the
// snapshot's balances.
func New(genesis Snapshot, serializer Serializer, evHandler func(v string, args ...any)) (*Database, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	db := Database{
		genesis:    genesis.Clone(),
		serializer: serializer,
		evHandler:  ev,
	}

	// Read all the blocks from storage, validating as we go.
	var latestBlock Block
	var length uint64

	iter := db.serializer.ForEach()
	defer iter.Release()

	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		switch length {
		case 0:
			if !block.IsGenesis() {
				return nil, ErrNotGenesis
			}
			if err := block.Verify(); err != nil {
				return nil, err
			}
			if stored, _ := block.Snapshot(); !stored.Equal(genesis) {
				return nil, ErrGenesisMismatch
			}
			db.genesisBlk = block

		default:
			if err := block.ValidateBlock(latestBlock, ev); err != nil {
				return nil, err
			}
		}

		latestBlock = block
		length++
	}

	db.latestBlock = latestBlock
	db.length = length

	// A fresh store starts with the genesis block.
	if length == 0 {
		if err := db.writeGenesis(); err != nil {
			return nil, err
		}
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() {
	db.serializer.Close()
}

// Reset re-initializes the database back to only the genesis block.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.serializer.Reset(); err != nil {
		return err
	}

	db.latestBlock = Block{}
	db.length = 0

	return db.writeGenesisLocked()
}

// Genesis returns the genesis block.
func (db *Database) Genesis() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.genesisBlk
}

// LatestBlock returns the block at the tail of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.length
}

// Append adds a block to the tail of the chain. No linkage checks are
// performed; the caller is responsible for building the block on top of
// the current latest block.
func (db *Database) Append(block Block) error {
	blockData, err := NewBlockData(block)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.serializer.Write(blockData); err != nil {
		return fmt.Errorf("writing block %d: %w", block.Number(), err)
	}

	db.latestBlock = block
	db.length++

	db.evHandler("database: Append: blk[%d]: hash[%s]", block.Number(), block.Hash)

	return nil
}

// Verify recomputes the hash for the specified block and compares it to the
// stored hash. An IntegrityError is returned on a mismatch.
func (db *Database) Verify(block Block) error {
	return block.Verify()
}

// VerifyChain walks the chain from genesis checking every block's hash and
// that each block is linked to the block before it.
func (db *Database) VerifyChain() error {
	db.evHandler("database: VerifyChain: started")
	defer db.evHandler("database: VerifyChain: completed")

	var previous Block
	var count uint64

	iter := db.ForEach()
	defer iter.Release()

	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}

		switch count {
		case 0:
			if !block.IsGenesis() || block.Number() != 0 {
				return ErrNotGenesis
			}
			if err := block.Verify(); err != nil {
				return err
			}

		default:
			if err := block.ValidateBlock(previous, db.evHandler); err != nil {
				return err
			}
		}

		previous = block
		count++
	}

	if count == 0 {
		return ErrNotGenesis
	}

	return nil
}

// ForEach returns an iterator to walk through all the blocks starting
// with the genesis block.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.serializer.ForEach()}
}

// Blocks returns every block in the chain in order.
func (db *Database) Blocks() ([]Block, error) {
	var blocks []Block

	iter := db.ForEach()
	defer iter.Release()

	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// GetBlock returns the block for the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.serializer.GetBlock(num)
	if err != nil {
		return Block{}, err
	}
	return ToBlock(blockData)
}

// GetBlockByHash returns the block with the specified hash.
func (db *Database) GetBlockByHash(hash string) (Block, error) {
	blockData, err := db.serializer.GetBlockByHash(hash)
	if err != nil {
		return Block{}, err
	}
	return ToBlock(blockData)
}

// =============================================================================

// writeGenesis builds and writes the genesis block.
func (db *Database) writeGenesis() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.writeGenesisLocked()
}

// writeGenesisLocked expects the caller to hold the write lock.
func (db *Database) writeGenesisLocked() error {
	block, err := NewGenesisBlock(db.genesis)
	if err != nil {
		return err
	}

	blockData, err := NewBlockData(block)
	if err != nil {
		return err
	}

	if err := db.serializer.Write(blockData); err != nil {
		return fmt.Errorf("writing genesis block: %w", err)
	}

	db.genesisBlk = block
	db.latestBlock = block
	db.length = 1

	db.evHandler("database: genesis: blk[0]: hash[%s]", block.Hash)

	return nil
}
