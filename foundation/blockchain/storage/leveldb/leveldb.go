// Package leveldb implements the ability to read and write blocks through
// a LevelDB key space. The database runs on LevelDB's memory storage so
// nothing outlives the process.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes. Block numbers are zero padded so the keys sort in chain
// order.
const (
	blockPrefix = "block:"
	hashPrefix  = "hash:"
)

// LevelDB represents the serialization implementation for reading and
// storing blocks in a LevelDB database. This implements the
// database.Serializer interface.
type LevelDB struct {
	mu     sync.Mutex
	db     *leveldb.DB
	length uint64
}

// New constructs a LevelDB value for use.
func New() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write appends the block after the last block written. The block number
// key and the hash index are written as one batch.
func (l *LevelDB) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := new(leveldb.Batch)
	batch.Put(blockKey(l.length), data)

	// The first block written with a hash owns the index entry.
	hashKey := []byte(hashPrefix + blockData.Hash)
	exists, err := l.db.Has(hashKey, nil)
	if err != nil {
		return err
	}
	if !exists {
		batch.Put(hashKey, []byte(strconv.FormatUint(l.length, 10)))
	}

	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write block %d: %w", l.length, err)
	}

	l.length++

	return nil
}

// GetBlock returns the block stored at the specified position in the chain.
func (l *LevelDB) GetBlock(num uint64) (database.BlockData, error) {
	data, err := l.db.Get(blockKey(num), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, fmt.Errorf("block %d: %w", num, database.ErrNotFound)
		}
		return database.BlockData{}, err
	}

	return decode(data)
}

// GetBlockByHash returns the first block stored with the specified hash.
func (l *LevelDB) GetBlockByHash(hash string) (database.BlockData, error) {
	data, err := l.db.Get([]byte(hashPrefix+hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
		}
		return database.BlockData{}, err
	}

	num, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return database.BlockData{}, fmt.Errorf("hash index %s: %w", hash, err)
	}

	return l.GetBlock(num)
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block. The iterator reads from a snapshot taken when it is
// created.
func (l *LevelDB) ForEach() database.Iterator {
	return &levelIterator{
		iter: l.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil),
	}
}

// Reset will clear out the blockchain.
func (l *LevelDB) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(iter.Key())
	}
	if err := iter.Error(); err != nil {
		return err
	}

	if err := l.db.Write(batch, nil); err != nil {
		return err
	}

	l.length = 0

	return nil
}

// =============================================================================

// levelIterator walks the block keys in order. This implements the database
// Iterator interface.
type levelIterator struct {
	iter     iterator.Iterator
	eoc      bool
	released bool
}

// Next retrieves the next block from the database.
func (li *levelIterator) Next() (database.BlockData, error) {
	if li.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	if !li.iter.Next() {
		li.eoc = true
		err := li.iter.Error()
		li.Release()

		if err != nil {
			return database.BlockData{}, err
		}
		return database.BlockData{}, errors.New("end of chain")
	}

	return decode(li.iter.Value())
}

// Done returns the end of chain value.
func (li *levelIterator) Done() bool {
	return li.eoc
}

// Release hands the iterator and its snapshot back to LevelDB. Once released
// the iterator reports the end of the chain.
func (li *levelIterator) Release() {
	if li.released {
		return
	}
	li.released = true
	li.eoc = true
	li.iter.Release()
}

// =============================================================================

func blockKey(num uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", blockPrefix, num))
}

func decode(data []byte) (database.BlockData, error) {
	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("decode block: %w", err)
	}

	return blockData, nil
}
