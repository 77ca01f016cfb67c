// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/mempool/selector"
)

// Mempool represents the queue of transactions waiting to be batched into
// a block. Transactions are held in arrival order and removed in the order
// chosen by the select strategy.
type Mempool struct {
	pool     []database.Tx
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyLIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// IsEmpty reports whether there are no transactions waiting.
func (mp *Mempool) IsEmpty() bool {
	return mp.Count() == 0
}

// Push adds a copy of the transaction to the pool and returns the number of
// transactions now waiting.
func (mp *Mempool) Push(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx.Clone())

	return len(mp.pool)
}

// Pop removes the next transaction chosen by the select strategy. The bool
// is false when the pool is empty.
func (mp *Mempool) Pop() (database.Tx, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.pool) == 0 {
		return nil, false
	}

	idx := mp.selectFn(len(mp.pool))
	tx := mp.pool[idx]

	copy(mp.pool[idx:], mp.pool[idx+1:])
	mp.pool[len(mp.pool)-1] = nil
	mp.pool = mp.pool[:len(mp.pool)-1]

	return tx, true
}

// Copy returns a copy of the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.pool))
	for i, tx := range mp.pool {
		cpy[i] = tx.Clone()
	}

	return cpy
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
