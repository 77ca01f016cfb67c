package state

import (
	"errors"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// QueryLatest stands in for the number of the latest block in range queries.
const QueryLatest = ^uint64(0) >> 1

// ErrAccountNotFound is returned when an account has never been referenced.
var ErrAccountNotFound = errors.New("account not found")

// =============================================================================

// QueryBalance returns the current balance for the account.
func (s *State) QueryBalance(accountID database.AccountID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sheet.Exists(accountID) {
		return 0, ErrAccountNotFound
	}

	return s.sheet.Balance(accountID), nil
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.db.LatestBlock().Number()

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: getblock: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}

// QueryBlockByNumber returns the block with the specified number.
func (s *State) QueryBlockByNumber(num uint64) (database.Block, error) {
	return s.db.GetBlock(num)
}

// QueryBlockByHash returns the block with the specified hash.
func (s *State) QueryBlockByHash(hash string) (database.Block, error) {
	return s.db.GetBlockByHash(hash)
}

// QueryBlocksByAccount returns the set of blocks that reference the account.
// If the account is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(accountID database.AccountID) ([]database.Block, error) {
	var out []database.Block

	iter := s.db.ForEach()
	defer iter.Release()

	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if accountID == "" {
			out = append(out, block)
			continue
		}

		if snapshot, ok := block.Snapshot(); ok {
			if _, exists := snapshot[accountID]; exists {
				out = append(out, block)
			}
			continue
		}

		for _, tx := range block.Transactions() {
			if _, exists := tx[accountID]; exists {
				out = append(out, block)
				break
			}
		}
	}

	return out, nil
}
