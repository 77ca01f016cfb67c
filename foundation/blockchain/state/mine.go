package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/mempool/selector"
)

// DefaultStrategy pops the most recently submitted transaction first.
const DefaultStrategy = selector.StrategyLIFO

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// MineResult describes the block that was sealed and the transactions that
// were dropped while filling it.
type MineResult struct {
	Block    database.Block
	Rejected []*balance.ValidationError
}

// =============================================================================

// MineNewBlock fills one batch from the mempool and seals it into the next
// block. Transactions are popped until the mempool is empty or the batch
// holds TransPerBlock transactions. Each one is validated and applied to the
// balances as a single step; invalid ones are dropped and reported. The
// batch may end up empty, in which case an empty block is still sealed.
func (s *State) MineNewBlock(ctx context.Context) (MineResult, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return MineResult{}, ErrNoTransactions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: fill batch")

	limit := int(s.genesis.TransPerBlock)
	sheet := s.sheet

	var result MineResult
	batch := make([]database.Tx, 0, limit)

	for len(batch) < limit {
		tx, ok := s.mempool.Pop()
		if !ok {
			break
		}

		if err := sheet.Validate(tx); err != nil {
			var ve *balance.ValidationError
			if !errors.As(err, &ve) {
				ve = &balance.ValidationError{Tx: tx, Reason: err}
			}
			result.Rejected = append(result.Rejected, ve)

			s.evHandler("state: MineNewBlock: MINING: ignored tx[%s]: %s", tx, err)
			continue
		}

		sheet = sheet.Apply(tx)
		batch = append(batch, tx)
	}

	s.evHandler("state: MineNewBlock: MINING: seal block: txns[%d] rejected[%d]", len(batch), len(result.Rejected))

	block, err := database.NewBlock(batch, s.db.LatestBlock())
	if err != nil {
		return result, fmt.Errorf("sealing block: %w", err)
	}

	if err := s.db.Append(block); err != nil {
		return result, err
	}

	// The balances only move forward once the block is on the chain.
	s.sheet = sheet
	result.Block = block

	s.evHandler("viewer: block[%d]: hash[%s]: txns[%d]", block.Number(), block.Hash, len(batch))

	return result, nil
}

// MineAll keeps filling and sealing blocks until the mempool is empty. The
// context is only checked between blocks so a batch that has been started is
// always sealed.
func (s *State) MineAll(ctx context.Context) ([]MineResult, error) {
	s.evHandler("state: MineAll: started")
	defer s.evHandler("state: MineAll: completed")

	var results []MineResult
	for s.mempool.Count() > 0 {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := s.MineNewBlock(ctx)
		if err != nil {
			if errors.Is(err, ErrNoTransactions) {
				break
			}
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}
