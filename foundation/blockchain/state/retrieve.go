package state

import (
	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/genesis"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	gen := s.genesis
	gen.Balances = make(map[string]int64, len(s.genesis.Balances))
	for account, value := range s.genesis.Balances {
		gen.Balances[account] = value
	}
	return gen
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveBalances returns the current balance sheet. The sheet is a value
// and can't be changed by the caller.
func (s *State) RetrieveBalances() balance.Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sheet
}

// RetrieveBlocks returns every block on the chain starting with genesis.
func (s *State) RetrieveBlocks() ([]database.Block, error) {
	return s.db.Blocks()
}

// RetrieveChainLength returns the number of blocks including genesis.
func (s *State) RetrieveChainLength() uint64 {
	return s.db.Length()
}
