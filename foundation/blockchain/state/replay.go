package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// Set of errors for replaying a chain.
var (
	ErrInvalidBlockTx = errors.New("block holds an invalid transaction")
	ErrTxnCount       = errors.New("block transaction count does not match its transactions")
	ErrStateMismatch  = errors.New("replayed balances do not match the live balances")
)

// ReplayChain rebuilds the balances from a sequence of blocks that starts
// with a genesis block. Every block must match its hash and link to the
// block before it, and every transaction must be valid against the balances
// at the point it was sealed.
func ReplayChain(blocks []database.Block) (balance.Sheet, error) {
	if len(blocks) == 0 || !blocks[0].IsGenesis() {
		return balance.Sheet{}, database.ErrNotGenesis
	}

	genesis := blocks[0]
	if err := genesis.Verify(); err != nil {
		return balance.Sheet{}, err
	}

	snapshot, ok := genesis.Snapshot()
	if !ok || genesis.Number() != 0 || genesis.Contents.Count() != 1 {
		return balance.Sheet{}, fmt.Errorf("%w, malformed genesis payload", database.ErrNotGenesis)
	}

	sheet := balance.NewSheet(snapshot)
	noop := func(string, ...any) {}

	for i := 1; i < len(blocks); i++ {
		block := blocks[i]

		if err := block.ValidateBlock(blocks[i-1], noop); err != nil {
			return balance.Sheet{}, err
		}

		trans := block.Transactions()
		if block.Contents.Count() != len(trans) {
			return balance.Sheet{}, fmt.Errorf("%w, blk[%d]: got %d, exp %d", ErrTxnCount, block.Number(), block.Contents.Count(), len(trans))
		}

		for j, tx := range trans {
			if err := sheet.Validate(tx); err != nil {
				return balance.Sheet{}, fmt.Errorf("%w, blk[%d] tx[%d]: %w", ErrInvalidBlockTx, block.Number(), j, err)
			}
			sheet = sheet.Apply(tx)
		}
	}

	return sheet, nil
}

// VerifyChain checks the hash and linkage of every block on the chain, then
// replays the transactions and confirms the result matches the live
// balances.
func (s *State) VerifyChain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.VerifyChain(); err != nil {
		return err
	}

	blocks, err := s.db.Blocks()
	if err != nil {
		return err
	}

	sheet, err := ReplayChain(blocks)
	if err != nil {
		return err
	}

	live := s.sheet
	if sheet.Len() != live.Len() {
		return fmt.Errorf("%w, got %d accounts, exp %d", ErrStateMismatch, sheet.Len(), live.Len())
	}

	for _, accountID := range live.Accounts() {
		if sheet.Balance(accountID) != live.Balance(accountID) {
			return fmt.Errorf("%w, account %s: got %d, exp %d", ErrStateMismatch, accountID, sheet.Balance(accountID), live.Balance(accountID))
		}
	}

	s.evHandler("state: VerifyChain: blocks[%d] verified", len(blocks))

	return nil
}
