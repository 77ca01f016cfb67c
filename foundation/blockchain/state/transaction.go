package state

import (
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// SubmitTransaction accepts a transaction for inclusion in a future block and
// returns the number of transactions waiting. Balance rules are checked when
// the transaction is popped for a batch, not here.
func (s *State) SubmitTransaction(tx database.Tx) (int, error) {
	for accountID := range tx {
		if !accountID.IsAccountID() {
			return 0, fmt.Errorf("account %q: invalid account format", accountID)
		}
	}

	n := s.mempool.Push(tx)

	s.evHandler("state: SubmitTransaction: tx[%s]: pending[%d]", tx, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return n, nil
}
