package database

import (
	"fmt"
	"maps"
	"strings"
)

// Tx is a balance transfer between any number of accounts. Each entry is a
// signed delta: positive is a credit, negative is a debit. A valid transaction
// has deltas that sum to exactly zero.
type Tx map[AccountID]int64

// NewTx constructs a transaction from a set of account deltas.
func NewTx(deltas map[string]int64) (Tx, error) {
	tx := make(Tx, len(deltas))
	for account, delta := range deltas {
		accountID, err := ToAccountID(account)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", account, err)
		}
		tx[accountID] = delta
	}

	return tx, nil
}

// Clone returns a copy of the transaction that shares no memory with the
// original.
func (tx Tx) Clone() Tx {
	if tx == nil {
		return nil
	}

	cpy := make(Tx, len(tx))
	for accountID, delta := range tx {
		cpy[accountID] = delta
	}
	return cpy
}

// Accounts returns the accounts referenced by the transaction in sorted order.
func (tx Tx) Accounts() []AccountID {
	return sortedAccounts(tx)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	var sb strings.Builder
	for i, accountID := range tx.Accounts() {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%s:%d", accountID, tx[accountID])
	}

	return sb.String()
}

// =============================================================================

// Snapshot is a set of account balances. The genesis block carries the initial
// snapshot in place of a transaction batch.
type Snapshot map[AccountID]int64

// NewSnapshot constructs a snapshot from a set of named balances.
func NewSnapshot(balances map[string]int64) (Snapshot, error) {
	snap := make(Snapshot, len(balances))
	for account, balance := range balances {
		accountID, err := ToAccountID(account)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", account, err)
		}
		snap[accountID] = balance
	}

	return snap, nil
}

// Clone returns a copy of the snapshot that shares no memory with the original.
func (s Snapshot) Clone() Snapshot {
	cpy := make(Snapshot, len(s))
	for accountID, balance := range s {
		cpy[accountID] = balance
	}
	return cpy
}

// Equal reports whether both snapshots hold the same accounts and balances.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s, other)
}

// Accounts returns the accounts in the snapshot in sorted order.
func (s Snapshot) Accounts() []AccountID {
	return sortedAccounts(s)
}
