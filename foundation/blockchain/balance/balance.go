// Package balance maintains account balances and the rules for folding
// transactions into them.
package balance

import (
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// Set of reasons a transaction can fail validation.
var (
	ErrValidation   = errors.New("transaction invalid")
	ErrNotZeroSum   = errors.New("deltas do not sum to zero")
	ErrOverdraft    = errors.New("insufficient balance")
	ErrOverflow     = errors.New("value overflows balance")
	ErrEmptyAccount = errors.New("empty account id")
)

// ValidationError is returned when a transaction can't be applied to a sheet.
type ValidationError struct {
	Tx      database.Tx
	Reason  error
	Account database.AccountID
	Balance int64
	Delta   int64
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	switch {
	case errors.Is(ve.Reason, ErrOverdraft):
		return fmt.Sprintf("transaction invalid, %s has an insufficient balance, bal %d, delta %d", ve.Account, ve.Balance, ve.Delta)
	case ve.Account != "":
		return fmt.Sprintf("transaction invalid, account %s: %s", ve.Account, ve.Reason)
	}
	return fmt.Sprintf("transaction invalid, %s", ve.Reason)
}

// Unwrap provides access to the reason the transaction failed.
func (ve *ValidationError) Unwrap() error {
	return ve.Reason
}

// Is allows errors.Is to match against ErrValidation.
func (ve *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// =============================================================================

// Sheet represents the balances of every known account. A Sheet is a value:
// Apply returns a new Sheet and never changes the one it was called on.
// Accounts that are not on the sheet have a balance of zero.
type Sheet struct {
	sheet map[database.AccountID]int64
}

// NewSheet constructs a new balance sheet from a starting snapshot, usually
// taken from the genesis block.
func NewSheet(snapshot database.Snapshot) Sheet {
	sheet := make(map[database.AccountID]int64, len(snapshot))
	for accountID, value := range snapshot {
		sheet[accountID] = value
	}

	return Sheet{sheet: sheet}
}

// Balance returns the balance for the account.
func (bs Sheet) Balance(accountID database.AccountID) int64 {
	return bs.sheet[accountID]
}

// Exists reports whether the account is on the sheet.
func (bs Sheet) Exists(accountID database.AccountID) bool {
	_, exists := bs.sheet[accountID]
	return exists
}

// Len returns the number of accounts on the sheet.
func (bs Sheet) Len() int {
	return len(bs.sheet)
}

// Accounts returns the accounts on the sheet in sorted order.
func (bs Sheet) Accounts() []database.AccountID {
	return bs.Snapshot().Accounts()
}

// Total returns the sum of every balance on the sheet.
func (bs Sheet) Total() int64 {
	var total int64
	for _, value := range bs.sheet {
		total += value
	}
	return total
}

// Copy makes a copy of the current balance sheet but returns the raw data.
func (bs Sheet) Copy() map[database.AccountID]int64 {
	sheet := make(map[database.AccountID]int64, len(bs.sheet))
	for accountID, value := range bs.sheet {
		sheet[accountID] = value
	}
	return sheet
}

// Snapshot returns the balances as a database snapshot.
func (bs Sheet) Snapshot() database.Snapshot {
	return database.Snapshot(bs.Copy())
}

// IsValid reports whether the transaction can be applied to the sheet.
func (bs Sheet) IsValid(tx database.Tx) bool {
	return bs.Validate(tx) == nil
}

// Validate checks that the transaction's deltas sum to zero and that no
// account would be left with a negative balance. Origin and replay are not
// checked.
func (bs Sheet) Validate(tx database.Tx) error {
	var sum int64
	for _, accountID := range tx.Accounts() {
		if accountID == "" {
			return &ValidationError{Tx: tx, Reason: ErrEmptyAccount}
		}

		var ok bool
		if sum, ok = add(sum, tx[accountID]); !ok {
			return &ValidationError{Tx: tx, Reason: ErrOverflow, Account: accountID, Delta: tx[accountID]}
		}
	}

	if sum != 0 {
		return &ValidationError{Tx: tx, Reason: fmt.Errorf("%w, sum %d", ErrNotZeroSum, sum)}
	}

	for _, accountID := range tx.Accounts() {
		balance := bs.sheet[accountID]
		delta := tx[accountID]

		result, ok := add(balance, delta)
		if !ok {
			return &ValidationError{Tx: tx, Reason: ErrOverflow, Account: accountID, Balance: balance, Delta: delta}
		}

		if result < 0 {
			return &ValidationError{Tx: tx, Reason: ErrOverdraft, Account: accountID, Balance: balance, Delta: delta}
		}
	}

	return nil
}

// Apply returns a new sheet with every delta in the transaction added to the
// account's balance. Accounts not on the sheet start from zero. Apply does no
// validation: call Validate or IsValid first.
func (bs Sheet) Apply(tx database.Tx) Sheet {
	sheet := bs.Copy()
	for accountID, delta := range tx {
		sheet[accountID] += delta
	}

	return Sheet{sheet: sheet}
}

// =============================================================================

// IsValid reports whether the transaction can be applied to the sheet.
func IsValid(tx database.Tx, sheet Sheet) bool {
	return sheet.IsValid(tx)
}

// Apply returns a new sheet with the transaction applied.
func Apply(tx database.Tx, sheet Sheet) Sheet {
	return sheet.Apply(tx)
}

// add returns a+b and false if the addition overflows.
func add(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
