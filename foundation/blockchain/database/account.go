package database

import (
	"errors"
	"sort"
	"strings"
)

// AccountID represents an opaque account identifier such as "Alice". Accounts
// are created implicitly the first time a transaction references them.
type AccountID string

// ToAccountID converts a string to an account id and validates the string
// is usable as an account id.
func ToAccountID(s string) (AccountID, error) {
	a := AccountID(s)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// IsAccountID verifies the account id is not empty and has no surrounding
// whitespace.
func (a AccountID) IsAccountID() bool {
	return a != "" && strings.TrimSpace(string(a)) == string(a)
}

// =============================================================================

// sortedAccounts returns the keys of the map in ascending order.
func sortedAccounts(m map[AccountID]int64) []AccountID {
	accounts := make([]AccountID, 0, len(m))
	for accountID := range m {
		accounts = append(accounts, accountID)
	}

	sort.Sort(byAccount(accounts))
	return accounts
}

// byAccount provides sorting support by the account id value.
type byAccount []AccountID

// Len returns the number of accounts in the list.
func (ba byAccount) Len() int {
	return len(ba)
}

// Less helps to sort the list by account id in ascending order.
func (ba byAccount) Less(i, j int) bool {
	return ba[i] < ba[j]
}

// Swap moves accounts in the order of the account id value.
func (ba byAccount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
