package balance_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestValidate(t *testing.T) {
	type table struct {
		name   string
		sheet  database.Snapshot
		tx     database.Tx
		reason error
	}

	tt := []table{
		{
			name:  "transfer",
			sheet: database.Snapshot{"Alice": 50, "Bob": 50},
			tx:    database.Tx{"Alice": -10, "Bob": 10},
		},
		{
			name:  "drain",
			sheet: database.Snapshot{"Alice": 50, "Bob": 50},
			tx:    database.Tx{"Alice": -50, "Bob": 50},
		},
		{
			name:  "three-way",
			sheet: database.Snapshot{"Alice": 50, "Bob": 50},
			tx:    database.Tx{"Alice": -4, "Bob": 2, "Carol": 2},
		},
		{
			name:  "empty",
			sheet: database.Snapshot{"Alice": 50},
			tx:    database.Tx{},
		},
		{
			name:   "unbalanced-credit",
			sheet:  database.Snapshot{"Alice": 50, "Bob": 50},
			tx:     database.Tx{"Alice": 1, "Bob": 1},
			reason: balance.ErrNotZeroSum,
		},
		{
			name:   "unbalanced-debit",
			sheet:  database.Snapshot{"Alice": 50, "Bob": 50},
			tx:     database.Tx{"Alice": -60},
			reason: balance.ErrNotZeroSum,
		},
		{
			name:   "overdraft",
			sheet:  database.Snapshot{"Alice": 50, "Bob": 50},
			tx:     database.Tx{"Alice": -60, "Bob": 60},
			reason: balance.ErrOverdraft,
		},
		{
			name:   "unknown-sender",
			sheet:  database.Snapshot{"Alice": 50},
			tx:     database.Tx{"Alice": 2, "Bob": -2},
			reason: balance.ErrOverdraft,
		},
		{
			name:   "empty-account",
			sheet:  database.Snapshot{"Alice": 50},
			tx:     database.Tx{"Alice": -1, "": 1},
			reason: balance.ErrEmptyAccount,
		},
		{
			name:   "sum-overflow",
			sheet:  database.Snapshot{"Alice": 50},
			tx:     database.Tx{"Alice": math.MaxInt64, "Bob": 1, "Carol": math.MinInt64},
			reason: balance.ErrOverflow,
		},
		{
			name:   "balance-overflow",
			sheet:  database.Snapshot{"Alice": math.MaxInt64, "Bob": 10},
			tx:     database.Tx{"Alice": 1, "Bob": -1},
			reason: balance.ErrOverflow,
		},
	}

	t.Log("Given the need to validate transactions against a balance sheet.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					sheet := balance.NewSheet(tst.sheet)

					err := sheet.Validate(tst.tx)
					switch tst.reason {
					case nil:
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be valid: %v", failed, testID, err)
						}
						if !balance.IsValid(tst.tx, sheet) {
							t.Fatalf("\t%s\tTest %d:\tShould report valid.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould be valid.", success, testID)

					default:
						if !errors.Is(err, tst.reason) || !errors.Is(err, balance.ErrValidation) {
							t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
							t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.reason)
							t.Fatalf("\t%s\tTest %d:\tShould be rejected for the right reason.", failed, testID)
						}
						if balance.IsValid(tst.tx, sheet) {
							t.Fatalf("\t%s\tTest %d:\tShould report invalid.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould be rejected: %v", success, testID, err)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestApply(t *testing.T) {
	t.Log("Given the need to fold transactions into a balance sheet.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen applying a transfer that adds a new account.", testID)
		{
			old := balance.NewSheet(database.Snapshot{"Alice": 50, "Bob": 50})
			tx := database.Tx{"Alice": -10, "Carol": 10}

			sheet := balance.Apply(tx, old)

			exp := map[database.AccountID]int64{"Alice": 40, "Bob": 50, "Carol": 10}
			for accountID, value := range exp {
				if sheet.Balance(accountID) != value {
					t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, sheet.Balance(accountID))
					t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, value)
					t.Fatalf("\t%s\tTest %d:\tShould have correct balance for %s.", failed, testID, accountID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould have correct balances.", success, testID)

			if old.Balance("Alice") != 50 || old.Balance("Carol") != 0 || old.Len() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the old sheet unchanged: %v", failed, testID, old.Copy())
			}
			t.Logf("\t%s\tTest %d:\tShould leave the old sheet unchanged.", success, testID)

			if sheet.Total() != old.Total() {
				t.Fatalf("\t%s\tTest %d:\tShould conserve the total, got %d exp %d.", failed, testID, sheet.Total(), old.Total())
			}
			t.Logf("\t%s\tTest %d:\tShould conserve the total.", success, testID)

			accounts := sheet.Accounts()
			if len(accounts) != 3 || accounts[0] != "Alice" || accounts[2] != "Carol" {
				t.Fatalf("\t%s\tTest %d:\tShould list the accounts in order: %v", failed, testID, accounts)
			}
			t.Logf("\t%s\tTest %d:\tShould list the accounts in order.", success, testID)
		}
	}
}

func TestConservation(t *testing.T) {
	t.Log("Given the need to conserve value and never go negative.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen folding a random stream of transactions.", testID)
		{
			accounts := []database.AccountID{"Alice", "Bob", "Carol", "Dave"}
			sheet := balance.NewSheet(database.Snapshot{"Alice": 50, "Bob": 50})
			total := sheet.Total()

			rnd := rand.New(rand.NewSource(0))

			var accepted, rejected int
			for i := 0; i < 2000; i++ {
				tx := make(database.Tx)
				from := accounts[rnd.Intn(len(accounts))]
				to := accounts[rnd.Intn(len(accounts))]
				amount := int64(rnd.Intn(20) + 1)
				tx[from] -= amount
				tx[to] += amount

				// Every so often create or destroy value.
				if rnd.Intn(10) == 0 {
					tx[to]++
				}

				if !sheet.IsValid(tx) {
					rejected++
					continue
				}

				before := sheet
				beforeTotal := before.Total()

				sheet = sheet.Apply(tx)
				accepted++

				if sheet.Total() != total || before.Total() != beforeTotal {
					t.Fatalf("\t%s\tTest %d:\tShould conserve the total after tx %s.", failed, testID, tx)
				}

				for _, accountID := range sheet.Accounts() {
					if sheet.Balance(accountID) < 0 {
						t.Fatalf("\t%s\tTest %d:\tShould never have a negative balance: %s %d.", failed, testID, accountID, sheet.Balance(accountID))
					}
				}
			}

			if accepted == 0 || rejected == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould exercise both paths, accepted %d rejected %d.", failed, testID, accepted, rejected)
			}
			t.Logf("\t%s\tTest %d:\tShould conserve value across %d accepted and %d rejected transactions.", success, testID, accepted, rejected)
		}
	}
}
