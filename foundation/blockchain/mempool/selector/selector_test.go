package selector_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/minichain/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestRetrieve(t *testing.T) {
	type table struct {
		strategy string
		pending  int
		exp      int
	}

	tt := []table{
		{strategy: selector.StrategyLIFO, pending: 4, exp: 3},
		{strategy: selector.StrategyFIFO, pending: 4, exp: 0},
	}

	t.Log("Given the need to choose the next pending transaction.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using the %s strategy.", testID, tst.strategy)
			{
				fn, err := selector.Retrieve(tst.strategy)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould retrieve the strategy: %v", failed, testID, err)
				}
				if got := fn(tst.pending); got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould pick index %d, got %d.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould pick index %d.", success, testID, tst.exp)
			}
		}

		testID := len(tt)
		t.Logf("\tTest %d:\tWhen asking for an unknown strategy.", testID)
		{
			names := selector.Strategies()
			if strings.Join(names, ",") != "fifo,lifo" {
				t.Fatalf("\t%s\tTest %d:\tShould list fifo and lifo, got %v.", failed, testID, names)
			}

			_, err := selector.Retrieve("tip")
			if err == nil || !strings.Contains(err.Error(), "fifo, lifo") {
				t.Fatalf("\t%s\tTest %d:\tShould name the known strategies: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould name the known strategies: %s", success, testID, err)
		}
	}
}
