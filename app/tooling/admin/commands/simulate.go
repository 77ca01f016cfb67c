// Package commands implements the work behind the admin tooling commands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/genesis"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
)

// DefaultMaxValue is the largest amount a simulated transfer moves unless
// the config says otherwise.
const DefaultMaxValue = 3

// SimulateConfig drives a simulated run of the ledger. Transfers move value
// between the genesis accounts only; Extra names accounts that join the run
// and exist once they are first paid.
type SimulateConfig struct {
	Genesis  genesis.Genesis
	Txns     int
	Seed     int64
	Strategy string
	MaxValue int64
	Extra    []string
}

// Summary describes the outcome of a simulated run.
type Summary struct {
	Blocks   int
	Accepted int
	Rejected int
	Total    int64
	Sheet    balance.Sheet
}

// Simulate builds a chain from the genesis in the config by submitting
// random transfers and mining until the mempool is empty. The chain is
// audited before it is returned in its stored form.
func Simulate(ctx context.Context, cfg SimulateConfig, evHandler state.EventHandler) ([]database.BlockData, Summary, error) {
	if cfg.MaxValue <= 0 {
		return nil, Summary{}, fmt.Errorf("max value must be positive: %d", cfg.MaxValue)
	}

	st, err := state.New(state.Config{
		Genesis:        cfg.Genesis,
		SelectStrategy: cfg.Strategy,
		EvHandler:      evHandler,
	})
	if err != nil {
		return nil, Summary{}, err
	}
	defer st.Shutdown()

	accounts := simulationAccounts(cfg.Genesis, cfg.Extra)
	if len(accounts) < 2 {
		return nil, Summary{}, fmt.Errorf("need at least 2 accounts to simulate, got %d", len(accounts))
	}
	rnd := rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < cfg.Txns; i++ {
		if _, err := st.SubmitTransaction(randomTransfer(rnd, accounts, cfg.MaxValue)); err != nil {
			return nil, Summary{}, fmt.Errorf("submitting tx[%d]: %w", i, err)
		}
	}

	results, err := st.MineAll(ctx)
	if err != nil {
		return nil, Summary{}, err
	}

	if err := st.VerifyChain(); err != nil {
		return nil, Summary{}, fmt.Errorf("auditing simulated chain: %w", err)
	}

	blocks, err := st.RetrieveBlocks()
	if err != nil {
		return nil, Summary{}, err
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		if blockData[i], err = database.NewBlockData(block); err != nil {
			return nil, Summary{}, err
		}
	}

	sum := Summary{
		Blocks: len(results),
		Sheet:  st.RetrieveBalances(),
	}
	for _, result := range results {
		sum.Accepted += len(result.Block.Transactions())
		sum.Rejected += len(result.Rejected)
	}
	sum.Total = sum.Sheet.Total()

	return blockData, sum, nil
}

// WriteChain writes the chain as an indented JSON array.
func WriteChain(w io.Writer, blockData []database.BlockData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(blockData)
}

// PrintSummary writes a human readable summary of a run.
func PrintSummary(w io.Writer, sum Summary) {
	fmt.Fprintf(w, "Blocks: %d  Accepted: %d  Rejected: %d\n", sum.Blocks, sum.Accepted, sum.Rejected)
	printSheet(w, sum.Sheet)
}

// =============================================================================

// simulationAccounts returns the genesis accounts plus any extra accounts,
// without duplicates.
func simulationAccounts(gen genesis.Genesis, extra []string) []string {
	seen := make(map[string]bool)
	var accounts []string

	for account := range gen.Balances {
		seen[account] = true
		accounts = append(accounts, account)
	}
	for _, account := range extra {
		if account != "" && !seen[account] {
			seen[account] = true
			accounts = append(accounts, account)
		}
	}

	// Map order is random, the seed alone has to decide the run.
	sort.Strings(accounts)

	return accounts
}

// randomTransfer moves a random value between two different accounts. The
// sender may not be able to cover it, which is left for the miner to catch.
func randomTransfer(rnd *rand.Rand, accounts []string, maxValue int64) database.Tx {
	from := rnd.Intn(len(accounts))
	to := rnd.Intn(len(accounts) - 1)
	if to >= from {
		to++
	}

	value := rnd.Int63n(maxValue) + 1

	return database.Tx{
		database.AccountID(accounts[from]): -value,
		database.AccountID(accounts[to]):   value,
	}
}

func printSheet(w io.Writer, sheet balance.Sheet) {
	for _, accountID := range sheet.Accounts() {
		fmt.Fprintf(w, "Account: %-10s Balance: %d\n", accountID, sheet.Balance(accountID))
	}

	fmt.Fprintf(w, "Total: %d\n", sheet.Total())
}
