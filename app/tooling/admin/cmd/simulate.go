package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ardanlabs/minichain/app/tooling/admin/commands"
	"github.com/ardanlabs/minichain/foundation/blockchain/genesis"
	"github.com/ardanlabs/minichain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var (
	simTxns     int
	simBatch    uint16
	simSeed     int64
	simStrategy string
	simMaxValue int64
	simOut      string
	simGenesis  string
	simExtra    []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Mine random transfers and write the resulting chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := genesis.Default()
		if simGenesis != "" {
			var err error
			if gen, err = genesis.Load(simGenesis); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("batch") {
			gen.TransPerBlock = simBatch
		}

		cfg := commands.SimulateConfig{
			Genesis:  gen,
			Txns:     simTxns,
			Seed:     simSeed,
			Strategy: simStrategy,
			MaxValue: simMaxValue,
			Extra:    simExtra,
		}

		blockData, sum, err := commands.Simulate(cmd.Context(), cfg, evHandler)
		if err != nil {
			return err
		}

		if simOut != "" {
			f, err := os.Create(simOut)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := commands.WriteChain(f, blockData); err != nil {
				return fmt.Errorf("writing chain: %w", err)
			}
		}

		commands.PrintSummary(cmd.OutOrStdout(), sum)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVarP(&simTxns, "txns", "n", 30, "Number of random transfers to submit.")
	simulateCmd.Flags().Uint16VarP(&simBatch, "batch", "b", 5, "Maximum transactions per block.")
	simulateCmd.Flags().Int64VarP(&simSeed, "seed", "s", time.Now().UnixNano(), "Seed for the random transfers.")
	simulateCmd.Flags().StringVar(&simStrategy, "strategy", state.DefaultStrategy, "Order the mempool is drained in ("+strings.Join(selector.Strategies(), ", ")+").")
	simulateCmd.Flags().Int64Var(&simMaxValue, "max-value", commands.DefaultMaxValue, "Largest value a single transfer moves.")
	simulateCmd.Flags().StringSliceVar(&simExtra, "extra-accounts", nil, "Accounts outside genesis that join the transfers, e.g. Carol,Dave.")
	simulateCmd.Flags().StringVarP(&simOut, "out", "o", "", "File to write the chain to.")
	simulateCmd.Flags().StringVarP(&simGenesis, "genesis", "g", "", "Genesis file to start from.")
}
