package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/minichain/app/tooling/admin/commands"
	"github.com/spf13/cobra"
)

var (
	submitURL string
	submitTxs []string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send transactions to a running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		trans, err := commands.ParseTxns(submitTxs)
		if err != nil {
			return err
		}

		client := http.Client{Timeout: 10 * time.Second}

		sub, err := commands.Submit(cmd.Context(), &client, submitURL, trans)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: pending %d\n", sub.Status, sub.Pending)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVarP(&submitURL, "url", "u", "http://localhost:8080", "Url of the node.")
	submitCmd.Flags().StringArrayVarP(&submitTxs, "tx", "t", nil, `Transaction as account deltas, e.g. {"Alice":-3,"Bob":3}. Repeatable.`)
}
