package cmd

import (
	"os"

	"github.com/ardanlabs/minichain/app/tooling/admin/commands"
	"github.com/spf13/cobra"
)

var verifyFile string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay a chain file and report its balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(verifyFile)
		if err != nil {
			return err
		}
		defer f.Close()

		sheet, blocks, err := commands.Verify(f)
		if err != nil {
			return err
		}

		commands.PrintVerified(cmd.OutOrStdout(), sheet, blocks)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "Chain file written by simulate.")
	verifyCmd.MarkFlagRequired("file")
}
