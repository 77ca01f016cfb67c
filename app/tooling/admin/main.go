// This program performs administrative tasks for a minichain ledger.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/minichain/app/tooling/admin/cmd"
	"github.com/ardanlabs/minichain/foundation/logger"
)

func main() {

	// The logs go to stderr so command output on stdout stays clean.
	log, err := logger.New("ADMIN", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	cmd.Execute(log)
}
