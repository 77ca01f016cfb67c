package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
)

// Verify reads a chain in its stored form and replays it from genesis. The
// balances the chain produces are returned when every block checks out.
func Verify(r io.Reader) (balance.Sheet, int, error) {
	var blockData []database.BlockData
	if err := json.NewDecoder(r).Decode(&blockData); err != nil {
		return balance.Sheet{}, 0, fmt.Errorf("decoding chain: %w", err)
	}

	blocks := make([]database.Block, len(blockData))
	for i, bd := range blockData {
		block, err := database.ToBlock(bd)
		if err != nil {
			return balance.Sheet{}, 0, fmt.Errorf("block[%d]: %w", i, err)
		}
		blocks[i] = block
	}

	sheet, err := state.ReplayChain(blocks)
	if err != nil {
		return balance.Sheet{}, 0, err
	}

	return sheet, len(blocks), nil
}

// PrintVerified writes the result of a successful verification.
func PrintVerified(w io.Writer, sheet balance.Sheet, blocks int) {
	fmt.Fprintf(w, "Chain verified: %d blocks\n", blocks)
	printSheet(w, sheet)
}
