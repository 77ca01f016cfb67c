// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/go-playground/validator/v10"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date    time.Time `json:"date"`
	ChainID uint16    `json:"chain_id"` // The chain id represents an unique id for this running instance.

	// The maximum number of transactions that can be in a block.
	TransPerBlock uint16 `json:"trans_per_block" validate:"gt=0"`

	// Initial balance for each account.
	Balances map[string]int64 `json:"balances" validate:"required,dive,keys,required,endkeys,gte=0"`
}

// Default returns the genesis used when no file is provided: Alice and Bob
// start with 50 each and blocks hold up to 5 transactions.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 5,
		Balances: map[string]int64{
			"Alice": 50,
			"Bob":   50,
		},
	}
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("genesis file %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the block size is positive and that every starting balance
// belongs to a named account and is not negative.
func (g Genesis) Validate() error {
	if err := validator.New().Struct(g); err != nil {
		return err
	}

	if _, err := g.Snapshot(); err != nil {
		return err
	}

	return nil
}

// Snapshot converts the starting balances into the payload of the genesis
// block.
func (g Genesis) Snapshot() (database.Snapshot, error) {
	return database.NewSnapshot(g.Balances)
}
