package public

import (
	"github.com/ardanlabs/minichain/business/sys/validate"
)

type balance struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

type chainStatus struct {
	Status      string `json:"status"`
	Blocks      int    `json:"blocks"`
	LatestBlock string `json:"latest_block"`
}

type submitted struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

// submitRequest is the payload for adding transactions to the mempool. Each
// transaction is a set of account deltas.
type submitRequest struct {
	Txns []map[string]int64 `json:"txns" validate:"required,min=1,dive,required"`
}

// Validate checks the data in the model is considered clean.
func (sr submitRequest) Validate() error {
	return validate.Check(sr)
}
