// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/minichain/business/web/errs"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/ardanlabs/minichain/foundation/events"
	"github.com/ardanlabs/minichain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// nodeStatus describes the tail of the chain and the mempool.
type nodeStatus struct {
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockNumber uint64 `json:"latest_block_number"`
	Length            uint64 `json:"length"`
	Uncommitted       int    `json:"uncommitted"`
	Subscribers       int    `json:"subscribers"`
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.RetrieveLatestBlock()

	status := nodeStatus{
		LatestBlockHash:   latestBlock.Hash,
		LatestBlockNumber: latestBlock.Number(),
		Length:            h.State.RetrieveChainLength(),
		Uncommitted:       h.State.QueryMempoolLength(),
	}
	if h.Evts != nil {
		status.Subscribers = h.Evts.Count()
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByNumber returns the blocks in the inclusive range from/to. Either
// bound may be "latest".
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := blockBound(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("from: %w", err), http.StatusBadRequest)
	}

	to, err := blockBound(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("to: %w", err), http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	return respondBlocks(ctx, w, h.State.QueryBlocksByNumber(from, to))
}

// BlocksByAccount returns the blocks that reference the account.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByAccount(accountID)
	if err != nil {
		return err
	}

	return respondBlocks(ctx, w, blocks)
}

// Reset drops every block after genesis and every pending transaction.
func (h Handlers) Reset(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Log.Infow("reset chain", "traceid", web.GetTraceID(ctx))

	if err := h.State.Truncate(); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "chain reset to genesis",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func blockBound(s string) (uint64, error) {
	if s == "" || s == "latest" {
		return state.QueryLatest, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// respondBlocks writes the blocks in their stored form, or 204 when there
// are none.
func respondBlocks(ctx context.Context, w http.ResponseWriter, blocks []database.Block) error {
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blockData := make([]database.BlockData, 0, len(blocks))
	for _, block := range blocks {
		bd, err := database.NewBlockData(block)
		if err != nil {
			return err
		}
		blockData = append(blockData, bd)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}
