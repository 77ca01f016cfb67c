// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/minichain/business/sys/validate"
	"github.com/ardanlabs/minichain/business/web/errs"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/ardanlabs/minichain/foundation/events"
	"github.com/ardanlabs/minichain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransactions adds new transactions to the mempool.
func (h Handlers) SubmitTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitRequest
	if err := web.Decode(r, &req); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// Convert everything first so a bad account doesn't leave half the
	// request in the mempool.
	trans := make([]database.Tx, len(req.Txns))
	for i, deltas := range req.Txns {
		tx, err := database.NewTx(deltas)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("tx[%d]: %w", i, err), http.StatusBadRequest)
		}
		trans[i] = tx
	}

	var pending int
	for _, tx := range trans {
		h.Log.Infow("add tran", "traceid", v.TraceID, "tx", tx.String())

		pending, err = h.State.SubmitTransaction(tx)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	resp := submitted{
		Status:  "transactions added to mempool",
		Pending: pending,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining asks the worker to mine whatever is in the mempool.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker != nil {
		h.State.Worker.SignalStartMining()
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()
	return web.Respond(ctx, w, mempool, http.StatusOK)
}

// Balances returns the current balances for all accounts or the account
// named in the path.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bals := balances{
		LatestBlock: h.State.RetrieveLatestBlock().Hash,
		Uncommitted: h.State.QueryMempoolLength(),
	}

	switch account := web.Param(r, "account"); account {
	case "":
		sheet := h.State.RetrieveBalances()
		for _, accountID := range sheet.Accounts() {
			bals.Balances = append(bals.Balances, balance{Account: string(accountID), Balance: sheet.Balance(accountID)})
		}

	default:
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		value, err := h.State.QueryBalance(accountID)
		if err != nil {
			if errors.Is(err, state.ErrAccountNotFound) {
				return errs.NewTrusted(err, http.StatusNotFound)
			}
			return err
		}
		bals.Balances = []balance{{Account: account, Balance: value}}
	}

	return web.Respond(ctx, w, bals, http.StatusOK)
}

// Blocks returns every block on the chain in its stored form.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks, err := h.State.RetrieveBlocks()
	if err != nil {
		return err
	}

	return respondBlocks(ctx, w, blocks)
}

// BlockByNumber returns the block with the number in the path.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := strconv.ParseUint(web.Param(r, "num"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block number: %w", err), http.StatusBadRequest)
	}

	block, err := h.State.QueryBlockByNumber(num)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return respondBlock(ctx, w, block)
}

// BlockByHash returns the block with the hash in the path.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.QueryBlockByHash(web.Param(r, "hash"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return respondBlock(ctx, w, block)
}

// VerifyChain audits the whole chain. A chain that fails the audit is
// reported with the reason so an operator can see which block is bad.
func (h Handlers) VerifyChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.VerifyChain(); err != nil {
		return errs.NewTrusted(fmt.Errorf("chain failed verification: %w", err), http.StatusInternalServerError)
	}

	resp := chainStatus{
		Status:      "verified",
		Blocks:      int(h.State.RetrieveChainLength()),
		LatestBlock: h.State.RetrieveLatestBlock().Hash,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func respondBlock(ctx context.Context, w http.ResponseWriter, block database.Block) error {
	blockData, err := database.NewBlockData(block)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

func respondBlocks(ctx context.Context, w http.ResponseWriter, blocks []database.Block) error {
	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		bd, err := database.NewBlockData(block)
		if err != nil {
			return err
		}
		blockData[i] = bd
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}
