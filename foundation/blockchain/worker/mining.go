package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/state"
)

// miningOperations waits for a signal and drains the mempool each time one
// arrives, until the worker is shut down.
func (w *Worker) miningOperations() {
	w.evHandler("worker: mining: G started")
	defer w.evHandler("worker: mining: G completed")

	for {
		select {
		case <-w.startMining:
			if w.isShutdown() {
				continue
			}
			w.drainMempool()

		case <-w.shut:
			return
		}
	}
}

// drainMempool seals blocks until the mempool is empty. Closing shut cancels
// the context, which MineAll observes between blocks.
func (w *Worker) drainMempool() {
	if n := w.state.QueryMempoolLength(); n == 0 {
		w.evHandler("worker: mining: nothing pending")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	results, err := w.state.MineAll(ctx)

	var rejected int
	for _, result := range results {
		rejected += len(result.Rejected)
		for _, ve := range result.Rejected {
			w.evHandler("viewer: ignored tx[%s]: %s", ve.Tx, ve)
		}
	}
	w.evHandler("worker: mining: sealed blocks[%d] rejected[%d] took[%v]", len(results), rejected, time.Since(start))

	switch {
	case err == nil:
	case errors.Is(err, state.ErrNoTransactions):
		// Another caller emptied the mempool first.
	case ctx.Err() != nil:
		w.evHandler("worker: mining: stopped by shutdown")
	default:
		w.evHandler("worker: mining: ERROR: %s", err)
	}
}
