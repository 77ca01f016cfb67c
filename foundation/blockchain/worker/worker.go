// Package worker implements background mining for the blockchain.
package worker

import (
	"sync"

	"github.com/ardanlabs/minichain/foundation/blockchain/state"
)

// Worker manages the mining workflow for the blockchain.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	shut        chan struct{}
	startMining chan bool
	evHandler   state.EventHandler
}

// Run starts the mining goroutine and registers the worker with the state
// so submissions can wake it. It returns once the goroutine is running.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		state:       st,
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		evHandler:   ev,
	}
	st.Worker = &w

	started := make(chan struct{})
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		close(started)
		w.miningOperations()
	}()
	<-started

	// Transactions submitted before the worker registered still need a block.
	if st.QueryMempoolLength() > 0 {
		w.SignalStartMining()
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown stops the mining goroutine and waits for it. Mining in progress
// stops at the next block boundary; sealed blocks are kept.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining wakes the mining goroutine. Signals coalesce: one pending
// signal is enough to drain everything in the mempool.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
