// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/minichain/foundation/blockchain/balance"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/genesis"
	"github.com/ardanlabs/minichain/foundation/blockchain/mempool"
	"github.com/ardanlabs/minichain/foundation/blockchain/storage/memory"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining in the background.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis        genesis.Genesis
	Storage        database.Serializer
	SelectStrategy string
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu        sync.Mutex
	evHandler EventHandler

	genesis genesis.Genesis
	mempool *mempool.Mempool
	db      *database.Database
	sheet   balance.Sheet

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("validating genesis: %w", err)
	}

	snapshot, err := cfg.Genesis.Snapshot()
	if err != nil {
		return nil, err
	}

	// Without a storage option the chain lives in memory.
	strg := cfg.Storage
	if strg == nil {
		strg, err = memory.New()
		if err != nil {
			return nil, err
		}
	}

	// Access the storage for the blockchain. A fresh store gets the genesis
	// block written.
	db, err := database.New(snapshot, strg, ev)
	if err != nil {
		return nil, err
	}

	// Rebuild the balances by replaying every block already in storage.
	blocks, err := db.Blocks()
	if err != nil {
		return nil, err
	}

	sheet, err := ReplayChain(blocks)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified select strategy.
	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = DefaultStrategy
	}

	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		mempool:   mempool,
		db:        db,
		sheet:     sheet,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Truncate resets the chain back to the genesis block and the balances back
// to the genesis balances. Pending transactions are dropped.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()

	if err := s.db.Reset(); err != nil {
		return err
	}

	snapshot, _ := s.db.Genesis().Snapshot()
	s.sheet = balance.NewSheet(snapshot)

	s.evHandler("state: Truncate: chain reset to genesis")

	return nil
}
