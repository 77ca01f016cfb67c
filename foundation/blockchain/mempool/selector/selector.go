// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"
	"strings"
)

// List of different select strategies.
const (
	StrategyLIFO = "lifo"
	StrategyFIFO = "fifo"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyLIFO: lifoSelect,
	StrategyFIFO: fifoSelect,
}

// Func defines a function that is given the number of pending transactions,
// held in arrival order, and returns the index of the transaction to pop
// next. It is only called with a pending count greater than zero.
type Func func(pending int) int

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist, use one of: %s", strategy, strings.Join(Strategies(), ", "))
	}
	return fn, nil
}

// Strategies returns the names of the registered strategies.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================

// lifoSelect pops the most recently pushed transaction.
var lifoSelect = func(pending int) int {
	return pending - 1
}

// fifoSelect pops the oldest transaction.
var fifoSelect = func(pending int) int {
	return 0
}
