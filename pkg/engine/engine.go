// Package engine provides the high-level, embedded interface for ShelfDB.
//
// It wires a core.Store with the query evaluator, the mutation executor and
// the aggregation pipeline, and records metrics and slow-query logs for every
// operation. The engine is safe for concurrent use: writes take the store's
// exclusive lock, reads share it.
//
// Basic usage:
//
//	eng, err := engine.New(engine.DefaultOptions("books"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	docs, err := eng.Find(query.Find(query.Eq("genre", "Fiction")))
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/metrics"
	"github.com/sanonone/shelfdb/pkg/mutation"
	"github.com/sanonone/shelfdb/pkg/query"
)

// Options configures an Engine.
type Options struct {
	// Collection names the document collection. It labels metrics and logs.
	Collection string

	// Indexes are created when the engine starts. Each entry is the ordered
	// field list of one (possibly compound) index.
	Indexes [][]core.IndexField

	// SlowQueryThreshold makes reads slower than this log a warning.
	// Set to 0 to disable.
	SlowQueryThreshold time.Duration

	// Logger receives engine logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns a standard configuration for the named collection.
//
// Defaults:
//   - no startup indexes
//   - SlowQueryThreshold: 100ms
//   - Logger: slog.Default()
func DefaultOptions(collection string) Options {
	return Options{
		Collection:         collection,
		SlowQueryThreshold: 100 * time.Millisecond,
	}
}

// Engine is the main entry point for ShelfDB.
type Engine struct {
	// Store is the underlying document store.
	// While exported, it is recommended to use Engine methods so that
	// metrics and logs stay accurate.
	Store *core.Store

	evaluator *query.Evaluator
	mutations *mutation.Executor

	opts Options
	log  *slog.Logger

	closeOnce sync.Once
}

// New creates an engine with an empty store and the configured indexes.
func New(opts Options) (*Engine, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", core.ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := core.NewStore()
	evaluator := query.NewEvaluator(store)
	e := &Engine{
		Store:     store,
		evaluator: evaluator,
		mutations: mutation.NewExecutor(store, evaluator),
		opts:      opts,
		log:       logger.With("collection", opts.Collection),
	}

	for _, fields := range opts.Indexes {
		if _, err := e.CreateIndex(fields...); err != nil {
			return nil, fmt.Errorf("failed to create startup index: %w", err)
		}
	}

	metrics.Documents.WithLabelValues(opts.Collection).Set(0)
	e.log.Info("[Engine] Collection ready", "indexes", len(opts.Indexes))
	return e, nil
}

// Close releases the engine's metric series. The store itself needs no
// cleanup; Close is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		metrics.Documents.DeleteLabelValues(e.opts.Collection)
		metrics.Indexes.DeleteLabelValues(e.opts.Collection)
		e.log.Info("[Engine] Collection closed")
	})
	return nil
}

// Collection returns the collection name.
func (e *Engine) Collection() string {
	return e.opts.Collection
}

// Evaluator exposes the query evaluator bound to the engine's store.
func (e *Engine) Evaluator() *query.Evaluator {
	return e.evaluator
}
