// This file implements the operational methods of the Engine, wrapping the
// store, evaluator, executor and pipeline with metrics and logging.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sanonone/shelfdb/pkg/aggregation"
	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/metrics"
	"github.com/sanonone/shelfdb/pkg/mutation"
	"github.com/sanonone/shelfdb/pkg/query"
)

// --- Documents ---

// Insert adds one document and returns its identifier.
func (e *Engine) Insert(doc core.Document) (string, error) {
	start := time.Now()
	id, err := e.Store.Insert(doc)
	e.observe("insert", start, err)
	e.syncDocumentGauge()
	return id, err
}

// InsertMany bulk-loads documents, all or nothing.
func (e *Engine) InsertMany(docs []core.Document) ([]string, error) {
	start := time.Now()
	ids, err := e.Store.InsertMany(docs)
	e.observe("insert_many", start, err)
	e.syncDocumentGauge()
	if err == nil {
		e.log.Info("[Engine] Bulk load complete", "documents", len(ids))
	}
	return ids, err
}

// Get returns the document with the given identifier.
func (e *Engine) Get(id string) (core.Document, error) {
	start := time.Now()
	doc, err := e.Store.Get(id)
	e.observe("get", start, err)
	return doc, err
}

// --- Reads ---

// Find executes a query descriptor.
func (e *Engine) Find(d query.Descriptor) ([]core.Document, error) {
	docs, _, err := e.find("find", d)
	return docs, err
}

// Explain executes a query descriptor and reports how it was evaluated.
func (e *Engine) Explain(d query.Descriptor) (query.Stats, error) {
	_, stats, err := e.find("explain", d)
	return stats, err
}

func (e *Engine) find(op string, d query.Descriptor) ([]core.Document, query.Stats, error) {
	start := time.Now()
	docs, stats, err := e.evaluator.ExecuteWithStats(d)
	e.observe(op, start, err)
	if err != nil {
		return nil, stats, err
	}

	plan := e.recordPlan(stats)
	if e.opts.SlowQueryThreshold > 0 && stats.Duration > e.opts.SlowQueryThreshold {
		e.log.Warn("[Engine] Slow query",
			"duration", stats.Duration,
			"plan", plan,
			"docs_examined", stats.DocsExamined,
			"docs_returned", stats.DocsReturned)
	}
	return docs, stats, nil
}

// Count returns how many documents match filter.
func (e *Engine) Count(filter query.Filter) int {
	start := time.Now()
	n := e.evaluator.Count(filter)
	e.observe("count", start, nil)
	return n
}

// --- Mutations ---

// UpdateOne patches the first document (in insertion order) matching filter.
func (e *Engine) UpdateOne(filter query.Filter, patch core.Patch) (mutation.UpdateResult, error) {
	start := time.Now()
	res, err := e.mutations.UpdateOne(filter, patch)
	e.observe("update_one", start, err)
	return res, err
}

// UpdateMany patches every document matching filter.
func (e *Engine) UpdateMany(filter query.Filter, patch core.Patch) (mutation.UpdateResult, error) {
	start := time.Now()
	res, err := e.mutations.UpdateMany(filter, patch)
	e.observe("update_many", start, err)
	if err != nil && res.Modified > 0 {
		e.log.Warn("[Engine] Update stopped part-way", "modified", res.Modified, "error", err)
	}
	return res, err
}

// DeleteOne removes the first document (in insertion order) matching filter.
func (e *Engine) DeleteOne(filter query.Filter) (mutation.DeleteResult, error) {
	start := time.Now()
	res, err := e.mutations.DeleteOne(filter)
	e.observe("delete_one", start, err)
	e.syncDocumentGauge()
	return res, err
}

// DeleteMany removes every document matching filter.
func (e *Engine) DeleteMany(filter query.Filter) (mutation.DeleteResult, error) {
	start := time.Now()
	res, err := e.mutations.DeleteMany(filter)
	e.observe("delete_many", start, err)
	e.syncDocumentGauge()
	return res, err
}

// --- Aggregation ---

// Aggregate runs a pipeline over the collection. A leading match stage is
// evaluated through the query evaluator so it can use an index; the other
// stages run over its output.
func (e *Engine) Aggregate(p *aggregation.Pipeline) ([]core.Document, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pipeline", core.ErrInvalidArgument)
	}
	start := time.Now()

	filter, rest := p.SplitLeadingMatch()
	var (
		out []core.Document
		err error
	)
	if filter != nil {
		var (
			docs  []core.Document
			stats query.Stats
		)
		docs, stats, err = e.evaluator.ExecuteWithStats(query.Find(filter))
		if err == nil {
			e.recordPlan(stats)
			out, err = rest.Execute(slices.Values(docs))
		}
	} else {
		out, err = p.Execute(e.Store.Scan())
	}

	e.observe("aggregate", start, err)
	return out, err
}

// --- Indexes ---

// CreateIndex builds a (possibly compound) index. Creating an identical index
// twice returns the existing one.
func (e *Engine) CreateIndex(fields ...core.IndexField) (core.IndexInfo, error) {
	start := time.Now()
	info, err := e.Store.CreateIndex(fields...)
	e.observe("create_index", start, err)
	if err != nil {
		return info, err
	}
	metrics.Indexes.WithLabelValues(e.opts.Collection).Set(float64(len(e.Store.Indexes())))
	e.log.Info("[Engine] Index ready", "index", info.Name, "entries", info.Entries, "duration", time.Since(start))
	return info, nil
}

// DropIndex removes an index by name.
func (e *Engine) DropIndex(name string) error {
	start := time.Now()
	err := e.Store.DropIndex(name)
	e.observe("drop_index", start, err)
	if err == nil {
		metrics.Indexes.WithLabelValues(e.opts.Collection).Set(float64(len(e.Store.Indexes())))
	}
	return err
}

// Indexes lists the collection's indexes.
func (e *Engine) Indexes() []core.IndexInfo {
	return e.Store.Indexes()
}

// --- Instrumentation ---

func (e *Engine) observe(op string, start time.Time, err error) {
	metrics.OperationDuration.WithLabelValues(e.opts.Collection, op).Observe(time.Since(start).Seconds())
	metrics.OperationsTotal.WithLabelValues(e.opts.Collection, op, statusOf(err)).Inc()
	if err != nil {
		e.log.Debug("[Engine] Operation failed", "operation", op, "error", err)
	}
}

// recordPlan counts the documents a query examined under its access plan
// and returns the plan label.
func (e *Engine) recordPlan(stats query.Stats) string {
	plan := "collscan"
	if stats.IndexUsed {
		plan = "index"
	}
	metrics.DocsExamined.WithLabelValues(e.opts.Collection, plan).Add(float64(stats.DocsExamined))
	return plan
}

func (e *Engine) syncDocumentGauge() {
	metrics.Documents.WithLabelValues(e.opts.Collection).Set(float64(e.Store.Len()))
}

// statusOf maps an error onto a low-cardinality metric label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, core.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, core.ErrEmptyAccumulator):
		return "empty_accumulator"
	}
	return "error"
}
