// Package mutation applies filtered updates and deletes to a store.
//
// Each call holds the store's write lock for its whole duration, so readers
// never observe a half-applied updateMany. If a document fails mid-way, the
// documents already modified stay modified (with consistent indexes), the
// result counts only them, and the error is returned.
package mutation

import (
	"fmt"

	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/query"
)

// UpdateResult reports how many documents matched the filter and how many
// were actually changed.
type UpdateResult struct {
	Matched  int `json:"matched"`
	Modified int `json:"modified"`
}

// DeleteResult reports how many documents were removed.
type DeleteResult struct {
	Deleted int `json:"deleted"`
}

// Executor runs update and delete operations.
type Executor struct {
	store     *core.Store
	evaluator *query.Evaluator
}

// NewExecutor creates an executor. The evaluator must be bound to the same store.
func NewExecutor(store *core.Store, evaluator *query.Evaluator) *Executor {
	return &Executor{store: store, evaluator: evaluator}
}

// UpdateMany applies patch to every document matching filter.
func (x *Executor) UpdateMany(filter query.Filter, patch core.Patch) (UpdateResult, error) {
	return x.update(filter, patch, false)
}

// UpdateOne applies patch to the first matching document in insertion order.
func (x *Executor) UpdateOne(filter query.Filter, patch core.Patch) (UpdateResult, error) {
	return x.update(filter, patch, true)
}

// DeleteMany removes every document matching filter.
func (x *Executor) DeleteMany(filter query.Filter) (DeleteResult, error) {
	return x.delete(filter, false)
}

// DeleteOne removes the first matching document in insertion order.
func (x *Executor) DeleteOne(filter query.Filter) (DeleteResult, error) {
	return x.delete(filter, true)
}

func (x *Executor) update(filter query.Filter, patch core.Patch, one bool) (UpdateResult, error) {
	var res UpdateResult
	if err := patch.Validate(); err != nil {
		return res, err
	}

	x.store.Lock()
	defer x.store.Unlock()

	matched, _ := x.evaluator.MatchUnlocked(filter)
	if one && len(matched) > 1 {
		matched = matched[:1]
	}
	res.Matched = len(matched)

	for _, rec := range matched {
		id := rec.Doc.ID()
		changed, err := x.store.UpdateUnlocked(id, patch)
		if err != nil {
			return res, fmt.Errorf("update %s: %w", id, err)
		}
		if changed {
			res.Modified++
		}
	}
	return res, nil
}

func (x *Executor) delete(filter query.Filter, one bool) (DeleteResult, error) {
	var res DeleteResult

	x.store.Lock()
	defer x.store.Unlock()

	matched, _ := x.evaluator.MatchUnlocked(filter)
	if one && len(matched) > 1 {
		matched = matched[:1]
	}

	for _, rec := range matched {
		id := rec.Doc.ID()
		if err := x.store.DeleteUnlocked(id); err != nil {
			return res, fmt.Errorf("delete %s: %w", id, err)
		}
		res.Deleted++
	}
	return res, nil
}
