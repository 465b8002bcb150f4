package query

import (
	"time"

	"github.com/sanonone/shelfdb/pkg/core"
)

// Stats is the execution report of a query, a simplified analogue of a
// query planner's execution statistics.
type Stats struct {
	IndexUsed    bool          `json:"index_used"`
	IndexName    string        `json:"index_name,omitempty"`
	KeysExamined int           `json:"keys_examined"`
	DocsExamined int           `json:"docs_examined"`
	DocsReturned int           `json:"docs_returned"`
	Duration     time.Duration `json:"duration"`
}

// Evaluator runs query descriptors against a store.
//
// The candidate set is snapshotted under the store's read lock; filtering,
// sorting, pagination and projection then run without holding the lock.
// Documents inserted while a query is running are therefore not part of
// its result.
type Evaluator struct {
	store *core.Store
}

// NewEvaluator creates an evaluator bound to store.
func NewEvaluator(store *core.Store) *Evaluator {
	return &Evaluator{store: store}
}

// Execute returns the documents selected by d, in order.
func (e *Evaluator) Execute(d Descriptor) ([]core.Document, error) {
	docs, _, err := e.ExecuteWithStats(d)
	return docs, err
}

// Explain runs d and returns only its execution statistics.
func (e *Evaluator) Explain(d Descriptor) (Stats, error) {
	_, stats, err := e.ExecuteWithStats(d)
	return stats, err
}

// Count returns the number of documents matching filter.
func (e *Evaluator) Count(filter Filter) int {
	filter = Find(filter).Filter()
	cands := e.store.Candidates(equalityTerms(filter))
	return len(matchRecords(cands.Records, filter))
}

// ExecuteWithStats returns the documents selected by d together with the
// execution statistics.
func (e *Evaluator) ExecuteWithStats(d Descriptor) ([]core.Document, Stats, error) {
	if err := d.Validate(); err != nil {
		return nil, Stats{}, err
	}
	start := time.Now()
	filter := d.Filter()

	// 1. Candidate selection (index or full scan).
	cands := e.store.Candidates(equalityTerms(filter))

	// 2. The full predicate is applied to every candidate.
	matched := matchRecords(cands.Records, filter)
	docs := make([]core.Document, len(matched))
	for i, rec := range matched {
		docs[i] = rec.Doc
	}

	// 3. Stable sort; ties keep insertion order.
	SortDocuments(docs, d.sort)

	// 4. Skip, then limit.
	docs = paginate(docs, d.skip, d.limit)

	// 5. Projection last. Results are always copies of the stored documents.
	out := make([]core.Document, len(docs))
	for i, doc := range docs {
		if d.projection != nil {
			out[i] = d.projection.Apply(doc)
		} else {
			out[i] = doc.Clone()
		}
	}

	stats := Stats{
		IndexUsed:    cands.IndexUsed(),
		IndexName:    cands.IndexName,
		KeysExamined: cands.KeysExamined,
		DocsExamined: len(cands.Records),
		DocsReturned: len(out),
		Duration:     time.Since(start),
	}
	return out, stats, nil
}

// MatchUnlocked returns the stored records matching filter, in insertion
// order, using an index when possible. The caller must hold the store lock
// (read or write) and must not modify the returned documents.
func (e *Evaluator) MatchUnlocked(filter Filter) ([]core.Record, Stats) {
	if filter == nil {
		filter = All()
	}
	cands := e.store.CandidatesUnlocked(equalityTerms(filter))
	matched := matchRecords(cands.Records, filter)
	return matched, Stats{
		IndexUsed:    cands.IndexUsed(),
		IndexName:    cands.IndexName,
		KeysExamined: cands.KeysExamined,
		DocsExamined: len(cands.Records),
		DocsReturned: len(matched),
	}
}

func matchRecords(recs []core.Record, filter Filter) []core.Record {
	out := make([]core.Record, 0, len(recs))
	for _, rec := range recs {
		if filter.Match(rec.Doc) {
			out = append(out, rec)
		}
	}
	return out
}

func paginate(docs []core.Document, skip, limit int) []core.Document {
	if skip >= len(docs) {
		return docs[:0]
	}
	docs = docs[skip:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
