// Package core provides the fundamental data structures of the engine.
//
// This file implements the document store: an in-memory, insertion-ordered
// collection guarded by a read-write mutex. The same mutex guards every
// secondary index, so a mutation and its index maintenance are observed
// atomically by readers.
//
// Stored documents are never modified in place. Updates build a new document
// and swap it in, which lets readers keep working on a snapshot after they
// release the read lock.
package core

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// Record is a stored document together with its insertion sequence.
// Doc must be treated as read-only.
type Record struct {
	Seq uint64
	Doc Document
}

// EqualityTerm is a field = value condition a query wants to use for index
// selection.
type EqualityTerm struct {
	Field string
	Value any
}

// Candidates is the set of documents a query has to examine.
type Candidates struct {
	Records      []Record
	IndexName    string
	KeysExamined int
}

// IndexUsed reports whether the candidates came from an index.
func (c Candidates) IndexUsed() bool { return c.IndexName != "" }

// Store owns a collection of documents and its secondary indexes.
type Store struct {
	mu sync.RWMutex

	// docs holds every record ordered by insertion sequence.
	docs *btree.BTreeG[Record]
	byID map[string]Record

	nextSeq uint64

	indexes    map[string]*Index
	indexOrder []string
}

func recordLess(a, b Record) bool {
	return a.Seq < b.Seq
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		docs:    btree.NewBTreeG[Record](recordLess),
		byID:    make(map[string]Record),
		indexes: make(map[string]*Index),
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs.Len()
}

// prepare validates and copies a document, assigning an identifier if it has none.
func prepare(doc Document) (Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	stored := doc.Clone()
	if stored[IDField] == nil {
		stored[IDField] = uuid.NewString()
	}
	return stored, nil
}

// Insert adds a document and returns its identifier.
func (s *Store) Insert(doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.InsertUnlocked(doc)
}

// InsertUnlocked inserts without acquiring the lock. The caller must hold it.
func (s *Store) InsertUnlocked(doc Document) (string, error) {
	stored, err := prepare(doc)
	if err != nil {
		return "", err
	}
	id := stored.ID()
	if _, exists := s.byID[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	rec := s.append(stored)
	for _, idx := range s.indexes {
		idx.add(rec)
	}
	return id, nil
}

func (s *Store) append(doc Document) Record {
	s.nextSeq++
	rec := Record{Seq: s.nextSeq, Doc: doc}
	s.docs.Set(rec)
	s.byID[doc.ID()] = rec
	return rec
}

// InsertMany loads a batch of documents. The batch is all-or-nothing: if any
// document is invalid or collides with a stored or batched identifier,
// nothing is inserted. Indexes are rebuilt once after the load instead of
// being maintained per document.
func (s *Store) InsertMany(docs []Document) ([]string, error) {
	prepared := make([]Document, 0, len(docs))
	batch := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		stored, err := prepare(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		id := stored.ID()
		if _, dup := batch[id]; dup {
			return nil, fmt.Errorf("document %d: %w: %s", i, ErrDuplicateID, id)
		}
		batch[id] = struct{}{}
		prepared = append(prepared, stored)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range prepared {
		if _, exists := s.byID[doc.ID()]; exists {
			return nil, fmt.Errorf("document %d: %w: %s", i, ErrDuplicateID, doc.ID())
		}
	}

	ids := make([]string, 0, len(prepared))
	for _, doc := range prepared {
		s.append(doc)
		ids = append(ids, doc.ID())
	}
	s.rebuildIndexesUnlocked()
	return ids, nil
}

// Get returns a copy of the document with the given identifier.
func (s *Store) Get(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.GetUnlocked(id)
	if err != nil {
		return nil, err
	}
	return rec.Doc.Clone(), nil
}

// GetUnlocked returns the stored record without copying it. The caller must
// hold a lock and must not modify the document.
func (s *Store) GetUnlocked(id string) (Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return rec, nil
}

// Scan returns a lazy, restartable sequence over all documents in insertion
// order. Every range over the sequence snapshots the collection when it
// starts: documents inserted afterwards show up in the next range, not the
// current one. Yielded documents are copies.
func (s *Store) Scan() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for _, rec := range s.Snapshot() {
			if !yield(rec.Doc.Clone()) {
				return
			}
		}
	}
}

// Snapshot returns every record in insertion order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotUnlocked()
}

func (s *Store) snapshotUnlocked() []Record {
	out := make([]Record, 0, s.docs.Len())
	s.docs.Scan(func(rec Record) bool {
		out = append(out, rec)
		return true
	})
	return out
}

// Delete removes a document and its index entries.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DeleteUnlocked(id)
}

// DeleteUnlocked deletes without acquiring the lock. The caller must hold it.
func (s *Store) DeleteUnlocked(id string) error {
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	for _, idx := range s.indexes {
		idx.remove(rec)
	}
	s.docs.Delete(rec)
	delete(s.byID, id)
	return nil
}

// Update applies a patch to a document. It reports whether the document
// actually changed; a patch that leaves every field as it was is not an error.
func (s *Store) Update(id string, patch Patch) (bool, error) {
	if err := patch.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdateUnlocked(id, patch)
}

// UpdateUnlocked updates without acquiring the lock. The caller must hold it
// and must have validated the patch.
func (s *Store) UpdateUnlocked(id string, patch Patch) (bool, error) {
	rec, ok := s.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	next, err := patch.apply(rec.Doc)
	if err != nil {
		return false, err
	}
	if Equal(rec.Doc, next) {
		return false, nil
	}

	updated := Record{Seq: rec.Seq, Doc: next}
	for _, idx := range s.indexes {
		idx.move(rec, updated)
	}
	s.docs.Set(updated)
	s.byID[id] = updated
	return true, nil
}

// Candidates selects the records a query must examine, using an index when
// the equality terms cover the leading field of one.
func (s *Store) Candidates(terms []EqualityTerm) Candidates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CandidatesUnlocked(terms)
}

// CandidatesUnlocked is Candidates without locking. The caller must hold a lock.
// Records are always returned in insertion order.
func (s *Store) CandidatesUnlocked(terms []EqualityTerm) Candidates {
	if len(terms) > 0 && len(s.indexes) > 0 {
		byField := make(map[string]any, len(terms))
		for _, t := range terms {
			if _, dup := byField[t.Field]; !dup {
				byField[t.Field] = t.Value
			}
		}
		if res, ok := s.lookupUnlocked(byField); ok {
			recs := make([]Record, 0, len(res.IDs))
			for _, id := range res.IDs {
				recs = append(recs, s.byID[id])
			}
			slices.SortFunc(recs, func(a, b Record) int { return cmp.Compare(a.Seq, b.Seq) })
			return Candidates{Records: recs, IndexName: res.IndexName, KeysExamined: res.KeysExamined}
		}
	}
	return Candidates{Records: s.snapshotUnlocked()}
}

// RLock acquires a read lock on the store.
func (s *Store) RLock() {
	s.mu.RLock()
}

// RUnlock releases the read lock.
func (s *Store) RUnlock() {
	s.mu.RUnlock()
}

// Lock acquires a write lock on the store.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the write lock.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
