package core

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/btree"
)

// Direction is the ordering of one index or sort field.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// IndexField is one component of a (possibly compound) index.
type IndexField struct {
	Name      string
	Direction Direction
}

// Asc and Desc build index fields.
func Asc(name string) IndexField  { return IndexField{Name: name, Direction: Ascending} }
func Desc(name string) IndexField { return IndexField{Name: name, Direction: Descending} }

// IndexInfo describes a registered index.
type IndexInfo struct {
	Name    string       `json:"name"`
	Fields  []IndexField `json:"fields"`
	Entries int          `json:"entries"`
}

// LookupResult is the outcome of an index lookup.
type LookupResult struct {
	IndexName    string
	IDs          []string
	KeysExamined int
}

// indexEntry associates a composite key with a document. The insertion
// sequence keeps entries with equal keys distinct and ordered.
type indexEntry struct {
	key []any
	seq uint64
	id  string
}

// Index is a secondary index over one or more fields, backed by a B-Tree
// ordered by (composite key, insertion sequence).
type Index struct {
	name   string
	fields []IndexField
	tree   *btree.BTreeG[indexEntry]
}

func newIndex(fields []IndexField) *Index {
	idx := &Index{
		name:   indexName(fields),
		fields: slices.Clone(fields),
	}
	idx.tree = btree.NewBTreeG[indexEntry](idx.less)
	return idx
}

// indexName follows the usual document-database convention: title_1,
// author_1_published_year_-1.
func indexName(fields []IndexField) string {
	parts := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		parts = append(parts, f.Name, strconv.Itoa(int(f.Direction)))
	}
	return strings.Join(parts, "_")
}

func validateIndexFields(fields []IndexField) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: index needs at least one field", ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: empty index field name", ErrInvalidArgument)
		}
		if f.Direction != Ascending && f.Direction != Descending {
			return fmt.Errorf("%w: index field '%s' has direction %d", ErrInvalidArgument, f.Name, f.Direction)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: field '%s' appears twice in index", ErrInvalidArgument, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Name returns the index name.
func (idx *Index) Name() string { return idx.name }

// Fields returns a copy of the indexed fields.
func (idx *Index) Fields() []IndexField { return slices.Clone(idx.fields) }

func (idx *Index) info() IndexInfo {
	return IndexInfo{Name: idx.name, Fields: idx.Fields(), Entries: idx.tree.Len()}
}

// less orders entries by key, then by insertion sequence.
func (idx *Index) less(a, b indexEntry) bool {
	if c := idx.compareKeys(a.key, b.key); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

// compareKeys compares composite keys honouring each field's direction.
// A key that is a strict prefix of the other sorts first, which lets a
// partial key act as the lower bound of its range.
func (idx *Index) compareKeys(a, b []any) int {
	for i, f := range idx.fields {
		if i >= len(a) || i >= len(b) {
			return cmp.Compare(len(a), len(b))
		}
		c := CompareValues(a[i], b[i])
		if f.Direction == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// keyFor extracts the composite key of a document. Missing fields index as null.
func (idx *Index) keyFor(doc Document) []any {
	key := make([]any, len(idx.fields))
	for i, f := range idx.fields {
		key[i] = doc.Value(f.Name)
	}
	return key
}

func (idx *Index) add(rec Record) {
	idx.tree.Set(indexEntry{key: idx.keyFor(rec.Doc), seq: rec.Seq, id: rec.Doc.ID()})
}

func (idx *Index) remove(rec Record) {
	idx.tree.Delete(indexEntry{key: idx.keyFor(rec.Doc), seq: rec.Seq})
}

// move re-keys a document after an update. Nothing happens when the indexed
// fields did not change.
func (idx *Index) move(old, updated Record) {
	if idx.compareKeys(idx.keyFor(old.Doc), idx.keyFor(updated.Doc)) == 0 {
		return
	}
	idx.remove(old)
	idx.add(updated)
}

func (idx *Index) clear() {
	idx.tree = btree.NewBTreeG[indexEntry](idx.less)
}

// lookup returns the documents whose key starts with prefix, in index order.
func (idx *Index) lookup(prefix []any) ([]string, int) {
	var ids []string
	examined := 0
	idx.tree.Ascend(indexEntry{key: prefix}, func(e indexEntry) bool {
		examined++
		if idx.compareKeys(e.key[:len(prefix)], prefix) != 0 {
			return false
		}
		ids = append(ids, e.id)
		return true
	})
	return ids, examined
}

// prefixLen returns how many leading index fields are covered by the
// equality terms.
func (idx *Index) prefixLen(terms map[string]any) int {
	n := 0
	for _, f := range idx.fields {
		if _, ok := terms[f.Name]; !ok {
			break
		}
		n++
	}
	return n
}

// --- Store integration ---

// CreateIndex builds an index over the given fields by scanning the store once.
// Creating an index with an identical field list is a no-op that returns the
// existing index.
func (s *Store) CreateIndex(fields ...IndexField) (IndexInfo, error) {
	if err := validateIndexFields(fields); err != nil {
		return IndexInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := indexName(fields)
	if existing, ok := s.indexes[name]; ok {
		return existing.info(), nil
	}

	idx := newIndex(fields)
	s.docs.Scan(func(rec Record) bool {
		idx.add(rec)
		return true
	})

	s.indexes[name] = idx
	s.indexOrder = append(s.indexOrder, name)
	return idx.info(), nil
}

// DropIndex removes an index by name.
func (s *Store) DropIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[name]; !ok {
		return fmt.Errorf("%w: index '%s'", ErrNotFound, name)
	}
	delete(s.indexes, name)
	s.indexOrder = slices.DeleteFunc(s.indexOrder, func(n string) bool { return n == name })
	return nil
}

// Indexes lists the registered indexes in creation order.
func (s *Store) Indexes() []IndexInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]IndexInfo, 0, len(s.indexOrder))
	for _, name := range s.indexOrder {
		out = append(out, s.indexes[name].info())
	}
	return out
}

// RebuildIndexes repopulates every index from the stored documents.
func (s *Store) RebuildIndexes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildIndexesUnlocked()
}

func (s *Store) rebuildIndexesUnlocked() {
	for _, idx := range s.indexes {
		idx.clear()
	}
	s.docs.Scan(func(rec Record) bool {
		for _, idx := range s.indexes {
			idx.add(rec)
		}
		return true
	})
}

// Lookup finds documents through an index. fields and values are parallel
// slices of equality terms. The index whose leading fields are covered by
// the most terms is used (left-to-right prefix rule). The boolean is false
// when no index covers at least the first of its fields.
func (s *Store) Lookup(fields []string, values []any) (LookupResult, bool) {
	if len(fields) != len(values) {
		return LookupResult{}, false
	}
	terms := make(map[string]any, len(fields))
	for i, f := range fields {
		if _, dup := terms[f]; !dup {
			terms[f] = values[i]
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupUnlocked(terms)
}

func (s *Store) lookupUnlocked(terms map[string]any) (LookupResult, bool) {
	var best *Index
	bestLen := 0
	for _, name := range s.indexOrder {
		idx := s.indexes[name]
		if n := idx.prefixLen(terms); n > bestLen {
			best, bestLen = idx, n
		}
	}
	if best == nil {
		return LookupResult{}, false
	}

	prefix := make([]any, bestLen)
	for i := 0; i < bestLen; i++ {
		prefix[i] = terms[best.fields[i].Name]
	}
	ids, examined := best.lookup(prefix)
	return LookupResult{IndexName: best.name, IDs: ids, KeysExamined: examined}, true
}
