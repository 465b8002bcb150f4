package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/shelfdb/pkg/aggregation"
	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/metrics"
	"github.com/sanonone/shelfdb/pkg/query"
)

func openEngine(t *testing.T, collection string) *Engine {
	t.Helper()
	opts := DefaultOptions(collection)
	opts.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	eng, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestEngineExampleScenario(t *testing.T) {
	eng := openEngine(t, "example")

	_, err := eng.InsertMany([]core.Document{
		{core.IDField: "A", "title": "A", "genre": "Fiction", "published_year": 1950, "price": 10, "in_stock": true},
		{core.IDField: "B", "title": "B", "genre": "Fiction", "published_year": 2015, "price": 20, "in_stock": true},
	})
	require.NoError(t, err)

	// 1. Compound read
	docs, err := eng.Find(query.Find(query.And(query.Eq("in_stock", true), query.Gt("published_year", 2010))))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "B", docs[0].ID())

	// 2. Aggregation
	p, err := aggregation.New(aggregation.Group(aggregation.Field("genre"),
		aggregation.Avg("averagePrice", aggregation.Field("price"))))
	require.NoError(t, err)
	out, err := eng.Aggregate(p)
	require.NoError(t, err)
	assert.Equal(t, []core.Document{{core.IDField: "Fiction", "averagePrice": 15.0}}, out)

	// 3. Update, then read back
	res, err := eng.UpdateMany(query.Eq("title", "B"), core.Set(map[string]any{"price": 5.99}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Modified)

	b, err := eng.Get("B")
	require.NoError(t, err)
	assert.Equal(t, 5.99, b["price"])
}

func TestEngineOptions(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	opts := DefaultOptions("startup_indexes")
	opts.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	opts.Indexes = [][]core.IndexField{{core.Asc("title")}, {core.Asc("author"), core.Desc("published_year")}}
	eng, err := New(opts)
	require.NoError(t, err)
	defer eng.Close()

	names := []string{}
	for _, info := range eng.Indexes() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"title_1", "author_1_published_year_-1"}, names)
	assert.Equal(t, "startup_indexes", eng.Collection())

	opts.Collection = "bad_startup_index"
	opts.Indexes = [][]core.IndexField{{core.Asc("")}}
	_, err = New(opts)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestEngineAggregateLeadingMatchUsesIndex(t *testing.T) {
	eng := openEngine(t, "leading_match")
	for i := 0; i < 20; i++ {
		_, err := eng.Insert(core.Document{"author": fmt.Sprintf("author-%d", i%4), "n": i})
		require.NoError(t, err)
	}
	_, err := eng.CreateIndex(core.Asc("author"))
	require.NoError(t, err)

	p, err := aggregation.New(
		aggregation.Match(query.Eq("author", "author-1")),
		aggregation.Group(aggregation.Field("author"), aggregation.Count("n"), aggregation.Sum("total", aggregation.Field("n"))),
	)
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.DocsExamined.WithLabelValues("leading_match", "index"))
	out, err := eng.Aggregate(p)
	require.NoError(t, err)
	// 1 + 5 + 9 + 13 + 17
	assert.Equal(t, []core.Document{{core.IDField: "author-1", "n": 5, "total": 45.0}}, out)
	assert.Equal(t, before+5, testutil.ToFloat64(metrics.DocsExamined.WithLabelValues("leading_match", "index")))

	_, err = eng.Aggregate(nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestEngineMetrics(t *testing.T) {
	const coll = "metrics_books"
	eng := openEngine(t, coll)

	_, err := eng.Insert(core.Document{core.IDField: "x", "title": "X"})
	require.NoError(t, err)
	_, err = eng.Insert(core.Document{core.IDField: "x"})
	require.ErrorIs(t, err, core.ErrDuplicateID)
	_, err = eng.Get("missing")
	require.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(coll, "insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(coll, "insert", "duplicate_id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(coll, "get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Documents.WithLabelValues(coll)))

	_, err = eng.Find(query.Find(nil).Limit(-1))
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(coll, "find", "invalid_argument")))

	_, err = eng.CreateIndex(core.Asc("title"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Indexes.WithLabelValues(coll)))
	require.NoError(t, eng.DropIndex("title_1"))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Indexes.WithLabelValues(coll)))
	assert.ErrorIs(t, eng.DropIndex("title_1"), core.ErrNotFound)

	_, err = eng.DeleteMany(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Documents.WithLabelValues(coll)))
}

func TestEngineSlowQueryLog(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions("slow")
	opts.SlowQueryThreshold = time.Nanosecond
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	eng, err := New(opts)
	require.NoError(t, err)
	defer eng.Close()

	for i := 0; i < 50; i++ {
		_, err := eng.Insert(core.Document{"n": i})
		require.NoError(t, err)
	}
	_, err = eng.Find(query.Find(query.Gt("n", 10)).Sort(query.Desc("n")))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Slow query")
}

func TestEngineConcurrentReadersAndWriters(t *testing.T) {
	eng := openEngine(t, "concurrent")
	_, err := eng.CreateIndex(core.Asc("writer"))
	require.NoError(t, err)

	const writers, perWriter = 4, 50

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if _, err := eng.Insert(core.Document{core.IDField: id, "writer": w, "n": i}); err != nil {
					return err
				}
				if i%5 == 0 {
					if _, err := eng.UpdateOne(query.Eq(core.IDField, id), core.Patch{Inc: map[string]any{"n": 1000}}); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				docs, err := eng.Find(query.Find(query.Eq("writer", r)))
				if err != nil {
					return err
				}
				// Every document seen through the index matches the filter.
				for _, d := range docs {
					if d["writer"] != r {
						return fmt.Errorf("reader %d saw writer %v", r, d["writer"])
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, writers*perWriter, eng.Count(nil))
	for w := 0; w < writers; w++ {
		assert.Equal(t, perWriter, eng.Count(query.Eq("writer", w)))
		assert.Equal(t, perWriter/5, eng.Count(query.And(query.Eq("writer", w), query.Gte("n", 1000))))
	}
}
