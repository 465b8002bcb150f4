package bookstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sanonone/shelfdb/pkg/aggregation"
	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/engine"
	"github.com/sanonone/shelfdb/pkg/query"
)

// Runner drives a seeded books collection through the bookstore queries
// and prints each result set as indented JSON.
type Runner struct {
	cfg Config
	eng *engine.Engine
	out io.Writer
	log *slog.Logger
}

// NewRunner creates the engine described by cfg and bulk-loads the seed.
func NewRunner(cfg Config, out io.Writer, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	docs, err := LoadSeed(cfg.SeedPath)
	if err != nil {
		return nil, err
	}

	opts := engine.DefaultOptions(cfg.Collection)
	opts.SlowQueryThreshold = cfg.SlowQueryThreshold
	opts.Logger = logger
	eng, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := eng.InsertMany(docs); err != nil {
		eng.Close()
		return nil, fmt.Errorf("failed to load seed: %w", err)
	}

	return &Runner{cfg: cfg, eng: eng, out: out, log: logger}, nil
}

// Engine returns the engine the runner operates on.
func (r *Runner) Engine() *engine.Engine { return r.eng }

// Close releases the engine.
func (r *Runner) Close() error { return r.eng.Close() }

// Run executes every step in order. It stops at the first failing step or
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"basic queries", r.basicQueries},
		{"update", r.updateWutheringHeights},
		{"delete", r.deleteMobyDick},
		{"advanced queries", r.advancedQueries},
		{"aggregations", r.aggregations},
		{"indexes", r.indexes},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.log.Debug("[Bookstore] Running step", "step", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func (r *Runner) basicQueries() error {
	if err := r.printFind("Fiction books", query.Find(query.Eq("genre", "Fiction"))); err != nil {
		return err
	}
	if err := r.printFind("Books published after 1940", query.Find(query.Gt("published_year", 1940))); err != nil {
		return err
	}
	return r.printFind("Books by J.R.R. Tolkien", query.Find(query.Eq("author", "J.R.R. Tolkien")))
}

func (r *Runner) updateWutheringHeights() error {
	res, err := r.eng.UpdateOne(query.Eq("title", "Wuthering Heights"), core.Set(map[string]any{"price": 5.99}))
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Updated %d document(s)\n", res.Modified)
	return nil
}

func (r *Runner) deleteMobyDick() error {
	res, err := r.eng.DeleteOne(query.Eq("title", "Moby Dick"))
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted %d document(s)\n", res.Deleted)
	return nil
}

func (r *Runner) advancedQueries() error {
	queries := []struct {
		title string
		d     query.Descriptor
	}{
		{
			"In stock books published after 2010",
			query.Find(query.And(query.Eq("in_stock", true), query.Gt("published_year", 2010))),
		},
		{
			"Titles, authors and prices",
			query.Find(nil).Project(query.Include("title", "author", "price").ExcludeID()),
		},
		{
			"Books sorted by price (ascending)",
			query.Find(nil).Sort(query.Asc("price")),
		},
		{
			"Books sorted by price (descending)",
			query.Find(nil).Sort(query.Desc("price")),
		},
		{
			fmt.Sprintf("Page %d (%d books per page)", r.cfg.Page, r.cfg.PageSize),
			query.Find(nil).Page(r.cfg.Page, r.cfg.PageSize),
		},
	}

	for _, q := range queries {
		if err := r.printFind(q.title, q.d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) aggregations() error {
	byGenre, err := aggregation.New(
		aggregation.Group(aggregation.Field("genre"),
			aggregation.Avg("averagePrice", aggregation.Field("price"))),
	)
	if err != nil {
		return err
	}

	topAuthor, err := aggregation.New(
		aggregation.Group(aggregation.Field("author"), aggregation.Count("bookCount")),
		aggregation.Sort(query.Desc("bookCount")),
		aggregation.Limit(1),
	)
	if err != nil {
		return err
	}

	byDecade, err := aggregation.New(
		aggregation.Group(DecadeExpr("published_year"),
			aggregation.Push("books", aggregation.Field("title"))),
		aggregation.Sort(query.Asc(core.IDField)),
	)
	if err != nil {
		return err
	}

	pipelines := []struct {
		title string
		p     *aggregation.Pipeline
	}{
		{"Average price by genre", byGenre},
		{"Author with the most books", topAuthor},
		{"Books grouped by decade", byDecade},
	}
	for _, p := range pipelines {
		docs, err := r.eng.Aggregate(p.p)
		if err != nil {
			return err
		}
		if err := r.print(p.title, docs); err != nil {
			return err
		}
	}
	return nil
}

// DecadeExpr renders a year field as its decade label, e.g. 1954 -> "1950s".
func DecadeExpr(field string) aggregation.Expr {
	return aggregation.Concat(
		aggregation.ToString(
			aggregation.Multiply(
				aggregation.Floor(aggregation.Divide(aggregation.Field(field), aggregation.Literal(10))),
				aggregation.Literal(10),
			),
		),
		aggregation.Literal("s"),
	)
}

func (r *Runner) indexes() error {
	probe := query.Find(query.Eq("title", "Wuthering Heights"))

	before, err := r.eng.Explain(probe)
	if err != nil {
		return err
	}
	if err := r.print("Query plan before indexes", before); err != nil {
		return err
	}

	created := make([]core.IndexInfo, 0, 2)
	for _, fields := range [][]core.IndexField{
		{core.Asc("title")},
		{core.Asc("author"), core.Desc("published_year")},
	} {
		info, err := r.eng.CreateIndex(fields...)
		if err != nil {
			return err
		}
		created = append(created, info)
	}
	if err := r.print("Indexes created", created); err != nil {
		return err
	}

	after, err := r.eng.Explain(probe)
	if err != nil {
		return err
	}
	return r.print("Query plan after indexes", after)
}

// ExplainEquality reports the plan for field == value without and then with
// an ascending index on field.
func (r *Runner) ExplainEquality(field string, value any) (before, after query.Stats, err error) {
	d := query.Find(query.Eq(field, value))
	if before, err = r.eng.Explain(d); err != nil {
		return before, after, err
	}
	if _, err = r.eng.CreateIndex(core.Asc(field)); err != nil {
		return before, after, err
	}
	after, err = r.eng.Explain(d)
	return before, after, err
}

func (r *Runner) printFind(title string, d query.Descriptor) error {
	docs, err := r.eng.Find(d)
	if err != nil {
		return err
	}
	return r.print(title, docs)
}

func (r *Runner) print(title string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", title, err)
	}
	_, err = fmt.Fprintf(r.out, "\n%s:\n%s\n", title, data)
	return err
}
