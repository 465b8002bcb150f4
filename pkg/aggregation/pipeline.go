// Package aggregation implements aggregation pipelines: ordered sequences of
// stages (match, group, sort, limit, skip, project, addFields) run over a
// sequence of documents.
//
// Average price per genre:
//
//	p, err := aggregation.New(
//		aggregation.Group(aggregation.Field("genre"),
//			aggregation.Avg("averagePrice", aggregation.Field("price"))),
//	)
//	results, err := p.Execute(store.Scan())
package aggregation

import (
	"fmt"
	"iter"
	"slices"

	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/query"
)

// Pipeline is an immutable, validated list of stages. It holds no state
// between executions and is safe for concurrent use.
type Pipeline struct {
	stages []Stage
}

// New validates the stages and builds a pipeline.
func New(stages ...Stage) (*Pipeline, error) {
	for i, st := range stages {
		if st == nil {
			return nil, fmt.Errorf("%w: stage %d is nil", core.ErrInvalidArgument, i)
		}
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, st.Name(), err)
		}
	}
	return &Pipeline{stages: slices.Clone(stages)}, nil
}

// Stages returns the stage list.
func (p *Pipeline) Stages() []Stage {
	return slices.Clone(p.stages)
}

// Execute runs every stage in order over input. Each stage consumes the whole
// output of the previous one before the next starts.
func (p *Pipeline) Execute(input iter.Seq[core.Document]) ([]core.Document, error) {
	docs := make([]core.Document, 0)
	if input != nil {
		for doc := range input {
			docs = append(docs, doc)
		}
	}

	var err error
	for i, st := range p.stages {
		docs, err = st.apply(docs)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, st.Name(), err)
		}
	}
	return docs, nil
}

// SplitLeadingMatch returns the filter of a leading match stage and the
// pipeline made of the remaining stages. When the first stage is not a match
// the filter is nil and the pipeline is returned unchanged.
func (p *Pipeline) SplitLeadingMatch() (query.Filter, *Pipeline) {
	if len(p.stages) == 0 {
		return nil, p
	}
	m, ok := p.stages[0].(*matchStage)
	if !ok {
		return nil, p
	}
	return m.filter, &Pipeline{stages: slices.Clone(p.stages[1:])}
}
