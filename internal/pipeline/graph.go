// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/pdiddy/pubmine/internal/rule"
)

// RuleGraph builds the rule-level dependency graph: an edge runs from
// producer to consumer when any output pattern of one rule can satisfy
// an input pattern of the other.
func (p *Pipeline) RuleGraph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())

	for _, r := range p.Rules.Rules() {
		if err := g.AddVertex(r.Name, graph.VertexAttribute("tooltip", r.Doc)); err != nil {
			return nil, fmt.Errorf("adding rule %s: %w", r.Name, err)
		}
	}

	for _, producer := range p.Rules.Rules() {
		for _, consumer := range p.Rules.Rules() {
			if producer == consumer {
				continue
			}
			if rulesConnected(producer, consumer) {
				err := g.AddEdge(producer.Name, consumer.Name)
				if err != nil && err != graph.ErrEdgeAlreadyExists {
					return nil, fmt.Errorf("edge %s -> %s: %w", producer.Name, consumer.Name, err)
				}
			}
		}
	}
	return g, nil
}

// rulesConnected reports whether consumer reads anything producer
// writes.
func rulesConnected(producer, consumer *rule.Rule) bool {
	for _, out := range producer.Outputs {
		for _, in := range consumer.Inputs {
			if rule.PatternsOverlap(out, in) {
				return true
			}
		}
	}
	return false
}

// WriteDOT emits the rule graph in Graphviz DOT format.
func (p *Pipeline) WriteDOT(w io.Writer) error {
	g, err := p.RuleGraph()
	if err != nil {
		return err
	}
	return draw.DOT(g, w)
}
