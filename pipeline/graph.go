package pipeline

import (
	stderrors "errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// Dependency is an input edge between two jobs.
type Dependency struct {
	Job        string
	Input      string
	JobStage   int
	InputStage int
}

// buildGraph records every job as a vertex and every known input as an edge
// from the producing job to the consuming one. Inputs naming unknown jobs are
// left out; they fail when the consuming stage is wired.
func (r *Runner) buildGraph() error {
	g := graph.New(graph.StringHash, graph.Directed())
	for _, name := range r.order {
		stage := r.stages[r.stageOf[name]]
		err := g.AddVertex(name,
			graph.VertexAttribute("group", stage.Name()),
			graph.VertexAttribute("xlabel", stage.Name()+" #"+strconv.Itoa(stage.Index())))
		if err != nil {
			return fmt.Errorf("adding job %q to graph: %w", name, err)
		}
	}
	for _, name := range r.order {
		for _, input := range r.jobs[name].RequiredInputs() {
			if _, ok := r.jobs[input]; !ok {
				continue
			}
			var opts []func(*graph.EdgeProperties)
			if r.stageOf[input] >= r.stageOf[name] {
				opts = append(opts, graph.EdgeAttribute("style", "dashed"))
			}
			err := g.AddEdge(input, name, opts...)
			if err != nil && !stderrors.Is(err, graph.ErrEdgeAlreadyExists) {
				return fmt.Errorf("adding input %q of job %q to graph: %w", input, name, err)
			}
		}
	}
	r.graph = g
	return nil
}

// Graph returns the job dependency graph. Edges point from a job to the jobs
// consuming its output.
func (r *Runner) Graph() graph.Graph[string, string] { return r.graph }

// WriteDOT writes the dependency graph in DOT format. Inputs read from the
// same or a later stage are drawn dashed.
func (r *Runner) WriteDOT(w io.Writer) error {
	return draw.DOT(r.graph, w, draw.GraphAttribute("label", r.settings.Name))
}

// StaleDependencies returns the inputs produced in the same or a later stage
// than their consumer. Such a job reads the output of the previous iteration,
// or of no iteration at all on the first one.
func (r *Runner) StaleDependencies() []Dependency {
	var out []Dependency
	for _, name := range r.order {
		for _, input := range r.jobs[name].RequiredInputs() {
			inputStage, ok := r.stageOf[input]
			if !ok || inputStage < r.stageOf[name] {
				continue
			}
			out = append(out, Dependency{
				Job:        name,
				Input:      input,
				JobStage:   r.stageOf[name],
				InputStage: inputStage,
			})
		}
	}
	return out
}
