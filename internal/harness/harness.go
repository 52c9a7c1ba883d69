// Package harness runs exercise analyses against fixture datasets and
// checks their results, either with golden snapshots or with targeted
// assertions. It exists so the repo's worked examples stay executable and
// verified.
package harness

import (
	"context"
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/engine"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Exercise pairs an analysis with the in-memory datasets it reads.
type Exercise struct {
	Name     string
	Analysis pipeline.Analysis
	Datasets map[string]*table.Table
	MaxRows  int // 0 means the executor default
}

// Run executes the exercise in memory and returns the engine result.
func Run(ex *Exercise) (*engine.Result, error) {
	if ex == nil {
		return nil, fmt.Errorf("harness: nil exercise")
	}
	if ex.Name == "" {
		return nil, fmt.Errorf("harness: exercise has no name")
	}

	opts := []engine.Option{}
	if ex.MaxRows > 0 {
		opts = append(opts, engine.WithMaxRows(ex.MaxRows))
	}
	exec := engine.New(engine.MapSource(ex.Datasets), opts...)

	result, err := exec.Run(context.Background(), ex.Analysis)
	if err != nil {
		return nil, fmt.Errorf("harness: exercise %q: %w", ex.Name, err)
	}
	return result, nil
}
