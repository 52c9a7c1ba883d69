package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/robert-koetsier/tidyseq/internal/engine"
	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

// snapshot builds the canonical object compared against golden files: the
// exercise name plus the result table, or the chart config for chart
// exercises.
func snapshot(name string, a pipeline.Analysis, result *engine.Result) ir.Object {
	obj := ir.Object{"exercise": ir.String(name)}
	if a.Output == pipeline.OutputChart && result.Chart != nil {
		obj["result"] = result.Chart.Snapshot()
	} else {
		obj["result"] = result.Table.Snapshot()
	}
	return obj
}

// RunWithGolden executes an exercise and compares its canonical snapshot
// against testdata/golden/{exercise.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, ex *Exercise) error {
	t.Helper()

	result, err := Run(ex)
	if err != nil {
		return err
	}

	data, err := ir.MarshalCanonical(snapshot(ex.Name, ex.Analysis, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, ex.Name, data)

	return nil
}
