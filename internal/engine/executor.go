// Package engine executes compiled analyses: it resolves the source
// dataset, applies pipeline steps in order, runs any declared significance
// test, and builds the declared output.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/querysql"
	"github.com/robert-koetsier/tidyseq/internal/render"
	"github.com/robert-koetsier/tidyseq/internal/stats"
	"github.com/robert-koetsier/tidyseq/internal/store"
	"github.com/robert-koetsier/tidyseq/internal/table"
	"github.com/robert-koetsier/tidyseq/internal/verbs"
)

// DefaultMaxRows is the row quota applied when none is configured.
const DefaultMaxRows = 1_000_000

// Source resolves dataset names to tables. *store.Store satisfies it via
// ReadDataset; MapSource serves in-memory fixtures.
type Source interface {
	ReadDataset(ctx context.Context, name string) (*table.Table, error)
}

// MapSource is an in-memory Source for tests and the exercise harness.
type MapSource map[string]*table.Table

// ReadDataset implements Source.
func (m MapSource) ReadDataset(_ context.Context, name string) (*table.Table, error) {
	t, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, store.ErrUnknownDataset)
	}
	return t, nil
}

// Executor runs analyses against a dataset source.
type Executor struct {
	src     Source
	maxRows int
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRows overrides the row quota.
func WithMaxRows(n int) Option {
	return func(e *Executor) { e.maxRows = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor over a dataset source.
func New(src Source, opts ...Option) *Executor {
	e := &Executor{
		src:     src,
		maxRows: DefaultMaxRows,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one analysis run.
type Result struct {
	Table *table.Table
	Chart *render.ChartConfig     // set when the analysis output is a chart
	Test  *stats.TestResult       // set when the analysis declares a test
	Cross *stats.ContingencyTable // the tested crosstab, when Test is set
	RunID string                  // provenance id, empty for non-store sources
}

// Run executes an analysis end to end. When the source is a store, the
// leading Select/Filter steps are pushed down to SQL and the run is
// recorded in the provenance table.
func (e *Executor) Run(ctx context.Context, a pipeline.Analysis) (*Result, error) {
	if errs := a.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("run %q: invalid analysis (%d problems): %w", a.Name, len(errs), errs[0])
	}

	log := e.logger.With("analysis", a.Name, "dataset", a.Dataset)

	st, stored := e.src.(*store.Store)

	var runID string
	if stored {
		specHash, err := a.Hash()
		if err != nil {
			return nil, fmt.Errorf("run %q: spec hash: %w", a.Name, err)
		}
		info, err := st.DatasetInfo(ctx, a.Dataset)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		runID, err = st.RecordRun(ctx, a.Name, specHash, a.Dataset, info.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
	}

	result, err := e.execute(ctx, a, st, stored, log)
	if stored && runID != "" {
		status, message := store.RunStatusOK, ""
		if err != nil {
			status, message = store.RunStatusError, err.Error()
		}
		if ferr := st.FinishRun(ctx, runID, status, message); ferr != nil {
			log.Error("failed to record run outcome", "run_id", runID, "error", ferr)
		}
	}
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	return result, nil
}

func (e *Executor) execute(ctx context.Context, a pipeline.Analysis, st *store.Store, stored bool, log *slog.Logger) (*Result, error) {
	steps := a.Steps
	var tbl *table.Table
	var err error

	if stored {
		q, rest := querysql.SplitPrefix(a.Dataset, steps)
		tbl, err = st.QueryDataset(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		log.Debug("loaded dataset via sql prefix",
			"rows", tbl.NumRows(), "in_memory_steps", len(rest))
		steps = rest
	} else {
		tbl, err = e.src.ReadDataset(ctx, a.Dataset)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		log.Debug("loaded dataset", "rows", tbl.NumRows())
	}
	if err := e.checkQuota(a.Name, -1, tbl); err != nil {
		return nil, err
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		tbl, err = e.applyStep(ctx, tbl, step)
		if err != nil {
			return nil, &StepError{Analysis: a.Name, Step: i, Kind: stepKind(step), Err: err}
		}
		if err := e.checkQuota(a.Name, i, tbl); err != nil {
			return nil, err
		}
		log.Debug("applied step", "index", i, "kind", stepKind(step), "rows", tbl.NumRows())
	}

	result := &Result{Table: tbl}

	if a.Test != nil {
		ct, err := stats.Crosstab(tbl, a.Test.Rows, a.Test.Cols)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		var testResult *stats.TestResult
		switch a.Test.Method {
		case "fisher":
			testResult, err = stats.FisherExact(ct)
		default:
			testResult, err = stats.ChiSquareTest(ct)
		}
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		result.Test = testResult
		result.Cross = ct
		log.Info("significance test",
			"method", testResult.Method, "p_value", testResult.PValue)
	}

	if a.Output == pipeline.OutputChart {
		chart, err := render.BuildChart(*a.Chart, tbl)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", a.Name, err)
		}
		result.Chart = chart
	}

	return result, nil
}

// applyStep dispatches one step to its verb.
func (e *Executor) applyStep(ctx context.Context, t *table.Table, step pipeline.Step) (*table.Table, error) {
	switch s := step.(type) {
	case pipeline.Select:
		return verbs.Select(t, s.Cols...)
	case pipeline.Rename:
		return verbs.Rename(t, s.Mapping)
	case pipeline.Filter:
		return verbs.Filter(t, s.Pred)
	case pipeline.Mutate:
		return verbs.Mutate(t, s.Col, s.Expr)
	case pipeline.Arrange:
		return verbs.Arrange(t, s.Keys...)
	case pipeline.Distinct:
		return verbs.Distinct(t, s.Cols...)
	case pipeline.Head:
		return verbs.Head(t, s.N)
	case pipeline.Count:
		return verbs.CountBy(t, s.Cols...)
	case pipeline.Summarize:
		return verbs.Summarize(t, s.GroupBy, s.Aggs)
	case pipeline.Join:
		right, err := e.src.ReadDataset(ctx, s.With)
		if err != nil {
			return nil, err
		}
		if s.Kind == "inner" {
			return verbs.InnerJoin(t, right, s.By...)
		}
		return verbs.LeftJoin(t, right, s.By...)
	case pipeline.PivotLonger:
		return verbs.PivotLonger(t, s.IDCols, s.NamesTo, s.ValuesTo)
	case pipeline.PivotWider:
		return verbs.PivotWider(t, s.NamesFrom, s.ValuesFrom)
	default:
		return nil, fmt.Errorf("unsupported step type %T", step)
	}
}

func (e *Executor) checkQuota(analysis string, step int, t *table.Table) error {
	if t.NumRows() > e.maxRows {
		return &RowQuotaError{Analysis: analysis, Step: step, Rows: t.NumRows(), Limit: e.maxRows}
	}
	return nil
}

func stepKind(s pipeline.Step) string {
	switch s.(type) {
	case pipeline.Select:
		return "select"
	case pipeline.Rename:
		return "rename"
	case pipeline.Filter:
		return "filter"
	case pipeline.Mutate:
		return "mutate"
	case pipeline.Arrange:
		return "arrange"
	case pipeline.Distinct:
		return "distinct"
	case pipeline.Head:
		return "head"
	case pipeline.Count:
		return "count"
	case pipeline.Summarize:
		return "summarize"
	case pipeline.Join:
		return "join"
	case pipeline.PivotLonger:
		return "pivot_longer"
	case pipeline.PivotWider:
		return "pivot_wider"
	default:
		return fmt.Sprintf("%T", s)
	}
}
