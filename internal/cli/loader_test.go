package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/testutil"
)

const validSpecs = `package specs

dataset: de_results: {
	path: "data/de_results.csv"
}

analysis: significant: {
	dataset: "de_results"
	steps: [
		{filter: {cmp: {col: "adj_p", op: "lt", value: 0.05}}},
		{select: {cols: ["symbol", "adj_p"]}},
	]
}

analysis: volcano: {
	dataset: "de_results"
	steps: [
		{mutate: {col: "neg_log10_p", expr: {fn: "neg", arg: {fn: "log10", arg: {column: "adj_p"}}}}},
	]
	output: "chart"
	chart: {type: "scatter", x: "logFC", y: "neg_log10_p", title: "Volcano"}
}
`

func TestLoadSpecs(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "analyses.cue", validSpecs)

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Datasets, 1)
	assert.Equal(t, "de_results", result.Datasets[0].Name)
	require.Len(t, result.Analyses, 2)

	a, ok := result.Analysis("significant")
	require.True(t, ok)
	assert.Len(t, a.Steps, 2)

	_, ok = result.Analysis("nope")
	assert.False(t, ok)

	d, ok := result.Dataset("de_results")
	require.True(t, ok)
	assert.Equal(t, "data/de_results.csv", d.Path)
}

func TestLoadSpecs_MissingDir(t *testing.T) {
	_, errs := LoadSpecs("/does/not/exist", LoadModeFailFast)
	require.Len(t, errs, 1)
	le, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadSpecs_NoCUEFiles(t *testing.T) {
	_, errs := LoadSpecs(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	le, ok := errs[0].(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestLoadSpecs_CollectAll(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.cue", `package specs

analysis: one: {steps: []}
analysis: two: {dataset: "d", steps: [{explode: {}}]}
analysis: fine: {dataset: "d", steps: [{head: {n: 3}}]}
`)

	result, errs := LoadSpecs(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	assert.Len(t, result.Analyses, 1)

	codes := []string{errs[0].(*LoadError).Code, errs[1].(*LoadError).Code}
	assert.Contains(t, codes, ErrCodeMissingDataset)
	assert.Contains(t, codes, ErrCodeBadStep)
}

func TestLoadSpecs_FailFastStopsEarly(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.cue", `package specs

analysis: one: {steps: []}
analysis: two: {steps: []}
`)

	_, errs := LoadSpecs(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeMissingDataset, MapFieldToErrorCode("dataset"))
	assert.Equal(t, ErrCodeBadStep, MapFieldToErrorCode("steps[2].step"))
	assert.Equal(t, ErrCodeBadChart, MapFieldToErrorCode("chart.x"))
	assert.Equal(t, ErrCodeBadFormat, MapFieldToErrorCode("format"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("whatever"))
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.cue", "package specs\n\nx: 1")
	testutil.WriteFile(t, dir, "sub/b.cue", "package specs\n\ny: 2")
	testutil.WriteFile(t, dir, "readme.md", "not cue")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
