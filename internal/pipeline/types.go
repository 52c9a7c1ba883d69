package pipeline

import "github.com/robert-koetsier/tidyseq/internal/ir"

// Step represents one transform in an analysis pipeline.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the executor and the SQL compiler.
type Step interface {
	stepNode() // Marker method - seals interface to this package
}

// Predicate represents a row filter condition.
//
// Sealed like Step. Dimension-style filtering ("values OR-combined within a
// column, AND-combined across columns") is expressed as And over In.
type Predicate interface {
	predicateNode()
}

// Expr represents an arithmetic expression over numeric columns, used by
// Mutate. Sealed like Step.
type Expr interface {
	exprNode()
}

// Output selects what an analysis renders.
type Output string

const (
	OutputTable Output = "table"
	OutputChart Output = "chart"
	OutputText  Output = "text"
)

// Analysis is a complete compiled analysis: a source dataset, an ordered
// list of steps, and what to render at the end.
type Analysis struct {
	Name    string
	Dataset string
	Steps   []Step
	Output  Output
	Chart   *ChartSpec // required when Output == OutputChart
	Test    *TestSpec  // optional contingency test on the final table
	Golden  string     // expected-output file for `tidyseq test` (optional)
}

// ChartSpec declares how to chart the final table.
type ChartSpec struct {
	Type   string // "bar", "scatter", "line", "box"
	X      string // column for the x axis
	Y      string // column for the y axis (numeric)
	Series string // optional categorical column splitting series
	Title  string
}

// TestSpec declares a contingency-table test over two categorical columns
// of the final table.
type TestSpec struct {
	Method string // "fisher" or "chisq"
	Rows   string // categorical column forming table rows
	Cols   string // categorical column forming table columns
}

// Steps.

// Select projects and reorders columns.
type Select struct {
	Cols []string
}

func (Select) stepNode() {}

// Rename renames columns, old name → new name.
type Rename struct {
	Mapping map[string]string
}

func (Rename) stepNode() {}

// Filter keeps rows matching the predicate.
type Filter struct {
	Pred Predicate
}

func (Filter) stepNode() {}

// Mutate appends a computed float column.
type Mutate struct {
	Col  string
	Expr Expr
}

func (Mutate) stepNode() {}

// SortKey is one Arrange key.
type SortKey struct {
	Col  string
	Desc bool
}

// Arrange sorts rows by the keys in order. The sort is stable and Null
// sorts last regardless of direction.
type Arrange struct {
	Keys []SortKey
}

func (Arrange) stepNode() {}

// Distinct keeps the first row for each combination of the named columns
// (all columns when empty).
type Distinct struct {
	Cols []string
}

func (Distinct) stepNode() {}

// Head keeps the first N rows.
type Head struct {
	N int
}

func (Head) stepNode() {}

// Count groups by the named columns and appends an int column "n" with the
// group sizes.
type Count struct {
	Cols []string
}

func (Count) stepNode() {}

// Agg is one summarize aggregation: Out = Fn(Of).
type Agg struct {
	Out string // result column name
	Fn  string // "sum", "mean", "median", "min", "max", "sd", "count", "first"
	Of  string // input column ("" allowed for count)
}

// Summarize groups rows and reduces each group to one row of aggregates.
// Group order is first appearance in the input.
type Summarize struct {
	GroupBy []string
	Aggs    []Agg
}

func (Summarize) stepNode() {}

// Join combines the current table with another dataset on key columns.
// Right-side non-key columns are appended; collisions get a ".y" suffix.
type Join struct {
	With string   // dataset name resolved by the executor
	By   []string // key columns, present on both sides
	Kind string   // "left" or "inner"
}

func (Join) stepNode() {}

// PivotLonger reshapes wide to long: every column outside IDCols becomes a
// (NamesTo, ValuesTo) pair.
type PivotLonger struct {
	IDCols   []string
	NamesTo  string
	ValuesTo string
}

func (PivotLonger) stepNode() {}

// PivotWider reshapes long to wide: distinct values of NamesFrom become
// columns filled from ValuesFrom.
type PivotWider struct {
	NamesFrom  string
	ValuesFrom string
}

func (PivotWider) stepNode() {}

// Predicates.

// Equals is column = literal.
type Equals struct {
	Col   string
	Value ir.Value
}

func (Equals) predicateNode() {}

// In is column ∈ literal set (values OR-combined).
type In struct {
	Col    string
	Values []ir.Value
}

func (In) predicateNode() {}

// Comparison operators for Cmp.
const (
	OpLt = "lt"
	OpLe = "le"
	OpGt = "gt"
	OpGe = "ge"
	OpNe = "ne"
)

// Cmp is column <op> literal. Null cells never match.
type Cmp struct {
	Col   string
	Op    string
	Value ir.Value
}

func (Cmp) predicateNode() {}

// Not negates a predicate. Null semantics are preserved: a Null cell fails
// both Cmp and Not(Cmp), matching the NA propagation of the source files.
type Not struct {
	Pred Predicate
}

func (Not) predicateNode() {}

// And requires all predicates (vacuously true when empty).
type And struct {
	Preds []Predicate
}

func (And) predicateNode() {}

// Or requires at least one predicate (vacuously false when empty).
type Or struct {
	Preds []Predicate
}

func (Or) predicateNode() {}

// Expressions.

// ColRef references a numeric column.
type ColRef struct {
	Name string
}

func (ColRef) exprNode() {}

// Lit is a numeric literal.
type Lit struct {
	Value float64
}

func (Lit) exprNode() {}

// Binary operators for BinaryExpr.
const (
	OpAdd = "add"
	OpSub = "sub"
	OpMul = "mul"
	OpDiv = "div"
)

// BinaryExpr is L <op> R.
type BinaryExpr struct {
	Op string
	L  Expr
	R  Expr
}

func (BinaryExpr) exprNode() {}

// Functions for Call.
const (
	FnLog2  = "log2"
	FnLog10 = "log10"
	FnLn    = "ln"
	FnAbs   = "abs"
	FnNeg   = "neg"
	FnSqrt  = "sqrt"
)

// Call applies a unary function.
type Call struct {
	Fn string
	X  Expr
}

func (Call) exprNode() {}
