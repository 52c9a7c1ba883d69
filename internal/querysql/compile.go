package querysql

import (
	"fmt"
	"strings"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

// Query is the SQL-portable prefix of an analysis: a column projection and a
// row predicate against one stored dataset. Everything past the prefix
// (mutate, summarize, joins, pivots) runs in memory.
type Query struct {
	Dataset string
	Cols    []string // nil means all columns
	Pred    pipeline.Predicate
	Limit   int // 0 means no limit
	Offset  int // 0 means no offset
}

// SplitPrefix peels the leading store-portable steps off a pipeline.
// Select and Filter steps compile to SQL; the first step of any other type
// ends the prefix and is returned with everything after it. Folding must
// preserve step order: SQL evaluates WHERE before LIMIT, so a Head always
// ends the prefix, and a Filter behind a projection folds only when every
// column it reads survives the projection.
func SplitPrefix(dataset string, steps []pipeline.Step) (Query, []pipeline.Step) {
	q := Query{Dataset: dataset}
	for i, step := range steps {
		switch s := step.(type) {
		case pipeline.Select:
			if q.Cols != nil {
				// A second projection cannot widen the first; stop here.
				return q, steps[i:]
			}
			q.Cols = s.Cols
		case pipeline.Filter:
			if q.Cols != nil && !predicateWithin(s.Pred, q.Cols) {
				return q, steps[i:]
			}
			if q.Pred == nil {
				q.Pred = s.Pred
			} else {
				q.Pred = pipeline.And{Preds: []pipeline.Predicate{q.Pred, s.Pred}}
			}
		case pipeline.Head:
			q.Limit = s.N
			rest := steps[i+1:]
			if len(rest) == 0 {
				rest = nil
			}
			return q, rest
		default:
			return q, steps[i:]
		}
	}
	return q, nil
}

// predicateWithin reports whether every column the predicate reads is in cols.
func predicateWithin(p pipeline.Predicate, cols []string) bool {
	allowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}
	return predicateReadsOnly(p, allowed)
}

func predicateReadsOnly(p pipeline.Predicate, allowed map[string]bool) bool {
	switch pred := p.(type) {
	case pipeline.Equals:
		return allowed[pred.Col]
	case pipeline.In:
		return allowed[pred.Col]
	case pipeline.Cmp:
		return allowed[pred.Col]
	case pipeline.Not:
		return predicateReadsOnly(pred.Pred, allowed)
	case pipeline.And:
		for _, sub := range pred.Preds {
			if !predicateReadsOnly(sub, allowed) {
				return false
			}
		}
		return true
	case pipeline.Or:
		for _, sub := range pred.Preds {
			if !predicateReadsOnly(sub, allowed) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compile converts a Query to parameterized SQLite SQL.
//
// Every query carries ORDER BY rowid ASC so results are deterministic, and
// every value travels as a ? parameter, never interpolated into the SQL text.
func Compile(q Query) (string, []any, error) {
	if q.Dataset == "" {
		return "", nil, fmt.Errorf("querysql: query has no dataset")
	}
	tbl, err := QuoteIdent("ds_" + q.Dataset)
	if err != nil {
		return "", nil, fmt.Errorf("querysql: dataset name: %w", err)
	}

	selectClause := "*"
	if len(q.Cols) > 0 {
		parts := make([]string, len(q.Cols))
		for i, col := range q.Cols {
			ident, err := QuoteIdent(col)
			if err != nil {
				return "", nil, fmt.Errorf("querysql: column: %w", err)
			}
			parts[i] = ident
		}
		selectClause = strings.Join(parts, ", ")
	}

	var where string
	var params []any
	if q.Pred != nil {
		predSQL, predParams, err := compilePredicate(q.Pred)
		if err != nil {
			return "", nil, fmt.Errorf("querysql: %w", err)
		}
		where = " WHERE " + predSQL
		params = predParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY rowid ASC", selectClause, tbl, where)
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, int64(q.Limit))
	} else if q.Offset > 0 {
		// SQLite only accepts OFFSET after LIMIT; -1 means unbounded.
		sql += " LIMIT -1"
	}
	if q.Offset > 0 {
		sql += " OFFSET ?"
		params = append(params, int64(q.Offset))
	}
	return sql, params, nil
}

// compilePredicate compiles a pipeline.Predicate to a WHERE fragment.
// SQLite's three-valued logic matches the in-memory Filter semantics: a
// comparison against NULL is unknown, and unknown rows are dropped, so
// NOT(p) never resurrects NA rows.
func compilePredicate(p pipeline.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case pipeline.Equals:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, err
		}
		ident, err := QuoteIdent(pred.Col)
		if err != nil {
			return "", nil, err
		}
		return ident + " = ?", []any{param}, nil

	case pipeline.In:
		if len(pred.Values) == 0 {
			return "1 = 0", nil, nil
		}
		ident, err := QuoteIdent(pred.Col)
		if err != nil {
			return "", nil, err
		}
		placeholders := make([]string, len(pred.Values))
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			param, err := valueToParam(v)
			if err != nil {
				return "", nil, err
			}
			placeholders[i] = "?"
			params[i] = param
		}
		return fmt.Sprintf("%s IN (%s)", ident, strings.Join(placeholders, ", ")), params, nil

	case pipeline.Cmp:
		op, err := cmpOpSQL(pred.Op)
		if err != nil {
			return "", nil, err
		}
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, err
		}
		ident, err := QuoteIdent(pred.Col)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", ident, op), []any{param}, nil

	case pipeline.Not:
		inner, params, err := compilePredicate(pred.Pred)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil

	case pipeline.And:
		return compileJunction(pred.Preds, " AND ", "1 = 1")

	case pipeline.Or:
		return compileJunction(pred.Preds, " OR ", "1 = 0")

	default:
		return "", nil, fmt.Errorf("unsupported predicate type %T", p)
	}
}

func compileJunction(preds []pipeline.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	var parts []string
	var allParams []any
	for _, p := range preds {
		sql, params, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		allParams = append(allParams, params...)
	}
	return strings.Join(parts, sep), allParams, nil
}

func cmpOpSQL(op string) (string, error) {
	switch op {
	case pipeline.OpLt:
		return "<", nil
	case pipeline.OpLe:
		return "<=", nil
	case pipeline.OpGt:
		return ">", nil
	case pipeline.OpGe:
		return ">=", nil
	case pipeline.OpNe:
		return "<>", nil
	default:
		return "", fmt.Errorf("unsupported comparison op %q", op)
	}
}

// valueToParam converts an ir.Value to a driver-native SQL parameter.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("value type %T cannot be a SQL parameter", v)
	}
}

// QuoteIdent wraps an identifier in double quotes for SQLite. Identifiers
// come from dataset headers, not user SQL, but quoting keeps names with
// dots or spaces (and the ".y" join suffix) valid.
func QuoteIdent(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty identifier")
	}
	if strings.ContainsAny(name, "\"\x00\n\r") {
		return "", fmt.Errorf("identifier %q contains forbidden characters", name)
	}
	return `"` + name + `"`, nil
}
