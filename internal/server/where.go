package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

// wherePredicate parses "column op value" query parameters into a
// conjunction. Values are typed by inspection: number, then bool, then
// string, with "NA" meaning Null.
func wherePredicate(clauses []string) (pipeline.Predicate, error) {
	var preds []pipeline.Predicate
	for _, clause := range clauses {
		fields := strings.Fields(clause)
		if len(fields) != 3 {
			return nil, fmt.Errorf("where clause %q: want \"column op value\"", clause)
		}
		p, err := clausePredicate(whereClause{Col: fields[0], Op: fields[1], Value: fields[2]})
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return pipeline.And{Preds: preds}, nil
	}
}

func clausePredicate(w whereClause) (pipeline.Predicate, error) {
	value, err := clauseValue(w.Value)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", w.Col, err)
	}
	switch w.Op {
	case "eq":
		return pipeline.Equals{Col: w.Col, Value: value}, nil
	case pipeline.OpLt, pipeline.OpLe, pipeline.OpGt, pipeline.OpGe, pipeline.OpNe:
		return pipeline.Cmp{Col: w.Col, Op: w.Op, Value: value}, nil
	default:
		return nil, fmt.Errorf("column %q: unknown op %q (want eq, ne, lt, le, gt, ge)", w.Col, w.Op)
	}
}

// clauseValue converts a JSON or query-string value into an ir.Value.
func clauseValue(raw any) (ir.Value, error) {
	switch x := raw.(type) {
	case nil:
		return ir.Null{}, nil
	case bool:
		return ir.Bool(x), nil
	case float64:
		if x == float64(int64(x)) {
			return ir.Int(int64(x)), nil
		}
		return ir.Float(x), nil
	case string:
		if x == "NA" {
			return ir.Null{}, nil
		}
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return ir.Int(i), nil
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return ir.Float(f), nil
		}
		if b, err := strconv.ParseBool(x); err == nil {
			return ir.Bool(b), nil
		}
		return ir.String(x), nil
	default:
		return nil, fmt.Errorf("unsupported value %v (%T)", raw, raw)
	}
}
