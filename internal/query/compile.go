package query

import (
	"fmt"
	"strings"
)

// Fields maps logical field names to SQL column expressions.
type Fields map[string]string

// Compile converts p into a WHERE fragment and its parameters. A nil
// predicate compiles to "1 = 1".
func Compile(p Predicate, fields Fields) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred, fields)
	case *Equals:
		return compileEquals(*pred, fields)
	case In:
		return compileIn(pred, fields)
	case *In:
		return compileIn(*pred, fields)
	case Like:
		return compileLike(pred, fields)
	case *Like:
		return compileLike(*pred, fields)
	case And:
		return compileAnd(pred, fields)
	case *And:
		return compileAnd(*pred, fields)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func column(fields Fields, name string) (string, error) {
	col, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return col, nil
}

func param(v any) (any, error) {
	switch val := v.(type) {
	case string, int64:
		return val, nil
	case int:
		return int64(val), nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func compileEquals(eq Equals, fields Fields) (string, []any, error) {
	col, err := column(fields, eq.Field)
	if err != nil {
		return "", nil, err
	}
	v, err := param(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", eq.Field, err)
	}
	return col + " = ?", []any{v}, nil
}

func compileIn(in In, fields Fields) (string, []any, error) {
	col, err := column(fields, in.Field)
	if err != nil {
		return "", nil, err
	}
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}
	params := make([]any, len(in.Values))
	for i, raw := range in.Values {
		v, err := param(raw)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", in.Field, err)
		}
		params[i] = v
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
	return fmt.Sprintf("%s IN (%s)", col, placeholders), params, nil
}

func compileLike(like Like, fields Fields) (string, []any, error) {
	col, err := column(fields, like.Field)
	if err != nil {
		return "", nil, err
	}
	return col + ` LIKE ? ESCAPE '\'`, []any{like.Pattern}, nil
}

func compileAnd(and And, fields Fields) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, ps, err := Compile(p, fields)
		if err != nil {
			return "", nil, err
		}
		if _, nested := p.(And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// EscapeLike escapes LIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
