package query

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"bootcamps/pkg/apperr"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Apply adds the plan to tx: filter, then sort, then projection, then the page
// window. Column names come from fields and are quoted by gorm.
//
// A filter on a field that is not in fields matches nothing; unknown sort and
// projection names are ignored.
func Apply(tx *gorm.DB, p Plan, fields Fields) (*gorm.DB, error) {
	tx, err := applyFilter(tx, p.Filter, fields)
	if err != nil {
		return nil, err
	}
	tx = applySort(tx, p.Sort, fields)
	tx = applyFields(tx, p.Fields, fields)
	limit := p.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	skip := p.Skip()
	if skip < 0 {
		skip = 0
	}
	return tx.Offset(skip).Limit(limit), nil
}

func applyFilter(tx *gorm.DB, f Filter, fields Fields) (*gorm.DB, error) {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fd, ok := fields[name]
		if !ok {
			return tx.Where(clause.Expr{SQL: "1 = 0"}), nil
		}
		for _, c := range f[name] {
			expr, err := condition(name, fd, c)
			if err != nil {
				return nil, err
			}
			tx = tx.Where(expr)
		}
	}
	return tx, nil
}

func condition(name string, fd Field, c Comparison) (clause.Expression, error) {
	col := clause.Column{Name: fd.Column}
	if fd.isArray() {
		switch c.Op {
		case OpEq:
			return clause.Expr{SQL: "? = ANY(?)", Vars: []any{c.Values[0], col}}, nil
		case OpIn:
			return clause.Expr{SQL: "CAST(? AS text[]) && ?", Vars: []any{pq.StringArray(c.Values), col}}, nil
		}
		return nil, apperr.Validation(fmt.Sprintf("Operator %s is not supported on field %s", c.Op, name))
	}
	vals := make([]any, 0, len(c.Values))
	for _, raw := range c.Values {
		v, err := cast(fd.Type, raw)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("Invalid value %q for field %s", raw, name))
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return clause.Expr{SQL: "1 = 0"}, nil
	}
	switch c.Op {
	case OpGt:
		return clause.Gt{Column: col, Value: vals[0]}, nil
	case OpGte:
		return clause.Gte{Column: col, Value: vals[0]}, nil
	case OpLt:
		return clause.Lt{Column: col, Value: vals[0]}, nil
	case OpLte:
		return clause.Lte{Column: col, Value: vals[0]}, nil
	case OpIn:
		return clause.IN{Column: col, Values: vals}, nil
	default:
		return clause.Eq{Column: col, Value: vals[0]}, nil
	}
}

func cast(t schema.DataType, raw string) (any, error) {
	switch t {
	case schema.Bool:
		return strconv.ParseBool(raw)
	case schema.Int:
		return strconv.ParseInt(raw, 10, 64)
	case schema.Uint:
		return strconv.ParseUint(raw, 10, 64)
	case schema.Float:
		return strconv.ParseFloat(raw, 64)
	case schema.Time:
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts, nil
		}
		return time.Parse("2006-01-02", raw)
	default:
		return raw, nil
	}
}

func applySort(tx *gorm.DB, keys []SortKey, fields Fields) *gorm.DB {
	byID := false
	for _, k := range keys {
		fd, ok := fields[k.Field]
		if !ok || fd.isArray() {
			continue
		}
		if fd.Column == "id" {
			byID = true
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: fd.Column}, Desc: k.Desc})
	}
	// stable pages
	if !byID {
		if _, ok := fields["id"]; ok {
			tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
		}
	}
	return tx
}

func applyFields(tx *gorm.DB, names []string, fields Fields) *gorm.DB {
	if len(names) == 0 {
		return tx
	}
	cols := []string{"id"}
	seen := map[string]bool{"id": true}
	for _, n := range names {
		for _, c := range fields.columnsFor(n) {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return tx.Select(cols)
}
