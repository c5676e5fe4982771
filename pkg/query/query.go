// Package query turns a request's query string into a read plan (filter, sort,
// projection, page window) and applies that plan to a gorm query.
//
// Plans are plain values built by pure functions: the same query string always
// yields the same Plan, whatever order its parts were parsed in.
package query

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	DefaultSort  = "-createdAt"
)

// Op is a filter comparison.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// opOrder fixes the order comparisons on the same field are listed in.
var opOrder = map[Op]int{OpEq: 0, OpIn: 1, OpGt: 2, OpGte: 3, OpLt: 4, OpLte: 5}

var reserved = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

// field[op] notation, e.g. averageCost[gte]=1000
var bracketRE = regexp.MustCompile(`^([^\[\]]+)\[(eq|gt|gte|lt|lte|in)\]$`)

// Comparison is one predicate on a field. Values has one element except for OpIn.
type Comparison struct {
	Op     Op
	Values []string
}

// Filter maps a public field name to the comparisons applied to it.
type Filter map[string][]Comparison

// SortKey is one ordering term.
type SortKey struct {
	Field string
	Desc  bool
}

// Plan is the structured description of a read, independent of execution.
type Plan struct {
	Filter Filter
	Sort   []SortKey
	Fields []string
	Page   int
	Limit  int
}

// Skip is the number of rows before the page window.
func (p Plan) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Build parses every part of raw into a Plan.
func Build(raw url.Values) Plan {
	page, limit := ParsePagination(raw.Get("page"), raw.Get("limit"))
	return Plan{
		Filter: ParseFilter(raw),
		Sort:   ParseSort(raw.Get("sort")),
		Fields: ParseFields(raw.Get("fields")),
		Page:   page,
		Limit:  limit,
	}
}

// ParseFilter strips the reserved keys and turns the rest into comparisons.
// Field names are not checked here; see Apply.
func ParseFilter(raw url.Values) Filter {
	f := Filter{}
	for key, vals := range raw {
		if _, ok := reserved[key]; ok || len(vals) == 0 {
			continue
		}
		// repeated keys: last one wins
		v := vals[len(vals)-1]
		field, op := key, OpEq
		if m := bracketRE.FindStringSubmatch(key); m != nil {
			field, op = m[1], Op(m[2])
		}
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := reserved[field]; ok {
			continue
		}
		c := Comparison{Op: op, Values: []string{v}}
		if op == OpIn {
			c.Values = splitList(v)
		}
		f[field] = append(f[field], c)
	}
	for field := range f {
		cs := f[field]
		sort.SliceStable(cs, func(i, j int) bool { return opOrder[cs[i].Op] < opOrder[cs[j].Op] })
	}
	return f
}

// ParseSort reads a comma separated list where a leading '-' means descending.
func ParseSort(s string) []SortKey {
	parts := splitList(s)
	if len(parts) == 0 {
		parts = []string{DefaultSort}
	}
	keys := make([]SortKey, 0, len(parts))
	for _, p := range parts {
		k := SortKey{Field: p}
		if strings.HasPrefix(p, "-") {
			k = SortKey{Field: strings.TrimPrefix(p, "-"), Desc: true}
		}
		if k.Field == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ParseSort(DefaultSort)
	}
	return keys
}

// ParseFields reads the projection list. Nil means every field.
func ParseFields(s string) []string {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// ParsePagination never fails: anything that is not a positive integer falls
// back to the default.
func ParsePagination(page, limit string) (int, int) {
	return positiveOr(page, DefaultPage), positiveOr(limit, DefaultLimit)
}

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
