package query

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// Field is a public, queryable attribute of a model.
type Field struct {
	Column string
	Type   schema.DataType
}

func (f Field) isArray() bool { return strings.HasSuffix(string(f.Type), "[]") }

// Fields maps the JSON name of an attribute (dotted for embedded structs) to its column.
type Fields map[string]Field

var schemaCache sync.Map

// FieldsOf derives the public field table of a gorm model. Attributes hidden
// from JSON (json:"-") and associations are left out, so they can be neither
// filtered, sorted nor projected.
func FieldsOf(model any) (Fields, error) {
	s, err := schema.Parse(model, &schemaCache, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	t := reflect.Indirect(reflect.ValueOf(model)).Type()
	out := Fields{}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		name, ok := jsonPath(t, f.BindNames)
		if !ok {
			continue
		}
		out[name] = Field{Column: f.DBName, Type: f.DataType}
	}
	return out, nil
}

// MustFieldsOf is FieldsOf for package-level tables.
func MustFieldsOf(model any) Fields {
	f, err := FieldsOf(model)
	if err != nil {
		panic(err)
	}
	return f
}

// columnsFor resolves a requested projection name; "location" selects every
// location.* column.
func (fs Fields) columnsFor(name string) []string {
	if f, ok := fs[name]; ok {
		return []string{f.Column}
	}
	var cols []string
	prefix := name + "."
	for k, f := range fs {
		if strings.HasPrefix(k, prefix) {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

func jsonPath(t reflect.Type, names []string) (string, bool) {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		sf, ok := t.FieldByName(n)
		if !ok {
			return "", false
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == "-" {
			return "", false
		}
		if tag == "" {
			tag = n
		}
		parts = append(parts, tag)
		t = sf.Type
	}
	return strings.Join(parts, "."), len(parts) > 0
}
