package postgres

import (
	"reflect"
	"sync"
)

// column maps a "db" tag to the field index path, embedded structs included.
type column struct {
	name  string
	index []int
}

var columnPlans sync.Map // reflect.Type -> []column

// columnsOf flattens the tagged fields of t in declaration order. Embedded
// structs (entity.Document, entity.CurrencyAware) contribute their columns in
// place. Fields tagged "-" or untagged are skipped.
func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnPlans.Load(t); ok {
		return cached.([]column)
	}

	var plan []column
	if t.Kind() == reflect.Struct {
		var walk func(reflect.Type, []int)
		walk = func(st reflect.Type, prefix []int) {
			for i := range st.NumField() {
				f := st.Field(i)
				path := append(append([]int(nil), prefix...), i)
				if f.Anonymous && f.Type.Kind() == reflect.Struct {
					walk(f.Type, path)
					continue
				}
				if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
					plan = append(plan, column{name: tag, index: path})
				}
			}
		}
		walk(t, nil)
	}

	columnPlans.Store(t, plan)
	return plan
}

// ExtractDBColumns lists the columns of T for SELECT and INSERT statements.
//
//	cols := ExtractDBColumns[purchase_bill.PurchaseBill]()
func ExtractDBColumns[T any]() []string {
	plan := columnsOf(reflect.TypeFor[T]())
	cols := make([]string, len(plan))
	for i, c := range plan {
		cols[i] = c.name
	}
	return cols
}

// StructToMap returns column -> value for a struct or pointer to struct, the
// shape squirrel's SetMap expects. Anything else yields nil.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	plan := columnsOf(rv.Type())
	out := make(map[string]any, len(plan))
	for _, c := range plan {
		out[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return out
}
