// Package sorting holds the list sort state shared by every list view and
// the generic stable sort that applies it.
package sorting

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// State is the current sort field and direction.
type State struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// ParseState builds a State from query values. Unknown directions mean Asc.
func ParseState(field, dir string) State {
	d := Asc
	if strings.EqualFold(dir, string(Desc)) {
		d = Desc
	}
	return State{Field: strings.TrimSpace(field), Direction: d}
}

// Toggle flips the direction when field is already selected and otherwise
// selects field ascending.
func (s State) Toggle(field string) State {
	if s.Field == field {
		if s.Direction == Asc {
			return State{Field: field, Direction: Desc}
		}
		return State{Field: field, Direction: Asc}
	}
	return State{Field: field, Direction: Asc}
}

type config[T any] struct {
	completed func(T) bool
	compare   func(a, b T) int
	accessor  func(item T, field string) (any, bool)
}

type Option[T any] func(*config[T])

// CompletedLast partitions completed items after open ones regardless of the
// sort field or direction.
func CompletedLast[T any](completed func(T) bool) Option[T] {
	return func(c *config[T]) { c.completed = completed }
}

// WithCompare replaces the default comparison for the selected field. It
// should order ascending; Desc is applied by Sort.
func WithCompare[T any](compare func(a, b T) int) Option[T] {
	return func(c *config[T]) { c.compare = compare }
}

// WithAccessor replaces reflection-based field lookup.
func WithAccessor[T any](accessor func(item T, field string) (any, bool)) Option[T] {
	return func(c *config[T]) { c.accessor = accessor }
}

// Sort returns a stably sorted copy of items.
func Sort[T any](items []T, st State, opts ...Option[T]) []T {
	var c config[T]
	for _, opt := range opts {
		opt(&c)
	}
	if c.accessor == nil {
		c.accessor = Field[T]
	}

	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		if c.completed != nil {
			ca, cb := c.completed(a), c.completed(b)
			if ca != cb {
				if ca {
					return 1
				}
				return -1
			}
		}
		if st.Field == "" {
			return 0
		}

		var r int
		if c.compare != nil {
			r = c.compare(a, b)
		} else {
			va, _ := c.accessor(a, st.Field)
			vb, _ := c.accessor(b, st.Field)
			r = Compare(va, vb)
		}
		if st.Direction == Desc {
			r = -r
		}
		return r
	})
	return out
}

// Compare orders two field values ascending with nil last. Strings compare
// case-insensitively, then times, then numbers; anything else compares by
// its printed form.
func Compare(a, b any) int {
	a, b = deref(a), deref(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if sa, ok := asString(a); ok {
		if sb, ok := asString(b); ok {
			if r := strings.Compare(strings.ToLower(sa), strings.ToLower(sb)); r != 0 {
				return r
			}
			return strings.Compare(sa, sb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			return cmp.Compare(na, nb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func asNumber(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

var fieldIndex sync.Map // reflect.Type -> map[string]fieldRef

type fieldRef struct {
	index     []int
	omitEmpty bool
}

// Field reads a struct field by its JSON name (or Go name, case-insensitive).
// Pointer fields are returned as-is so nil sorts as null. A zero value in an
// omitempty field is absent from the JSON form and is reported as nil too.
func Field[T any](item T, name string) (any, bool) {
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	ref, ok := indexFor(rv.Type())[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	fv := rv.FieldByIndex(ref.index)
	if ref.omitEmpty && fv.IsZero() {
		return nil, true
	}
	return fv.Interface(), true
}

func indexFor(t reflect.Type) map[string]fieldRef {
	if m, ok := fieldIndex.Load(t); ok {
		return m.(map[string]fieldRef)
	}
	m := make(map[string]fieldRef)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := f.Name
		tag, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag != "" && tag != "-" {
			name = tag
		}
		ref := fieldRef{index: f.Index, omitEmpty: slices.Contains(strings.Split(opts, ","), "omitempty")}
		m[strings.ToLower(name)] = ref
		if _, taken := m[strings.ToLower(f.Name)]; !taken {
			m[strings.ToLower(f.Name)] = ref
		}
	}
	fieldIndex.Store(t, m)
	return m
}
