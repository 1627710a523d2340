package memstore

import (
	"reflect"
	"strings"

	"github.com/c360/genomegate/docstore"
)

// Match reports whether doc satisfies a Mongo-style filter. Supported:
// implicit equality, $eq, $ne, $in, $nin, $gt, $gte, $lt, $lte, $exists,
// $or and $and. Dotted paths descend through nested documents and arrays;
// a condition holds when any reached value satisfies it.
func Match(doc docstore.Document, filter map[string]any) bool {
	for key, cond := range filter {
		switch key {
		case "$or":
			if !anyMatch(doc, cond) {
				return false
			}
		case "$and":
			for _, sub := range toList(cond) {
				if m, ok := toMap(sub); !ok || !Match(doc, m) {
					return false
				}
			}
		default:
			if !matchField(resolve(doc, key), cond) {
				return false
			}
		}
	}
	return true
}

func anyMatch(doc docstore.Document, cond any) bool {
	for _, sub := range toList(cond) {
		if m, ok := toMap(sub); ok && Match(doc, m) {
			return true
		}
	}
	return false
}

func matchField(values []any, cond any) bool {
	ops, isOps := operators(cond)
	if !isOps {
		return containsEqual(values, cond)
	}

	for op, arg := range ops {
		var ok bool
		switch op {
		case "$eq":
			ok = containsEqual(values, arg)
		case "$ne":
			ok = !containsEqual(values, arg)
		case "$in":
			for _, want := range toList(arg) {
				if containsEqual(values, want) {
					ok = true
					break
				}
			}
		case "$nin":
			ok = true
			for _, want := range toList(arg) {
				if containsEqual(values, want) {
					ok = false
					break
				}
			}
		case "$gt", "$gte", "$lt", "$lte":
			for _, v := range values {
				if compareOp(op, v, arg) {
					ok = true
					break
				}
			}
		case "$exists":
			present := len(values) > 0
			want, _ := arg.(bool)
			ok = present == want
		default:
			ok = false
		}
		if !ok {
			return false
		}
	}
	return true
}

func compareOp(op string, v, arg any) bool {
	if !comparable(v, arg) {
		return false
	}
	c := compareValues(v, arg)
	switch op {
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	default:
		return c <= 0
	}
}

func operators(cond any) (map[string]any, bool) {
	m, ok := toMap(cond)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

// resolve collects the values at path, fanning out through arrays. Array
// values are returned both whole and element-wise so equality matches
// either form.
func resolve(doc docstore.Document, path string) []any {
	current := []any{map[string]any(doc)}
	for _, part := range strings.Split(path, ".") {
		var next []any
		for _, c := range current {
			m, ok := toMap(c)
			if !ok {
				continue
			}
			v, exists := m[part]
			if !exists || v == nil {
				continue
			}
			next = append(next, v)
		}
		current = expand(next)
	}
	return current
}

func expand(values []any) []any {
	var out []any
	for _, v := range values {
		if list, ok := asList(v); ok {
			out = append(out, list...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsEqual(values []any, want any) bool {
	for _, v := range values {
		if equal(v, want) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if fa, ok := docstore.ToFloat(a); ok {
		fb, ok := docstore.ToFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func comparable(a, b any) bool {
	_, na := docstore.ToFloat(a)
	_, nb := docstore.ToFloat(b)
	if na || nb {
		return na && nb
	}
	_, sa := a.(string)
	_, sb := b.(string)
	return sa && sb
}

// compareValues orders nil before numbers before strings.
func compareValues(a, b any) int {
	rank := func(v any) int {
		if v == nil {
			return 0
		}
		if _, ok := docstore.ToFloat(v); ok {
			return 1
		}
		if _, ok := v.(string); ok {
			return 2
		}
		return 3
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		fa, _ := docstore.ToFloat(a)
		fb, _ := docstore.ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	case 2:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func toMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toList(v any) []any {
	l, _ := asList(v)
	return l
}
