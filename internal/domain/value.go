package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Value is one node of a decoded provider payload: null, string, number,
// bool, object or array. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	obj  map[string]Value
	arr  []Value
}

// ParseValue decodes a JSON document into a Value tree.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decode payload: %w", err)
	}
	return ValueOf(raw), nil
}

// ValueOf converts a decoded Go value (as produced by encoding/json or built
// by hand) into a Value. Unsupported types become null.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case string:
		return Value{kind: KindString, str: t}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{kind: KindString, str: t.String()}
		}
		return Value{kind: KindNumber, num: f}
	case float64:
		return Value{kind: KindNumber, num: t}
	case float32:
		return Value{kind: KindNumber, num: float64(t)}
	case int:
		return Value{kind: KindNumber, num: float64(t)}
	case int64:
		return Value{kind: KindNumber, num: float64(t)}
	case bool:
		return Value{kind: KindBool, b: t}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = ValueOf(e)
		}
		return Value{kind: KindObject, obj: obj}
	case map[string]string:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = Value{kind: KindString, str: e}
		}
		return Value{kind: KindObject, obj: obj}
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = ValueOf(e)
		}
		return Value{kind: KindArray, arr: arr}
	case []Value:
		return Value{kind: KindArray, arr: t}
	case []string:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = Value{kind: KindString, str: e}
		}
		return Value{kind: KindArray, arr: arr}
	default:
		return Value{}
	}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null or was never set.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsObject reports whether v is an object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// Items returns the elements of an array, or nil.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Get returns the direct child under key, matched case-insensitively.
// An exact match wins over a case-folded one.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	if c, ok := v.obj[key]; ok {
		return c
	}
	for _, k := range v.sortedKeys() {
		if strings.EqualFold(k, key) {
			return v.obj[k]
		}
	}
	return Value{}
}

// Lookup returns the first non-empty direct child among keys, in order.
func (v Value) Lookup(keys ...string) Value {
	for _, k := range keys {
		if c := v.Get(k); !c.empty() {
			return c
		}
	}
	return Value{}
}

// Find searches v breadth-first for the first non-empty node stored under any
// of keys (case-insensitive). Shallower matches win; at the same node the
// earlier key in keys wins; siblings are visited in sorted key order.
func (v Value) Find(keys ...string) Value {
	queue := []Value{v}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		switch node.kind {
		case KindObject:
			if c := node.Lookup(keys...); !c.empty() {
				return c
			}
			for _, k := range node.sortedKeys() {
				if c := node.obj[k]; c.kind == KindObject || c.kind == KindArray {
					queue = append(queue, c)
				}
			}
		case KindArray:
			for _, c := range node.arr {
				if c.kind == KindObject || c.kind == KindArray {
					queue = append(queue, c)
				}
			}
		}
	}
	return Value{}
}

// FindString is Find followed by Str.
func (v Value) FindString(keys ...string) string {
	return v.Find(keys...).Str()
}

// Str renders a scalar as trimmed text. Objects, arrays and null render as "".
func (v Value) Str() string {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.str)
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float returns a numeric reading of v. Numeric strings are accepted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns a boolean reading of v. "true", "1" and "yes" count as true.
func (v Value) Bool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

// Interface converts v back to plain Go values.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindObject:
		m := make(map[string]any, len(v.obj))
		for k, c := range v.obj {
			m[k] = c.Interface()
		}
		return m
	case KindArray:
		s := make([]any, len(v.arr))
		for i, c := range v.arr {
			s[i] = c.Interface()
		}
		return s
	default:
		return nil
	}
}

// MarshalJSON encodes v as its JSON equivalent.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FirstList locates the record list in a provider response: the value itself
// when it is an array, else the first array found under data, rows or result,
// else the first array child in sorted key order.
func FirstList(v Value) []Value {
	switch v.kind {
	case KindArray:
		return v.arr
	case KindObject:
		for _, k := range []string{"data", "rows", "result"} {
			if c := v.Get(k); c.kind == KindArray {
				return c.arr
			}
		}
		for _, k := range v.sortedKeys() {
			if c := v.obj[k]; c.kind == KindArray {
				return c.arr
			}
		}
	}
	return nil
}

func (v Value) empty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	case KindObject:
		return len(v.obj) == 0
	case KindArray:
		return len(v.arr) == 0
	default:
		return false
	}
}

func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
