package state

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindFloats Kind = "floats"
	KindInts   Kind = "ints"
	KindList   Kind = "list"
)

// Value is a tagged optimizer-state value. Exactly one payload field is
// meaningful, selected by Kind. Use the constructors rather than building
// Values by hand.
type Value struct {
	Kind   Kind
	Int    int64
	Float  float64
	Str    string
	Bool   bool
	Floats []float64
	Ints   []int64
	List   []Value
}

// Map is optimizer state keyed by name
type Map map[string]Value

func Int(v int64) Value         { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value     { return Value{Kind: KindFloat, Float: v} }
func String(v string) Value     { return Value{Kind: KindString, Str: v} }
func Bool(v bool) Value         { return Value{Kind: KindBool, Bool: v} }
func Floats(v ...float64) Value { return Value{Kind: KindFloats, Floats: v} }
func Ints(v ...int64) Value     { return Value{Kind: KindInts, Ints: v} }
func List(v ...Value) Value     { return Value{Kind: KindList, List: v} }

// Equal reports whether two values hold the same variant and payload.
// NaN compares equal to NaN so that decoded state can be checked exactly.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return floatEqual(v.Float, o.Float)
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindFloats:
		if len(v.Floats) != len(o.Floats) {
			return false
		}
		for i := range v.Floats {
			if !floatEqual(v.Floats[i], o.Floats[i]) {
				return false
			}
		}
		return true
	case KindInts:
		if len(v.Ints) != len(o.Ints) {
			return false
		}
		for i := range v.Ints {
			if v.Ints[i] != o.Ints[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Equal reports whether both maps hold the same keys with equal values
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the map's keys in sorted order
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func floatEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// wireValue is the JSON form: {"type": "...", "value": ...}
type wireValue struct {
	Type  Kind            `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes v with an explicit type tag. Ints are written as
// decimal strings and non-finite floats as "NaN", "+Inf" or "-Inf" so that
// every value survives a round trip through JSON unchanged.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.Kind {
	case KindInt:
		payload = strconv.FormatInt(v.Int, 10)
	case KindFloat:
		payload = encodeFloat(v.Float)
	case KindString:
		payload = v.Str
	case KindBool:
		payload = v.Bool
	case KindFloats:
		fs := make([]interface{}, len(v.Floats))
		for i, f := range v.Floats {
			fs[i] = encodeFloat(f)
		}
		payload = fs
	case KindInts:
		is := make([]string, len(v.Ints))
		for i, n := range v.Ints {
			is[i] = strconv.FormatInt(n, 10)
		}
		payload = is
	case KindList:
		list := v.List
		if list == nil {
			list = []Value{}
		}
		payload = list
	default:
		return nil, fmt.Errorf("state: cannot encode value of kind %q", v.Kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.Kind, Value: raw})
}

// UnmarshalJSON decodes the tagged form written by MarshalJSON
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Value{Kind: w.Type}
	switch w.Type {
	case KindInt:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("state: int value: %w", err)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("state: int value: %w", err)
		}
		out.Int = n
	case KindFloat:
		f, err := decodeFloat(w.Value)
		if err != nil {
			return err
		}
		out.Float = f
	case KindString:
		if err := json.Unmarshal(w.Value, &out.Str); err != nil {
			return fmt.Errorf("state: string value: %w", err)
		}
	case KindBool:
		if err := json.Unmarshal(w.Value, &out.Bool); err != nil {
			return fmt.Errorf("state: bool value: %w", err)
		}
	case KindFloats:
		var raws []json.RawMessage
		if err := json.Unmarshal(w.Value, &raws); err != nil {
			return fmt.Errorf("state: floats value: %w", err)
		}
		out.Floats = make([]float64, len(raws))
		for i, r := range raws {
			f, err := decodeFloat(r)
			if err != nil {
				return err
			}
			out.Floats[i] = f
		}
	case KindInts:
		var ss []string
		if err := json.Unmarshal(w.Value, &ss); err != nil {
			return fmt.Errorf("state: ints value: %w", err)
		}
		out.Ints = make([]int64, len(ss))
		for i, s := range ss {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("state: ints value: %w", err)
			}
			out.Ints[i] = n
		}
	case KindList:
		if err := json.Unmarshal(w.Value, &out.List); err != nil {
			return fmt.Errorf("state: list value: %w", err)
		}
		if out.List == nil {
			out.List = []Value{}
		}
	default:
		return fmt.Errorf("state: unknown value type %q", w.Type)
	}

	*v = out
	return nil
}

func encodeFloat(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}

func decodeFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("state: float value: %w", err)
	}
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "+Inf":
		return math.Inf(1), nil
	case "-Inf":
		return math.Inf(-1), nil
	}
	return 0, fmt.Errorf("state: float value: unexpected %q", s)
}
