package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// ValueKind identifies which variant of a Value is populated.
type ValueKind string

const (
	KindBool    ValueKind = "bool"
	KindInt32   ValueKind = "int32"
	KindInt64   ValueKind = "int64"
	KindFloat32 ValueKind = "float32"
	KindFloat64 ValueKind = "float64"
	KindString  ValueKind = "string"
)

// Value is a tagged scalar exchanged with the vehicle bridge. Exactly one
// variant is populated, identified by Kind. Values are immutable once built;
// use the constructors below.
type Value struct {
	Kind    ValueKind `json:"kind"`
	Bool    bool      `json:"bool,omitempty"`
	Int32   int32     `json:"int32,omitempty"`
	Int64   int64     `json:"int64,omitempty"`
	Float32 float32   `json:"float32,omitempty"`
	Float64 float64   `json:"float64,omitempty"`
	Str     string    `json:"string,omitempty"`
}

func BoolValue(v bool) Value       { return Value{Kind: KindBool, Bool: v} }
func Int32Value(v int32) Value     { return Value{Kind: KindInt32, Int32: v} }
func Int64Value(v int64) Value     { return Value{Kind: KindInt64, Int64: v} }
func Float32Value(v float32) Value { return Value{Kind: KindFloat32, Float32: v} }
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, Float64: v} }
func StringValue(v string) Value   { return Value{Kind: KindString, Str: v} }

// Value grammars, tested in priority order. First match wins; there is no
// backtracking across categories.
var (
	int32Pattern   = regexp.MustCompile(`^[0-9]+$`)
	int64Pattern   = regexp.MustCompile(`^[0-9]+L$`)
	float32Pattern = regexp.MustCompile(`^[0-9]+\.[0-9]+[fF]$`)
	float64Pattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)
)

// ParseValue turns free-form text into a Value. It never fails: text matching
// none of the typed grammars becomes a string value. "3L" parses as int64 3;
// "12abc" falls through to string.
func ParseValue(text string) Value {
	trimmed := strings.TrimSpace(text)

	switch {
	case trimmed == "true":
		return BoolValue(true)
	case trimmed == "false":
		return BoolValue(false)
	case int32Pattern.MatchString(trimmed):
		if n, err := strconv.ParseInt(trimmed, 10, 32); err == nil {
			return Int32Value(int32(n))
		}
	case int64Pattern.MatchString(trimmed):
		if n, err := strconv.ParseInt(trimmed[:len(trimmed)-1], 10, 64); err == nil {
			return Int64Value(n)
		}
	case float32Pattern.MatchString(trimmed):
		if f, err := strconv.ParseFloat(trimmed[:len(trimmed)-1], 32); err == nil {
			return Float32Value(float32(f))
		}
	case float64Pattern.MatchString(trimmed):
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Float64Value(f)
		}
	}

	return StringValue(trimmed)
}

// String renders the populated variant for display.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt32:
		return strconv.FormatInt(int64(v.Int32), 10)
	case KindInt64:
		return strconv.FormatInt(v.Int64, 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(v.Float32), 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.Float64, 'g', -1, 64)
	case KindString:
		return v.Str
	}
	return ""
}
