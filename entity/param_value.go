package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

type ParamKind int

const (
	ParamNull ParamKind = iota
	ParamString
	ParamInt
	ParamFloat
	ParamBool
	ParamBinary
)

// ParamValue is an opaque, displayable bind value. The profiler never
// interprets params; they exist for counts and debug output only.
type ParamValue struct {
	Kind  ParamKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Bytes []byte
}

func NullParam() ParamValue           { return ParamValue{Kind: ParamNull} }
func StringParam(s string) ParamValue { return ParamValue{Kind: ParamString, Str: s} }
func IntParam(n int64) ParamValue     { return ParamValue{Kind: ParamInt, Int: n} }
func FloatParam(f float64) ParamValue { return ParamValue{Kind: ParamFloat, Float: f} }
func BoolParam(b bool) ParamValue     { return ParamValue{Kind: ParamBool, Bool: b} }
func BinaryParam(b []byte) ParamValue { return ParamValue{Kind: ParamBinary, Bytes: b} }

// ParamsFromArgs converts driver-level bind arguments into displayable
// values. Unknown types fall back to their fmt representation.
func ParamsFromArgs(args ...interface{}) []ParamValue {
	if len(args) == 0 {
		return nil
	}
	params := make([]ParamValue, 0, len(args))
	for _, arg := range args {
		params = append(params, paramFromArg(arg))
	}
	return params
}

func paramFromArg(arg interface{}) ParamValue {
	switch v := arg.(type) {
	case nil:
		return NullParam()
	case string:
		return StringParam(v)
	case bool:
		return BoolParam(v)
	case int:
		return IntParam(int64(v))
	case int32:
		return IntParam(int64(v))
	case int64:
		return IntParam(v)
	case uint64:
		return IntParam(int64(v))
	case float32:
		return FloatParam(float64(v))
	case float64:
		return FloatParam(v)
	case []byte:
		return BinaryParam(v)
	case time.Time:
		return StringParam(v.Format(time.RFC3339Nano))
	default:
		return StringParam(fmt.Sprintf("%v", v))
	}
}

func (p ParamValue) String() string {
	switch p.Kind {
	case ParamNull:
		return "null"
	case ParamString:
		return p.Str
	case ParamInt:
		return fmt.Sprintf("%d", p.Int)
	case ParamFloat:
		return fmt.Sprintf("%g", p.Float)
	case ParamBool:
		return fmt.Sprintf("%t", p.Bool)
	case ParamBinary:
		return fmt.Sprintf("<%d bytes>", len(p.Bytes))
	default:
		return ""
	}
}

// MarshalJSON renders the displayable form so archived profiles stay
// readable without carrying the kind discriminator around.
func (p ParamValue) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParamNull:
		return []byte("null"), nil
	case ParamInt:
		return json.Marshal(p.Int)
	case ParamFloat:
		return json.Marshal(p.Float)
	case ParamBool:
		return json.Marshal(p.Bool)
	default:
		return json.Marshal(p.String())
	}
}
