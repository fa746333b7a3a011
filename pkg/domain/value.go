package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a tagged attribute value: a string, an integer, or a float. The
// zero Value is invalid and reports Kind 0.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v holds no value at all.
func (v Value) IsZero() bool { return v.kind == 0 }

// Str returns the string variant.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int returns the integer variant.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float variant.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// String renders the value as plain text.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	default:
		return ""
	}
}

// Repr renders the value as a Python-style literal: strings quoted, numbers bare.
func (v Value) Repr() string {
	if v.kind == KindString {
		return quoteLiteral(v.s)
	}
	return v.String()
}

// Equal reports whether both values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	default:
		return true
	}
}

// Coerce converts v into kind k when the conversion is lossless.
func (v Value) Coerce(k Kind) (Value, bool) {
	if v.kind == k {
		return v, true
	}
	switch k {
	case KindString:
		return StringValue(v.String()), true
	case KindInt:
		if v.kind == KindString {
			if i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64); err == nil {
				return IntValue(i), true
			}
		}
	case KindFloat:
		switch v.kind {
		case KindInt:
			return FloatValue(float64(v.i)), true
		case KindString:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
				return FloatValue(f), true
			}
		}
	}
	return v, false
}

// MarshalJSON encodes strings as JSON strings and numbers as JSON numbers.
// Floats always carry a fraction or exponent so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return nil, fmt.Errorf("unsupported float value %v", v.f)
		}
		return []byte(formatFloat(v.f)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string or number. Numbers written with a
// fraction or exponent decode as floats, all others as integers. Other JSON
// types are kept verbatim as strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 'n':
		*v = Value{}
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text := string(data)
		if !strings.ContainsAny(text, ".eE") {
			if i, err := strconv.ParseInt(text, 10, 64); err == nil {
				*v = IntValue(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("decode number %q: %w", text, err)
		}
		*v = FloatValue(f)
		return nil
	default:
		*v = StringValue(string(data))
		return nil
	}
}

// formatFloat mirrors Python's float repr: shortest round-trip digits, always
// with a fractional part, switching to exponent form for very large or small
// magnitudes.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// quoteLiteral quotes s the way Python's repr does for str.
func quoteLiteral(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteByte(quote)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
