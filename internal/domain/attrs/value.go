// Package attrs implements the attribute bag attached to movies and the
// filter/sort engine that runs over it.
//
// Attribute values are a closed set of kinds. Scalars (null, string, number,
// bool) are comparable and filterable; arrays and objects returned by the
// metadata provider are kept as opaque raw JSON so they round-trip unchanged.
package attrs

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind enumerates the variants an attribute value can take.
// The numeric order matches Postgres jsonb ordering across types.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a single attribute value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	// raw holds the original JSON text for numbers and composites.
	raw []byte
}

// Null returns a JSON null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Truth returns the boolean payload and whether v is a bool.
func (v Value) Truth() (bool, bool) { return v.b, v.kind == KindBool }

// Equal reports whether two values are the same kind with the same payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && compareSameKind(v, o) == 0
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if len(v.raw) > 0 {
			return v.raw, nil
		}
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindArray, KindObject:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidValue
	}
	switch data[0] {
	case 'n':
		*v = Null()
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[':
		*v = Value{kind: KindArray, raw: compact(data)}
	case '{':
		*v = Value{kind: KindObject, raw: compact(data)}
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return ErrInvalidValue
		}
		*v = Value{kind: KindNumber, num: f, raw: append([]byte(nil), data...)}
	}
	return nil
}

func compact(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return append([]byte(nil), data...)
	}
	return buf.Bytes()
}

// compare orders two present values: first by kind, then by payload.
func compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	return compareSameKind(a, b)
}

func compareSameKind(a, b Value) int {
	switch a.kind {
	case KindString:
		switch {
		case a.str < b.str:
			return -1
		case a.str > b.str:
			return 1
		}
		return 0
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	case KindArray, KindObject:
		return bytes.Compare(a.raw, b.raw)
	default:
		return 0
	}
}
