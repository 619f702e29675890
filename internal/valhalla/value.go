package valhalla

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// TimestampLayout is the canonical text form of timestamps sent to the store
// (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindTimestamp
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindTimestamp:
		return "timestamp"
	case KindJSON:
		return "json"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a positional statement parameter.
type Value struct {
	kind Kind
	text string
	num  int64
}

var Null = Value{kind: KindNull}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func Int(n int64) Value {
	return Value{kind: KindInt, num: n}
}

func Timestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, text: FormatTimestamp(t)}
}

func NullableInt(n *int64) Value {
	if n == nil {
		return Null
	}
	return Int(*n)
}

func NullableTimestamp(t *time.Time) Value {
	if t == nil {
		return Null
	}
	return Timestamp(*t)
}

// JSON serializes v to JSON text. An absent payload (nil, or a nil map,
// slice or pointer) is NULL.
func JSON(v any) (Value, error) {
	if isNil(v) {
		return Null, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Null, fmt.Errorf("%w: cannot serialize payload: %v", ErrInvalidRecord, err)
	}
	return Value{kind: KindJSON, text: string(b)}, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (v Value) Kind() Kind {
	return v.kind
}

// Value implements driver.Valuer.
func (v Value) Value() (driver.Value, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindInt:
		return v.num, nil
	case KindText, KindTimestamp, KindJSON:
		return v.text, nil
	default:
		return nil, fmt.Errorf("unknown value kind %v", v.kind)
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	default:
		return v.text
	}
}

func args(values []Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
