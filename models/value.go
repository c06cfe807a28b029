package models

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Kind tells how a Value is rendered in the store.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindFlag
)

// Value is one typed cell of a listing record.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Text returns a free-text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Flag returns a presence-only value. It is written as "1".
func Flag() Value { return Value{kind: KindFlag, num: 1} }

func (v Value) Kind() Kind { return v.kind }

// String renders the value the way it is stored in a CSV cell.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindFlag:
		return "1"
	default:
		return v.text
	}
}

// Float returns the numeric form of the value. Text values loaded back from
// the store are parsed on demand.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber, KindFlag:
		return v.num, true
	default:
		return ParseNumber(v.text)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber, KindFlag:
		return json.Marshal(v.num)
	default:
		return json.Marshal(v.text)
	}
}

// numberRegexp matches a plain decimal once currency symbols and thousands
// separators are stripped.
var numberRegexp = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

// ParseNumber converts strings such as "1200", "1,200" or "$1,200.50" to a
// float. Anything with other characters in it is not a number.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if !numberRegexp.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FromJSON converts a decoded JSON scalar into a Value. Nulls, objects and
// arrays have no cell form and report false.
func FromJSON(raw any) (Value, bool) {
	switch t := raw.(type) {
	case float64:
		return Number(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String()), true
		}
		return Number(f), true
	case bool:
		if t {
			return Flag(), true
		}
		return Number(0), true
	case string:
		if f, ok := ParseNumber(t); ok {
			return Number(f), true
		}
		return Text(strings.TrimSpace(t)), true
	default:
		return Value{}, false
	}
}
