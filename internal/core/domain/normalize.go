package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// dateLayouts are tried in order when parsing a textual date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// CollapseLines replaces runs of line breaks with a single space and trims
// surrounding whitespace.
func CollapseLines(s string) string {
	return strings.TrimSpace(lineBreaks.ReplaceAllString(s, " "))
}

// TextValue converts a loosely-typed value to a cleaned string. The second
// result is false when the value is absent or blank.
func TextValue(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	s = CollapseLines(s)
	return s, s != ""
}

// NumberValue converts a loosely-typed value to a float64. Absent or blank
// values report present=false and no error.
func NumberValue(field string, v any) (n float64, present bool, err error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		if n, err = t.Float64(); err != nil {
			return 0, true, MalformedField(field, "not a number")
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		if n, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, true, MalformedField(field, fmt.Sprintf("%q is not a number", s))
		}
	default:
		return 0, true, MalformedField(field, fmt.Sprintf("unsupported type %T", v))
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, true, MalformedField(field, "not a finite number")
	}
	if n < 0 {
		return 0, true, MalformedField(field, "must not be negative")
	}
	return n, true, nil
}

// IntValue is NumberValue restricted to whole numbers.
func IntValue(field string, v any) (int, bool, error) {
	n, present, err := NumberValue(field, v)
	if err != nil || !present {
		return 0, present, err
	}
	if n != math.Trunc(n) {
		return 0, true, MalformedField(field, "must be a whole number")
	}
	if n > math.MaxInt32 {
		return 0, true, MalformedField(field, "is out of range")
	}
	return int(n), true, nil
}

// PositiveIntValue is IntValue that also rejects a present zero. Absent
// values stay zero.
func PositiveIntValue(field string, v any) (int, bool, error) {
	n, present, err := IntValue(field, v)
	if err == nil && present && n == 0 {
		return 0, true, MalformedField(field, "must be greater than 0")
	}
	return n, present, err
}

// PositiveNumberValue is NumberValue that also rejects a present zero.
func PositiveNumberValue(field string, v any) (float64, bool, error) {
	n, present, err := NumberValue(field, v)
	if err == nil && present && n == 0 {
		return 0, true, MalformedField(field, "must be greater than 0")
	}
	return n, present, err
}

// DateValue converts a loosely-typed value to a UTC time. Absent or blank
// values yield UnknownDate; unparseable values yield now. It never fails.
func DateValue(v any, now time.Time) time.Time {
	switch t := v.(type) {
	case nil:
		return UnknownDate
	case time.Time:
		if t.IsZero() {
			return UnknownDate
		}
		return t.UTC()
	case *time.Time:
		if t == nil || t.IsZero() {
			return UnknownDate
		}
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return UnknownDate
		}
		if parsed, ok := ParseDate(s); ok {
			return parsed
		}
		return now.UTC()
	default:
		return now.UTC()
	}
}

// ParseDate tries every known layout against s.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
