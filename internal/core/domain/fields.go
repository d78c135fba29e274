package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Course field names as they appear in update requests.
const (
	FieldPurchaseSequence = "purchaseSequence"
	FieldTitle            = "title"
	FieldCategory         = "category"
	FieldTools            = "tools"
	FieldHours            = "hours"
	FieldSections         = "sections"
	FieldLectures         = "lectures"
	FieldInstructor       = "instructor"
	FieldProvider         = "provider"
	FieldDateBought       = "dateBought"
	FieldDateStarted      = "dateStarted"
	FieldDateCompleted    = "dateCompleted"
	FieldDescription      = "description"
	FieldNotes            = "notes"
)

// fieldSetter writes one coerced value into a course.
type fieldSetter func(c *Course, v any, now time.Time) error

// fieldSetters is the closed set of fields an update may ever touch. Creator,
// id and the audit dates are deliberately absent.
var fieldSetters = map[string]fieldSetter{
	FieldPurchaseSequence: intField(FieldPurchaseSequence, func(c *Course, n int) { c.PurchaseSequence = n }),
	FieldTitle:            requiredText(FieldTitle, func(c *Course, s string) { c.Title = s }),
	FieldCategory:         optionalText(func(c *Course, s string) { c.Category = s }),
	FieldTools:            optionalText(func(c *Course, s string) { c.Tools = s }),
	FieldHours:            hoursField,
	FieldSections:         intField(FieldSections, func(c *Course, n int) { c.Sections = n }),
	FieldLectures:         intField(FieldLectures, func(c *Course, n int) { c.Lectures = n }),
	FieldInstructor:       requiredText(FieldInstructor, func(c *Course, s string) { c.Instructor = s }),
	FieldProvider:         optionalText(func(c *Course, s string) { c.Provider = s }),
	FieldDateBought:       dateField(FieldDateBought, func(c *Course, t time.Time) { c.DateBought = t }),
	FieldDateStarted:      dateField(FieldDateStarted, func(c *Course, t time.Time) { c.DateStarted = t }),
	FieldDateCompleted:    dateField(FieldDateCompleted, func(c *Course, t time.Time) { c.DateCompleted = t }),
	FieldDescription:      optionalText(func(c *Course, s string) { c.Description = s }),
	FieldNotes:            optionalText(func(c *Course, s string) { c.Notes = s }),
}

// UpdatableFields lists every field name the projector knows how to write.
func UpdatableFields() []string {
	names := make([]string, 0, len(fieldSetters))
	for name := range fieldSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Whitelist is a validated subset of UpdatableFields.
type Whitelist struct {
	fields map[string]fieldSetter
}

// NewWhitelist validates names against the known field set. An empty list
// selects every known field.
func NewWhitelist(names []string) (Whitelist, error) {
	if len(names) == 0 {
		names = UpdatableFields()
	}
	w := Whitelist{fields: make(map[string]fieldSetter, len(names))}
	var unknown []string
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		setter, ok := fieldSetters[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		w.fields[name] = setter
	}
	if len(unknown) > 0 {
		return Whitelist{}, fmt.Errorf("unknown updatable fields: %s", strings.Join(unknown, ", "))
	}
	return w, nil
}

// Allows reports whether name may be written.
func (w Whitelist) Allows(name string) bool {
	_, ok := w.fields[name]
	return ok
}

// Set writes v into c under name. The caller must check Allows first.
func (w Whitelist) Set(c *Course, name string, v any, now time.Time) error {
	setter, ok := w.fields[name]
	if !ok {
		return MalformedField(name, "not updatable")
	}
	return setter(c, v, now)
}

// Names returns the allowed field names, sorted.
func (w Whitelist) Names() []string {
	names := make([]string, 0, len(w.fields))
	for name := range w.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requiredText(field string, set func(*Course, string)) fieldSetter {
	return func(c *Course, v any, _ time.Time) error {
		s, ok := TextValue(v)
		if !ok {
			return MalformedField(field, "must not be empty")
		}
		set(c, s)
		return nil
	}
}

func optionalText(set func(*Course, string)) fieldSetter {
	return func(c *Course, v any, _ time.Time) error {
		s, _ := TextValue(v)
		set(c, s)
		return nil
	}
}

func intField(field string, set func(*Course, int)) fieldSetter {
	return func(c *Course, v any, _ time.Time) error {
		n, present, err := IntValue(field, v)
		if err != nil {
			return err
		}
		if !present || n <= 0 {
			return MalformedField(field, "must be a whole number greater than 0")
		}
		set(c, n)
		return nil
	}
}

func hoursField(c *Course, v any, _ time.Time) error {
	n, present, err := NumberValue(FieldHours, v)
	if err != nil {
		return err
	}
	if !present || n <= 0 {
		return MalformedField(FieldHours, "must be greater than 0")
	}
	c.Hours = n
	return nil
}

// dateField accepts null to reset a date to UnknownDate. Unlike row import,
// an unparseable date in an update is rejected rather than replaced by now.
func dateField(field string, set func(*Course, time.Time)) fieldSetter {
	return func(c *Course, v any, now time.Time) error {
		switch t := v.(type) {
		case nil, time.Time:
		case string:
			if s := strings.TrimSpace(t); s != "" {
				if _, ok := ParseDate(s); !ok {
					return MalformedField(field, fmt.Sprintf("%q is not a recognised date", t))
				}
			}
		default:
			return MalformedField(field, "not a date")
		}
		set(c, DateValue(v, now))
		return nil
	}
}
