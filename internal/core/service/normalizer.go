package service

import (
	"time"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// Normalizer turns raw input rows into canonical course payloads. It performs
// no I/O; the clock is only consulted for unparseable dates.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = utcNow
	}
	return &Normalizer{now: now}
}

// Normalize validates and converts row. Only MalformedInput errors are returned.
func (n *Normalizer) Normalize(row domain.RawRow) (domain.NewCourse, error) {
	var out domain.NewCourse

	title, ok := domain.TextValue(row[domain.RowTitle])
	if !ok {
		return out, domain.MalformedField(domain.RowTitle, "missing")
	}
	instructor, ok := domain.TextValue(row[domain.RowInstructor])
	if !ok {
		return out, domain.MalformedField(domain.RowInstructor, "missing")
	}

	var err error
	if out.PurchaseSequence, _, err = domain.PositiveIntValue(domain.RowSequence, row[domain.RowSequence]); err != nil {
		return out, err
	}
	if out.Hours, _, err = domain.PositiveNumberValue(domain.RowHours, row[domain.RowHours]); err != nil {
		return out, err
	}
	if out.Sections, _, err = domain.PositiveIntValue(domain.RowSections, row[domain.RowSections]); err != nil {
		return out, err
	}
	if out.Lectures, _, err = domain.PositiveIntValue(domain.RowLectures, row[domain.RowLectures]); err != nil {
		return out, err
	}

	now := n.now()
	out.Title = title
	out.Instructor = instructor
	out.Category, _ = domain.TextValue(row[domain.RowCategory])
	out.Tools, _ = domain.TextValue(row[domain.RowTools])
	out.Description, _ = domain.TextValue(row[domain.RowDescription])
	out.Notes, _ = domain.TextValue(row[domain.RowNotes])
	out.Provider, _ = domain.TextValue(row[domain.RowProvider])

	// The start date is never known at import time.
	out.DateBought = domain.DateValue(row[domain.RowBought], now)
	out.DateStarted = domain.UnknownDate
	out.DateCompleted = domain.DateValue(row[domain.RowFinished], now)
	out.Started, out.Completed = domain.CompletionStatus(out.DateCompleted)

	return out, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
