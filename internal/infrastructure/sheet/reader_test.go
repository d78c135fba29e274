package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestReader_Read(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"n", "Title", "Instructor", "Hours", "Bought", "Finished", " "},
		[]interface{}{1, "Intro to X", "A. Einstein", 3, "2020-01-01", "", "ignored"},
		[]interface{}{},
		[]interface{}{2, "Go", "Rob", 10.5, "2021-02-03", "2021-03-04"},
	)

	rows, err := NewReader("Udemy", 0).Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (blank row skipped), got %d", len(rows))
	}

	first := rows[0]
	if first[domain.RowTitle] != "Intro to X" || first[domain.RowSequence] != "1" || first[domain.RowHours] != "3" {
		t.Errorf("unexpected first row: %v", first)
	}
	if _, ok := first[domain.RowFinished]; ok {
		t.Errorf("blank cells must be absent, got %q", first[domain.RowFinished])
	}
	if first[domain.RowProvider] != "Udemy" {
		t.Errorf("expected provider tag, got %v", first[domain.RowProvider])
	}
	if len(first) != 6 {
		t.Errorf("cells under a blank header must be dropped: %v", first)
	}
	if rows[1][domain.RowFinished] != "2021-03-04" {
		t.Errorf("unexpected second row: %v", rows[1])
	}
}

func TestReader_ProviderColumnWins(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Title", "Instructor", "provider"},
		[]interface{}{"Go", "Rob", "Coursera"},
	)
	rows, err := NewReader("Udemy", 0).Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0][domain.RowProvider] != "Coursera" {
		t.Errorf("expected the sheet's provider, got %v", rows[0][domain.RowProvider])
	}
}

func TestReader_Errors(t *testing.T) {
	if _, err := NewReader("", 0).Read(strings.NewReader("not a zip")); !errors.Is(err, domain.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for garbage, got %v", err)
	}
	if _, err := NewReader("", 0).Read(workbook(t)); !errors.Is(err, domain.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for an empty sheet, got %v", err)
	}

	buf := workbook(t,
		[]interface{}{"Title", "Instructor"},
		[]interface{}{"A", "I"},
		[]interface{}{"B", "I"},
	)
	if _, err := NewReader("", 1).Read(buf); !errors.Is(err, domain.ErrMalformedInput) {
		t.Errorf("expected row limit error, got %v", err)
	}
}
