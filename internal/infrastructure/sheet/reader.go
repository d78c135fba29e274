// Package sheet converts uploaded spreadsheets into raw course rows.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// ErrEmptySheet is returned when the workbook has no header row.
var ErrEmptySheet = errors.New("spreadsheet has no header row")

// Reader reads the first worksheet of an .xlsx workbook. The first row is the
// header; every following non-blank row becomes one RawRow keyed by header.
type Reader struct {
	provider string
	maxRows  int
}

// NewReader returns a Reader that tags rows without a provider column with
// provider. maxRows <= 0 means no limit.
func NewReader(provider string, maxRows int) *Reader {
	return &Reader{provider: provider, maxRows: maxRows}
}

func (r *Reader) Read(src io.Reader) ([]domain.RawRow, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, domain.Errorf(domain.ErrMalformedInput, "not a readable xlsx workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.Errorf(domain.ErrMalformedInput, "%v", ErrEmptySheet)
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, domain.Errorf(domain.ErrMalformedInput, "%v", ErrEmptySheet)
	}

	header := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]domain.RawRow, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := toRow(header, line)
		if len(row) == 0 {
			continue
		}
		if _, ok := row[domain.RowProvider]; !ok && r.provider != "" {
			row[domain.RowProvider] = r.provider
		}
		rows = append(rows, row)
		if r.maxRows > 0 && len(rows) > r.maxRows {
			return nil, domain.Errorf(domain.ErrMalformedInput, "spreadsheet has more than %d rows", r.maxRows)
		}
	}
	return rows, nil
}

// toRow keys the non-blank cells of line by header. Cells under a blank
// header are dropped.
func toRow(header, line []string) domain.RawRow {
	row := domain.RawRow{}
	for i, cell := range line {
		if i >= len(header) || header[i] == "" {
			continue
		}
		if v := strings.TrimSpace(cell); v != "" {
			row[header[i]] = v
		}
	}
	return row
}
