package domain

// RawRow is one loosely-typed input record, typically a spreadsheet row keyed
// by its header cells.
type RawRow map[string]any

// Keys recognised in a RawRow.
const (
	RowSequence    = "n"
	RowTitle       = "Title"
	RowCategory    = "Category"
	RowTools       = "Tools"
	RowHours       = "Hours"
	RowSections    = "Sections"
	RowLectures    = "Lectures"
	RowInstructor  = "Instructor"
	RowBought      = "Bought"
	RowFinished    = "Finished"
	RowNotes       = "notes"
	RowDescription = "desc"
	RowProvider    = "provider"
)
