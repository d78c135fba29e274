package domain

import "time"

// UnknownDate is the placeholder stored when a temporal input is absent:
// the Unix epoch, midnight UTC.
var UnknownDate = time.Unix(0, 0).UTC()

// Course is a purchased-course record owned by exactly one User.
type Course struct {
	ID               string    `json:"id"`
	PurchaseSequence int       `json:"purchaseSequence"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Tools            string    `json:"tools"`
	Hours            float64   `json:"hours"`
	Sections         int       `json:"sections"`
	Lectures         int       `json:"lectures"`
	Instructor       string    `json:"instructor"`
	DateBought       time.Time `json:"dateBought"`
	DateStarted      time.Time `json:"dateStarted"`
	Started          bool      `json:"started"`
	DateCompleted    time.Time `json:"dateCompleted"`
	Completed        bool      `json:"completed"`
	Description      string    `json:"description"`
	Notes            string    `json:"notes"`
	Provider         string    `json:"provider"`
	Creator          string    `json:"creator"`
	DateAdded        time.Time `json:"dateAdded"`
	DateUpdated      time.Time `json:"dateUpdated"`
}

// NewCourse is a normalized course payload that has not been persisted yet.
type NewCourse struct {
	PurchaseSequence int
	Title            string
	Category         string
	Tools            string
	Hours            float64
	Sections         int
	Lectures         int
	Instructor       string
	DateBought       time.Time
	DateStarted      time.Time
	Started          bool
	DateCompleted    time.Time
	Completed        bool
	Description      string
	Notes            string
	Provider         string
}

// Build turns the payload into a Course owned by creatorID.
func (n NewCourse) Build(creatorID string, now time.Time) *Course {
	return &Course{
		PurchaseSequence: n.PurchaseSequence,
		Title:            n.Title,
		Category:         n.Category,
		Tools:            n.Tools,
		Hours:            n.Hours,
		Sections:         n.Sections,
		Lectures:         n.Lectures,
		Instructor:       n.Instructor,
		DateBought:       n.DateBought,
		DateStarted:      n.DateStarted,
		Started:          n.Started,
		DateCompleted:    n.DateCompleted,
		Completed:        n.Completed,
		Description:      n.Description,
		Notes:            n.Notes,
		Provider:         n.Provider,
		Creator:          creatorID,
		DateAdded:        now,
		DateUpdated:      now,
	}
}

// CompletionStatus reports (started, completed) for a completion date. A
// course whose completion date is after UnknownDate counts as both.
func CompletionStatus(dateCompleted time.Time) (started, completed bool) {
	done := dateCompleted.After(UnknownDate)
	return done, done
}

// DeriveStatus recomputes Started and Completed from the course dates.
func (c *Course) DeriveStatus() {
	_, c.Completed = CompletionStatus(c.DateCompleted)
	c.Started = c.Completed || c.DateStarted.After(UnknownDate)
}

// SameIdentity reports whether two courses collide on the per-owner
// uniqueness key.
func (c *Course) SameIdentity(title, instructor, creator string) bool {
	return c.Title == title && c.Instructor == instructor && c.Creator == creator
}
