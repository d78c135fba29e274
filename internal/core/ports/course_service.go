package ports

import (
	"context"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// ItemOutcome is the result of one item of a batch operation. Kind and
// Detail are empty on success.
type ItemOutcome struct {
	Index    int
	CourseID string
	Course   *domain.Course
	Kind     string
	Detail   string
}

// OK reports whether the item succeeded.
func (o ItemOutcome) OK() bool {
	return o.Kind == ""
}

// BatchResult collects per-item outcomes ordered by input index.
type BatchResult struct {
	BatchID   string
	Items     []ItemOutcome
	Succeeded int
	Failed    int
}

// Record appends an outcome and updates the counters.
func (r *BatchResult) Record(o ItemOutcome) {
	r.Items = append(r.Items, o)
	if o.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// ReconcileReport lists the back-references a reconciliation pass repaired.
type ReconcileReport struct {
	UserID  string
	Added   []string // courses created by the user but missing from its list
	Removed []string // references to missing courses or courses of another creator
}

// Repaired reports whether anything changed.
func (r *ReconcileReport) Repaired() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// CourseService defines the course use cases exposed to transports. Every
// operation takes the caller identity explicitly.
type CourseService interface {
	Get(ctx context.Context, id string, who domain.Identity) (*domain.Course, error)
	// List returns the caller's courses. Admins may pass owner to list
	// another user's courses, or leave it empty to list all.
	List(ctx context.Context, who domain.Identity, owner string) ([]*domain.Course, error)
	Add(ctx context.Context, row domain.RawRow, who domain.Identity) (*domain.Course, error)
	Import(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*BatchResult, error)
	Update(ctx context.Context, id string, updates map[string]any, who domain.Identity) (*domain.Course, error)
	Delete(ctx context.Context, id string, who domain.Identity) error
	DeleteAll(ctx context.Context, who domain.Identity) (*BatchResult, error)
	Reconcile(ctx context.Context, userID string, who domain.Identity) (*ReconcileReport, error)
}
