package ports

import (
	"context"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// CourseFilter narrows List. An empty Creator lists every course.
type CourseFilter struct {
	Creator string
}

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	// Create inserts c and sets c.ID. A uniqueness violation on
	// (creator, title, instructor) returns domain.ErrConflict.
	Create(ctx context.Context, c *domain.Course) error
	FindByID(ctx context.Context, id string) (*domain.Course, error)
	// FindByIdentity returns the course of creator with the given title and
	// instructor, or domain.ErrNotFound.
	FindByIdentity(ctx context.Context, title, instructor, creator string) (*domain.Course, error)
	List(ctx context.Context, filter CourseFilter) ([]*domain.Course, error)
	// Update overwrites every mutable field of the stored course.
	Update(ctx context.Context, c *domain.Course) error
	Delete(ctx context.Context, id string) error
}

// TxRunner runs fn as one unit of work. Implementations may or may not
// provide atomicity across the writes fn performs.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
