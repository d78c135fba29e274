package ports

import (
	"context"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// UserRepository persists users and their course back-references.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListIDs returns the ids of every user, for reconciliation sweeps.
	ListIDs(ctx context.Context) ([]string, error)
	// AddCourse appends courseID to the user's course list unless already present.
	AddCourse(ctx context.Context, userID, courseID string) error
	// RemoveCourse drops every occurrence of courseID from the user's course list.
	RemoveCourse(ctx context.Context, userID, courseID string) error
}
