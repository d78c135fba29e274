package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

// directTx runs the unit of work without a transaction: each write commits on
// its own and a failure after the first write is not rolled back.
type directTx struct{}

func (directTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Synchronizer keeps a Course and its owner's course list in step across
// create and delete.
type Synchronizer struct {
	courses ports.CourseRepository
	users   ports.UserRepository
	guard   *OwnershipGuard
	tx      ports.TxRunner
	now     func() time.Time
	log     zerolog.Logger
}

// NewSynchronizer builds a Synchronizer. A nil tx selects best-effort writes.
func NewSynchronizer(
	courses ports.CourseRepository,
	users ports.UserRepository,
	guard *OwnershipGuard,
	tx ports.TxRunner,
	now func() time.Time,
	log zerolog.Logger,
) *Synchronizer {
	if tx == nil {
		tx = directTx{}
	}
	if now == nil {
		now = utcNow
	}
	return &Synchronizer{courses: courses, users: users, guard: guard, tx: tx, now: now, log: log}
}

// Create persists payload as a course of owner and links it into the owner's
// course list. If linking fails the course stays stored without its
// back-reference and a StoreFailure naming the course is returned.
func (s *Synchronizer) Create(ctx context.Context, payload domain.NewCourse, owner *domain.User) (*domain.Course, error) {
	var created *domain.Course

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		course := payload.Build(owner.ID, s.now())
		if err := s.courses.Create(ctx, course); err != nil {
			return domain.StoreFailure("insert course", err)
		}
		if err := s.users.AddCourse(ctx, owner.ID, course.ID); err != nil {
			s.log.Error().Err(err).
				Str("course_id", course.ID).
				Str("owner", owner.ID).
				Msg("course stored without owner back-reference")
			return domain.StoreFailure(fmt.Sprintf("link course %s to owner %s", course.ID, owner.ID), err)
		}
		created = course
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("course_id", created.ID).Str("owner", owner.ID).Str("title", created.Title).Msg("course created")
	return created, nil
}

// Delete removes the course after checking who may do so, then drops the
// owner's back-reference. A failure while unlinking is reported but the
// course deletion is not undone.
func (s *Synchronizer) Delete(ctx context.Context, courseID string, who domain.Identity) (*domain.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrStore("course "+courseID, "find course", err)
	}

	owner, err := s.guard.Check(ctx, OpDelete, course, who)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.courses.Delete(ctx, course.ID); err != nil {
			return notFoundOrStore("course "+courseID, "delete course", err)
		}
		if err := s.users.RemoveCourse(ctx, owner.ID, course.ID); err != nil {
			s.log.Error().Err(err).
				Str("course_id", course.ID).
				Str("owner", owner.ID).
				Msg("course deleted but owner back-reference remains")
			return domain.StoreFailure(fmt.Sprintf("unlink course %s from owner %s", course.ID, owner.ID), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("course_id", course.ID).Str("owner", owner.ID).Str("by", who.UserID).Msg("course deleted")
	return course, nil
}
