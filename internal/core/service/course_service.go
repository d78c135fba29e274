package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
	"github.com/coursecatalog/catalog-api/internal/pkg/metrics"
)

// CourseServiceDeps groups the collaborators of CourseService.
type CourseServiceDeps struct {
	Courses   ports.CourseRepository
	Users     ports.UserRepository
	Tx        ports.TxRunner // nil: best-effort dual writes
	Claims    ClaimStore     // nil: no claim, store lookup and index only
	Pool      WorkerPool
	Whitelist domain.Whitelist
	ClaimTTL  time.Duration
	Clock     func() time.Time
	Logger    zerolog.Logger
}

type CourseService struct {
	courses    ports.CourseRepository
	users      ports.UserRepository
	normalizer *Normalizer
	dups       *DuplicateGuard
	owners     *OwnershipGuard
	projector  *Projector
	sync       *Synchronizer
	batch      *BatchCoordinator
	reconciler *Reconciler
	pool       WorkerPool
	logger     zerolog.Logger
}

func NewCourseService(d CourseServiceDeps) *CourseService {
	clock := d.Clock
	if clock == nil {
		clock = utcNow
	}

	s := &CourseService{
		courses:    d.Courses,
		users:      d.Users,
		normalizer: NewNormalizer(clock),
		dups:       NewDuplicateGuard(d.Courses, d.Claims, d.ClaimTTL, d.Logger),
		owners:     NewOwnershipGuard(d.Users),
		projector:  NewProjector(d.Whitelist, clock, d.Logger),
		reconciler: NewReconciler(d.Courses, d.Users, d.Logger),
		pool:       d.Pool,
		logger:     d.Logger,
	}
	s.sync = NewSynchronizer(d.Courses, d.Users, s.owners, d.Tx, clock, d.Logger)
	s.batch = NewBatchCoordinator(s.normalizer, s, d.Pool, d.Logger)
	return s
}

// Reconciler exposes the reconciler for the background sweep.
func (s *CourseService) Reconciler() *Reconciler {
	return s.reconciler
}

// create is the single-course create path: duplicate check, claim, then the
// paired course and back-reference write.
func (s *CourseService) create(ctx context.Context, payload domain.NewCourse, owner *domain.User) (*domain.Course, error) {
	if err := s.dups.Check(ctx, payload.Title, payload.Instructor, owner.ID, ""); err != nil {
		return nil, err
	}
	release, err := s.dups.Claim(ctx, payload.Title, payload.Instructor, owner.ID)
	if err != nil {
		return nil, err
	}
	// Once stored, the record itself blocks duplicates.
	defer release()

	course, err := s.sync.Create(ctx, payload, owner)
	if err != nil {
		return nil, err
	}
	metrics.CoursesCreatedTotal.Inc()
	return course, nil
}

// Get returns a course the caller owns, or any course for admins.
func (s *CourseService) Get(ctx context.Context, id string, who domain.Identity) (*domain.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrStore("course "+id, "find course", err)
	}
	if _, err := s.owners.Check(ctx, OpRead, course, who); err != nil {
		return nil, err
	}
	return course, nil
}

// List returns courses ordered by purchase sequence, then title. Members only
// see their own; admins see all or filter by owner.
func (s *CourseService) List(ctx context.Context, who domain.Identity, owner string) ([]*domain.Course, error) {
	filter := ports.CourseFilter{Creator: owner}
	if !who.IsAdmin {
		if owner != "" && owner != who.UserID {
			return nil, domain.Errorf(domain.ErrForbidden, "cannot list courses of another user")
		}
		filter.Creator = who.UserID
	}

	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, domain.StoreFailure("list courses", err)
	}
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].PurchaseSequence != courses[j].PurchaseSequence {
			return courses[i].PurchaseSequence < courses[j].PurchaseSequence
		}
		return courses[i].Title < courses[j].Title
	})
	return courses, nil
}

// Add normalizes row and creates it as a course of the caller.
func (s *CourseService) Add(ctx context.Context, row domain.RawRow, who domain.Identity) (*domain.Course, error) {
	payload, err := s.normalizer.Normalize(row)
	if err != nil {
		return nil, s.fail("add", err)
	}
	owner, err := s.caller(ctx, who)
	if err != nil {
		return nil, s.fail("add", err)
	}
	course, err := s.create(ctx, payload, owner)
	if err != nil {
		return nil, s.fail("add", err)
	}
	return course, nil
}

// Import creates one course per row for the caller; see BatchCoordinator.
func (s *CourseService) Import(ctx context.Context, rows []domain.RawRow, who domain.Identity) (*ports.BatchResult, error) {
	owner, err := s.caller(ctx, who)
	if err != nil {
		return nil, s.fail("import", err)
	}
	return s.batch.Import(ctx, rows, owner)
}

// Update applies the whitelisted keys of updates to a course the caller may
// modify and persists it.
func (s *CourseService) Update(ctx context.Context, id string, updates map[string]any, who domain.Identity) (*domain.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("update", notFoundOrStore("course "+id, "find course", err))
	}
	if _, err := s.owners.Check(ctx, OpUpdate, course, who); err != nil {
		return nil, s.fail("update", err)
	}

	next, ignored, err := s.projector.Apply(course, updates)
	if err != nil {
		return nil, s.fail("update", err)
	}

	if next.Title != course.Title || next.Instructor != course.Instructor {
		if err := s.dups.Check(ctx, next.Title, next.Instructor, course.Creator, course.ID); err != nil {
			return nil, s.fail("update", err)
		}
	}

	if err := s.courses.Update(ctx, next); err != nil {
		return nil, s.fail("update", notFoundOrStore("course "+id, "update course", err))
	}

	s.logger.Info().Str("course_id", id).Str("by", who.UserID).Int("ignored", len(ignored)).Msg("course updated")
	return next, nil
}

// Delete removes a course and its owner's back-reference.
func (s *CourseService) Delete(ctx context.Context, id string, who domain.Identity) error {
	if _, err := s.sync.Delete(ctx, id, who); err != nil {
		return s.fail("delete", err)
	}
	return nil
}

// DeleteAll deletes every course of the caller, one outcome per course.
func (s *CourseService) DeleteAll(ctx context.Context, who domain.Identity) (*ports.BatchResult, error) {
	start := time.Now()
	owned, err := s.courses.List(ctx, ports.CourseFilter{Creator: who.UserID})
	if err != nil {
		return nil, s.fail("delete_all", domain.StoreFailure("list courses", err))
	}

	outcomes := make([]ports.ItemOutcome, len(owned))
	for i, c := range owned {
		outcomes[i] = ports.ItemOutcome{Index: i, CourseID: c.ID, Kind: domain.KindBatchAborted, Detail: "not processed"}
	}

	runErr := s.pool.Run(ctx, len(owned), func(ctx context.Context, i int) {
		deleted, err := s.sync.Delete(ctx, owned[i].ID, who)
		if err != nil {
			outcomes[i] = failedItem(i, owned[i].ID, err)
			return
		}
		outcomes[i] = ports.ItemOutcome{Index: i, CourseID: deleted.ID, Course: deleted}
	})

	result := &ports.BatchResult{Items: make([]ports.ItemOutcome, 0, len(owned))}
	for _, o := range outcomes {
		result.Record(o)
		label := "ok"
		if !o.OK() {
			label = o.Kind
		}
		metrics.BatchItemsTotal.WithLabelValues("delete_all", label).Inc()
	}
	metrics.BatchDuration.WithLabelValues("delete_all").Observe(time.Since(start).Seconds())

	if runErr != nil {
		return result, &domain.Error{Kind: domain.ErrBatchAborted, Detail: "delete dispatch failed", Cause: runErr}
	}
	s.logger.Info().Str("owner", who.UserID).Int("deleted", result.Succeeded).Int("failed", result.Failed).Msg("courses deleted")
	return result, nil
}

// Reconcile repairs userID's back-references. Admins may reconcile anyone,
// members only themselves.
func (s *CourseService) Reconcile(ctx context.Context, userID string, who domain.Identity) (*ports.ReconcileReport, error) {
	if !who.IsAdmin && who.UserID != userID {
		return nil, domain.Errorf(domain.ErrForbidden, "reconcile requires admin role")
	}
	report, err := s.reconciler.Reconcile(ctx, userID)
	if err != nil {
		return report, s.fail("reconcile", err)
	}
	return report, nil
}

// caller resolves the identity to its stored user.
func (s *CourseService) caller(ctx context.Context, who domain.Identity) (*domain.User, error) {
	if who.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, who.UserID)
	if err != nil {
		return nil, notFoundOrStore("user "+who.UserID, "find user", err)
	}
	return user, nil
}

func (s *CourseService) fail(op string, err error) error {
	metrics.MutationErrorsTotal.WithLabelValues(op, domain.KindOf(err)).Inc()
	return err
}

func notFoundOrStore(what, op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Errorf(domain.ErrNotFound, "%s not found", what)
	}
	return domain.StoreFailure(op, err)
}
