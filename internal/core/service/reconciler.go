package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
	"github.com/coursecatalog/catalog-api/internal/pkg/metrics"
)

// Reconciler repairs drift between Course.Creator and User.Courses left
// behind by partially failed dual writes.
type Reconciler struct {
	courses ports.CourseRepository
	users   ports.UserRepository
	log     zerolog.Logger
}

func NewReconciler(courses ports.CourseRepository, users ports.UserRepository, log zerolog.Logger) *Reconciler {
	return &Reconciler{courses: courses, users: users, log: log}
}

// Reconcile makes userID's course list match the courses it created: missing
// back-references are added, references to missing or foreign courses removed.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (*ports.ReconcileReport, error) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrStore("user "+userID, "find user", err)
	}

	owned, err := r.courses.List(ctx, ports.CourseFilter{Creator: userID})
	if err != nil {
		return nil, domain.StoreFailure("list owned courses", err)
	}

	ownedIDs := make(map[string]struct{}, len(owned))
	for _, c := range owned {
		ownedIDs[c.ID] = struct{}{}
	}
	linked := make(map[string]struct{}, len(user.Courses))
	for _, id := range user.Courses {
		linked[id] = struct{}{}
	}

	report := &ports.ReconcileReport{UserID: userID}
	for _, c := range owned {
		if _, ok := linked[c.ID]; ok {
			continue
		}
		if err := r.users.AddCourse(ctx, userID, c.ID); err != nil {
			return report, domain.StoreFailure("add missing back-reference", err)
		}
		report.Added = append(report.Added, c.ID)
	}
	for id := range linked {
		if _, ok := ownedIDs[id]; ok {
			continue
		}
		if err := r.users.RemoveCourse(ctx, userID, id); err != nil {
			return report, domain.StoreFailure("remove dangling back-reference", err)
		}
		report.Removed = append(report.Removed, id)
	}

	if report.Repaired() {
		metrics.ReconcileRepairsTotal.WithLabelValues("added").Add(float64(len(report.Added)))
		metrics.ReconcileRepairsTotal.WithLabelValues("removed").Add(float64(len(report.Removed)))
		r.log.Warn().
			Str("user_id", userID).
			Strs("added", report.Added).
			Strs("removed", report.Removed).
			Msg("repaired course back-references")
	}
	return report, nil
}

// ReconcileAll runs Reconcile for every user, continuing past failures.
func (r *Reconciler) ReconcileAll(ctx context.Context) (repaired int, err error) {
	ids, err := r.users.ListIDs(ctx)
	if err != nil {
		return 0, domain.StoreFailure("list users", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}
		report, err := r.Reconcile(ctx, id)
		if err != nil {
			r.log.Error().Err(err).Str("user_id", id).Msg("reconcile failed")
			continue
		}
		if report.Repaired() {
			repaired++
		}
	}
	return repaired, nil
}

// Run sweeps all users every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	r.log.Info().Dur("interval", interval).Msg("reconciler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := r.ReconcileAll(ctx)
			if err != nil {
				r.log.Error().Err(err).Msg("reconcile sweep failed")
				continue
			}
			r.log.Debug().Int("users_repaired", repaired).Msg("reconcile sweep finished")
		}
	}
}
