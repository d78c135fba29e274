package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
	"github.com/coursecatalog/catalog-api/internal/pkg/metrics"
)

const defaultClaimTTL = 30 * time.Second

// ClaimStore abstracts the short-lived creation claims (Redis).
type ClaimStore interface {
	// Claim returns false when another caller already holds key.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// DuplicateGuard enforces that (title, instructor) is unique per owner.
type DuplicateGuard struct {
	courses ports.CourseRepository
	claims  ClaimStore
	ttl     time.Duration
	log     zerolog.Logger
}

// NewDuplicateGuard builds a guard. claims may be nil, in which case only the
// store lookup (and the store's unique index) protect against duplicates.
func NewDuplicateGuard(courses ports.CourseRepository, claims ClaimStore, ttl time.Duration, log zerolog.Logger) *DuplicateGuard {
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &DuplicateGuard{courses: courses, claims: claims, ttl: ttl, log: log}
}

// Exists reports whether ownerID already has a course with this title and instructor.
func (g *DuplicateGuard) Exists(ctx context.Context, title, instructor, ownerID string) (bool, error) {
	_, err := g.find(ctx, title, instructor, ownerID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Check fails with Conflict when another course of ownerID (other than
// exceptID) already uses title and instructor.
func (g *DuplicateGuard) Check(ctx context.Context, title, instructor, ownerID, exceptID string) error {
	existing, err := g.find(ctx, title, instructor, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if exceptID != "" && existing.ID == exceptID {
		return nil
	}
	metrics.DuplicatesRejectedTotal.WithLabelValues("lookup").Inc()
	return domain.CourseExists(title, instructor)
}

// Claim takes a short-lived claim on the (owner, title, instructor) key so
// that two concurrent identical creates are unlikely to both pass Check. The
// returned release func must be called once the create attempt has finished.
func (g *DuplicateGuard) Claim(ctx context.Context, title, instructor, ownerID string) (release func(), err error) {
	noop := func() {}
	if g.claims == nil {
		return noop, nil
	}

	key := claimKey(title, instructor, ownerID)
	ok, err := g.claims.Claim(ctx, key, g.ttl)
	if err != nil {
		g.log.Warn().Err(err).Str("owner", ownerID).Msg("course claim failed, relying on store index")
		return noop, nil
	}
	if !ok {
		metrics.DuplicatesRejectedTotal.WithLabelValues("claim").Inc()
		return noop, domain.CourseExists(title, instructor)
	}

	return func() {
		if err := g.claims.Release(context.WithoutCancel(ctx), key); err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("failed to release course claim")
		}
	}, nil
}

func (g *DuplicateGuard) find(ctx context.Context, title, instructor, ownerID string) (*domain.Course, error) {
	c, err := g.courses.FindByIdentity(ctx, title, instructor, ownerID)
	if err != nil {
		return nil, domain.StoreFailure("duplicate lookup", err)
	}
	return c, nil
}

func claimKey(title, instructor, ownerID string) string {
	sum := sha1.Sum([]byte(title + "\x00" + instructor))
	return "claim:course:" + ownerID + ":" + hex.EncodeToString(sum[:])
}

// Operation names the kind of access being authorized.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Authorize decides whether who may perform op on a course stored with
// storedOwnerID. owner is the resolved owning user; nil means the reference
// could not be resolved, which is never treated as proof of ownership.
func Authorize(op Operation, storedOwnerID string, owner *domain.User, who domain.Identity) error {
	if owner == nil || owner.ID != storedOwnerID {
		return domain.Errorf(domain.ErrNotFound, "owner %s of course not found", storedOwnerID)
	}
	if who.IsAdmin {
		return nil
	}
	if who.UserID == "" || who.UserID != storedOwnerID {
		return domain.Errorf(domain.ErrForbidden, "%s requires ownership of the course", op)
	}
	return nil
}

// OwnershipGuard resolves a course's owner and applies Authorize.
type OwnershipGuard struct {
	users ports.UserRepository
}

func NewOwnershipGuard(users ports.UserRepository) *OwnershipGuard {
	return &OwnershipGuard{users: users}
}

// Check returns the resolved owner when who may perform op on course.
func (g *OwnershipGuard) Check(ctx context.Context, op Operation, course *domain.Course, who domain.Identity) (*domain.User, error) {
	owner, err := g.users.FindByID(ctx, course.Creator)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.StoreFailure("resolve course owner", err)
	}
	if err := Authorize(op, course.Creator, owner, who); err != nil {
		return nil, err
	}
	return owner, nil
}
