package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

var errStoreDown = errors.New("connection refused")

// fixedClock returns a clock that reports t, then advances by step on each call.
func fixedClock(t time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := t
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := cur
		cur = cur.Add(step)
		return now
	}
}

func cloneCourse(c *domain.Course) *domain.Course {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Courses = slices.Clone(u.Courses)
	return &clone
}

// stubCourseRepo is an in-memory CourseRepository that enforces the
// (creator, title, instructor) unique index like the real store.
type stubCourseRepo struct {
	mu        sync.Mutex
	courses   map[string]*domain.Course
	seq       int
	createErr error
	findErr   error
	updateErr error
	deleteErr error
	listErr   error
	// blindLookup makes FindByIdentity miss, as when a concurrent insert
	// lands between the lookup and the write.
	blindLookup bool
}

func newStubCourseRepo() *stubCourseRepo {
	return &stubCourseRepo{courses: make(map[string]*domain.Course)}
}

func (r *stubCourseRepo) Create(_ context.Context, c *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.courses {
		if existing.SameIdentity(c.Title, c.Instructor, c.Creator) {
			return domain.CourseExists(c.Title, c.Instructor)
		}
	}
	r.seq++
	c.ID = fmt.Sprintf("course-%d", r.seq)
	r.courses[c.ID] = cloneCourse(c)
	return nil
}

func (r *stubCourseRepo) FindByID(_ context.Context, id string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCourse(c), nil
}

func (r *stubCourseRepo) FindByIdentity(_ context.Context, title, instructor, creator string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.blindLookup {
		return nil, domain.ErrNotFound
	}
	for _, c := range r.courses {
		if c.SameIdentity(title, instructor, creator) {
			return cloneCourse(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubCourseRepo) List(_ context.Context, filter ports.CourseFilter) ([]*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.Course, 0, len(r.courses))
	for _, c := range r.courses {
		if filter.Creator != "" && c.Creator != filter.Creator {
			continue
		}
		out = append(out, cloneCourse(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubCourseRepo) Update(_ context.Context, c *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.courses[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.courses[c.ID] = cloneCourse(c)
	return nil
}

func (r *stubCourseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.courses[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *stubCourseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses)
}

func (r *stubCourseRepo) put(c *domain.Course) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[c.ID] = cloneCourse(c)
}

// stubUserRepo is an in-memory UserRepository keyed by id.
type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	findErr   error
	addErr    error
	removeErr error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	created := cloneUser(user)
	if created.ID == "" {
		created.ID = "user-" + user.Username
	}
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubUserRepo) ListIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *stubUserRepo) AddCourse(_ context.Context, userID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if !u.HasCourse(courseID) {
		u.Courses = append(u.Courses, courseID)
	}
	return nil
}

func (r *stubUserRepo) RemoveCourse(_ context.Context, userID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeErr != nil {
		return r.removeErr
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	kept := u.Courses[:0]
	for _, id := range u.Courses {
		if id != courseID {
			kept = append(kept, id)
		}
	}
	u.Courses = kept
	return nil
}

func (r *stubUserRepo) coursesOf(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return slices.Clone(u.Courses)
	}
	return nil
}

// stubClaims is an in-memory ClaimStore.
type stubClaims struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func newStubClaims() *stubClaims {
	return &stubClaims{held: make(map[string]bool)}
}

func (s *stubClaims) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.held[key] {
		return false, nil
	}
	s.held[key] = true
	return true, nil
}

func (s *stubClaims) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, key)
	s.released = append(s.released, key)
	return nil
}

// goPool runs every task on its own goroutine and waits for all of them.
type goPool struct{}

func (goPool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task(ctx, i)
		}(i)
	}
	wg.Wait()
	return nil
}

// brokenPool runs the first `runs` tasks and then reports its own failure.
type brokenPool struct {
	runs int
	err  error
}

func (p brokenPool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	for i := 0; i < n && i < p.runs; i++ {
		task(ctx, i)
	}
	return p.err
}

// countingTx records how many units of work ran through it.
type countingTx struct {
	mu    sync.Mutex
	calls int
}

func (t *countingTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(ctx)
}
