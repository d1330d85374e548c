package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	userstore "github.com/dalemusser/bayit/internal/app/store/users"
	"github.com/dalemusser/bayit/internal/app/system/metrics"
	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultRetries bounds optimistic-concurrency retries per mutation.
const DefaultRetries = 5

// UserStore is the slice of the user store the service needs.
// SaveLibrary must fail with userstore.ErrStaleVersion when u.Version is stale.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SaveLibrary(ctx context.Context, u *models.User) error
}

// Catalog resolves catalog references.
type Catalog interface {
	Courses(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Course, error)
	Categories(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error)
	Bundle(ctx context.Context, id primitive.ObjectID) (models.Bundle, error)
}

// Service runs library mutations: load the user, apply one transition,
// persist under a version check, then return a freshly read view.
type Service struct {
	users   UserStore
	catalog Catalog
	log     *zap.Logger
	metrics *metrics.Metrics
	retries int
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRetries sets the optimistic-concurrency attempt bound. n <= 0 is ignored.
func WithRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records enrollments, completions and conflicts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(users UserStore, catalog Catalog, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		users:   users,
		catalog: catalog,
		log:     log,
		retries: DefaultRetries,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View loads the user and assembles its denormalized view.
func (s *Service) View(ctx context.Context, userID primitive.ObjectID) (UserView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return s.assemble(ctx, u)
}

// Purchase buys one published course. Ownership is checked before the
// catalog, so an owned course reports ErrAlreadyOwned even once unpublished.
func (s *Service) Purchase(ctx context.Context, userID, courseID primitive.ObjectID) (UserView, error) {
	err := s.mutate(ctx, userID, func(l *Library, now time.Time) error {
		if l.Owns(courseID) {
			return ErrAlreadyOwned
		}
		if err := s.requirePublished(ctx, []primitive.ObjectID{courseID}); err != nil {
			return err
		}
		return l.PurchaseOne(courseID, now)
	})
	if err != nil {
		return UserView{}, err
	}
	s.metrics.Enrolled("purchase", 1)
	s.log.Info("course purchased",
		zap.String("user_id", userID.Hex()),
		zap.String("course_id", courseID.Hex()))
	return s.View(ctx, userID)
}

// Checkout reconciles every course in items, expanding bundles, and empties
// the cart. Courses already owned are skipped.
func (s *Service) Checkout(ctx context.Context, userID primitive.ObjectID, items []CartItem) (UserView, error) {
	items, err := s.resolveBundles(ctx, items)
	if err != nil {
		return UserView{}, err
	}
	ids := ExpandItems(items)
	if len(ids) == 0 {
		return UserView{}, ErrEmptyCart
	}

	var added []primitive.ObjectID
	err = s.mutate(ctx, userID, func(l *Library, now time.Time) error {
		// Owned courses are skipped by Reconcile, so only new ones must be on sale.
		if err := s.requirePublished(ctx, unowned(l, ids)); err != nil {
			return err
		}
		var err error
		added, err = l.Reconcile(ids, now)
		return err
	})
	if err != nil {
		return UserView{}, err
	}
	s.metrics.Enrolled("checkout", len(added))
	s.log.Info("checkout completed",
		zap.String("user_id", userID.Hex()),
		zap.Int("requested", len(ids)),
		zap.Int("added", len(added)))
	return s.View(ctx, userID)
}

// Progress marks lessonID complete in courseID. The returned bool is true
// when the lesson was not already complete.
func (s *Service) Progress(ctx context.Context, userID, courseID primitive.ObjectID, lessonID string) (UserView, bool, error) {
	var added bool
	err := s.mutate(ctx, userID, func(l *Library, now time.Time) error {
		var err error
		added, err = l.MarkLessonComplete(courseID, lessonID, now)
		return err
	})
	if err != nil {
		return UserView{}, false, err
	}
	if added {
		s.metrics.LessonCompleted()
	}
	v, err := s.View(ctx, userID)
	return v, added, err
}

// SetCart replaces the cart. Every id must name a published course.
func (s *Service) SetCart(ctx context.Context, userID primitive.ObjectID, courseIDs []primitive.ObjectID) (UserView, error) {
	if err := s.requirePublished(ctx, courseIDs); err != nil {
		return UserView{}, err
	}
	err := s.mutate(ctx, userID, func(l *Library, _ time.Time) error {
		l.SetCart(courseIDs)
		return nil
	})
	if err != nil {
		return UserView{}, err
	}
	return s.View(ctx, userID)
}

// mutate applies fn to a fresh snapshot of the user and saves it, retrying
// from a new read when another writer bumped the version first. fn runs once
// per attempt and may read the catalog; an error from fn aborts without writing.
func (s *Service) mutate(ctx context.Context, userID primitive.ObjectID, fn func(*Library, time.Time) error) error {
	for attempt := 1; attempt <= s.retries; attempt++ {
		u, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(Open(u), s.now().UTC()); err != nil {
			return err
		}
		err = s.users.SaveLibrary(ctx, u)
		if err == nil {
			return nil
		}
		if !errors.Is(err, userstore.ErrStaleVersion) {
			return fmt.Errorf("save user %s: %w", userID.Hex(), err)
		}
		s.metrics.Conflict()
		s.log.Debug("user write lost version race, retrying",
			zap.String("user_id", userID.Hex()),
			zap.Int("attempt", attempt))
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	s.log.Warn("giving up on contended user write",
		zap.String("user_id", userID.Hex()),
		zap.Int("attempts", s.retries))
	return ErrConflict
}

func (s *Service) load(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", userID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID.Hex(), err)
	}
	return u, nil
}

// resolveBundles fills in Courses for bundle items that arrived without them.
func (s *Service) resolveBundles(ctx context.Context, items []CartItem) ([]CartItem, error) {
	out := make([]CartItem, len(items))
	for i, it := range items {
		out[i] = it
		if !it.IsBundle() || len(it.Courses) > 0 {
			continue
		}
		b, err := s.catalog.Bundle(ctx, it.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("bundle %s: %w", it.ID.Hex(), ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("load bundle %s: %w", it.ID.Hex(), err)
		}
		out[i].Courses = b.CourseIDs
	}
	return out, nil
}

func unowned(l *Library, ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !l.Owns(id) {
			out = append(out, id)
		}
	}
	return out
}

// requirePublished fails with ErrNotFound unless every id is a published course.
func (s *Service) requirePublished(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.catalog.Courses(ctx, ids)
	if err != nil {
		return fmt.Errorf("load courses: %w", err)
	}
	for _, id := range ids {
		c, ok := found[id]
		if !ok || c.Status != models.CourseStatusPublished {
			return fmt.Errorf("course %s: %w", id.Hex(), ErrNotFound)
		}
	}
	return nil
}

func (s *Service) assemble(ctx context.Context, u *models.User) (UserView, error) {
	courses, err := s.catalog.Courses(ctx, ReferencedCourses(u))
	if err != nil {
		return UserView{}, fmt.Errorf("load courses: %w", err)
	}
	catIDs := make([]primitive.ObjectID, 0, len(courses))
	seen := make(map[primitive.ObjectID]struct{}, len(courses))
	for _, c := range courses {
		if c.CategoryID.IsZero() {
			continue
		}
		if _, ok := seen[c.CategoryID]; !ok {
			seen[c.CategoryID] = struct{}{}
			catIDs = append(catIDs, c.CategoryID)
		}
	}
	cats, err := s.catalog.Categories(ctx, catIDs)
	if err != nil {
		return UserView{}, fmt.Errorf("load categories: %w", err)
	}
	return Assemble(u, courses, cats), nil
}
