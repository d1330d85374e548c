// internal/app/store/courses/coursestore.go
package coursestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/paging"
	"github.com/dalemusser/bayit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	errTitleRequired = errors.New("course title is required")
	errBadStatus     = errors.New(`status must be "published"|"draft"`)
	errDupLesson     = errors.New("lesson ids must be unique within a course")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

// Create inserts a course. Status defaults to draft.
func (s *Store) Create(ctx context.Context, c models.Course) (models.Course, error) {
	if c.Title == "" {
		return models.Course{}, errTitleRequired
	}
	if c.Status == "" {
		c.Status = models.CourseStatusDraft
	}
	if c.Status != models.CourseStatusDraft && c.Status != models.CourseStatusPublished {
		return models.Course{}, errBadStatus
	}
	seen := make(map[string]struct{}, len(c.Lessons))
	for _, l := range c.Lessons {
		if _, dup := seen[l.LessonID]; dup {
			return models.Course{}, errDupLesson
		}
		seen[l.LessonID] = struct{}{}
	}
	if c.Lessons == nil {
		c.Lessons = []models.Lesson{}
	}

	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.TitleCI = text.Fold(c.Title)
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Course{}, err
	}
	return c, nil
}

// GetByID loads a course in any status. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Course{}, err
	}
	return c, nil
}

// GetByIDs loads courses in any status. Missing ids are simply absent from
// the result; order is unspecified.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilter narrows a catalog listing. A zero CategoryID lists every category.
type ListFilter struct {
	CategoryID primitive.ObjectID
}

// ListPublished returns one keyset page of published courses ordered by
// case-folded title.
func (s *Store) ListPublished(ctx context.Context, f ListFilter, k paging.Keyset) (paging.Page[models.Course], error) {
	filter := bson.M{"status": models.CourseStatusPublished}
	if !f.CategoryID.IsZero() {
		filter["category_id"] = f.CategoryID
	}
	if w := k.Window("title_ci"); w != nil {
		for key, v := range w {
			filter[key] = v
		}
	}

	cur, err := s.c.Find(ctx, filter, k.FindOptions("title_ci"))
	if err != nil {
		return paging.Page[models.Course]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Course
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Course]{}, err
	}
	return paging.Build(k, rows,
		func(c models.Course) string { return c.TitleCI },
		func(c models.Course) primitive.ObjectID { return c.ID },
	), nil
}
