// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateCategory = errors.New("a category with this slug already exists")
	errNameRequired      = errors.New("category name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("categories")}
}

// Create inserts a category. The slug is derived from the name when empty.
func (s *Store) Create(ctx context.Context, cat models.Category) (models.Category, error) {
	cat.Name = normalize.Name(cat.Name)
	if cat.Name == "" {
		return models.Category{}, errNameRequired
	}
	if cat.Slug == "" {
		cat.Slug = cat.Name
	}
	cat.Slug = normalize.Slug(cat.Slug)

	now := time.Now().UTC()
	cat.ID = primitive.NewObjectID()
	cat.NameCI = text.Fold(cat.Name)
	cat.CreatedAt = now
	cat.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, cat); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicateCategory
		}
		return models.Category{}, err
	}
	return cat, nil
}

// GetBySlug returns mongo.ErrNoDocuments if not found.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	var cat models.Category
	if err := s.c.FindOne(ctx, bson.M{"slug": normalize.Slug(slug)}).Decode(&cat); err != nil {
		return models.Category{}, err
	}
	return cat, nil
}

// GetByIDs loads multiple categories by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Category
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every category ordered by case-folded name.
func (s *Store) List(ctx context.Context) ([]models.Category, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "name_ci", Value: 1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
