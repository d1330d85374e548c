// internal/app/store/bundles/bundlestore.go
package bundlestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errNoCourses = errors.New("a bundle must contain at least one course")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("bundles")}
}

// Create inserts a bundle. Repeated course ids are collapsed.
func (s *Store) Create(ctx context.Context, b models.Bundle) (models.Bundle, error) {
	ids := make([]primitive.ObjectID, 0, len(b.CourseIDs))
	seen := make(map[primitive.ObjectID]struct{}, len(b.CourseIDs))
	for _, id := range b.CourseIDs {
		if _, ok := seen[id]; ok || id.IsZero() {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return models.Bundle{}, errNoCourses
	}
	b.CourseIDs = ids
	b.ID = primitive.NewObjectID()
	b.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Bundle{}, err
	}
	return b, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Bundle, error) {
	var b models.Bundle
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return models.Bundle{}, err
	}
	return b, nil
}
