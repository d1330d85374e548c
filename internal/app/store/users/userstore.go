package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrStaleVersion is returned by SaveLibrary when the stored version no
	// longer matches the one the caller read.
	ErrStaleVersion = errors.New("user was modified concurrently")

	errEmailRequired = errors.New("email is required")
	errNameRequired  = errors.New("full name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByGoogleID looks up a user by Google subject id. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByGoogleID(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"google_id": sub}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// Library state starts empty and the version at zero.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)

	if u.Email == "" {
		return models.User{}, errEmailRequired
	}
	if u.FullName == "" {
		return models.User{}, errNameRequired
	}

	u.Purchases = []models.PurchaseEntry{}
	u.Cart = []primitive.ObjectID{}
	u.Streak = 0
	u.Version = 0

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// SaveLibrary writes the library fields of u (purchases, cart, streak,
// last activity) if the stored version still equals u.Version, and bumps the
// version by one. Returns ErrStaleVersion when another writer got there first.
// On success u.Version is advanced to match the stored document.
func (s *Store) SaveLibrary(ctx context.Context, u *models.User) error {
	purchases := u.Purchases
	if purchases == nil {
		purchases = []models.PurchaseEntry{}
	}
	cart := u.Cart
	if cart == nil {
		cart = []primitive.ObjectID{}
	}
	now := time.Now().UTC()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": u.ID, "version": u.Version},
		bson.M{
			"$set": bson.M{
				"purchases":     purchases,
				"cart":          cart,
				"streak":        u.Streak,
				"last_activity": u.LastActivity,
				"updated_at":    now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStaleVersion
	}
	u.Version++
	u.UpdatedAt = now
	return nil
}

// LinkGoogleID attaches a Google identity to an existing account and marks
// it verified, since Google has already confirmed the address.
//
// An account that was never verified may have been registered by someone
// who does not own the address, so its password and pending verification
// code are removed. Only Google sign-in opens it afterwards.
func (s *Store) LinkGoogleID(ctx context.Context, id primitive.ObjectID, sub string) error {
	now := time.Now().UTC()
	set := bson.M{
		"google_id":   sub,
		"is_verified": true,
		"updated_at":  now,
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_verified": bson.M{"$ne": true}}, bson.M{
		"$set": set,
		"$unset": bson.M{
			"password_hash":           "",
			"verification_code_hash":  "",
			"verification_expires_at": "",
			"verification_attempts":   "",
		},
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return linkErr(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Already verified: the password belongs to the address owner and stays.
	res, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return linkErr(err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func linkErr(err error) error {
	if wafflemongo.IsDup(err) {
		return fmt.Errorf("google account already linked: %w", err)
	}
	return err
}
