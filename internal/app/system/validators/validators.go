// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/bayit/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("courses", coursesSchema())
	ensure("categories", categoriesSchema())
	ensure("bundles", bundlesSchema())

	// TTL-indexed, no validator.
	ensure("oauth_states", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	intType  = bson.A{"int", "long"}
	arrOrNil = bson.A{"array", "null"}
)

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "full_name", "streak", "version"},
			"properties": bson.M{
				"email":         nonBlank,
				"full_name":     bson.M{"bsonType": "string"},
				"full_name_ci":  bson.M{"bsonType": "string"},
				"password_hash": bson.M{"bsonType": bson.A{"string", "null"}},
				"google_id":     bson.M{"bsonType": bson.A{"string", "null"}},
				"is_verified":   bson.M{"bsonType": "bool"},
				"streak":        bson.M{"bsonType": intType, "minimum": 0},
				"version":       bson.M{"bsonType": intType, "minimum": 0},
				"cart":          bson.M{"bsonType": arrOrNil},
				"purchases": bson.M{
					"bsonType": arrOrNil,
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"course_id", "enrolled_at"},
						"properties": bson.M{
							"course_id":         bson.M{"bsonType": "objectId"},
							"completed_lessons": bson.M{"bsonType": arrOrNil},
							"enrolled_at":       bson.M{"bsonType": "date"},
							"last_viewed":       bson.M{"bsonType": "date"},
						},
					},
				},
			},
		},
	}
}

func coursesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "status", "price_cents"},
			"properties": bson.M{
				"title":       nonBlank,
				"title_ci":    bson.M{"bsonType": "string"},
				"category_id": bson.M{"bsonType": "objectId"},
				"price_cents": bson.M{"bsonType": intType, "minimum": 0},
				"status":      bson.M{"enum": bson.A{models.CourseStatusPublished, models.CourseStatusDraft}},
				"lessons": bson.M{
					"bsonType": arrOrNil,
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"lesson_id"},
						"properties": bson.M{
							"lesson_id": nonBlank,
						},
					},
				},
			},
		},
	}
}

func categoriesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "slug"},
			"properties": bson.M{
				"name": nonBlank,
				"slug": nonBlank,
			},
		},
	}
}

func bundlesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "course_ids"},
			"properties": bson.M{
				"title":       nonBlank,
				"course_ids":  bson.M{"bsonType": arrOrNil, "items": bson.M{"bsonType": "objectId"}},
				"price_cents": bson.M{"bsonType": intType, "minimum": 0},
			},
		},
	}
}
