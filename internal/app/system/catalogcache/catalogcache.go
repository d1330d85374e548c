// Package catalogcache serves catalog reads (courses, categories, bundles)
// through an optional Redis read-through cache. The catalog is authored
// elsewhere and changes rarely, so entries live for a fixed TTL.
//
// Redis failures never fail a read: they are logged, counted, and the read
// falls back to MongoDB.
package catalogcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/metrics"
	"github.com/dalemusser/bayit/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultTTL is used when Config.TTL is zero.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "bayit:catalog:"

// CourseSource loads courses from the primary store.
type CourseSource interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error)
}

// CategorySource loads categories from the primary store.
type CategorySource interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

// BundleSource loads bundles from the primary store.
type BundleSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Bundle, error)
}

// Config wires a Catalog. Redis may be nil to disable caching.
type Config struct {
	Courses    CourseSource
	Categories CategorySource
	Bundles    BundleSource
	Redis      *redis.Client
	TTL        time.Duration
	Log        *zap.Logger
	Metrics    *metrics.Metrics
}

// Catalog is the read side of the catalog used by handlers and the library service.
type Catalog struct {
	courses    CourseSource
	categories CategorySource
	bundles    BundleSource
	rdb        *redis.Client
	ttl        time.Duration
	log        *zap.Logger
	m          *metrics.Metrics
}

func New(cfg Config) *Catalog {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Catalog{
		courses:    cfg.Courses,
		categories: cfg.Categories,
		bundles:    cfg.Bundles,
		rdb:        cfg.Redis,
		ttl:        cfg.TTL,
		log:        cfg.Log,
		m:          cfg.Metrics,
	}
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "catalogcache.Connect"
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rdb, nil
}

func courseKey(id primitive.ObjectID) string   { return keyPrefix + "course:" + id.Hex() }
func categoryKey(id primitive.ObjectID) string { return keyPrefix + "category:" + id.Hex() }
func bundleKey(id primitive.ObjectID) string   { return keyPrefix + "bundle:" + id.Hex() }

const categoryListKey = keyPrefix + "categories"

// Courses resolves ids to courses in any status. Ids with no course are
// absent from the map.
func (c *Catalog) Courses(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Course, error) {
	return lookupMany(ctx, c, ids, courseKey, c.courses.GetByIDs,
		func(x models.Course) primitive.ObjectID { return x.ID })
}

// Categories resolves ids to categories. Ids with no category are absent.
func (c *Catalog) Categories(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error) {
	return lookupMany(ctx, c, ids, categoryKey, c.categories.GetByIDs,
		func(x models.Category) primitive.ObjectID { return x.ID })
}

// ListCategories returns every category ordered by name.
func (c *Catalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if c.get(ctx, categoryListKey, &cached) {
		return cached, nil
	}
	out, err := c.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, categoryListKey, out)
	return out, nil
}

// Bundle loads one bundle. The primary store's not-found error is returned as is.
func (c *Catalog) Bundle(ctx context.Context, id primitive.ObjectID) (models.Bundle, error) {
	var cached models.Bundle
	if c.get(ctx, bundleKey(id), &cached) {
		return cached, nil
	}
	b, err := c.bundles.GetByID(ctx, id)
	if err != nil {
		return models.Bundle{}, err
	}
	c.set(ctx, bundleKey(id), b)
	return b, nil
}

func lookupMany[T any](
	ctx context.Context,
	c *Catalog,
	ids []primitive.ObjectID,
	keyFn func(primitive.ObjectID) string,
	load func(context.Context, []primitive.ObjectID) ([]T, error),
	idFn func(T) primitive.ObjectID,
) (map[primitive.ObjectID]T, error) {
	out := make(map[primitive.ObjectID]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	misses := ids
	if c.rdb != nil {
		misses = misses[:0:0]
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = keyFn(id)
		}
		vals, err := c.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			c.degraded("mget", err)
			misses = ids
		} else {
			for i, v := range vals {
				s, ok := v.(string)
				if !ok {
					c.m.CacheLookup("miss")
					misses = append(misses, ids[i])
					continue
				}
				var x T
				if err := json.Unmarshal([]byte(s), &x); err != nil {
					c.degraded("decode", err)
					misses = append(misses, ids[i])
					continue
				}
				c.m.CacheLookup("hit")
				out[ids[i]] = x
			}
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := load(ctx, misses)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil && len(loaded) > 0 {
		pipe := c.rdb.Pipeline()
		for _, x := range loaded {
			if b, err := json.Marshal(x); err == nil {
				pipe.Set(ctx, keyFn(idFn(x)), b, c.ttl)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			c.degraded("set", err)
		}
	}
	for _, x := range loaded {
		out[idFn(x)] = x
	}
	return out, nil
}

func (c *Catalog) get(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		c.m.CacheLookup("miss")
		return false
	}
	if err != nil {
		c.degraded("get", err)
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		c.degraded("decode", err)
		return false
	}
	c.m.CacheLookup("hit")
	return true
}

func (c *Catalog) set(ctx context.Context, key string, v any) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.degraded("encode", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.degraded("set", err)
	}
}

func (c *Catalog) degraded(op string, err error) {
	c.m.CacheLookup("error")
	c.log.Warn("catalog cache degraded", zap.String("op", op), zap.Error(err))
}
