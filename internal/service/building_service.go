package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/events"
	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/store"

	"go.uber.org/zap"
)

// BuildingCache configures the optional read-through cache of building lists.
type BuildingCache struct {
	KV     store.KV
	TTL    time.Duration
	Prefix string
}

// BuildingService manages buildings. Deleting a building removes its organizations.
type BuildingService struct {
	store  repository.Store
	cache  *BuildingCache // nil disables caching
	events events.Publisher
	logger *zap.Logger
}

func NewBuildingService(store repository.Store, cache *BuildingCache, publisher events.Publisher, logger *zap.Logger) *BuildingService {
	if cache != nil && cache.KV == nil {
		cache = nil
	}
	return &BuildingService{store: store, cache: cache, events: publisher, logger: logger}
}

func (s *BuildingService) FindBuildings(ctx context.Context) ([]*domain.Building, error) {
	return s.cached(ctx, "all", func() ([]*domain.Building, error) {
		return s.store.Buildings().FindAll(ctx)
	})
}

// FindOneBuilding returns NotFound when id does not exist.
func (s *BuildingService) FindOneBuilding(ctx context.Context, id int64) (*domain.Building, error) {
	b, err := s.store.Buildings().FindOneWithFilter(ctx, repository.Filter{Field: "id", Value: id})
	if err != nil {
		return nil, fmt.Errorf("failed to get building: %w", err)
	}
	if b == nil {
		return nil, notFound("building", id)
	}
	return b, nil
}

// FindBuildingsInBox returns buildings inside box, edges included. An inverted box matches nothing.
func (s *BuildingService) FindBuildingsInBox(ctx context.Context, box domain.BoundingBox) ([]*domain.Building, error) {
	if box.LatMin > box.LatMax || box.LonMin > box.LonMax {
		return []*domain.Building{}, nil
	}
	key := fmt.Sprintf("box:%g:%g:%g:%g", box.LatMin, box.LonMin, box.LatMax, box.LonMax)
	return s.cached(ctx, key, func() ([]*domain.Building, error) {
		return s.store.Buildings().FindInBox(ctx, box)
	})
}

func (s *BuildingService) AddBuilding(ctx context.Context, address string, coords domain.Coordinates) (int64, error) {
	id, err := s.store.Buildings().AddOne(ctx, repository.Values{
		"address":     address,
		"coordinates": coords,
	})
	if err != nil {
		return 0, err
	}
	s.InvalidateCache(ctx)
	s.logger.Info("Building created", zap.Int64("building_id", id))
	publish(ctx, s.events, s.logger, events.New(events.EntityBuilding, events.ActionCreated, id))
	return id, nil
}

func (s *BuildingService) DeleteBuilding(ctx context.Context, id int64) error {
	if err := s.store.Buildings().DeleteOne(ctx, id); err != nil {
		return mapNotFound(err, "building", id)
	}
	s.InvalidateCache(ctx)
	s.logger.Info("Building deleted", zap.Int64("building_id", id))
	publish(ctx, s.events, s.logger, events.New(events.EntityBuilding, events.ActionDeleted, id))
	return nil
}

// InvalidateCache moves readers to a new cache generation and drops the old entries.
// A list loaded before the switch is written under the old generation and never read.
func (s *BuildingService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.KV.Incr(ctx, s.generationKey()); err != nil {
		s.logger.Warn("Failed to bump building cache generation", zap.Error(err))
	}
	keys, err := s.cache.KV.ScanKeys(ctx, s.cache.Prefix+"buildings:*")
	if err == nil {
		err = s.cache.KV.Delete(ctx, keys...)
	}
	if err != nil {
		s.logger.Warn("Failed to invalidate building cache", zap.Error(err))
	}
}

func (s *BuildingService) generationKey() string {
	return s.cache.Prefix + "buildings-gen"
}

// cacheKey scopes suffix to the current generation.
func (s *BuildingService) cacheKey(ctx context.Context, suffix string) (string, error) {
	gen, err := s.cache.KV.Get(ctx, s.generationKey())
	if errors.Is(err, store.ErrMiss) {
		gen, err = "0", nil
	}
	if err != nil {
		return "", err
	}
	return s.cache.Prefix + "buildings:" + gen + ":" + suffix, nil
}

// cached serves suffix from the cache, filling it from load on a miss.
// Cache failures are logged and fall through to storage.
func (s *BuildingService) cached(ctx context.Context, suffix string, load func() ([]*domain.Building, error)) ([]*domain.Building, error) {
	if s.cache == nil {
		return load()
	}
	key, err := s.cacheKey(ctx, suffix)
	if err != nil {
		s.logger.Warn("Building cache unavailable", zap.Error(err))
		return load()
	}

	raw, err := s.cache.KV.Get(ctx, key)
	switch {
	case err == nil:
		var out []*domain.Building
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		s.logger.Warn("Discarding unreadable cache entry", zap.String("key", key))
	case !errors.Is(err, store.ErrMiss):
		s.logger.Warn("Building cache read failed", zap.String("key", key), zap.Error(err))
	}

	out, err := load()
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(out); err == nil {
		if err := s.cache.KV.Set(ctx, key, string(b), s.cache.TTL); err != nil {
			s.logger.Warn("Building cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
