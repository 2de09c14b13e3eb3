package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plans/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get reports false without error on a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// DefaultPlanKey holds the resolved default plan.
func (s *CacheService) DefaultPlanKey() string {
	return s.GenerateKey("plan", "default", "current")
}

// Plan caching
func (s *CacheService) CachePlan(ctx context.Context, plan *models.Plan) error {
	if plan == nil {
		return errors.New("cannot cache nil plan")
	}
	for _, key := range []string{
		s.GenerateKey("plan", "id", plan.ID),
		s.GenerateKey("plan", "code", plan.Code),
	} {
		if err := s.Set(ctx, key, plan); err != nil {
			return err
		}
	}
	return nil
}

// GetPlan returns nil, nil on a miss.
func (s *CacheService) GetPlan(ctx context.Context, key string) (*models.Plan, error) {
	var plan models.Plan
	found, err := s.Get(ctx, key, &plan)
	if err != nil || !found {
		return nil, err
	}
	return &plan, nil
}

func (s *CacheService) GetPlanByCode(ctx context.Context, code string) (*models.Plan, error) {
	return s.GetPlan(ctx, s.GenerateKey("plan", "code", code))
}

func (s *CacheService) CacheDefaultPlan(ctx context.Context, plan *models.Plan) error {
	return s.Set(ctx, s.DefaultPlanKey(), plan)
}

func (s *CacheService) GetDefaultPlan(ctx context.Context) (*models.Plan, error) {
	return s.GetPlan(ctx, s.DefaultPlanKey())
}

// InvalidatePlan drops every key a plan may be cached under, including
// the default plan entry.
func (s *CacheService) InvalidatePlan(ctx context.Context, plan *models.Plan) error {
	return s.Delete(ctx,
		s.GenerateKey("plan", "id", plan.ID),
		s.GenerateKey("plan", "code", plan.Code),
		s.DefaultPlanKey(),
	)
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
