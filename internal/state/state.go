package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// StateManager records listing progress per leaf category so an interrupted
// product run can resume where it stopped.
type StateManager interface {
	GetLastProcessedPage(ctx context.Context, categoryID string) (int, error)
	SetLastProcessedPage(ctx context.Context, categoryID string, pageNumber int) error
	MarkCategoryDone(ctx context.Context, categoryID string) error
	IsCategoryDone(ctx context.Context, categoryID string) (bool, error)
	Clear(ctx context.Context, categoryID string) error
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
	doneKey     string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "scraper:progress:listing:",
		doneKey:     "scraper:progress:done",
	}
}

func (s *redisStateManager) GetLastProcessedPage(ctx context.Context, categoryID string) (int, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+categoryID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil // No progress saved yet
		}
		return 0, fmt.Errorf("failed to get last processed page for category %s: %w", categoryID, err)
	}

	page, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page number for category %s: %w", categoryID, err)
	}

	return page, nil
}

func (s *redisStateManager) SetLastProcessedPage(ctx context.Context, categoryID string, pageNumber int) error {
	err := s.redisClient.Set(ctx, s.keyPrefix+categoryID, pageNumber, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set last processed page for category %s: %w", categoryID, err)
	}
	return nil
}

func (s *redisStateManager) MarkCategoryDone(ctx context.Context, categoryID string) error {
	if err := s.redisClient.SAdd(ctx, s.doneKey, categoryID).Err(); err != nil {
		return fmt.Errorf("failed to mark category %s done: %w", categoryID, err)
	}
	return nil
}

func (s *redisStateManager) IsCategoryDone(ctx context.Context, categoryID string) (bool, error) {
	done, err := s.redisClient.SIsMember(ctx, s.doneKey, categoryID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check category %s: %w", categoryID, err)
	}
	return done, nil
}

func (s *redisStateManager) Clear(ctx context.Context, categoryID string) error {
	pipe := s.redisClient.TxPipeline()
	pipe.Del(ctx, s.keyPrefix+categoryID)
	pipe.SRem(ctx, s.doneKey, categoryID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear progress for category %s: %w", categoryID, err)
	}
	return nil
}

type memoryStateManager struct {
	mu    sync.Mutex
	pages map[string]int
	done  map[string]bool
}

// NewMemoryStateManager keeps progress for the lifetime of the process. Used
// when Redis is disabled.
func NewMemoryStateManager() StateManager {
	return &memoryStateManager{
		pages: make(map[string]int),
		done:  make(map[string]bool),
	}
}

func (s *memoryStateManager) GetLastProcessedPage(_ context.Context, categoryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[categoryID], nil
}

func (s *memoryStateManager) SetLastProcessedPage(_ context.Context, categoryID string, pageNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[categoryID] = pageNumber
	return nil
}

func (s *memoryStateManager) MarkCategoryDone(_ context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done[categoryID] = true
	return nil
}

func (s *memoryStateManager) IsCategoryDone(_ context.Context, categoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done[categoryID], nil
}

func (s *memoryStateManager) Clear(_ context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, categoryID)
	delete(s.done, categoryID)
	return nil
}
