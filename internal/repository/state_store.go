package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/patrickmn/go-cache"
)

const (
	lastBucketPrefix   = "last_bucket:"
	uploadStatusPrefix = "upload_status:"
)

// StateStore keeps small cross-request values in a bounded, expiring in-memory cache
type StateStore struct {
	cache      *cache.Cache
	maxEntries int
	mu         sync.Mutex
}

// NewStateStore creates a new state store
func NewStateStore(cfg config.StateConfig) *StateStore {
	return &StateStore{
		cache:      cache.New(cfg.TTL, cfg.CleanupInterval),
		maxEntries: cfg.MaxEntries,
	}
}

// SetLastBucket remembers the bucket a client used last
func (s *StateStore) SetLastBucket(ctx context.Context, clientID, bucket string) error {
	if clientID == "" {
		return fmt.Errorf("%w: client id", entity.ErrMissingField)
	}
	s.set(lastBucketPrefix+clientID, bucket)
	return nil
}

// GetLastBucket returns the last bucket of a client, or "" when unknown or expired
func (s *StateStore) GetLastBucket(ctx context.Context, clientID string) string {
	v, ok := s.cache.Get(lastBucketPrefix + clientID)
	if !ok {
		return ""
	}
	bucket, _ := v.(string)
	return bucket
}

// SetUploadStatus records the progress of an upload
func (s *StateStore) SetUploadStatus(ctx context.Context, uploadID string, status entity.UploadStatus) error {
	if uploadID == "" {
		return fmt.Errorf("%w: upload id", entity.ErrMissingField)
	}
	s.set(uploadStatusPrefix+uploadID, status)
	return nil
}

// GetUploadStatus retrieves the progress of an upload
func (s *StateStore) GetUploadStatus(ctx context.Context, uploadID string) (*entity.UploadStatus, error) {
	v, ok := s.cache.Get(uploadStatusPrefix + uploadID)
	if !ok {
		return nil, fmt.Errorf("%w: upload %s", entity.ErrNotFound, uploadID)
	}

	status, ok := v.(entity.UploadStatus)
	if !ok {
		return nil, fmt.Errorf("%w: upload %s", entity.ErrNotFound, uploadID)
	}
	return &status, nil
}

// Len returns the number of live entries
func (s *StateStore) Len() int {
	return s.cache.ItemCount()
}

func (s *StateStore) set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cache.Get(key); !exists {
		for s.cache.ItemCount() >= s.maxEntries {
			if !s.evictSoonestExpiring() {
				break
			}
		}
	}

	s.cache.Set(key, value, cache.DefaultExpiration)
}

// evictSoonestExpiring drops the entry closest to expiry. Items() skips expired ones,
// so those are flushed first.
func (s *StateStore) evictSoonestExpiring() bool {
	s.cache.DeleteExpired()

	items := s.cache.Items()
	if len(items) < s.maxEntries {
		return true
	}

	var (
		victim   string
		earliest int64
	)
	for k, item := range items {
		if victim == "" || item.Expiration < earliest {
			victim = k
			earliest = item.Expiration
		}
	}

	if victim == "" {
		return false
	}
	s.cache.Delete(victim)
	return true
}
