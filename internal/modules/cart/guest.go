package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const guestKeyPrefix = "bijoux:cart:"

// redisGuestStore keeps guest carts as JSON values with a sliding TTL.
type redisGuestStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuestStore(rdb *redis.Client, ttl time.Duration) GuestStore {
	return &redisGuestStore{rdb: rdb, ttl: ttl}
}

func (s *redisGuestStore) Load(ctx context.Context, sessionID string) ([]Item, error) {
	raw, err := s.rdb.Get(ctx, guestKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *redisGuestStore) Save(ctx context.Context, sessionID string, items []Item) error {
	if len(items) == 0 {
		return s.Delete(ctx, sessionID)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, guestKeyPrefix+sessionID, raw, s.ttl).Err()
}

func (s *redisGuestStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, guestKeyPrefix+sessionID).Err()
}

// MemoryGuestStore is the in-process fallback when Redis is not configured.
// Expired entries are dropped when touched and by Sweep.
type MemoryGuestStore struct {
	mu    sync.Mutex
	carts map[string]guestEntry
	ttl   time.Duration
	now   func() time.Time
}

type guestEntry struct {
	items   []Item
	expires time.Time
}

func NewMemoryGuestStore(ttl time.Duration) *MemoryGuestStore {
	return &MemoryGuestStore{carts: make(map[string]guestEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryGuestStore) Load(_ context.Context, sessionID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.carts[sessionID]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expires) {
		delete(s.carts, sessionID)
		return nil, nil
	}
	return append([]Item(nil), e.items...), nil
}

func (s *MemoryGuestStore) Save(_ context.Context, sessionID string, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) == 0 {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = guestEntry{items: append([]Item(nil), items...), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryGuestStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

// Sweep drops expired carts and returns how many were removed.
func (s *MemoryGuestStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.carts {
		if now.After(e.expires) {
			delete(s.carts, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (s *MemoryGuestStore) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
