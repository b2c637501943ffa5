package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/arming-scheduler/internal/logger"
)

// DefaultArmed is the panel state assumed when none is stored.
const DefaultArmed = true

// State is the shared global panel flag.
type State struct {
	// cache persists the flag.
	cache Cache
	// key is the cache key of the flag.
	key string
	// mu makes read-default-write and set mutually exclusive.
	mu sync.Mutex
}

// NewState creates a panel flag stored under key in cache.
func NewState(cache Cache, key string) *State {
	return &State{
		cache: cache,
		key:   key,
	}
}

// Armed returns the panel flag. A missing flag is healed to DefaultArmed and persisted.
// On other cache failures it returns DefaultArmed together with the error,
// so callers that must keep running can use the value.
func (s *State) Armed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	armed, err := s.cache.GetBool(ctx, s.key)
	if err == nil {
		return armed, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return DefaultArmed, fmt.Errorf("read panel state: %w", err)
	}

	logger.WarnKV(ctx, "Panel state not in cache, defaulting", "armed", DefaultArmed)

	if err = s.cache.SetBool(ctx, s.key, DefaultArmed); err != nil {
		return DefaultArmed, fmt.Errorf("persist default panel state: %w", err)
	}

	return DefaultArmed, nil
}

// SetArmed stores the panel flag.
func (s *State) SetArmed(ctx context.Context, armed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.SetBool(ctx, s.key, armed); err != nil {
		return fmt.Errorf("write panel state: %w", err)
	}

	logger.InfoKV(ctx, "Global panel state set", "armed", armed)

	return nil
}

// Init makes sure a flag exists, storing DefaultArmed on first ever start.
func (s *State) Init(ctx context.Context) error {
	_, err := s.Armed(ctx)

	return err
}
