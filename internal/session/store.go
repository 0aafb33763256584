package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timemachinetv/timemachine/internal/media"
	"github.com/timemachinetv/timemachine/internal/request"
)

var ErrNotFound = errors.New("session not found")

type StoreConfig struct {
	// BaseURL is the generation endpoint prompts are appended to.
	BaseURL   string
	Defaults  request.Params
	NewPlayer PlayerFactory
	// TTL expires sessions with no activity; zero keeps them until removed.
	TTL time.Duration
	Now func() time.Time
}

// Store keeps the live sessions in memory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	baseURL   string
	defaults  request.Params
	newPlayer PlayerFactory
	ttl       time.Duration
	now       func() time.Time
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.NewPlayer == nil {
		cfg.NewPlayer = func(media.Notifier) media.Player { return media.NewRemote() }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = request.DefaultBaseURL
	}
	return &Store{
		sessions:  make(map[string]*Session),
		baseURL:   cfg.BaseURL,
		defaults:  cfg.Defaults,
		newPlayer: cfg.NewPlayer,
		ttl:       cfg.TTL,
		now:       cfg.Now,
	}
}

// BaseURL returns the generation endpoint sessions build against.
func (st *Store) BaseURL() string { return st.baseURL }

// Defaults returns the form state new sessions start with.
func (st *Store) Defaults() request.Params { return st.defaults }

func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), st.baseURL, st.defaults, st.newPlayer, st.now)

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()

	slog.Debug("session: created", "session", s.id)
	return s
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (st *Store) Remove(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

func (st *Store) StartCleanupLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("session cleanup: shutting down")
				return
			case <-ticker.C:
				if n := st.Sweep(); n > 0 {
					slog.Info("session cleanup: expired sessions removed", "count", n)
				}
			}
		}
	}()
}
