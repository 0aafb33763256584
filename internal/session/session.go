package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/timemachinetv/timemachine/internal/attempt"
	"github.com/timemachinetv/timemachine/internal/media"
	"github.com/timemachinetv/timemachine/internal/request"
)

const subscriberBuffer = 8

// PlayerFactory builds the media player for a session. The session passes
// itself as the notifier.
type PlayerFactory func(n media.Notifier) media.Player

// Snapshot is a point-in-time copy of a session's form and attempt.
type Snapshot struct {
	ID      string          `json:"id"`
	Form    request.Params  `json:"form"`
	Attempt attempt.Attempt `json:"attempt"`
}

// Session owns one form and one generation attempt. Events are applied one
// at a time; player commands run outside the state lock but in event order.
type Session struct {
	id   string
	base string

	mu          sync.Mutex
	form        request.Params
	current     attempt.Attempt
	hasSource   bool
	lastSeen    time.Time
	subscribers map[chan Snapshot]struct{}
	closed      bool

	playerMu sync.Mutex
	player   media.Player

	now func() time.Time
}

func newSession(id, base string, form request.Params, newPlayer PlayerFactory, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		base:        base,
		form:        form,
		subscribers: make(map[chan Snapshot]struct{}),
		now:         now,
		lastSeen:    now(),
	}
	s.player = newPlayer(s)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{ID: s.id, Form: s.form, Attempt: s.current}
}

// Submit records form as the session's form state and starts a new attempt.
func (s *Session) Submit(form request.Params) Snapshot {
	return s.Dispatch(attempt.Submit(form))
}

// Reset clears the prompt and returns the attempt to idle.
func (s *Session) Reset() Snapshot {
	return s.Dispatch(attempt.Reset())
}

func (s *Session) MediaLoaded(token uint64) {
	s.Dispatch(attempt.MediaLoaded(token))
}

func (s *Session) MediaFailed(token uint64, cause error) {
	slog.Warn("session: media failed to load", "session", s.id, "token", token, "error", cause)
	s.Dispatch(attempt.MediaError(token))
}

// Dispatch applies ev and drives the player accordingly.
func (s *Session) Dispatch(ev attempt.Event) Snapshot {
	s.mu.Lock()
	prev := s.current
	next, cmd := attempt.Transition(prev, ev, s.base)
	s.current = next
	s.lastSeen = s.now()

	switch ev.Kind {
	case attempt.EventSubmit:
		s.form = ev.Form
	case attempt.EventReset:
		s.form.Prompt = ""
	}

	hadSource := s.hasSource
	stop := false
	switch {
	case cmd.Load:
		s.hasSource = true
	case ev.Kind == attempt.EventReset, ev.Kind == attempt.EventSubmit:
		stop = hadSource
		s.hasSource = false
	}

	if next == prev && ev.Kind != attempt.EventSubmit {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		slog.Debug("session: event ignored", "session", s.id, "event", ev.Kind.String(), "token", ev.Token, "current", next.Token)
		return snap
	}

	snap := s.snapshotLocked()
	s.publishLocked(snap)

	if !cmd.Load && !stop {
		s.mu.Unlock()
		s.logTransition(ev, prev, next)
		return snap
	}

	s.playerMu.Lock()
	s.mu.Unlock()
	if stop {
		s.player.Pause()
	}
	if cmd.Load {
		s.player.Load(media.Source{Token: cmd.Token, URL: cmd.URL})
		if hadSource {
			s.player.Pause()
			s.player.Reload()
		}
	}
	s.playerMu.Unlock()

	s.logTransition(ev, prev, next)
	return snap
}

func (s *Session) logTransition(ev attempt.Event, prev, next attempt.Attempt) {
	slog.Info("session: transition",
		"session", s.id,
		"event", ev.Kind.String(),
		"from", prev.Status.String(),
		"to", next.Status.String(),
		"token", next.Token,
	)
}

// Subscribe returns a channel that receives a snapshot after every state
// change. Slow subscribers miss snapshots rather than block the session.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

func (s *Session) publishLocked(snap Snapshot) {
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			slog.Warn("session: subscriber lagging, snapshot dropped", "session", s.id)
		}
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close stops the player and ends all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.playerMu.Lock()
	s.player.Pause()
	s.playerMu.Unlock()
}
