package media

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Source identifies what a player should load and which attempt it belongs to.
type Source struct {
	Token uint64
	URL   string
}

// Player is the surface the generation state machine drives. Implementations
// report outcomes to a Notifier, either later from another goroutine or
// directly from within Load.
type Player interface {
	Load(src Source)
	Pause()
	Reload()
}

// Notifier receives load outcomes for the token a source was loaded with.
type Notifier interface {
	MediaLoaded(token uint64)
	MediaFailed(token uint64, cause error)
}

var (
	ErrNotMedia  = errors.New("response is not video")
	ErrBadStatus = errors.New("unexpected response status")
)

// StatusError carries the HTTP status of a failed probe.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d", e.Code)
}

func (e *StatusError) Unwrap() error { return ErrBadStatus }

// Remote stands in for a player that lives in the browser. It records the
// current source so the page can pick it up; the page reports outcomes back
// through the API.
type Remote struct {
	mu      sync.Mutex
	current Source
	reloads int
}

func NewRemote() *Remote {
	return &Remote{}
}

func (r *Remote) Load(src Source) {
	r.mu.Lock()
	r.current = src
	r.mu.Unlock()
	slog.Debug("media: remote source set", "token", src.Token)
}

func (r *Remote) Pause() {}

func (r *Remote) Reload() {
	r.mu.Lock()
	r.reloads++
	r.mu.Unlock()
}

// Current returns the source most recently handed to the player.
func (r *Remote) Current() Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Reloads reports how many times the player was asked to reload.
func (r *Remote) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}
