// Package attempt holds the lifecycle of a single generation attempt as a
// pure transition table. Callers feed it events and carry out the returned
// command against the media player.
package attempt

import (
	"fmt"
	"strings"

	"github.com/timemachinetv/timemachine/internal/request"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StatusIdle
	case "loading":
		*s = StatusLoading
	case "ready":
		*s = StatusReady
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Failure classifies why an attempt ended in StatusFailed.
type Failure string

const (
	FailureNone       Failure = ""
	FailureValidation Failure = "validation"
	FailureMediaLoad  Failure = "media_load"
)

const (
	MessageEmptyPrompt = "Please enter a prompt."
	MessageMediaLoad   = "Video failed to load from the generated URL. This can happen due to CORS or because the generation endpoint returns a redirect/HTML. Use 'Open link' to test in a new tab."
)

// Attempt is the state of the current generation attempt. Token increases on
// every submit and reset; media events carrying an older token are stale.
type Attempt struct {
	Token        uint64  `json:"token"`
	Status       Status  `json:"status"`
	RequestURL   string  `json:"requestUrl,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	Failure      Failure `json:"failure,omitempty"`
}

type EventKind int

const (
	EventSubmit EventKind = iota
	EventMediaLoaded
	EventMediaError
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "submit"
	case EventMediaLoaded:
		return "media_loaded"
	case EventMediaError:
		return "media_error"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is a named input to the state machine. Form is read for EventSubmit,
// Token for the media events.
type Event struct {
	Kind  EventKind
	Form  request.Params
	Token uint64
}

func Submit(form request.Params) Event { return Event{Kind: EventSubmit, Form: form} }
func MediaLoaded(token uint64) Event  { return Event{Kind: EventMediaLoaded, Token: token} }
func MediaError(token uint64) Event   { return Event{Kind: EventMediaError, Token: token} }
func Reset() Event                    { return Event{Kind: EventReset} }

// Command tells the caller what to do with the media player after a
// transition. The zero value means nothing.
type Command struct {
	Load  bool
	Token uint64
	URL   string
}

// Transition applies ev to cur. Media events that are stale, or that arrive
// outside StatusLoading, return cur unchanged.
func Transition(cur Attempt, ev Event, base string) (Attempt, Command) {
	switch ev.Kind {
	case EventSubmit:
		next := Attempt{Token: cur.Token + 1}
		if strings.TrimSpace(ev.Form.Prompt) == "" {
			next.Status = StatusFailed
			next.ErrorMessage = MessageEmptyPrompt
			next.Failure = FailureValidation
			return next, Command{}
		}
		next.Status = StatusLoading
		next.RequestURL = request.Build(base, ev.Form)
		return next, Command{Load: true, Token: next.Token, URL: next.RequestURL}

	case EventMediaLoaded:
		if !cur.accepts(ev.Token) {
			return cur, Command{}
		}
		next := cur
		next.Status = StatusReady
		return next, Command{}

	case EventMediaError:
		if !cur.accepts(ev.Token) {
			return cur, Command{}
		}
		next := cur
		next.Status = StatusFailed
		next.ErrorMessage = MessageMediaLoad
		next.Failure = FailureMediaLoad
		return next, Command{}

	case EventReset:
		return Attempt{Token: cur.Token + 1, Status: StatusIdle}, Command{}
	}

	return cur, Command{}
}

func (a Attempt) accepts(token uint64) bool {
	return a.Status == StatusLoading && a.Token == token
}
