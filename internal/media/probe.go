package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Prober checks server-side that a generation URL answers with video. It
// fetches only the first byte range and never keeps the body.
type Prober struct {
	client   *http.Client
	notifier Notifier

	mu      sync.Mutex
	current Source
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewProber(client *http.Client, notifier Notifier) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Prober{client: client, notifier: notifier}
}

// Load makes src the current source and starts probing it, abandoning any
// probe still in flight.
func (p *Prober) Load(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = src
	p.startLocked()
}

// Pause abandons the in-flight probe, if any.
func (p *Prober) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Reload probes the current source again from the start.
func (p *Prober) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

// Wait blocks until every started probe has reported or been abandoned.
func (p *Prober) Wait() {
	p.wg.Wait()
}

func (p *Prober) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Prober) startLocked() {
	p.stopLocked()
	if p.current.URL == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	src := p.current

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		err := p.probe(ctx, src.URL)
		if ctx.Err() != nil {
			slog.Debug("media: probe abandoned", "token", src.Token)
			return
		}
		if err != nil {
			slog.Warn("media: probe failed", "token", src.Token, "error", err)
			p.notifier.MediaFailed(src.Token, err)
			return
		}
		slog.Info("media: probe succeeded", "token", src.Token)
		p.notifier.MediaLoaded(src.Token)
	}()
}

func (p *Prober) probe(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")
	req.Header.Set("Accept", "video/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	if !isVideo(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("%w: content type %q", ErrNotMedia, resp.Header.Get("Content-Type"))
	}
	return nil
}

func isVideo(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/")
}
