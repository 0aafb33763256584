package main

import (
	"testing"
	"time"

	"github.com/timemachinetv/timemachine/internal/config"
	"github.com/timemachinetv/timemachine/internal/media"
)

type nopNotifier struct{}

func (nopNotifier) MediaLoaded(uint64)        {}
func (nopNotifier) MediaFailed(uint64, error) {}

func TestDefaultFormUsesConfiguredKey(t *testing.T) {
	form := defaultForm(&config.Config{DefaultKey: "plln_test"})

	if form.Key != "plln_test" {
		t.Errorf("expected configured key, got %q", form.Key)
	}
	if form.Prompt == "" {
		t.Error("expected a starter prompt")
	}
	if !form.Private || form.Enhance || !form.NoLogo {
		t.Errorf("unexpected default flags: %+v", form)
	}
}

func TestPlayerFactoryRemoteByDefault(t *testing.T) {
	player := playerFactory(&config.Config{})(nopNotifier{})
	if _, ok := player.(*media.Remote); !ok {
		t.Errorf("expected *media.Remote, got %T", player)
	}
}

func TestPlayerFactoryProberWhenEnabled(t *testing.T) {
	player := playerFactory(&config.Config{MediaProbe: true, MediaProbeTimeout: time.Second})(nopNotifier{})
	if _, ok := player.(*media.Prober); !ok {
		t.Errorf("expected *media.Prober, got %T", player)
	}
}
