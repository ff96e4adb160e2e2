package session

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultVolume is the coefficient applied to a freshly resolved source.
const DefaultVolume = 0.5

const maxVolume = 2.0

// AudioSource is one playable unit: a resolved stream URL plus display
// metadata and a mutable volume coefficient. It holds no transport
// resources; those are opened only when the source is handed to playback.
type AudioSource struct {
	StreamURL   string // directly playable media URL, never the original query
	SourceURL   string // original page URL, for display
	Title       string
	Artist      string
	Thumbnail   string
	DurationSec int
	IsLive      bool

	volMu  sync.Mutex
	volume float64
}

// NewAudioSource builds a source from an already resolved stream URL.
// Passing an unresolved user query here is a programming error, so the
// constructor rejects anything that is not an absolute http(s) URL.
func NewAudioSource(streamURL, title string) (*AudioSource, error) {
	if !strings.HasPrefix(streamURL, "http://") && !strings.HasPrefix(streamURL, "https://") {
		return nil, fmt.Errorf("audio source requires a resolved stream URL, got %q", streamURL)
	}
	return &AudioSource{
		StreamURL: streamURL,
		Title:     title,
		volume:    DefaultVolume,
	}, nil
}

// Volume returns the current playback coefficient.
func (a *AudioSource) Volume() float64 {
	a.volMu.Lock()
	defer a.volMu.Unlock()
	return a.volume
}

// SetVolume adjusts the playback coefficient without re-resolving the
// source. Values are clamped to [0, 2].
func (a *AudioSource) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > maxVolume {
		v = maxVolume
	}
	a.volMu.Lock()
	a.volume = v
	a.volMu.Unlock()
}

// Status is the playback state of a guild session.
type Status int

const (
	StatusIdle Status = iota
	StatusResolving
	StatusPlaying
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusResolving:
		return "resolving"
	case StatusPlaying:
		return "playing"
	case StatusStopping:
		return "stopping"
	}
	return "unknown"
}
