package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	ytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/yukimura-dev/hibiki/internal/config"
	"github.com/yukimura-dev/hibiki/internal/session"
)

// Resolver resolves queries and URLs to playable sources via yt-dlp.
// When a query yields a collection (playlist or search), the first entry
// wins; this system plays one track at a time.
type Resolver struct {
	cfg *config.Config
	sp  *spotifyClient

	installMu sync.Mutex
	installed bool
	install   func(ctx context.Context) error
}

func New(cfg *config.Config) *Resolver {
	r := &Resolver{cfg: cfg}
	r.install = r.installBinary
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		r.sp = newSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	return r
}

func (r *Resolver) installBinary(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// ensureInstalled provisions a yt-dlp binary on first use. A failed
// install is reported to the caller and retried on the next resolve
// instead of taking the process down.
func (r *Resolver) ensureInstalled(ctx context.Context) error {
	r.installMu.Lock()
	defer r.installMu.Unlock()
	if r.installed {
		return nil
	}
	if err := r.install(ctx); err != nil {
		return err
	}
	r.installed = true
	return nil
}

// trackInfo is the subset of extractor output the bot cares about.
type trackInfo struct {
	id         string
	title      string
	uploader   string
	duration   float64
	isLive     bool
	webpageURL string
	thumbnail  string

	// candidate stream URLs in preference order: requested formats first,
	// then the top-level url, then remaining formats
	requestedURLs []string
	topURL        string
	formatURLs    []string
}

// Resolve implements session.Resolver.
func (r *Resolver) Resolve(ctx context.Context, query string) (*session.AudioSource, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrNotFound
	}

	if isSpotifyQuery(q) {
		search, err := r.spotifySearchQuery(ctx, q)
		if err != nil {
			return nil, err
		}
		q = search
	}

	start := time.Now()
	info, err := r.extract(ctx, q)
	if err != nil {
		slog.Debug("extraction failed", "query", q, "took", time.Since(start), "err", err)
		return nil, classifyError(err)
	}
	slog.Debug("extraction done", "query", q, "took", time.Since(start), "title", info.title)

	return buildSource(info)
}

func (r *Resolver) extract(ctx context.Context, query string) (*trackInfo, error) {
	if err := r.ensureInstalled(ctx); err != nil {
		return nil, fmt.Errorf("provision yt-dlp: %w", err)
	}

	cmd := ytdlp.New().
		Format(r.cfg.AudioFormat).
		DefaultSearch(r.cfg.SearchMode).
		NoPlaylist().
		NoCheckCertificates().
		DumpJSON()

	res, err := cmd.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, ErrNotFound
	}

	ext := infos[0]
	// playlist/search container: deterministic take-first
	if len(ext.Entries) > 0 {
		first := ext
		for _, e := range ext.Entries {
			if e != nil {
				first = e
				break
			}
		}
		ext = first
	}

	return mapInfo(ext), nil
}

// helpers to safely read pointer fields with defaults
func strOf(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func boolOf(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

func mapInfo(ext *ytdlp.ExtractedInfo) *trackInfo {
	ti := &trackInfo{
		id:         ext.ID,
		title:      strOf(ext.Title),
		uploader:   strOf(ext.Uploader),
		duration:   floatOf(ext.Duration),
		isLive:     boolOf(ext.IsLive),
		webpageURL: strOf(ext.WebpageURL),
		topURL:     strOf(ext.URL),
	}
	for _, t := range ext.Thumbnails {
		if t != nil && t.URL != "" {
			ti.thumbnail = t.URL
		}
	}
	for _, f := range ext.RequestedFormats {
		if f != nil {
			ti.requestedURLs = append(ti.requestedURLs, f.URL)
		}
	}
	for _, f := range ext.Formats {
		if f != nil {
			ti.formatURLs = append(ti.formatURLs, f.URL)
		}
	}
	return ti
}

// pickStreamURL returns the best directly playable URL, or "" when the
// extractor produced nothing usable.
func pickStreamURL(ti *trackInfo) string {
	for _, u := range ti.requestedURLs {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	if strings.HasPrefix(ti.topURL, "http") {
		return ti.topURL
	}
	for _, u := range ti.formatURLs {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return ""
}

func buildSource(ti *trackInfo) (*session.AudioSource, error) {
	streamURL := pickStreamURL(ti)
	if streamURL == "" {
		return nil, fmt.Errorf("%w: no playable format", ErrUnsupportedSource)
	}
	title := ti.title
	if title == "" {
		title = ti.webpageURL
	}
	src, err := session.NewAudioSource(streamURL, title)
	if err != nil {
		return nil, err
	}
	src.SourceURL = ti.webpageURL
	src.Artist = ti.uploader
	src.Thumbnail = ti.thumbnail
	src.DurationSec = int(ti.duration)
	src.IsLive = ti.isLive
	return src, nil
}

// classifyError maps extractor failures onto the declared failure modes.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupportedSource) || errors.Is(err, ErrNetworkFailure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unsupported url"),
		strings.Contains(msg, "unsupported scheme"):
		return fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	case strings.Contains(msg, "no results"),
		strings.Contains(msg, "not available"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "video unavailable"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
}
