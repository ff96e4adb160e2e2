package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/yukimura-dev/hibiki/internal/config"
)

func TestPickStreamURL(t *testing.T) {
	cases := []struct {
		name string
		ti   *trackInfo
		want string
	}{
		{
			name: "requested format wins",
			ti: &trackInfo{
				requestedURLs: []string{"https://cdn.example/req"},
				topURL:        "https://cdn.example/top",
				formatURLs:    []string{"https://cdn.example/fmt"},
			},
			want: "https://cdn.example/req",
		},
		{
			name: "top url next",
			ti: &trackInfo{
				topURL:     "https://cdn.example/top",
				formatURLs: []string{"https://cdn.example/fmt"},
			},
			want: "https://cdn.example/top",
		},
		{
			name: "format fallback",
			ti:   &trackInfo{formatURLs: []string{"https://cdn.example/fmt"}},
			want: "https://cdn.example/fmt",
		},
		{
			name: "non-http candidates skipped",
			ti: &trackInfo{
				requestedURLs: []string{"rtmp://cdn.example/live"},
				formatURLs:    []string{"https://cdn.example/fmt"},
			},
			want: "https://cdn.example/fmt",
		},
		{
			name: "nothing usable",
			ti:   &trackInfo{webpageURL: "https://site.example/watch"},
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pickStreamURL(tc.ti); got != tc.want {
				t.Errorf("pickStreamURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildSource(t *testing.T) {
	ti := &trackInfo{
		title:      "A Song",
		uploader:   "An Artist",
		duration:   123.7,
		webpageURL: "https://site.example/watch?v=1",
		thumbnail:  "https://img.example/t.jpg",
		topURL:     "https://cdn.example/stream",
	}
	src, err := buildSource(ti)
	if err != nil {
		t.Fatalf("buildSource: %v", err)
	}
	if src.StreamURL != "https://cdn.example/stream" {
		t.Errorf("StreamURL = %q", src.StreamURL)
	}
	if src.SourceURL != ti.webpageURL || src.Artist != "An Artist" || src.DurationSec != 123 {
		t.Errorf("metadata not carried: %+v", src)
	}

	_, err = buildSource(&trackInfo{title: "no formats"})
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("err = %v, want ErrUnsupportedSource", err)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{errors.New("yt-dlp: ERROR: Unsupported URL: file:///etc"), ErrUnsupportedSource},
		{errors.New("no results found for query"), ErrNotFound},
		{errors.New("ERROR: Video unavailable"), ErrNotFound},
		{context.DeadlineExceeded, ErrNetworkFailure},
		{errors.New("dial tcp: connection refused"), ErrNetworkFailure},
		{ErrNotFound, ErrNotFound},
	}
	for _, tc := range cases {
		if got := classifyError(tc.in); !errors.Is(got, tc.want) {
			t.Errorf("classifyError(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if classifyError(nil) != nil {
		t.Error("classifyError(nil) should be nil")
	}
}

func TestParseSpotifyID(t *testing.T) {
	cases := []struct {
		in      string
		typ     string
		id      string
		wantErr bool
	}{
		{"spotify:track:6rqhFgbbKwnb9MLmUQDhG6", "track", "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6?si=x", "track", "6rqhFgbbKwnb9MLmUQDhG6", false},
		{"https://open.spotify.com/album/abc123", "album", "abc123", false},
		{"https://open.spotify.com/playlist/xyz", "playlist", "xyz", false},
		{"https://open.spotify.com/artist/someone", "", "", true},
		{"spotify:nope", "", "", true},
		{"https://example.com/track/1", "", "", true},
	}
	for _, tc := range cases {
		typ, id, err := parseSpotifyID(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseSpotifyID(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if typ != tc.typ || string(id) != tc.id {
			t.Errorf("parseSpotifyID(%q) = %q/%q, want %q/%q", tc.in, typ, id, tc.typ, tc.id)
		}
	}
}

func TestSearchQueryFor(t *testing.T) {
	if got := searchQueryFor("Song", "Artist"); got != `ytsearch1:"Song" "Artist"` {
		t.Errorf("got %q", got)
	}
	if got := searchQueryFor("Song", ""); got != `ytsearch1:"Song"` {
		t.Errorf("got %q", got)
	}
}

func TestResolveInstallFailure(t *testing.T) {
	r := New(&config.Config{AudioFormat: "bestaudio/best", SearchMode: "auto"})
	calls := 0
	r.install = func(ctx context.Context) error {
		calls++
		return errors.New("download yt-dlp: connection refused")
	}

	_, err := r.Resolve(context.Background(), "some song")
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("err = %v, want ErrNetworkFailure", err)
	}

	// the failure is not sticky: the next resolve retries the install
	_, err = r.Resolve(context.Background(), "some song")
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("second err = %v, want ErrNetworkFailure", err)
	}
	if calls != 2 {
		t.Errorf("install attempts = %d, want 2", calls)
	}
}

func TestIsSpotifyQuery(t *testing.T) {
	if !isSpotifyQuery("https://open.spotify.com/track/1") {
		t.Error("spotify URL not recognized")
	}
	if !isSpotifyQuery("spotify:track:1") {
		t.Error("spotify URI not recognized")
	}
	if isSpotifyQuery("https://youtube.com/watch?v=1") {
		t.Error("non-spotify URL recognized")
	}
}
