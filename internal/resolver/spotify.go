package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifyClient translates Spotify links into search queries. Spotify does
// not serve raw audio, so the matched track is looked up on YouTube; for
// albums and playlists the first track is taken, consistent with the
// take-first policy everywhere else.
type spotifyClient struct {
	raw *spotify.Client
}

func newSpotifyClient(clientID, clientSecret string) *spotifyClient {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	return &spotifyClient{raw: spotify.New(httpClient, spotify.WithRetry(true))}
}

func isSpotifyQuery(s string) bool {
	return strings.HasPrefix(s, "spotify:") || strings.Contains(s, "open.spotify.com")
}

func parseSpotifyID(raw string) (typ string, id spotify.ID, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("invalid spotify URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", fmt.Errorf("not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid spotify URL path")
	}
	switch parts[0] {
	case "album", "playlist", "track":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("unsupported spotify type")
}

// spotifySearchQuery turns a Spotify link into a ytsearch query for the
// first matching track.
func (r *Resolver) spotifySearchQuery(ctx context.Context, q string) (string, error) {
	if r.sp == nil {
		return "", fmt.Errorf("%w: spotify is not configured", ErrUnsupportedSource)
	}

	typ, id, err := parseSpotifyID(q)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	name, artist, err := r.sp.firstTrack(ctx, typ, id)
	if err != nil {
		return "", classifyError(err)
	}
	if name == "" {
		return "", ErrNotFound
	}
	return searchQueryFor(name, artist), nil
}

func searchQueryFor(name, artist string) string {
	if artist == "" {
		return fmt.Sprintf(`ytsearch1:"%s"`, name)
	}
	return fmt.Sprintf(`ytsearch1:"%s" "%s"`, name, artist)
}

func (c *spotifyClient) firstTrack(ctx context.Context, typ string, id spotify.ID) (name, artist string, err error) {
	switch typ {
	case "track":
		t, err := c.raw.GetTrack(ctx, id)
		if err != nil {
			return "", "", err
		}
		return t.Name, firstArtist(t.Artists), nil

	case "album":
		page, err := c.raw.GetAlbumTracks(ctx, id)
		if err != nil {
			return "", "", err
		}
		if len(page.Tracks) == 0 {
			return "", "", nil
		}
		t := page.Tracks[0]
		return t.Name, firstArtist(t.Artists), nil

	case "playlist":
		page, err := c.raw.GetPlaylistItems(ctx, id)
		if err != nil {
			return "", "", err
		}
		for _, it := range page.Items {
			if it.Track.Track != nil {
				t := it.Track.Track
				return t.Name, firstArtist(t.Artists), nil
			}
		}
		return "", "", nil
	}
	return "", "", fmt.Errorf("unsupported spotify type: %s", typ)
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}
