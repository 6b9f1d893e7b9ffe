// Package catalog backfills artist and genre metadata for albums the export
// itself could not attribute, using the Spotify Web API with a local registry
// cache in front of it.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"albumrun/internal/models"
	"albumrun/internal/parser"
	"albumrun/internal/registry"
)

var ErrNoCredentials = errors.New("spotify credentials not configured")

// searcher is the slice of the Spotify client the backfill uses; narrowed for
// testability.
type searcher interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
	GetArtist(ctx context.Context, id spotify.ID) (*spotify.FullArtist, error)
}

// Backfill looks up albums missing artist or genre metadata. Lookups are
// exact-match first, then substring containment either way; fuzzy matching is
// deliberately out of bounds.
type Backfill struct {
	sc      searcher
	cache   *sql.DB // optional registry; nil disables caching
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewBackfill builds a client-credentials Spotify client. The limiter stays
// well under Spotify's burst window (roughly 180 requests per minute).
func NewBackfill(ctx context.Context, clientID, clientSecret string, cache *sql.DB, log zerolog.Logger) (*Backfill, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrNoCredentials
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := config.Client(ctx)

	return &Backfill{
		sc:      spotify.New(httpClient),
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:     log,
	}, nil
}

// Enrich fills missing artist and genre fields in place. Lookup failures for
// individual albums are logged and skipped; only context cancellation aborts
// the pass. Returns the number of albums that gained at least one field.
func (b *Backfill) Enrich(ctx context.Context, albums []models.AlbumRecord) (int, error) {
	filled := 0
	for i := range albums {
		rec := &albums[i]
		if rec.ArtistName != "" && rec.Genre != "" {
			continue
		}

		artist, genre, err := b.lookup(ctx, rec.AlbumName)
		if err != nil {
			if ctx.Err() != nil {
				return filled, ctx.Err()
			}
			b.log.Warn().Err(err).Str("album", rec.AlbumName).Msg("catalog lookup failed")
			continue
		}

		changed := false
		if rec.ArtistName == "" && artist != "" {
			rec.ArtistName = artist
			changed = true
		}
		if rec.Genre == "" && genre != "" {
			rec.Genre = genre
			changed = true
		}
		if changed {
			filled++
			b.log.Info().Str("album", rec.AlbumName).Str("artist", artist).Msg("backfilled metadata")
		}
	}
	return filled, nil
}

// lookup resolves one album through the cache, then the API.
func (b *Backfill) lookup(ctx context.Context, album string) (artist, genre string, err error) {
	if e, ok, err := registry.Lookup(b.cache, album); err == nil && ok {
		return e.Artist, e.Genre, nil
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	res, err := b.sc.Search(ctx, album, spotify.SearchTypeAlbum, spotify.Limit(5))
	if err != nil {
		return "", "", fmt.Errorf("search %q: %w", album, err)
	}
	if res.Albums == nil || len(res.Albums.Albums) == 0 {
		return "", "", nil
	}

	best := pickAlbum(album, res.Albums.Albums)
	if len(best.Artists) == 0 {
		return "", "", nil
	}
	artist = best.Artists[0].Name

	// genre lives on the artist, not the album
	full, err := b.sc.GetArtist(ctx, best.Artists[0].ID)
	if err == nil && full != nil {
		genre = parser.CleanGenres(strings.Join(full.Genres, ", "))
	}

	if artist != "" {
		_ = registry.Upsert(b.cache, registry.Entry{
			Album: album, Artist: artist, Genre: genre, Source: "spotify",
		})
	}
	return artist, genre, nil
}

// pickAlbum prefers an exact case-insensitive name match, then substring
// containment in either direction, then the first result.
func pickAlbum(album string, candidates []spotify.SimpleAlbum) spotify.SimpleAlbum {
	lower := strings.ToLower(album)
	for _, c := range candidates {
		if strings.ToLower(c.Name) == lower {
			return c
		}
	}
	for _, c := range candidates {
		cl := strings.ToLower(c.Name)
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return c
		}
	}
	return candidates[0]
}
