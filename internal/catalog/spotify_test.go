package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"albumrun/internal/models"
)

type fakeSearcher struct {
	albums   []spotify.SimpleAlbum
	genres   map[spotify.ID][]string
	searches int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ spotify.SearchType, _ ...spotify.RequestOption) (*spotify.SearchResult, error) {
	f.searches++
	return &spotify.SearchResult{
		Albums: &spotify.SimpleAlbumPage{Albums: f.albums},
	}, nil
}

func (f *fakeSearcher) GetArtist(_ context.Context, id spotify.ID) (*spotify.FullArtist, error) {
	return &spotify.FullArtist{Genres: f.genres[id]}, nil
}

func simpleAlbum(name, artist string, id spotify.ID) spotify.SimpleAlbum {
	return spotify.SimpleAlbum{
		Name:    name,
		Artists: []spotify.SimpleArtist{{Name: artist, ID: id}},
	}
}

func testBackfill(sc searcher) *Backfill {
	return &Backfill{
		sc:      sc,
		limiter: rate.NewLimiter(rate.Every(time.Microsecond), 1),
		log:     zerolog.Nop(),
	}
}

func TestPickAlbumExactBeforeSubstring(t *testing.T) {
	candidates := []spotify.SimpleAlbum{
		simpleAlbum("Weedkiller (Deluxe)", "Someone", "1"),
		simpleAlbum("weedkiller", "Ashnikko", "2"),
	}
	best := pickAlbum("Weedkiller", candidates)
	assert.Equal(t, "Ashnikko", best.Artists[0].Name)

	// no exact match: containment wins over first result
	best = pickAlbum("Weedkiller", candidates[:1])
	assert.Equal(t, "Someone", best.Artists[0].Name)
}

func TestEnrichFillsOnlyMissingFields(t *testing.T) {
	sc := &fakeSearcher{
		albums: []spotify.SimpleAlbum{simpleAlbum("Weedkiller", "Ashnikko", "a1")},
		genres: map[spotify.ID][]string{"a1": {"Pop", "Music"}},
	}
	b := testBackfill(sc)

	albums := []models.AlbumRecord{
		{AlbumName: "Weedkiller"},
		{AlbumName: "Known", ArtistName: "Kept", Genre: "Kept Genre"},
	}

	filled, err := b.Enrich(context.Background(), albums)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)

	assert.Equal(t, "Ashnikko", albums[0].ArtistName)
	assert.Equal(t, "Pop", albums[0].Genre, "generic Music genre dropped")

	assert.Equal(t, "Kept", albums[1].ArtistName)
	assert.Equal(t, 1, sc.searches, "complete records never hit the API")
}

func TestNewBackfillRequiresCredentials(t *testing.T) {
	_, err := NewBackfill(context.Background(), "", "", nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoCredentials)
}
