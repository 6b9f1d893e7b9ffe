package strava

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacePerMile(t *testing.T) {
	// 30 minutes over 3 miles: 10:00/mi
	assert.Equal(t, "10:00", PacePerMile(1800, 3))
	// 28:30 over 3 miles: 9:30/mi
	assert.Equal(t, "9:30", PacePerMile(1710, 3))
	assert.Equal(t, "0:00", PacePerMile(1800, 0))
}

func TestMetersToMiles(t *testing.T) {
	assert.InDelta(t, 3.107, MetersToMiles(5000), 0.001)
}

func TestFilterRunsKeepsOrder(t *testing.T) {
	acts := []Activity{
		{ID: 1, Type: "Ride"},
		{ID: 2, Type: "Run"},
		{ID: 3, Type: "VirtualRun"},
		{ID: 4, Type: "Walk"},
		{ID: 5, Type: "Run"},
	}
	runs := FilterRuns(acts)
	require.Len(t, runs, 3)
	assert.Equal(t, []int64{2, 3, 5}, []int64{runs[0].ID, runs[1].ID, runs[2].ID})
}

func TestMetricsFlattening(t *testing.T) {
	hr := 152.3
	m := Metrics(Activity{
		ID:         42,
		Name:       "Morning Run",
		Type:       "Run",
		StartDate:  "2025-05-01T07:00:00Z",
		Distance:   5000,
		MovingTime: 1800,

		AverageHeartrate: &hr,
	})

	assert.Equal(t, int64(42), m.ActivityID)
	assert.Equal(t, 3.11, m.DistanceMiles)
	assert.Equal(t, float64(5000), m.DistanceMeters)
	assert.Equal(t, "9:39", m.PacePerMile)
	require.NotNil(t, m.AverageHeartrate)
	assert.Equal(t, 152.3, *m.AverageHeartrate)
	assert.Nil(t, m.MaxHeartrate)
}

func TestActivitiesPaginationAndRefresh(t *testing.T) {
	var tokenRefreshes int
	page1 := []Activity{{ID: 1, Type: "Run"}, {ID: 2, Type: "Ride"}}
	page2 := []Activity{{ID: 3, Type: "Run"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			tokenRefreshes++
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "fresh",
				"refresh_token": "fresh-refresh",
			})
		case "/api/v3/athlete/activities":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			switch r.URL.Query().Get("page") {
			case "1":
				_ = json.NewEncoder(w).Encode(page1)
			case "2":
				_ = json.NewEncoder(w).Encode(page2)
			default:
				_ = json.NewEncoder(w).Encode([]Activity{})
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("id", "secret", "stale", "refresh", zerolog.Nop())
	c.baseURL = srv.URL

	acts, err := c.Activities(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, tokenRefreshes)
	require.Len(t, acts, 3)

	access, refresh := c.Tokens()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "fresh-refresh", refresh)
}
