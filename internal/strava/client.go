package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var ErrStrava = errors.New("strava error")

const defaultBaseURL = "https://www.strava.com"

// Activity is one entry from the athlete activities listing. Heart rate,
// cadence and suffer score are pointers: absent on activities recorded
// without the relevant sensor.
type Activity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	StartDate          string   `json:"start_date"`
	Distance           float64  `json:"distance"` // meters
	MovingTime         int      `json:"moving_time"`
	ElapsedTime        int      `json:"elapsed_time"`
	TotalElevationGain float64  `json:"total_elevation_gain"`
	AverageSpeed       float64  `json:"average_speed"`
	MaxSpeed           float64  `json:"max_speed"`
	AverageHeartrate   *float64 `json:"average_heartrate,omitempty"`
	MaxHeartrate       *float64 `json:"max_heartrate,omitempty"`
	AverageCadence     *float64 `json:"average_cadence,omitempty"`
	SufferScore        *float64 `json:"suffer_score,omitempty"`
	HasHeartrate       bool     `json:"has_heartrate"`
}

// Client talks to the Strava v3 API. It refreshes its own access token on a
// 401 and paces page fetches with a rate limiter (100 requests per 15
// minutes on the free tier; one per second keeps well under it).
type Client struct {
	http         *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	accessToken  string
	refreshToken string
	limiter      *rate.Limiter
	log          zerolog.Logger
}

func NewClient(clientID, clientSecret, accessToken, refreshToken string, log zerolog.Logger) *Client {
	return &Client{
		http:         &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1),
		log:          log,
	}
}

// Tokens returns the current token pair. Callers should persist these after a
// run: a refresh rotates both.
func (c *Client) Tokens() (access, refresh string) {
	return c.accessToken, c.refreshToken
}

// RefreshAccessToken exchanges the refresh token for a new token pair.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {c.refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token refresh failed: HTTP %d", ErrStrava, resp.StatusCode)
	}

	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return err
	}

	c.accessToken = tok.AccessToken
	c.refreshToken = tok.RefreshToken
	c.log.Info().Msg("strava access token refreshed")
	return nil
}

// Activities fetches every activity in [after, before], paging until the API
// returns an empty page. A 401 triggers one token refresh and retry.
func (c *Client) Activities(ctx context.Context, after, before time.Time) ([]Activity, error) {
	var activities []Activity
	refreshed := false

	for page := 1; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return activities, err
		}

		q := url.Values{
			"per_page": {"200"},
			"page":     {strconv.Itoa(page)},
		}
		if !after.IsZero() {
			q.Set("after", strconv.FormatInt(after.Unix(), 10))
		}
		if !before.IsZero() {
			q.Set("before", strconv.FormatInt(before.Unix(), 10))
		}

		batch, status, err := c.activitiesPage(ctx, q)
		if status == http.StatusUnauthorized && !refreshed {
			refreshed = true
			if err := c.RefreshAccessToken(ctx); err != nil {
				return activities, err
			}
			batch, status, err = c.activitiesPage(ctx, q)
		}
		if err != nil {
			return activities, err
		}
		if status != http.StatusOK {
			return activities, fmt.Errorf("%w: activities fetch failed: HTTP %d", ErrStrava, status)
		}

		if len(batch) == 0 {
			break
		}
		activities = append(activities, batch...)
		c.log.Debug().Int("page", page).Int("count", len(batch)).Msg("fetched activities page")
	}

	return activities, nil
}

func (c *Client) activitiesPage(ctx context.Context, q url.Values) ([]Activity, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var batch []Activity
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, resp.StatusCode, err
	}
	return batch, resp.StatusCode, nil
}

// runTypes is the activity subclass the pipeline reconciles against.
var runTypes = map[string]bool{"Run": true, "VirtualRun": true}

// FilterRuns keeps running activities, preserving fetch order.
func FilterRuns(activities []Activity) []Activity {
	var runs []Activity
	for _, a := range activities {
		if runTypes[a.Type] {
			runs = append(runs, a)
		}
	}
	return runs
}
