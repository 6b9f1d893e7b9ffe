package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"albumrun/internal/aggregate"
	"albumrun/internal/models"
	"albumrun/internal/report"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")

	rep := report.Assemble([]models.AlbumRecord{
		{AlbumName: "Weedkiller", PlayCount: 44, CompletionPercentage: 90},
	}, aggregate.DefaultThresholds(), nil, nil)
	require.NoError(t, report.Save(path, &rep))

	srv := httptest.NewServer(New(path, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv, path
}

func TestGetReport(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep models.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	require.Len(t, rep.Albums, 1)
	assert.Equal(t, "Weedkiller", rep.Albums[0].AlbumName)
}

func TestToggleStarPersists(t *testing.T) {
	srv, path := newTestServer(t)

	body := strings.NewReader(`{"album_name":"Weedkiller - Single"}`) // normalized before lookup
	resp, err := http.Post(srv.URL+"/api/albums/star", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out toggleStarResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Starred)

	rep, err := report.Load(path)
	require.NoError(t, err)
	assert.True(t, rep.Albums[0].Starred)
}

func TestToggleStarUnknownAlbum(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/albums/star", "application/json",
		strings.NewReader(`{"album_name":"Nope"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetReportBeforeAnalyze(t *testing.T) {
	srv := httptest.NewServer(New(filepath.Join(t.TempDir(), "missing.json"), zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
