// Package server exposes the persisted report over HTTP for the viewer UI.
package server

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"albumrun/internal/aggregate"
	"albumrun/internal/report"
)

var ErrAlbumNotFound = errors.New("album not found")

// Server serves the report document and handles star toggles against it.
// The report file is assumed single-writer; the mutex serializes toggles
// within this process.
type Server struct {
	reportPath string
	mu         sync.Mutex
	log        zerolog.Logger
}

func New(reportPath string, log zerolog.Logger) *Server {
	return &Server{reportPath: reportPath, log: log}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/report", s.handleReport)
	r.Post("/api/albums/star", s.handleToggleStar)

	return r
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := report.Load(s.reportPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "no report generated yet", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("load report")
		http.Error(w, "failed to load report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		s.log.Error().Err(err).Msg("encode report")
	}
}

type toggleStarRequest struct {
	AlbumName string `json:"album_name"`
}

type toggleStarResponse struct {
	AlbumName string `json:"album_name"`
	Starred   bool   `json:"starred"`
}

func (s *Server) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	var req toggleStarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.AlbumName) == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	starred, err := s.toggle(aggregate.NormalizeAlbum(req.AlbumName))
	if errors.Is(err, ErrAlbumNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("album", req.AlbumName).Msg("toggle star")
		http.Error(w, "failed to toggle star", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toggleStarResponse{
		AlbumName: aggregate.NormalizeAlbum(req.AlbumName),
		Starred:   starred,
	})
}

func (s *Server) toggle(album string) (bool, error) {
	rep, err := report.Load(s.reportPath)
	if err != nil {
		return false, err
	}

	found := false
	starred := false
	for i := range rep.Albums {
		if rep.Albums[i].AlbumName == album {
			rep.Albums[i].Starred = !rep.Albums[i].Starred
			starred = rep.Albums[i].Starred
			found = true
			break
		}
	}
	if !found {
		return false, ErrAlbumNotFound
	}

	report.Refresh(rep)
	if err := report.Save(s.reportPath, rep); err != nil {
		return false, err
	}

	s.log.Info().Str("album", album).Bool("starred", starred).Msg("star toggled")
	return starred, nil
}
