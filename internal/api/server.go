package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"inkdisplay/internal/cleanup"
	"inkdisplay/internal/clock"
	"inkdisplay/internal/config"
	"inkdisplay/internal/display"
	"inkdisplay/internal/editor"
	"inkdisplay/internal/playlist"
	"inkdisplay/internal/scheduler"
	"inkdisplay/internal/status"
	"inkdisplay/pkg/plugin"
)

// Refresher is the scheduler surface the API drives.
type Refresher interface {
	Submit(ctx context.Context, req scheduler.Request) error
	Running() bool
	State() scheduler.State
}

// Remover deletes configuration records and their plugin resources.
type Remover interface {
	RemoveInstance(ctx context.Context, ref playlist.InstanceRef) error
	RemovePlaylist(ctx context.Context, name string) error
}

// Editor creates and changes playlists and instances.
type Editor interface {
	CreatePlaylist(params editor.PlaylistParams) error
	UpdatePlaylist(name string, params editor.PlaylistParams) error
	AddInstance(playlistName string, params editor.InstanceParams) error
	UpdateInstance(ref playlist.InstanceRef, settings map[string]any, refresh playlist.Refresh) error
}

// Options wires a Server.
type Options struct {
	Store      *config.Store
	Scheduler  Refresher
	Cleanup    Remover
	Editor     Editor
	ImageDir   string
	Tracker    *status.Tracker
	Hub        *Hub
	Clock      clock.Clock
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server provides the HTTP API for status, playlists and manual refreshes
type Server struct {
	store     *config.Store
	scheduler Refresher
	remover   Remover
	editor    Editor
	imageDir  string
	tracker   *status.Tracker
	hub       *Hub
	clock     clock.Clock
	gatherer  prometheus.Gatherer
	metrics   *httpMetrics
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a new API server
func NewServer(opts Options, port int) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		store:     opts.Store,
		scheduler: opts.Scheduler,
		remover:   opts.Cleanup,
		editor:    opts.Editor,
		imageDir:  opts.ImageDir,
		tracker:   opts.Tracker,
		hub:       opts.Hub,
		clock:     opts.Clock,
		gatherer:  opts.Gatherer,
		metrics:   newHTTPMetrics(opts.Registerer),
		logger:    opts.Logger.Named("api"),
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/", s.handleSitemap)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/current_image", s.handleCurrentImage)
		r.Post("/refresh", s.handleManualRefresh)
		r.Get("/playlists", s.handleListPlaylists)
		r.Post("/playlists", s.handleCreatePlaylist)
		r.Put("/playlists/{playlist}", s.handleUpdatePlaylist)
		r.Delete("/playlists/{playlist}", s.handleDeletePlaylist)
		r.Post("/playlists/{playlist}/refresh", s.handlePlaylistRefresh)
		r.Post("/playlists/{playlist}/plugins", s.handleAddInstance)
		r.Put("/playlists/{playlist}/plugins/{plugin_id}/{instance}", s.handleUpdateInstance)
		r.Delete("/playlists/{playlist}/plugins/{plugin_id}/{instance}", s.handleDeleteInstance)
	})

	return r
}

// now reads the clock in the device timezone.
func (s *Server) now() time.Time {
	return clock.NewZoned(s.clock, s.store.Location()).Now()
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	Running        bool                `json:"running"`
	State          scheduler.State     `json:"state"`
	ActivePlaylist string              `json:"active_playlist,omitempty"`
	Refresh        *status.RefreshInfo `json:"refresh,omitempty"`
	Time           time.Time           `json:"time"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	resp := StatusResponse{
		Running: s.scheduler.Running(),
		State:   s.scheduler.State(),
		Refresh: s.store.RefreshInfo(),
		Time:    now,
	}
	if latest := s.tracker.Latest(); latest != nil {
		resp.Refresh = latest
	}
	if active := s.store.PlaylistManager().Active(now); active != nil {
		resp.ActivePlaylist = active.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// PlaylistResponse describes one playlist in /api/playlists
type PlaylistResponse struct {
	Name     string             `json:"name"`
	Start    playlist.TimeOfDay `json:"start_time"`
	End      playlist.TimeOfDay `json:"end_time"`
	Priority int                `json:"priority"`
	Active   bool               `json:"active"`
	Cursor   *int               `json:"current_plugin_index,omitempty"`
	Plugins  []InstanceResponse `json:"plugins"`
}

// InstanceResponse describes one plugin instance
type InstanceResponse struct {
	PluginID      string     `json:"plugin_id"`
	Name          string     `json:"name"`
	Refresh       string     `json:"refresh"`
	LatestRefresh *time.Time `json:"latest_refresh_time,omitempty"`
	Due           bool       `json:"due"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	mgr := s.store.PlaylistManager()
	active := mgr.Active(now)

	resp := make([]PlaylistResponse, 0, len(mgr.Playlists))
	for _, p := range mgr.Playlists {
		resp = append(resp, playlistResponse(p, active, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func playlistResponse(p, active *playlist.Playlist, now time.Time) PlaylistResponse {
	pr := PlaylistResponse{
		Name:     p.Name,
		Start:    p.Start,
		End:      p.End,
		Priority: p.Priority(),
		Active:   active != nil && active.Name == p.Name,
		Cursor:   p.Cursor,
		Plugins:  make([]InstanceResponse, 0, len(p.Plugins)),
	}
	for _, inst := range p.Plugins {
		pr.Plugins = append(pr.Plugins, InstanceResponse{
			PluginID:      inst.PluginID,
			Name:          inst.Name,
			Refresh:       inst.Refresh.String(),
			LatestRefresh: inst.LatestRefresh,
			Due:           inst.IsDue(now),
		})
	}
	return pr
}

// ManualRefreshRequest is the body of POST /api/refresh
type ManualRefreshRequest struct {
	PluginID string          `json:"plugin_id"`
	Settings plugin.Settings `json:"settings"`
}

// PlaylistRefreshRequest is the body of POST /api/playlists/{playlist}/refresh
type PlaylistRefreshRequest struct {
	PluginID string `json:"plugin_id"`
	Instance string `json:"instance"`
	Force    bool   `json:"force"`
}

// RefreshResponse acknowledges a completed refresh
type RefreshResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleManualRefresh(w http.ResponseWriter, r *http.Request) {
	var body ManualRefreshRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.PluginID == "" {
		writeError(w, http.StatusBadRequest, errors.New("plugin_id is required"))
		return
	}

	req := scheduler.NewManualRefresh(body.PluginID, body.Settings)
	s.submit(w, r, req)
}

func (s *Server) handlePlaylistRefresh(w http.ResponseWriter, r *http.Request) {
	var body PlaylistRefreshRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.PluginID == "" || body.Instance == "" {
		writeError(w, http.StatusBadRequest, errors.New("plugin_id and instance are required"))
		return
	}

	req := scheduler.NewPlaylistRefresh(playlist.InstanceRef{
		Playlist: chi.URLParam(r, "playlist"),
		PluginID: body.PluginID,
		Instance: body.Instance,
	}, body.Force)
	s.submit(w, r, req)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, req scheduler.Request) {
	if err := s.scheduler.Submit(r.Context(), req); err != nil {
		s.logger.Warn("Refresh request failed",
			zap.String("request_id", req.ID()),
			zap.String("kind", req.Kind()),
			zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Status: "ok", RequestID: req.ID()})
}

func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	ref := playlist.InstanceRef{
		Playlist: chi.URLParam(r, "playlist"),
		PluginID: chi.URLParam(r, "plugin_id"),
		Instance: chi.URLParam(r, "instance"),
	}
	if err := s.remover.RemoveInstance(r.Context(), ref); err != nil {
		if !errors.Is(err, cleanup.ErrCleanup) {
			writeError(w, statusFor(err), err)
			return
		}
		s.logger.Warn("Instance removed with cleanup errors", zap.String("ref", ref.String()), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "playlist")
	if err := s.remover.RemovePlaylist(r.Context(), name); err != nil {
		if !errors.Is(err, cleanup.ErrCleanup) {
			writeError(w, statusFor(err), err)
			return
		}
		s.logger.Warn("Playlist removed with cleanup errors", zap.String("playlist", name), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaylistRequest is the body of POST /api/playlists and
// PUT /api/playlists/{playlist}
type PlaylistRequest struct {
	Name  string              `json:"name"`
	Start *playlist.TimeOfDay `json:"start_time"`
	End   *playlist.TimeOfDay `json:"end_time"`
}

func (b PlaylistRequest) params() (editor.PlaylistParams, error) {
	if b.Name == "" || b.Start == nil || b.End == nil {
		return editor.PlaylistParams{}, errors.New("name, start_time and end_time are required")
	}
	return editor.PlaylistParams{Name: b.Name, Start: *b.Start, End: *b.End}, nil
}

// InstanceRequest is the body of POST /api/playlists/{playlist}/plugins and
// PUT /api/playlists/{playlist}/plugins/{plugin_id}/{instance}. PluginID and
// Name are only read when adding.
type InstanceRequest struct {
	PluginID string           `json:"plugin_id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Settings map[string]any   `json:"plugin_settings"`
	Refresh  playlist.Refresh `json:"refresh"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body PlaylistRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := body.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.editor.CreatePlaylist(params); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writePlaylist(w, http.StatusCreated, params.Name)
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body PlaylistRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := body.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.editor.UpdatePlaylist(chi.URLParam(r, "playlist"), params); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writePlaylist(w, http.StatusOK, params.Name)
}

func (s *Server) handleAddInstance(w http.ResponseWriter, r *http.Request) {
	var body InstanceRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.PluginID == "" || body.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("plugin_id and name are required"))
		return
	}

	name := chi.URLParam(r, "playlist")
	err := s.editor.AddInstance(name, editor.InstanceParams{
		PluginID: body.PluginID,
		Name:     body.Name,
		Settings: body.Settings,
		Refresh:  body.Refresh,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writePlaylist(w, http.StatusCreated, name)
}

func (s *Server) handleUpdateInstance(w http.ResponseWriter, r *http.Request) {
	var body InstanceRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ref := playlist.InstanceRef{
		Playlist: chi.URLParam(r, "playlist"),
		PluginID: chi.URLParam(r, "plugin_id"),
		Instance: chi.URLParam(r, "instance"),
	}
	if err := s.editor.UpdateInstance(ref, body.Settings, body.Refresh); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writePlaylist(w, http.StatusOK, ref.Playlist)
}

// writePlaylist answers an edit with the playlist as it now stands.
func (s *Server) writePlaylist(w http.ResponseWriter, code int, name string) {
	now := s.now()
	mgr := s.store.PlaylistManager()
	p, ok := mgr.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", playlist.ErrPlaylistNotFound, name))
		return
	}
	active := mgr.Active(now)
	writeJSON(w, code, playlistResponse(p, active, now))
}

// handleCurrentImage serves the last image handed to the display.
// http.ServeContent answers If-Modified-Since with 304.
func (s *Server) handleCurrentImage(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(s.imageDir, display.CurrentImageFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, errors.New("no image has been displayed yet"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeContent(w, r, display.CurrentImageFile, info.ModTime(), f)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.tracker.Latest())
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.scheduler.Running(),
	})
}

// statusFor maps lookup failures to 404, rejected edits to 400 or 409,
// and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, editor.ErrInvalid), errors.Is(err, editor.ErrUnknownPlugin):
		return http.StatusBadRequest
	case errors.Is(err, playlist.ErrDuplicatePlaylist), errors.Is(err, playlist.ErrDuplicateInstance):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrPluginNotFound),
		errors.Is(err, playlist.ErrPlaylistNotFound),
		errors.Is(err, playlist.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap - lists all available API endpoints"},
	{Path: "/health", Method: "GET", Description: "Health check endpoint - returns {\"status\": \"ok\"}"},
	{Path: "/api/status", Method: "GET", Description: "Scheduler state, active playlist and what is on screen"},
	{Path: "/api/current_image", Method: "GET", Description: "The image most recently sent to the display (PNG)"},
	{Path: "/api/playlists", Method: "GET", Description: "Playlists with windows, priorities and instances"},
	{Path: "/api/playlists", Method: "POST", Description: "Create a playlist: {\"name\", \"start_time\", \"end_time\"}"},
	{Path: "/api/playlists/{playlist}", Method: "PUT", Description: "Rename a playlist or change its window"},
	{Path: "/api/playlists/{playlist}/plugins", Method: "POST", Description: "Add an instance: {\"plugin_id\", \"name\", \"plugin_settings\", \"refresh\"}"},
	{Path: "/api/playlists/{playlist}/plugins/{plugin_id}/{instance}", Method: "PUT", Description: "Replace an instance's settings and refresh"},
	{Path: "/api/refresh", Method: "POST", Description: "Render a plugin now: {\"plugin_id\", \"settings\"}"},
	{Path: "/api/playlists/{playlist}/refresh", Method: "POST", Description: "Show a playlist instance now: {\"plugin_id\", \"instance\", \"force\"}"},
	{Path: "/api/playlists/{playlist}", Method: "DELETE", Description: "Delete a playlist and clean up its instances"},
	{Path: "/api/playlists/{playlist}/plugins/{plugin_id}/{instance}", Method: "DELETE", Description: "Delete one plugin instance"},
	{Path: "/metrics", Method: "GET", Description: "Prometheus metrics"},
	{Path: "/ws", Method: "GET", Description: "Websocket stream of refresh events"},
}

// handleSitemap returns a list of all available API endpoints
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	preferHTML := strings.Contains(r.Header.Get("Accept"), "text/html")

	if preferHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>inkdisplay API</title>
    <style>
        body { font-family: monospace; margin: 40px; }
        .endpoint { padding: 10px; margin: 8px 0; border-left: 3px solid #000; }
        .method { font-weight: bold; }
    </style>
</head>
<body>
    <h1>inkdisplay API</h1>
`)
		for _, ep := range endpoints {
			fmt.Fprintf(w, `    <div class="endpoint">
        <div><span class="method">%s</span> %s</div>
        <div>%s</div>
    </div>
`, ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprintf(w, "</body>\n</html>\n")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "inkdisplay API\n")
		fmt.Fprintf(w, "==============\n\n")
		for _, ep := range endpoints {
			fmt.Fprintf(w, "  %-7s %-58s %s\n", ep.Method, ep.Path, ep.Description)
		}
	}

	s.logger.Debug("Sitemap request served",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("html_format", preferHTML))
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
