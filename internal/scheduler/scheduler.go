// Package scheduler runs the refresh loop: it picks the active playlist,
// renders the next due plugin instance, shows it, and services manual
// refresh requests in between.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"inkdisplay/internal/clock"
	"inkdisplay/internal/config"
	"inkdisplay/internal/display"
	"inkdisplay/internal/playlist"
	"inkdisplay/internal/status"
	"inkdisplay/pkg/plugin"
)

// Display is the part of the display manager the scheduler drives.
type Display interface {
	Display(ctx context.Context, img image.Image) error
	SaveImage(img image.Image, name string) error
	LoadImage(name string) (image.Image, error)
}

// Options wires a Scheduler. Store, Plugins and Display are required.
type Options struct {
	Store      *config.Store
	Plugins    *plugin.Set
	Display    Display
	Tracker    *status.Tracker
	Clock      clock.Clock
	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// Scheduler owns the single worker that renders and displays images.
type Scheduler struct {
	store   *config.Store
	plugins *plugin.Set
	display Display
	tracker *status.Tracker
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics

	// renderMu serializes render+display between the worker and the
	// synchronous path used while stopped.
	renderMu sync.Mutex

	mailbox *mailbox
	changed chan struct{}
	state   atomic.Int32

	lifeMu  sync.Mutex
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// New creates a stopped scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil || opts.Plugins == nil || opts.Display == nil {
		return nil, errors.New("scheduler requires a store, plugins and a display")
	}
	if opts.Tracker == nil {
		opts.Tracker = status.NewTracker(0)
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Scheduler{
		store:   opts.Store,
		plugins: opts.Plugins,
		display: opts.Display,
		tracker: opts.Tracker,
		clock:   opts.Clock,
		logger:  opts.Logger.Named("scheduler"),
		metrics: newMetrics(opts.Registerer),
		mailbox: newMailbox(),
		changed: make(chan struct{}, 1),
	}, nil
}

// Start launches the worker. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.running.Load() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.cancel = cancel
	s.running.Store(true)

	s.logger.Info("Starting refresh scheduler",
		zap.Duration("poll_interval", s.store.PollInterval()),
		zap.Strings("plugins", s.plugins.IDs()))

	go s.run(ctx, s.stop, s.done)
}

// Stop waits for an in-flight render to finish, stops the worker, and fails
// any queued requests with ErrStopped. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.running.Load() {
		return
	}

	s.logger.Info("Stopping refresh scheduler")
	s.running.Store(false)
	close(s.stop)
	<-s.done
	s.cancel()

	pending := s.mailbox.drain()
	for _, j := range pending {
		j.done <- ErrStopped
	}

	s.logger.Info("Refresh scheduler stopped", zap.Int("failed_pending", len(pending)))
}

// Running reports whether the worker is running.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// State returns the worker's current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// SignalConfigChange wakes a sleeping worker so the next cycle runs
// against the new configuration without waiting for the poll deadline.
// A signal sent before a cycle starts is absorbed by that cycle.
func (s *Scheduler) SignalConfigChange() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Submit validates req and runs it. While running, the request is handed to
// the worker and Submit waits for its outcome or ctx. While stopped, it runs
// on the caller's goroutine.
func (s *Scheduler) Submit(ctx context.Context, req Request) error {
	req = ensureID(req)
	if err := s.validate(req); err != nil {
		return err
	}

	s.lifeMu.Lock()
	if s.running.Load() {
		j := newJob(req)
		s.mailbox.push(j)
		s.lifeMu.Unlock()

		select {
		case err := <-j.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.lifeMu.Unlock()

	s.logger.Info("Scheduler not running, refreshing synchronously",
		zap.String("request_id", req.ID()),
		zap.String("kind", req.Kind()))

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.execute(ctx, req)
}

func (s *Scheduler) validate(req Request) error {
	switch r := req.(type) {
	case ManualRefresh:
		if _, ok := s.plugins.Get(r.PluginID); !ok {
			return fmt.Errorf("%w: %s", ErrPluginNotFound, r.PluginID)
		}
	case PlaylistRefresh:
		if _, _, err := s.store.PlaylistManager().Resolve(r.Ref); err != nil {
			return err
		}
		if _, ok := s.plugins.Get(r.Ref.PluginID); !ok {
			return fmt.Errorf("%w: %s", ErrPluginNotFound, r.Ref.PluginID)
		}
	default:
		return fmt.Errorf("unsupported request %T", req)
	}
	return nil
}

// now reads the clock in the device timezone.
func (s *Scheduler) now() time.Time {
	return s.clock.Now().In(s.store.Location())
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer s.setState(StateStopped)

	for {
		if !s.serveMailbox(ctx, stop) {
			return
		}

		s.cycle(ctx)

		deadline := s.clock.Now().Add(s.store.PollInterval())
		if !s.sleep(ctx, stop, deadline) {
			return
		}
	}
}

// sleep waits for the deadline, servicing the mailbox as requests arrive.
// It returns false when the scheduler is stopping and leaves the worker
// idle otherwise.
func (s *Scheduler) sleep(ctx context.Context, stop <-chan struct{}, deadline time.Time) bool {
	timer := s.clock.After(deadline.Sub(s.clock.Now()))
	for {
		s.setState(StateSleeping)
		select {
		case <-stop:
			return false
		case <-timer:
			s.setState(StateIdle)
			return true
		case <-s.changed:
			s.logger.Debug("Configuration changed, starting cycle early")
			s.setState(StateIdle)
			return true
		case <-s.mailbox.notify:
			if !s.serveMailbox(ctx, stop) {
				return false
			}
		}
	}
}

// serveMailbox runs every queued request in arrival order.
func (s *Scheduler) serveMailbox(ctx context.Context, stop <-chan struct{}) bool {
	for {
		select {
		case <-stop:
			return false
		default:
		}

		j, ok := s.mailbox.pop()
		if !ok {
			return true
		}

		s.setState(StateManualOverride)
		s.renderMu.Lock()
		err := s.execute(ctx, j.req)
		s.renderMu.Unlock()
		j.done <- err
	}
}

// cycle runs one normal playlist step.
func (s *Scheduler) cycle(ctx context.Context) {
	s.metrics.cycles.Inc()

	// This cycle reads the current configuration, so a change signalled
	// before now is already accounted for. Later signals still wake the
	// following sleep.
	select {
	case <-s.changed:
	default:
	}

	s.setState(StateSelecting)

	now := s.now()
	active := s.store.PlaylistManager().Active(now)
	if active == nil {
		s.logger.Info("No active playlist", zap.Time("now", now))
		return
	}

	s.setState(StateDueCheck)
	idx, inst, ok := active.NextDue(now)
	if !ok {
		s.logger.Debug("No plugin instance due",
			zap.String("playlist", active.Name),
			zap.Int("instances", len(active.Plugins)))
		return
	}

	ref := playlist.InstanceRef{Playlist: active.Name, PluginID: inst.PluginID, Instance: inst.Name}
	if err := s.moveCursor(ref); err != nil {
		s.logger.Warn("Selected instance vanished", zap.String("ref", ref.String()), zap.Error(err))
		return
	}

	requestID := uuid.NewString()
	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("plugin_id", ref.PluginID),
		zap.String("playlist", ref.Playlist),
		zap.String("instance", ref.Instance))
	logger.Info("Refreshing plugin instance", zap.Int("index", idx))

	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.setState(StateRendering)
	settings := plugin.Settings(playlist.CloneSettings(inst.Settings))
	img, err := s.generate(ctx, ref.PluginID, settings)
	if err != nil {
		logger.Error("Plugin render failed", zap.Error(err))
		return
	}

	s.setState(StateDisplaying)
	hash, err := s.present(ctx, img)
	if err != nil {
		logger.Error("Display failed", zap.Error(err))
		return
	}

	s.commitInstance(logger, ref, settings, img, hash, now, requestID)
}

// execute runs a manual request. Callers hold renderMu.
func (s *Scheduler) execute(ctx context.Context, req Request) error {
	logger := s.logger.With(zap.String("request_id", req.ID()), zap.String("kind", req.Kind()))

	switch r := req.(type) {
	case ManualRefresh:
		return s.manualRefresh(ctx, logger, r)
	case PlaylistRefresh:
		return s.playlistRefresh(ctx, logger, r)
	default:
		return fmt.Errorf("unsupported request %T", req)
	}
}

func (s *Scheduler) manualRefresh(ctx context.Context, logger *zap.Logger, r ManualRefresh) error {
	logger = logger.With(zap.String("plugin_id", r.PluginID))
	now := s.now()

	img, err := s.generate(ctx, r.PluginID, plugin.Settings(playlist.CloneSettings(r.Settings)))
	if err != nil {
		logger.Error("Plugin render failed", zap.Error(err))
		return err
	}

	hash, err := s.present(ctx, img)
	if err != nil {
		logger.Error("Display failed", zap.Error(err))
		return err
	}

	s.commitRefresh(logger, status.RefreshInfo{
		RefreshType: status.RefreshTypeManual,
		PluginID:    r.PluginID,
		RefreshTime: now,
		ImageHash:   hash,
		RequestID:   r.ID(),
	})
	logger.Info("Manual refresh displayed")
	return nil
}

func (s *Scheduler) playlistRefresh(ctx context.Context, logger *zap.Logger, r PlaylistRefresh) error {
	logger = logger.With(
		zap.String("plugin_id", r.Ref.PluginID),
		zap.String("playlist", r.Ref.Playlist),
		zap.String("instance", r.Ref.Instance),
		zap.Bool("force", r.Force))
	now := s.now()

	_, inst, err := s.store.PlaylistManager().Resolve(r.Ref)
	if err != nil {
		return err
	}

	if !r.Force && !inst.IsDue(now) {
		cached, err := s.display.LoadImage(inst.ImageFile())
		if err == nil {
			logger.Info("Instance not due, showing cached image")
			hash, err := s.present(ctx, cached)
			if err != nil {
				logger.Error("Display failed", zap.Error(err))
				return err
			}
			if err := s.moveCursor(r.Ref); err != nil {
				logger.Warn("Failed to move playlist cursor", zap.Error(err))
			}
			s.commitRefresh(logger, s.instanceInfo(r.Ref, now, hash, r.ID()))
			return nil
		}
		logger.Debug("No cached image, rendering", zap.Error(err))
	}

	settings := plugin.Settings(playlist.CloneSettings(inst.Settings))
	img, err := s.generate(ctx, r.Ref.PluginID, settings)
	if err != nil {
		logger.Error("Plugin render failed", zap.Error(err))
		return err
	}

	hash, err := s.present(ctx, img)
	if err != nil {
		logger.Error("Display failed", zap.Error(err))
		return err
	}

	s.commitInstance(logger, r.Ref, settings, img, hash, now, r.ID())
	return nil
}

// generate resolves the plugin and renders, turning panics into errors.
func (s *Scheduler) generate(ctx context.Context, pluginID string, settings plugin.Settings) (img image.Image, err error) {
	p, ok := s.plugins.Get(pluginID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginID)
	}

	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("plugin %s panicked: %v", pluginID, r)
		}
		s.metrics.renderDuration.WithLabelValues(pluginID).Observe(s.clock.Since(start).Seconds())
		if err != nil {
			s.metrics.renderFailures.WithLabelValues(pluginID).Inc()
		}
	}()

	img, err = p.GenerateImage(ctx, settings, s.store)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image for %s: %w", pluginID, err)
	}
	if img == nil {
		return nil, fmt.Errorf("plugin %s returned no image", pluginID)
	}
	return img, nil
}

// present shows img unless the same image is already on screen, and
// returns its hash.
func (s *Scheduler) present(ctx context.Context, img image.Image) (string, error) {
	hash := display.Hash(img)
	if current := s.store.RefreshInfo(); current != nil && current.ImageHash == hash {
		s.metrics.displaySkips.Inc()
		s.logger.Debug("Image unchanged, skipping display", zap.String("hash", hash))
		return hash, nil
	}

	if err := s.display.Display(ctx, img); err != nil {
		s.metrics.displayFailures.Inc()
		return "", fmt.Errorf("failed to display image: %w", err)
	}
	return hash, nil
}

// moveCursor points the playlist cursor at ref's instance.
func (s *Scheduler) moveCursor(ref playlist.InstanceRef) error {
	return s.store.UpdatePlaylists(func(m *playlist.Manager) error {
		p, _, err := m.Resolve(ref)
		if err != nil {
			return err
		}
		p.SetCursor(p.IndexOf(ref.PluginID, ref.Instance))
		return nil
	})
}

// commitInstance records a successful render of a playlist instance: the
// cached image, the plugin's settings, the refresh time and the cursor.
func (s *Scheduler) commitInstance(logger *zap.Logger, ref playlist.InstanceRef, settings plugin.Settings, img image.Image, hash string, now time.Time, requestID string) {
	if err := s.display.SaveImage(img, (&playlist.PluginInstance{PluginID: ref.PluginID, Name: ref.Instance}).ImageFile()); err != nil {
		logger.Warn("Failed to cache instance image", zap.Error(err))
	}

	err := s.store.UpdatePlaylists(func(m *playlist.Manager) error {
		p, inst, err := m.Resolve(ref)
		if err != nil {
			return err
		}
		inst.Settings = playlist.CloneSettings(settings)
		inst.MarkRefreshed(now)
		p.SetCursor(p.IndexOf(ref.PluginID, ref.Instance))
		return nil
	})
	if err != nil {
		logger.Warn("Instance changed during refresh, not recording refresh time", zap.Error(err))
	}

	s.commitRefresh(logger, s.instanceInfo(ref, now, hash, requestID))
	logger.Info("Plugin instance displayed", zap.String("hash", hash))
}

func (s *Scheduler) instanceInfo(ref playlist.InstanceRef, now time.Time, hash, requestID string) status.RefreshInfo {
	return status.RefreshInfo{
		RefreshType:    status.RefreshTypePlaylist,
		PluginID:       ref.PluginID,
		Playlist:       ref.Playlist,
		PluginInstance: ref.Instance,
		RefreshTime:    now,
		ImageHash:      hash,
		RequestID:      requestID,
	}
}

// commitRefresh stores the refresh info, persists the document and
// notifies subscribers. A failed write is logged; the next successful
// write persists the in-memory state.
func (s *Scheduler) commitRefresh(logger *zap.Logger, info status.RefreshInfo) {
	s.store.SetRefreshInfo(info)
	if err := s.store.Write(); err != nil {
		logger.Error("Failed to persist device config", zap.Error(err))
	}
	s.metrics.refreshes.WithLabelValues(info.RefreshType).Inc()
	s.tracker.Record(info)
}
