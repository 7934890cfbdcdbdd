package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inkdisplay/internal/api"
	"inkdisplay/internal/cleanup"
	"inkdisplay/internal/config"
	"inkdisplay/internal/display"
	"inkdisplay/internal/editor"
	"inkdisplay/internal/scheduler"
	"inkdisplay/internal/status"
	sinks "inkdisplay/pkg/display"
	"inkdisplay/pkg/plugin"

	_ "inkdisplay/internal/plugins/all"
)

var rootCmd = &cobra.Command{
	Use:   "inkdisplay",
	Short: "Playlist-driven e-ink display controller",
	Long: `inkdisplay renders plugin images on a schedule and pushes them to an
e-ink display. Playlists own time windows; the narrowest active window wins.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh scheduler and HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every subcommand.
type app struct {
	env     config.Env
	logger  *zap.Logger
	store   *config.Store
	plugins *plugin.Set
	display *display.Manager
	tracker *status.Tracker
	sched   *scheduler.Scheduler
}

func newLogger(env config.Env) (*zap.Logger, error) {
	if env.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// bootstrap loads configuration and builds the scheduler without starting
// it. reg may be nil for one-shot commands.
func bootstrap(reg prometheus.Registerer) (*app, error) {
	env, loaded, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(env)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if !loaded {
		logger.Debug("No .env file found, using environment variables")
	}

	store, err := config.Load(env.ConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load device config: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	plugins, err := plugin.CreateAll(plugin.NewContext(
		logger,
		httpClient,
		env.UserAgent,
		env.ImageDir,
		store.Location(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create plugins: %w", err)
	}

	doc := store.Snapshot()
	width, height := store.Resolution()
	outputDir := doc.OutputDir
	if outputDir == "" {
		outputDir = env.ImageDir
	}
	sink, err := sinks.New(doc.DisplayType, sinks.Options{
		Logger:     logger,
		HTTPClient: httpClient,
		OutputDir:  outputDir,
		WebhookURL: doc.WebhookURL,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		return nil, err
	}

	manager, err := display.NewManager(sink, store, env.ImageDir, logger)
	if err != nil {
		return nil, err
	}

	tracker := status.NewTracker(0)
	tracker.Seed(store.RefreshInfo())

	sched, err := scheduler.New(scheduler.Options{
		Store:      store,
		Plugins:    plugins,
		Display:    manager,
		Tracker:    tracker,
		Logger:     logger,
		Registerer: reg,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Device loaded",
		zap.String("config", store.Path()),
		zap.String("display", manager.SinkName()),
		zap.Strings("plugins", plugins.IDs()),
		zap.Int("width", width),
		zap.Int("height", height))

	return &app{
		env:     env,
		logger:  logger,
		store:   store,
		plugins: plugins,
		display: manager,
		tracker: tracker,
		sched:   sched,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if a.env.RedisAddr != "" {
		pub, err := status.NewRedisPublisher(ctx, status.DefaultRedisConfig(a.env.RedisAddr), a.logger)
		if err != nil {
			a.logger.Warn("Redis status mirror disabled", zap.Error(err))
		} else {
			defer pub.Close()
			sub := a.tracker.Subscribe(pub.Handler())
			defer sub.Unsubscribe()
		}
	}

	hub := api.NewHub(a.logger)
	go hub.Run(ctx)
	hubSub := a.tracker.Subscribe(hub.RefreshHandler())
	defer hubSub.Unsubscribe()

	remover := cleanup.NewCoordinator(a.store, a.plugins, a.display, a.logger, a.sched.SignalConfigChange)

	server := api.NewServer(api.Options{
		Store:      a.store,
		Scheduler:  a.sched,
		Cleanup:    remover,
		Editor:     editor.New(a.store, a.plugins, a.logger, a.sched.SignalConfigChange),
		ImageDir:   a.env.ImageDir,
		Tracker:    a.tracker,
		Hub:        hub,
		Logger:     a.logger,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	}, a.env.HTTPPort)

	a.sched.Start()
	if err := server.Start(); err != nil {
		a.sched.Stop()
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("inkdisplay running", zap.Int("port", a.env.HTTPPort))
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down gracefully...")
	if err := server.Stop(); err != nil {
		a.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	a.sched.Stop()
	a.logger.Info("inkdisplay stopped")
	return nil
}
