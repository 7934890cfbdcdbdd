package plugin

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Context provides dependencies to plugins during initialization.
// Shared process-wide resources are passed in here rather than reached
// through globals, so tests can substitute fakes.
type Context struct {
	// Logger is a structured logger for the plugin to use.
	// Plugins should use logger.Named("pluginid") for namespacing.
	Logger *zap.Logger

	// HTTPClient is the shared client for fetching remote content.
	HTTPClient *http.Client

	// UserAgent is sent with outgoing requests.
	UserAgent string

	// ImageDir is where plugins may keep generated or cached files.
	ImageDir string

	// Timezone is the device timezone at startup. Plugins that render
	// time-dependent content should prefer Device.Location() at render time.
	Timezone *time.Location
}

// NewContext creates a new plugin context with all required dependencies.
func NewContext(
	logger *zap.Logger,
	httpClient *http.Client,
	userAgent string,
	imageDir string,
	timezone *time.Location,
) *Context {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if timezone == nil {
		timezone = time.UTC
	}
	return &Context{
		Logger:     logger,
		HTTPClient: httpClient,
		UserAgent:  userAgent,
		ImageDir:   imageDir,
		Timezone:   timezone,
	}
}
