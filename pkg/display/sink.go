// Package display defines the display sink contract and a registry of sink
// implementations keyed by the device's display_type.
package display

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Sink presents a finished image on a physical or virtual display.
type Sink interface {
	Name() string
	Display(ctx context.Context, img image.Image) error
}

// Options carries what a sink factory may need.
type Options struct {
	Logger     *zap.Logger
	HTTPClient *http.Client
	OutputDir  string
	WebhookURL string
	Width      int
	Height     int
}

// Factory builds a sink for a device.
type Factory func(opts Options) (Sink, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a sink factory under a display type. A later registration
// for the same type replaces the earlier one.
func Register(displayType string, factory Factory) error {
	if displayType == "" {
		return fmt.Errorf("display type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("display %s: factory cannot be nil", displayType)
	}

	mu.Lock()
	defer mu.Unlock()
	factories[displayType] = factory
	return nil
}

// New creates the sink registered for displayType.
func New(displayType string, opts Options) (Sink, error) {
	mu.RLock()
	factory, ok := factories[displayType]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported display type %q (available: %v)", displayType, Types())
	}

	sink, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s display: %w", displayType, err)
	}
	return sink, nil
}

// Types returns the registered display types, sorted.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
