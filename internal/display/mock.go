package display

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"inkdisplay/pkg/display"
)

// MockSink writes every displayed image to a directory, for development
// without panel hardware.
type MockSink struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewMockSink creates a sink writing into dir.
func NewMockSink(dir string, logger *zap.Logger) (*MockSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("mock display requires output_dir")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mock output dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockSink{dir: dir, logger: logger.Named("mock"), now: time.Now}, nil
}

func (s *MockSink) Name() string { return "mock" }

// Display writes display_<timestamp>.png and overwrites latest.png.
func (s *MockSink) Display(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fmt.Sprintf("display_%s.png", s.now().Format("20060102_150405.000000"))
	if err := imaging.Save(img, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := imaging.Save(img, filepath.Join(s.dir, "latest.png")); err != nil {
		return fmt.Errorf("failed to write latest.png: %w", err)
	}

	s.logger.Info("Mock display updated", zap.String("file", name))
	return nil
}

func newMockFromOptions(opts display.Options) (display.Sink, error) {
	return NewMockSink(opts.OutputDir, opts.Logger)
}
