package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	cycles          prometheus.Counter
	refreshes       *prometheus.CounterVec
	renderFailures  *prometheus.CounterVec
	displayFailures prometheus.Counter
	displaySkips    prometheus.Counter
	renderDuration  *prometheus.HistogramVec
}

// newMetrics registers the scheduler's collectors with reg. A nil reg
// leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "inkdisplay_cycles_total",
			Help: "Playlist cycles run by the refresh worker.",
		}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inkdisplay_refreshes_total",
			Help: "Successful refreshes by refresh type.",
		}, []string{"type"}),
		renderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inkdisplay_render_failures_total",
			Help: "Plugin renders that returned an error or panicked.",
		}, []string{"plugin"}),
		displayFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "inkdisplay_display_failures_total",
			Help: "Images the display sink failed to show.",
		}),
		displaySkips: f.NewCounter(prometheus.CounterOpts{
			Name: "inkdisplay_display_skips_total",
			Help: "Refreshes whose image matched the one already on screen.",
		}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inkdisplay_render_duration_seconds",
			Help:    "Time spent in plugin GenerateImage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"plugin"}),
	}
}
