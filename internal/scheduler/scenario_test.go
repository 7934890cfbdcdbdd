package scheduler

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkdisplay/internal/config"
	"inkdisplay/internal/playlist"
	"inkdisplay/internal/status"
	"inkdisplay/pkg/plugin"
	"inkdisplay/pkg/testutil"
)

const waitFor = 2 * time.Second

// waitSleeping blocks until the worker has parked on the clock.
func waitSleeping(t *testing.T, s *Scheduler, env *testutil.TestEnv) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == StateSleeping && env.Clock.Waiters() > 0
	}, waitFor, time.Millisecond, "worker never went to sleep")
}

// tick advances the clock past the poll deadline and waits for the next
// cycle to finish.
func tick(t *testing.T, s *Scheduler, env *testutil.TestEnv, d time.Duration) {
	t.Helper()
	cycles := promtest.ToFloat64(s.metrics.cycles)
	env.Clock.Advance(d)
	require.Eventually(t, func() bool {
		return promtest.ToFloat64(s.metrics.cycles) > cycles
	}, waitFor, time.Millisecond, "no cycle after advancing the clock")
	waitSleeping(t, s, env)
}

func shownInstances(history []status.RefreshInfo) []string {
	out := make([]string, 0, len(history))
	for _, info := range history {
		out = append(out, info.PluginInstance)
	}
	return out
}

func setPollInterval(t *testing.T, env *testutil.TestEnv, seconds int) {
	t.Helper()
	require.NoError(t, env.Store.Update(func(d *config.Device) error {
		d.PollIntervalSeconds = seconds
		return nil
	}))
}

func TestScenario_RoundRobinAcrossCycles(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", name, playlist.IntervalRefresh(60), nil))
	}

	s.Start()
	waitSleeping(t, s, env)
	for i := 0; i < 3; i++ {
		tick(t, s, env, time.Minute)
	}

	assert.Equal(t, []string{"a", "b", "c", "a"}, shownInstances(env.Tracker.History()))
	assert.Equal(t, 0, env.Cursor(playlist.DefaultPlaylistName))
}

func TestScenario_SkipsInstancesNotDue(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", "hourly", playlist.IntervalRefresh(3600), nil))
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", "minutely", playlist.IntervalRefresh(60), nil))

	s.Start()
	waitSleeping(t, s, env)
	for i := 0; i < 3; i++ {
		tick(t, s, env, time.Minute)
	}

	assert.Equal(t, []string{"hourly", "minutely", "minutely", "minutely"}, shownInstances(env.Tracker.History()))
}

func TestScenario_FailingInstanceDoesNotStarveOthers(t *testing.T) {
	broken := testutil.NewFakePlugin("broken")
	broken.Err = errors.New("upstream 500")
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, broken, fake)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "broken", "first", playlist.IntervalRefresh(60), nil))
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", "second", playlist.IntervalRefresh(60), nil))

	s.Start()
	waitSleeping(t, s, env)
	for i := 0; i < 3; i++ {
		tick(t, s, env, time.Minute)
	}

	assert.Equal(t, 2, broken.CallCount())
	assert.Equal(t, 2, fake.CallCount())
	assert.Equal(t, []string{"second", "second"}, shownInstances(env.Tracker.History()))

	inst, err := env.Instance(playlist.DefaultPlaylistName, "broken", "first")
	require.NoError(t, err)
	assert.Nil(t, inst.LatestRefresh, "failed render is retried, not recorded")
	assert.Equal(t, 2.0, promtest.ToFloat64(s.metrics.renderFailures.WithLabelValues("broken")))
}

func TestScenario_ScheduledInstanceOncePerDay(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", "morning",
		playlist.ScheduledRefresh(playlist.MustParseTimeOfDay("11:00")), nil))
	require.NoError(t, env.Store.UpdatePlaylists(func(m *playlist.Manager) error {
		_, inst, err := m.Resolve(ref(playlist.DefaultPlaylistName, "fake", "morning"))
		if err != nil {
			return err
		}
		inst.MarkRefreshed(testStart.Add(-23 * time.Hour))
		return nil
	}))

	s.Start()
	waitSleeping(t, s, env)
	assert.Zero(t, fake.CallCount(), "10:00 is before the scheduled time")

	tick(t, s, env, time.Hour)
	assert.Equal(t, 1, fake.CallCount(), "11:00 crosses the scheduled time")

	tick(t, s, env, time.Hour)
	tick(t, s, env, 12*time.Hour)
	assert.Equal(t, 1, fake.CallCount(), "only once per day")

	tick(t, s, env, 11*time.Hour)
	assert.Equal(t, 2, fake.CallCount(), "due again the next day")
}

func TestScenario_MorePreciseWindowTakesOver(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", "all-day", playlist.IntervalRefresh(3600), nil))
	require.NoError(t, env.AddPlaylist("Lunch", "10:01", "13:00"))
	require.NoError(t, env.AddInstance("Lunch", "fake", "menu", playlist.IntervalRefresh(3600), nil))

	s.Start()
	waitSleeping(t, s, env)
	tick(t, s, env, time.Minute)

	history := env.Tracker.History()
	require.Len(t, history, 2)
	assert.Equal(t, playlist.DefaultPlaylistName, history[0].Playlist)
	assert.Equal(t, "Lunch", history[1].Playlist)
	assert.Equal(t, "menu", history[1].PluginInstance)
}

func TestScenario_ManualRequestResumesSameDeadline(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	setPollInterval(t, env, 300)

	s.Start()
	waitSleeping(t, s, env)
	require.Equal(t, 1.0, promtest.ToFloat64(s.metrics.cycles))

	env.Clock.Advance(100 * time.Second)
	require.NoError(t, s.Submit(context.Background(), NewManualRefresh("fake", nil)))
	waitSleeping(t, s, env)

	assert.Equal(t, 1, env.Clock.Waiters(), "the original deadline is kept")
	assert.Equal(t, 1.0, promtest.ToFloat64(s.metrics.cycles))

	env.Clock.Advance(199 * time.Second)
	assert.Never(t, func() bool {
		return promtest.ToFloat64(s.metrics.cycles) > 1
	}, 50*time.Millisecond, 5*time.Millisecond)

	tick(t, s, env, time.Second)
	assert.Equal(t, 2.0, promtest.ToFloat64(s.metrics.cycles))
}

func TestScenario_QueuedRequestsServedInOrder(t *testing.T) {
	release := make(chan struct{})
	slow := testutil.NewFakePlugin("slow")
	slow.Render = func(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
		<-release
		return testutil.SolidImage(800, 480, 1), nil
	}
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, slow, fake)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "slow", "blocking", playlist.IntervalRefresh(3600), nil))

	s.Start()
	require.Eventually(t, func() bool { return s.State() == StateRendering }, waitFor, time.Millisecond)

	results := make(chan error, 2)
	for i, text := range []string{"first", "second"} {
		req := NewManualRefresh("fake", plugin.Settings{"text": text})
		go func() { results <- s.Submit(context.Background(), req) }()
		queued := i + 1
		require.Eventually(t, func() bool { return s.mailbox.len() == queued }, waitFor, time.Millisecond)
	}
	assert.Zero(t, fake.CallCount(), "requests wait for the in-flight render")

	close(release)
	require.NoError(t, <-results)
	require.NoError(t, <-results)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Settings["text"])
	assert.Equal(t, "second", calls[1].Settings["text"])
	assert.Len(t, testutil.FilterRenderCalls(calls, "text", "second"), 1)
}

func TestScenario_ConfigChangeWakesWorker(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	setPollInterval(t, env, 3600)

	s.Start()
	waitSleeping(t, s, env)
	require.Zero(t, fake.CallCount())

	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "fake", "new", playlist.IntervalRefresh(60), nil))
	s.SignalConfigChange()

	require.Eventually(t, func() bool { return fake.CallCount() == 1 }, waitFor, time.Millisecond)
}

func TestScenario_StaleConfigSignalDoesNotCutSleepShort(t *testing.T) {
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, fake)
	setPollInterval(t, env, 3600)

	s.SignalConfigChange()
	s.Start()
	waitSleeping(t, s, env)

	assert.Never(t, func() bool {
		return promtest.ToFloat64(s.metrics.cycles) > 1
	}, 100*time.Millisecond, time.Millisecond, "the first cycle already saw the change")
}

func TestSleep_ReturnsIdle(t *testing.T) {
	s, env := newTestScheduler(t)
	stop := make(chan struct{})

	s.SignalConfigChange()
	require.True(t, s.sleep(context.Background(), stop, env.Clock.Now().Add(time.Hour)))
	assert.Equal(t, StateIdle, s.State())

	close(stop)
	assert.False(t, s.sleep(context.Background(), stop, env.Clock.Now().Add(time.Hour)))
	assert.Equal(t, StateSleeping, s.State())
}

func TestStop_FailsQueuedRequests(t *testing.T) {
	release := make(chan struct{})
	slow := testutil.NewFakePlugin("slow")
	slow.Render = func(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
		<-release
		return testutil.SolidImage(800, 480, 1), nil
	}
	fake := testutil.NewFakePlugin("fake")
	s, env := newTestScheduler(t, slow, fake)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "slow", "blocking", playlist.IntervalRefresh(3600), nil))

	s.Start()
	require.Eventually(t, func() bool { return s.State() == StateRendering }, waitFor, time.Millisecond)

	result := make(chan error, 1)
	go func() { result <- s.Submit(context.Background(), NewManualRefresh("fake", nil)) }()
	require.Eventually(t, func() bool { return s.mailbox.len() == 1 }, waitFor, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight render finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-stopped

	assert.ErrorIs(t, <-result, ErrStopped)
	assert.Zero(t, fake.CallCount())
	assert.Equal(t, 1, slow.CallCount())
	assert.Len(t, env.Tracker.History(), 1, "in-flight render completes")
	assert.False(t, s.Running())
	assert.Equal(t, StateStopped, s.State())

	s.Stop()
	assert.NoError(t, s.Submit(context.Background(), NewManualRefresh("fake", nil)), "stopped scheduler refreshes synchronously")
	assert.Equal(t, 1, fake.CallCount())
}

func TestStartStop_Idempotent(t *testing.T) {
	s, env := newTestScheduler(t, testutil.NewFakePlugin("fake"))

	assert.Equal(t, StateIdle, s.State())
	s.Start()
	s.Start()
	assert.True(t, s.Running())
	waitSleeping(t, s, env)

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	s.Start()
	assert.True(t, s.Running())
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
}

func TestSubmit_ContextCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := testutil.NewFakePlugin("slow")
	slow.Render = func(ctx context.Context, settings plugin.Settings, device plugin.Device) (image.Image, error) {
		<-release
		return testutil.SolidImage(800, 480, 1), nil
	}
	s, env := newTestScheduler(t, slow)
	require.NoError(t, env.AddInstance(playlist.DefaultPlaylistName, "slow", "blocking", playlist.IntervalRefresh(3600), nil))

	s.Start()
	require.Eventually(t, func() bool { return s.State() == StateRendering }, waitFor, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Submit(ctx, NewManualRefresh("slow", nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
