package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstance(pluginID, name string, interval int) *PluginInstance {
	return &PluginInstance{
		PluginID: pluginID,
		Name:     name,
		Settings: map[string]any{},
		Refresh:  IntervalRefresh(interval),
	}
}

func TestPlaylist_NextDueRoundRobin(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := New("Day", Midnight, EndOfDay)
	require.NoError(t, p.AddPlugin(newInstance("a", "one", 60)))
	require.NoError(t, p.AddPlugin(newInstance("b", "two", 60)))
	require.NoError(t, p.AddPlugin(newInstance("c", "three", 60)))

	var order []string
	for i := 0; i < 4; i++ {
		idx, inst, ok := p.NextDue(now)
		require.True(t, ok)
		p.SetCursor(idx)
		order = append(order, inst.Name)
	}
	assert.Equal(t, []string{"one", "two", "three", "one"}, order)
}

func TestPlaylist_NextDueSkipsNotDueAndWraps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Second)

	p := New("Day", Midnight, EndOfDay)
	first := newInstance("a", "one", 60)
	second := newInstance("b", "two", 60)
	second.LatestRefresh = &recent
	third := newInstance("c", "three", 60)
	third.LatestRefresh = &recent
	require.NoError(t, p.AddPlugin(first))
	require.NoError(t, p.AddPlugin(second))
	require.NoError(t, p.AddPlugin(third))
	p.SetCursor(0)

	idx, inst, ok := p.NextDue(now)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "one", inst.Name)
}

func TestPlaylist_NextDueNothingDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Second)

	p := New("Day", Midnight, EndOfDay)
	inst := newInstance("a", "one", 60)
	inst.LatestRefresh = &recent
	require.NoError(t, p.AddPlugin(inst))

	_, _, ok := p.NextDue(now)
	assert.False(t, ok)

	_, _, ok = New("Empty", Midnight, EndOfDay).NextDue(now)
	assert.False(t, ok)
}

func TestPlaylist_NextDueCursorOutOfRange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := New("Day", Midnight, EndOfDay)
	require.NoError(t, p.AddPlugin(newInstance("a", "one", 60)))
	require.NoError(t, p.AddPlugin(newInstance("b", "two", 60)))
	p.SetCursor(7)

	idx, _, ok := p.NextDue(now)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestPlaylist_AddPluginRejectsDuplicates(t *testing.T) {
	p := New("Day", Midnight, EndOfDay)
	require.NoError(t, p.AddPlugin(newInstance("a", "one", 60)))

	err := p.AddPlugin(newInstance("a", "one", 120))
	assert.ErrorIs(t, err, ErrDuplicateInstance)

	assert.NoError(t, p.AddPlugin(newInstance("b", "one", 60)))
	assert.Error(t, p.AddPlugin(&PluginInstance{PluginID: "c", Name: "bad"}))
}

func TestPlaylist_UpdatePlugin(t *testing.T) {
	p := New("Day", Midnight, EndOfDay)
	require.NoError(t, p.AddPlugin(newInstance("a", "one", 60)))

	err := p.UpdatePlugin("a", "one", map[string]any{"url": "http://x"}, ScheduledRefresh(480))
	require.NoError(t, err)

	inst, ok := p.FindPlugin("a", "one")
	require.True(t, ok)
	assert.Equal(t, "http://x", inst.Settings["url"])
	assert.Equal(t, RefreshScheduled, inst.Refresh.Kind())

	assert.ErrorIs(t, p.UpdatePlugin("a", "missing", nil, IntervalRefresh(1)), ErrInstanceNotFound)
}

func TestPlaylist_RemovePluginKeepsRotationPosition(t *testing.T) {
	tests := []struct {
		name       string
		cursor     *int
		remove     string
		wantCursor *int
		wantNext   string
	}{
		{name: "before cursor", cursor: intPtr(2), remove: "one", wantCursor: intPtr(1), wantNext: "four"},
		{name: "at cursor", cursor: intPtr(1), remove: "two", wantCursor: intPtr(0), wantNext: "three"},
		{name: "after cursor", cursor: intPtr(0), remove: "three", wantCursor: intPtr(0), wantNext: "two"},
		{name: "at cursor zero", cursor: intPtr(0), remove: "one", wantCursor: nil, wantNext: "two"},
		{name: "no cursor", cursor: nil, remove: "two", wantCursor: nil, wantNext: "one"},
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("Day", Midnight, EndOfDay)
			for _, n := range []string{"one", "two", "three", "four"} {
				require.NoError(t, p.AddPlugin(newInstance("x", n, 60)))
			}
			p.Cursor = tt.cursor

			removed, err := p.RemovePlugin("x", tt.remove)
			require.NoError(t, err)
			assert.Equal(t, tt.remove, removed.Name)
			assert.Equal(t, tt.wantCursor, p.Cursor)

			_, next, ok := p.NextDue(now)
			require.True(t, ok)
			assert.Equal(t, tt.wantNext, next.Name)
		})
	}
}

func TestPlaylist_RemoveLastPluginClearsCursor(t *testing.T) {
	p := New("Day", Midnight, EndOfDay)
	require.NoError(t, p.AddPlugin(newInstance("x", "only", 60)))
	p.SetCursor(0)

	_, err := p.RemovePlugin("x", "only")
	require.NoError(t, err)
	assert.Nil(t, p.Cursor)

	_, err = p.RemovePlugin("x", "only")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestPlaylist_Validate(t *testing.T) {
	p := New("", Midnight, EndOfDay)
	assert.Error(t, p.Validate())

	p = New("Bad", Midnight, 1500)
	assert.Error(t, p.Validate())

	p = New("Dupes", Midnight, EndOfDay)
	p.Plugins = []*PluginInstance{newInstance("a", "one", 1), newInstance("a", "one", 1)}
	assert.ErrorIs(t, p.Validate(), ErrDuplicateInstance)
}

func TestPlaylist_CloneIsDeep(t *testing.T) {
	p := New("Day", Midnight, EndOfDay)
	require.NoError(t, p.AddPlugin(newInstance("a", "one", 60)))
	p.SetCursor(0)

	c := p.Clone()
	c.Plugins[0].Name = "changed"
	c.SetCursor(5)
	c.Plugins = append(c.Plugins, newInstance("b", "two", 60))

	assert.Equal(t, "one", p.Plugins[0].Name)
	assert.Equal(t, 0, *p.Cursor)
	assert.Len(t, p.Plugins, 1)
}

func intPtr(i int) *int { return &i }
