package webpage

import (
	"os"

	"inkdisplay/pkg/plugin"
)

// ControlURLEnv points the plugin at a running browser instead of
// launching one per render.
const ControlURLEnv = "INKDISPLAY_BROWSER_URL"

func init() {
	plugin.Register(plugin.PluginInfo{
		ID:          ID,
		Description: "Reference web plugin - screenshots a page with a headless browser",
		Priority:    plugin.PriorityDefault,
		Factory:     createPlugin,
	})
}

func createPlugin(ctx *plugin.Context) (plugin.Plugin, error) {
	var launch Launcher
	if u := os.Getenv(ControlURLEnv); u != "" {
		launch = RemoteLauncher(u)
	}
	return New(launch, ctx.Logger), nil
}
