package imageurl

import (
	"inkdisplay/pkg/plugin"
)

func init() {
	plugin.Register(plugin.PluginInfo{
		ID:          ID,
		Description: "Reference image plugin - displays an image downloaded from a URL",
		Priority:    plugin.PriorityDefault,
		Factory:     createPlugin,
	})
}

// createPlugin creates the plugin from the shared plugin context.
func createPlugin(ctx *plugin.Context) (plugin.Plugin, error) {
	return New(ctx.HTTPClient, ctx.UserAgent, ctx.Logger), nil
}
