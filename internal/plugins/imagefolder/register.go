package imagefolder

import (
	"inkdisplay/pkg/plugin"
)

func init() {
	plugin.Register(plugin.PluginInfo{
		ID:          ID,
		Description: "Reference folder plugin - rotates through images in a local directory",
		Priority:    plugin.PriorityDefault,
		Factory:     createPlugin,
	})
}

// createPlugin creates the plugin from the shared plugin context.
func createPlugin(ctx *plugin.Context) (plugin.Plugin, error) {
	return New(ctx.Logger), nil
}
