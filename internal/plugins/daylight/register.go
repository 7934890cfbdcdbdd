package daylight

import (
	"inkdisplay/pkg/plugin"
)

func init() {
	plugin.Register(plugin.PluginInfo{
		ID:          ID,
		Description: "Reference daylight plugin - shades today's sunrise to sunset window",
		Priority:    plugin.PriorityDefault,
		Factory:     createPlugin,
	})
}

func createPlugin(ctx *plugin.Context) (plugin.Plugin, error) {
	return New(ctx.Logger), nil
}
