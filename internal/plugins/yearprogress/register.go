package yearprogress

import (
	"inkdisplay/pkg/plugin"
)

func init() {
	plugin.Register(plugin.PluginInfo{
		ID:          ID,
		Description: "Reference progress plugin - shows the elapsed fraction of the year",
		Priority:    plugin.PriorityDefault,
		Factory:     createPlugin,
	})
}

func createPlugin(ctx *plugin.Context) (plugin.Plugin, error) {
	return New(ctx.Logger), nil
}
