package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"inkdisplay/internal/playlist"
	"inkdisplay/internal/scheduler"
	"inkdisplay/pkg/plugin"
)

var (
	refreshPlugin   string
	refreshSettings string
	refreshPlaylist string
	refreshInstance string
	refreshForce    bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Render and display once, then exit",
	Long: `Render a plugin and push it to the display without starting the scheduler.

Examples:
  # Render a plugin with ad-hoc settings
  inkdisplay refresh --plugin year_progress

  inkdisplay refresh --plugin image_url --settings '{"url":"https://example.com/a.png"}'

  # Show a saved playlist instance, rendering only if it is due
  inkdisplay refresh --playlist Default --plugin daylight --instance home

  # Always re-render
  inkdisplay refresh --playlist Default --plugin daylight --instance home --force
`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshPlugin, "plugin", "", "Plugin id to render (required)")
	refreshCmd.Flags().StringVar(&refreshSettings, "settings", "", "Plugin settings as a JSON object")
	refreshCmd.Flags().StringVar(&refreshPlaylist, "playlist", "", "Playlist holding the instance")
	refreshCmd.Flags().StringVar(&refreshInstance, "instance", "", "Instance name within the playlist")
	refreshCmd.Flags().BoolVarP(&refreshForce, "force", "f", false, "Re-render even when the instance is not due")
	_ = refreshCmd.MarkFlagRequired("plugin")
	refreshCmd.MarkFlagsRequiredTogether("playlist", "instance")
	refreshCmd.MarkFlagsMutuallyExclusive("settings", "playlist")

	rootCmd.AddCommand(refreshCmd)
}

func buildRefreshRequest() (scheduler.Request, error) {
	if refreshPlaylist != "" {
		return scheduler.NewPlaylistRefresh(playlist.InstanceRef{
			Playlist: refreshPlaylist,
			PluginID: refreshPlugin,
			Instance: refreshInstance,
		}, refreshForce), nil
	}

	settings := plugin.Settings{}
	if refreshSettings != "" {
		if err := json.Unmarshal([]byte(refreshSettings), &settings); err != nil {
			return nil, fmt.Errorf("invalid --settings: %w", err)
		}
	}
	return scheduler.NewManualRefresh(refreshPlugin, settings), nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	req, err := buildRefreshRequest()
	if err != nil {
		return err
	}

	a, err := bootstrap(nil)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	// The scheduler is not started, so Submit renders on this goroutine.
	if err := a.sched.Submit(cmd.Context(), req); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s (request %s)\n", req.Kind(), req.ID())
	return nil
}
