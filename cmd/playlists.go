package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"inkdisplay/internal/clock"
	"inkdisplay/internal/config"
	"inkdisplay/pkg/plugin"
)

var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "Show playlists, their windows and which one is active now",
	RunE:  runPlaylists,
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the compiled-in plugins",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPRIORITY\tDESCRIPTION")
		for _, info := range plugin.List() {
			fmt.Fprintf(w, "%s\t%d\t%s\n", info.ID, info.Priority, info.Description)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(playlistsCmd)
	rootCmd.AddCommand(pluginsCmd)
}

func runPlaylists(cmd *cobra.Command, args []string) error {
	env, _, err := config.LoadEnv()
	if err != nil {
		return err
	}
	logger, err := newLogger(env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := config.Load(env.ConfigPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load device config: %w", err)
	}

	now := clock.NewZoned(clock.NewRealClock(), store.Location()).Now()
	mgr := store.PlaylistManager()
	active := mgr.Active(now)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Now: %s\n\n", now.Format("Mon 15:04 MST"))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tPLAYLIST\tWINDOW\tPRIORITY\tINSTANCES")
	for _, p := range mgr.Playlists {
		marker := ""
		if active != nil && active.Name == p.Name {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", marker, p.Name, p.Window(), p.Priority(), len(p.Plugins))
		for _, inst := range p.Plugins {
			due := ""
			if inst.IsDue(now) {
				due = "due"
			}
			fmt.Fprintf(w, "\t  %s/%s\t%s\t\t%s\n", inst.PluginID, inst.Name, inst.Refresh, due)
		}
	}
	w.Flush()

	if active == nil {
		fmt.Fprintln(out, "\nNo playlist is active.")
	}
	return nil
}
