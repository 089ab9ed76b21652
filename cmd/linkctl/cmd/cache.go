package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/spf13/cobra"
)

func newFollowsCmd() *cobra.Command {
	var kind string

	c := &cobra.Command{
		Use:   "follows USER_ID",
		Short: "Show the cached follow set of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd.Context())
			k, err := domain.ParseFollowKind(kind)
			if err != nil {
				return err
			}

			follows := cache.NewFollowCache(e.store, e.logger)
			ids := follows.GetFollows(cmd.Context(), args[0], k)
			sort.Strings(ids)

			out := cmd.OutOrStdout()
			if ts := follows.GetFollowTimestamp(cmd.Context(), args[0], k); ts != 0 {
				fmt.Fprintf(out, "refreshed: %s\n", time.UnixMilli(ts).UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "refreshed: never")
			}
			fmt.Fprintf(out, "%s follows (%d):\n", k, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
	c.Flags().StringVar(&kind, "kind", "channel", "follow kind: channel or game")
	return c
}

func newNamesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "names user|game ID...",
		Short: "Show cached names",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd.Context())

			var kind domain.EntityKind
			switch args[0] {
			case "user":
				kind = domain.EntityUser
			case "game":
				kind = domain.EntityGame
			default:
				return fmt.Errorf("unknown kind %q, want user or game", args[0])
			}

			names := cache.NewNameCache(e.store, e.logger).GetNames(cmd.Context(), args[1:], kind)
			out := cmd.OutOrStdout()
			for _, id := range args[1:] {
				if name, ok := names[id]; ok {
					fmt.Fprintf(out, "%s\t%s\n", id, name)
				} else {
					fmt.Fprintf(out, "%s\t<not cached>\n", id)
				}
			}
			return nil
		},
	}
	return c
}
