// Package cmd implements linkctl, an operator tool that inspects the pairing
// and lookup caches directly in the key store.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pilab-dev/twitched-link/config"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// openStore is replaced in tests.
var openStore = store.NewFromConfig

type env struct {
	cfg    *config.Config
	store  store.KeyStore
	logger log.Logger
}

type envKey struct{}

func fromContext(ctx context.Context) *env {
	e, _ := ctx.Value(envKey{}).(*env)
	return e
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "linkctl",
		Short:         "linkctl inspects the twitched link caches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := log.NewZerologAdapter(level, true)

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			kv, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open key store: %w", err)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: cfg, store: kv, logger: logger}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e := fromContext(cmd.Context()); e != nil {
				return e.store.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is twitched.yaml in the usual places)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newStatusCmd(), newCodeCmd(), newFollowsCmd(), newNamesCmd())
	return root
}

// Execute runs linkctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
