package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Lllllllleong/issuebridge/internal/app"
	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/config"
	"github.com/Lllllllleong/issuebridge/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cliDefaults run everything in-process unless the environment says otherwise.
var cliDefaults = map[string]any{
	"store.backend":    "sqlite",
	"queue.dispatcher": "local",
	"queue.tracker":    "memory",
}

// cli is the state shared by every subcommand.
type cli struct {
	v         *viper.Viper
	userToken string
	bridge    *app.App
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:          "bridgectl",
		Short:        "Export issues and markdown to the wiki",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("store", "", "key-value store backend (sqlite, memory, firestore)")
	flags.String("sqlite-path", "", "path of the sqlite store")
	flags.Int("workers", 0, "number of upload workers")
	flags.StringVar(&c.userToken, "user-token", os.Getenv("ATLASSIAN_USER_TOKEN"), "access token for calls made as the user")
	_ = c.v.BindPFlag("store.backend", flags.Lookup("store"))
	_ = c.v.BindPFlag("store.sqlite_path", flags.Lookup("sqlite-path"))
	_ = c.v.BindPFlag("queue.worker_count", flags.Lookup("workers"))

	root.AddCommand(
		newCreatePageCmd(c),
		newLinkCmd(c),
		newAppIDCmd(c),
		newIssueDetailsCmd(c),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger := logging.SetupWriter(cmd.ErrOrStderr(), level)

	cfg, err := config.LoadWith(c.v, cliDefaults)
	if err != nil {
		return err
	}
	c.bridge, err = app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.bridge.StartLocalWorkers(context.WithoutCancel(cmd.Context()))
	return nil
}

func (c *cli) close() error {
	if c.bridge == nil {
		return nil
	}
	err := c.bridge.Close()
	c.bridge = nil
	return err
}

// userContext returns ctx carrying the configured user token.
func (c *cli) userContext(ctx context.Context) context.Context {
	if c.userToken == "" {
		return ctx
	}
	return atlassian.WithUserToken(ctx, c.userToken)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
