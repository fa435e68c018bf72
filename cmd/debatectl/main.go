// debatectl is a terminal viewer for deliberatorium debates: it starts a
// debate, prints the transcript as it grows and sends interventions typed
// on stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/deliberatorium/pkg/client"
	"github.com/codeready-toolchain/deliberatorium/pkg/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "debatectl: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the global flags and the client settings they resolve to.
type rootOptions struct {
	serverURL string
	configDir string
	verbose   bool

	client *config.ClientConfig
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "debatectl",
		Short:         "Watch and take part in deliberatorium debates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.serverURL, "server", "", "server base URL (overrides client.server_url)")
	flags.StringVar(&opts.configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newAgentsCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// load configures logging and resolves client settings from the config
// directory and flags.
func (o *rootOptions) load(ctx context.Context, stderr io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	envPath := filepath.Join(o.configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	cfg, err := config.Initialize(ctx, o.configDir)
	if err != nil {
		return err
	}
	o.client = cfg.Client
	if o.serverURL != "" {
		o.client.ServerURL = o.serverURL
	}
	return nil
}

func (o *rootOptions) newClient() (*client.Client, error) {
	return client.New(o.client.ServerURL, o.client.RequestTimeout)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
