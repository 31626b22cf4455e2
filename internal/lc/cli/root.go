package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/client"
	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/config"
	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/output"
	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/version"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	quietMode  bool
	noColor    bool
	cfg        *config.Config
	apiClient  client.ClientInterface
	printer    *output.Printer
)

var errNotAuthenticated = errors.New("not authenticated: run 'lc config set token <jwt>' or set LC_TOKEN")

// newClient is replaced in tests.
var newClient = func(c *config.Config) client.ClientInterface {
	return client.New(c.BaseURL, c.Token, c.GetTimeout("http"))
}

var rootCmd = &cobra.Command{
	Use:   "lc",
	Short: "learn.cheap CLI - upload lectures, follow transcodes, issue certificates",
	Long: `lc is the command-line interface for the learn.cheap media service.

Upload lecture videos, watch their transcode progress, open streams and
drive operator tasks from the terminal.

Get started:
  lc config set token <jwt>      # Store an API token
  lc upload lecture.mp4 --watch  # Upload and follow the transcode
  lc status <video-id>           # Show renditions and progress`,
	Version: version.Full(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		printer = output.New(
			output.WithJSON(jsonOutput),
			output.WithQuiet(quietMode),
			output.WithNoColor(noColor),
			output.WithOutput(cmd.OutOrStdout()),
			output.WithErrOutput(cmd.ErrOrStderr()),
		)

		apiClient = newClient(cfg)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if printer == nil {
			printer = output.New(output.WithJSON(jsonOutput), output.WithNoColor(noColor))
		}
		printer.Error("%v", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON (for scripting)")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate("lc version {{.Version}}\n")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(certificateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
}

func requireAuth() error {
	if !cfg.IsAuthenticated() {
		return errNotAuthenticated
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
