package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	verbose  bool
	logLevel string
	// levelSet reports whether the level came from a flag, which then wins
	// over the level in a config file.
	levelSet bool
	logOut   io.Writer
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "fieldfmt",
		Short:        "Fixed-width field formatting for reports and templates",
		Long:         `fieldfmt formats values into fixed-width fields described by short directives such as "l=10&t=_&a=1&f=0.00", renders text templates built from them, and serves both over HTTP.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := opts.logLevel
			if opts.verbose {
				level = "debug"
			}
			opts.levelSet = opts.verbose || cmd.Flags().Changed("log-level")
			opts.logOut = cmd.ErrOrStderr()
			logger, err := newLogger(opts.logOut, level)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("fieldfmt %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildDate))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newFormatCmd(opts))
	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

// newLogger builds a slog.Logger backed by a charmbracelet handler writing to w.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
	})
	return slog.New(handler), nil
}
