// Package cli implements the chemvizctl commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	debug   bool
}

// NewRootCommand builds the chemvizctl command tree. Each call returns an
// independent tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "chemvizctl",
		Short:         "Summarize equipment CSV files and manage chemviz reports",
		Long:          `chemvizctl computes equipment-parameter summaries and reports locally, or uploads CSV files to a chemviz server and downloads its PDF/XLSX reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default is ~/.chemvizctl.yaml)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging to stderr")
	pf.String("server", "", "chemviz server URL (default "+DefaultServer+")")
	pf.Duration("timeout", 0, "HTTP request timeout (default 1m)")
	pf.String("ca-file", "", "CA certificate used to verify an https server")
	pf.String("cert-file", "", "client certificate for mutual TLS")
	pf.String("key-file", "", "client key for mutual TLS")

	root.AddCommand(
		newSummarizeCommand(opts),
		newReportCommand(opts),
		newUploadCommand(opts),
		newHistoryCommand(opts),
		newDownloadCommand(opts),
	)
	return root
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) client(cmd *cobra.Command) (*apiClient, error) {
	s, err := loadSettings(o.cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	o.logger(cmd).Debug("resolved settings", "server", s.Server, "timeout", s.Timeout)
	return newAPIClient(s)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func formatTime(raw string) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
