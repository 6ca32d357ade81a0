package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/report"
)

func newUploadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV file to the server and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}

			res, err := c.upload(commandContext(cmd), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printf(w, "Uploaded %s as %s\n", args[0], res.ID)
			printf(w, "Samples: %d  Flowrate: %.2f  Pressure: %.2f  Temperature: %.2f\n",
				res.Count, res.AvgFlowrate, res.AvgPressure, res.AvgTemperature)
			types := make([]string, 0, len(res.TypeDistribution))
			for t := range res.TypeDistribution {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				printf(w, "  - %s: %d\n", t, res.TypeDistribution[t])
			}
			return nil
		},
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent datasets on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}

			entries, err := c.history(commandContext(cmd), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printf(cmd.OutOrStdout(), "(no datasets)\n")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			printf(tw, "ID\tNAME\tUPLOADED\tSAMPLES\n")
			for _, e := range entries {
				printf(tw, "%s\t%s\t%s\t%d\n", e.ID, e.Name, formatTime(e.UploadedAt), e.Count)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of datasets to list (default: server history limit)")
	return cmd
}

func newDownloadCommand(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the report of a dataset from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}

			body, filename, err := c.download(commandContext(cmd), args[0], string(f))
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = filename
			}
			if path == "" {
				path = fmt.Sprintf("chemviz_report_%s.%s", args[0], f)
			}
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			printf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(body))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "report format: pdf or xlsx")
	cmd.Flags().StringVarP(&out, "out", "O", "", "output path (default: name suggested by the server)")
	return cmd
}
