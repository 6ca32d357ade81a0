package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/pipeline"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/report"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/storage"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/tabular"
)

// summaryView is the printable form of a summary.
type summaryView struct {
	File             string         `json:"file" yaml:"file"`
	Count            int            `json:"count" yaml:"count"`
	AvgFlowrate      float64        `json:"avg_flowrate" yaml:"avg_flowrate"`
	AvgPressure      float64        `json:"avg_pressure" yaml:"avg_pressure"`
	AvgTemperature   float64        `json:"avg_temperature" yaml:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution" yaml:"type_distribution"`
}

func newSummaryView(file string, s dataset.Summary) summaryView {
	return summaryView{
		File:             file,
		Count:            s.Count,
		AvgFlowrate:      s.AvgFlowrate,
		AvgPressure:      s.AvgPressure,
		AvgTemperature:   s.AvgTemperature,
		TypeDistribution: s.TypeDistribution,
	}
}

// ingestFile runs path through an in-memory pipeline so local commands
// share the server's validation and report code.
func ingestFile(cmd *cobra.Command, opts *rootOptions, path, delimiter string) (*pipeline.Controller, dataset.Dataset, error) {
	readOpts, err := readerOptions(delimiter)
	if err != nil {
		return nil, dataset.Dataset{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, dataset.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	logger := opts.logger(cmd)
	ctrl, err := pipeline.New(pipeline.Config{
		Store:         storage.NewMemoryStore(storage.Options{MaxDatasets: 1}),
		Reports:       report.NewRenderer(nil, logger),
		ReaderOptions: readOpts,
		Logger:        logger,
	})
	if err != nil {
		return nil, dataset.Dataset{}, err
	}

	in, err := ctrl.Ingest(commandContext(cmd), filepath.Base(path), f)
	if err != nil {
		return nil, dataset.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ctrl, in.Dataset, nil
}

func readerOptions(delimiter string) (tabular.Options, error) {
	switch delimiter {
	case "", "auto":
		return tabular.Options{}, nil
	case ",", ";":
		return tabular.Options{Delimiter: rune(delimiter[0])}, nil
	case "tab", "\\t", "\t":
		return tabular.Options{Delimiter: '\t'}, nil
	default:
		return tabular.Options{}, fmt.Errorf("unsupported delimiter %q (use auto, ',', ';' or tab)", delimiter)
	}
}

func newSummarizeCommand(opts *rootOptions) *cobra.Command {
	var (
		output    string
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "summarize <file.csv>",
		Short: "Print the summary of a CSV file without contacting a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ds, err := ingestFile(cmd, opts, args[0], delimiter)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), output, newSummaryView(args[0], ds.Summary))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&delimiter, "delimiter", "auto", "field delimiter: auto, ',', ';' or tab")
	return cmd
}

func writeSummary(w io.Writer, output string, v summaryView) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		printf(w, "File:             %s\n", v.File)
		printf(w, "Samples:          %d\n", v.Count)
		printf(w, "Avg Flowrate:     %.2f\n", v.AvgFlowrate)
		printf(w, "Avg Pressure:     %.2f\n", v.AvgPressure)
		printf(w, "Avg Temperature:  %.2f\n", v.AvgTemperature)
		printf(w, "Equipment Types:\n")
		types := make([]string, 0, len(v.TypeDistribution))
		for t := range v.TypeDistribution {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			printf(w, "  - %s: %d\n", t, v.TypeDistribution[t])
		}
		return nil
	default:
		return fmt.Errorf("unsupported output %q (use text, json or yaml)", output)
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		format    string
		out       string
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "report <file.csv>",
		Short: "Render a PDF or XLSX report for a CSV file locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			ctrl, ds, err := ingestFile(cmd, opts, args[0], delimiter)
			if err != nil {
				return err
			}

			doc, err := ctrl.Report(commandContext(cmd), ds.ID, f)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = doc.Filename
			}
			if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			printf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(doc.Body))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "report format: pdf or xlsx")
	cmd.Flags().StringVarP(&out, "out", "O", "", "output path (default chemviz_report_<name>.<format>)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "auto", "field delimiter: auto, ',', ';' or tab")
	return cmd
}
