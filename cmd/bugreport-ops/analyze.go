package main

import (
	"fmt"
	"os"

	"github.com/costlens/bugreport-ops/internal/formatter"
	"github.com/costlens/bugreport-ops/internal/pipeline"
	"github.com/spf13/cobra"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [archive-file]",
	Short: "Analyze an already-downloaded bug report archive",
	Long: `Analyze parses a local bug report archive (a gzip-compressed TAR, or a ZIP
containing one or more of them) without touching the network.

Examples:
  # Analyze a raw bundle
  bugreport-ops analyze bug-report.tar.gz

  # Analyze a multi-cluster upload
  bugreport-ops analyze clusters.zip -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		reports, err := pipeline.ParseBugReport(data)
		if err != nil {
			return fmt.Errorf("analyze failed: %w", err)
		}

		f, err := formatter.New(formatter.Type(outputFormat(analyzeOutput)))
		if err != nil {
			return err
		}
		rendered, err := f.Format(reports)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output format (table, json, yaml)")
}
