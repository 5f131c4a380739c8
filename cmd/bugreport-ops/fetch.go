package main

import (
	"fmt"

	"github.com/costlens/bugreport-ops/internal/formatter"
	"github.com/costlens/bugreport-ops/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	fetchPassword string
	fetchOutput   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [share-url]",
	Short: "Download, decrypt and analyze a bug report share link",
	Long: `Fetch runs the full pipeline against an encrypted share link: it performs
the authenticated download handshake, decrypts the blob, extracts the cluster
inventory files, and prints the parsed per-cluster report.

Examples:
  # Fetch an unprotected bug report
  bugreport-ops fetch 'https://send.example.com/download/abcdef0123/#secret'

  # Fetch a password-protected bug report as JSON
  bugreport-ops fetch 'https://send.example.com/download/abcdef0123/#secret' --password hunter2 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipeline.DefaultOptions()
		opts.Timeout = cfg.Client.Timeout
		opts.UserAgent = cfg.Client.UserAgent

		reports, _, err := pipeline.New(opts, nil).Run(cmd.Context(), args[0], fetchPassword)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		f, err := formatter.New(formatter.Type(outputFormat(fetchOutput)))
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

// outputFormat resolves the flag against the configured default.
func outputFormat(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Output.Format
}

func init() {
	flags := fetchCmd.Flags()
	flags.StringVarP(&fetchPassword, "password", "p", "", "password for protected share links")
	flags.StringVarP(&fetchOutput, "output", "o", "", "output format (table, json, yaml)")
}
