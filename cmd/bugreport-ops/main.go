package main

import (
	"fmt"
	"os"

	"github.com/costlens/bugreport-ops/internal/config"
	"github.com/costlens/bugreport-ops/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bugreport-ops",
	Short: "bugreport-ops - encrypted bug report retrieval and analysis",
	Long: `bugreport-ops downloads encrypted bug report bundles from share links,
extracts the cluster inventory files they contain, and parses them into
per-cluster node and namespace resource reports used for cost estimation.`,
	SilenceErrors: true, // We'll handle error printing ourselves
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		logger.Init(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: config.yml in current directory)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
