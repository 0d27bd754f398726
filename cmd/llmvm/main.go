package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbosity  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "llmvm",
		Short: "Provision GPU virtual machines that serve LLMs",
		Long:  `llmvm creates GPU instances on Google Compute Engine, installs the Ollama inference server on them, and manages their lifecycle.`,
	}

	// Get default config path from env var if set
	defaultConfig := "config.yaml"
	if envPath := os.Getenv("LLMVM_CONFIG"); envPath != "" {
		defaultConfig = envPath
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to configuration file (env: LLMVM_CONFIG)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")

	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
