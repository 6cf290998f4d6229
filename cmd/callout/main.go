package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const fallbackConfigPath = "./callout.yaml"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "callout",
	Short: "Policy-gated outbound HTTP invocation engine",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to configuration file")
}

func resolveConfigPath() string {
	if cfgPath != "" {
		return cfgPath
	}

	if env := os.Getenv("CALLOUT_CONFIG"); env != "" {
		return env
	}

	return fallbackConfigPath
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
