package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starwalkn/callout"
)

var validateCmd = &cobra.Command{
	Use:          "validate",
	Short:        "Validates configuration file",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		if _, err := callout.LoadConfig(resolveConfigPath()); err != nil {
			return err
		}

		fmt.Println("OK")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
