package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "poolsim",
		Short:         "Bounded entity pooling for a tick-driven world",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $POOLSIM_CONFIG or config/poolsim.toml)")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the simulation loop with the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath(cfgPath))
		},
	})

	var asJSON bool
	validateCmd := &cobra.Command{
		Use:   "validate [catalog]",
		Short: "Load and check a pool catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return validate(cmd.OutOrStdout(), configPath(cfgPath), path, asJSON)
		},
	}
	validateCmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	root.AddCommand(validateCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "poolsim v%s\n", version)
		},
	})
	return root
}

// configPath picks --config, then $POOLSIM_CONFIG, then the default.
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv("POOLSIM_CONFIG"); p != "" {
		return p
	}
	return "config/poolsim.toml"
}
