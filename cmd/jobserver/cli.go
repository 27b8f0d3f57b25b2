package main

import (
	"github.com/nixpig/jobctl/internal/config"
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	var configPath string

	c := &cobra.Command{
		Use:          "jobserver",
		Short:        "Per-user daemon tracking suspended shell jobs by directory",
		Example:      "jobserver --debug --log-file=''",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServer(cmd.Context(), cfg)
		},
	}

	c.CompletionOptions.HiddenDefaultCmd = true

	c.Flags().StringVar(&configPath, "config", "", "Path to config file")
	addFlags(c.Flags())

	return c
}
