package main

import (
	"context"

	"github.com/spf13/cobra"
)

func stopCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			name, err := resolveInstanceName(name, cfg)
			if err != nil {
				return err
			}

			o, err := buildStack(cfg, "")
			if err != nil {
				return err
			}

			return o.Stop(context.Background(), name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Instance name (default from config)")

	return cmd
}
