package main

import (
	"context"

	"github.com/spf13/cobra"
)

func startCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a stopped instance and wait for the model to answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			name, err := resolveInstanceName(name, cfg)
			if err != nil {
				return err
			}
			model, err := resolveModel("", cfg)
			if err != nil {
				return err
			}

			o, err := buildStack(cfg, model)
			if err != nil {
				return err
			}

			return o.Start(context.Background(), name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Instance name (default from config)")

	return cmd
}
