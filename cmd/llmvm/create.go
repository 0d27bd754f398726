package main

import (
	"context"

	"github.com/spf13/cobra"
)

func createCmd() *cobra.Command {
	var name, model string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a GPU instance and install the inference server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			name, err := resolveInstanceName(name, cfg)
			if err != nil {
				return err
			}
			model, err := resolveModel(model, cfg)
			if err != nil {
				return err
			}

			o, err := buildStack(cfg, model)
			if err != nil {
				return err
			}

			return o.Create(context.Background(), name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Instance name (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model to pull and serve (default from config)")

	return cmd
}
