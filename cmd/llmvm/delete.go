package main

import (
	"context"

	"github.com/spf13/cobra"
)

func deleteCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an instance",
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

			return o.Delete(context.Background(), name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Instance name (default from config)")

	return cmd
}
