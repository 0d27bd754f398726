package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instances in the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			o, err := buildStack(cfg, "")
			if err != nil {
				return err
			}

			instances, err := o.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list instances: %w", err)
			}

			if len(instances) == 0 {
				fmt.Println("No instances found")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Append([]string{"Name", "Zone", "Status", "Machine Type", "External IP", "Internal IP"})

			for _, inst := range instances {
				table.Append([]string{
					inst.Name,
					inst.Zone,
					inst.Status,
					inst.MachineType,
					inst.ExternalIP,
					inst.InternalIP,
				})
			}

			table.Render()
			return nil
		},
	}

	return cmd
}
