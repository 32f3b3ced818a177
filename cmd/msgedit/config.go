package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beeper/msgedit/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective config with defaults filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		merged, err := config.Upgrade(data)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(merged)
		return err
	},
}
