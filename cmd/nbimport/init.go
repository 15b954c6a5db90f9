package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/nbimport/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default " + config.FileName + " in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		path, err := config.WriteDefault(cwd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("config ready: ")+path)
		return nil
	},
}
