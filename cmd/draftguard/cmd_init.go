package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"draftguard/internal/config"
)

var initForce bool

// initCmd writes a starter config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the --config path",
	Long: `Writes the default configuration to the --config path so the provider,
thresholds, and rule overrides can be edited in place. Refuses to overwrite
an existing file unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDefaultConfig(configPath, initForce)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("wrote default config to %s\n", path)
	return nil
}
