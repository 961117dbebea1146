package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/docrunner/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Writes the default configuration, with a freshly generated auth.secret, to the --config path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}

		cfg := config.DefaultConfig()
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.Auth.Secret = secret

		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfgFile)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
