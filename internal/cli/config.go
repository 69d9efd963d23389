package cli

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect engraving coefficients",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configCheckCommand())

	return cmd
}

// configShowCommand prints the effective coefficient set as TOML, so the
// output can be saved and edited as a starting config file.
func (c *CLI) configShowCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective engraving coefficients as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := engrave.DefaultConfig()
			if path != "" {
				loaded, err := engrave.LoadConfig(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return toml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "TOML file to merge over the defaults")
	return cmd
}

// configCheckCommand validates a coefficient file.
func (c *CLI) configCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [config.toml]",
		Short: "Validate a coefficient file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := engrave.LoadConfig(args[0]); err != nil {
				printError("%s is invalid", args[0])
				return err
			}
			printSuccess("%s is valid", args[0])
			return nil
		},
	}
}
