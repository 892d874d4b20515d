package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/parallax/internal/config"
)

// configCmd prints the resolved configuration or writes a default file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Print the fully resolved configuration (defaults, config file,
environment, flags) as YAML, or generate a default configuration file.

Examples:
  parallax config
  parallax config --init parallax.yaml`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if initFile, _ := cmd.Flags().GetString("init"); initFile != "" {
			if err := config.GenerateDefaultConfigFile(initFile); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", initFile)
			return nil
		}

		loader := GetConfigLoader()
		out := cmd.OutOrStdout()
		if used := loader.GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(out, "# config file: %s\n", used)
		} else {
			_, _ = fmt.Fprintf(out, "# no config file found (searched: %v)\n", config.GetConfigSearchPaths())
		}

		bts, err := yaml.Marshal(loader.GetResolvedConfig())
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		_, _ = fmt.Fprint(out, string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().String("init", "", "write a default configuration file to the given path")
}
