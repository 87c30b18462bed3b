package cmd

import (
	"fmt"
	"os"

	"reposync/pkg/config"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize reposync configuration",
	Long:  "Create a default configuration file for reposync",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "⚠️  Configuration file already exists at: %s\n", path)
		fmt.Fprintln(out, "Use --force to overwrite it.")
		return nil
	}

	defaultConfig := &config.Config{
		GitHub: config.GitHubConfig{
			Owner: "your-organization",
		},
	}
	defaultConfig.ApplyDefaults()

	if err := defaultConfig.SaveConfigToPath(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "📝 Set GITHUB_TOKEN or github.token before running reposync apply.")

	return nil
}
