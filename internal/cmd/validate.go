package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reposync/pkg/github"
	"reposync/pkg/gitrepo"
)

var (
	validateOnline   bool
	validateOwner    string
	validateRepoPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate [settings-file]",
	Short: "Validate a repository settings file",
	Long: `Validate a settings file for syntax and logical errors without changing anything.

Offline validation (always performed):
• YAML syntax and unknown keys
• Required reviewers present and at most 6 per environment
• protected_branches and custom_branch_policies not enabled together
• Custom branch policies listed when custom_branch_policies is enabled
• Labels, Jira autolink projects and discussions notification target

Online validation (--online):
• Reviewer usernames and team slugs exist on GitHub

Examples:
  reposync validate
  reposync validate settings.yaml
  reposync validate settings.yaml --online --owner myorg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateOnline, "online", false, "Also check that reviewers exist on GitHub")
	validateCmd.Flags().StringVar(&validateOwner, "owner", "", "Organization used to resolve team reviewers")
	validateCmd.Flags().StringVar(&validateRepoPath, "repo-path", ".", "Path to the local clone when no file is given")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}

	var settings *github.Config
	source := cfg.GitHub.SettingsFile
	if len(args) == 1 {
		source = args[0]
		settings, err = github.LoadConfigFromFile(source)
	} else {
		var repo *gitrepo.Repo
		repo, err = gitrepo.Open(validateRepoPath)
		if err == nil {
			var data []byte
			data, err = repo.ReadFile(source)
			if err == nil {
				settings, err = github.LoadConfig(data)
			}
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🔍 Validating settings file: %s\n", source)

	if validateOnline {
		owner := validateOwner
		if owner == "" {
			owner = cfg.GitHub.Owner
		}
		client, err := github.NewClientFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n\n", github.GetAuthInstructions())
			return err
		}
		err = github.NewValidator(client, owner).ValidateConfig(commandContext(cmd), settings)
		return reportValidation(out, settings, err)
	}

	return reportValidation(out, settings, settings.Validate())
}

// reportValidation prints each violation and returns a summarizing error
func reportValidation(out io.Writer, settings *github.Config, err error) error {
	if err == nil {
		fmt.Fprintf(out, "✅ Settings file is valid (%d environments)\n", len(settings.Environments))
		return nil
	}

	var violations github.ValidationErrors
	if !errors.As(err, &violations) {
		return err
	}

	fmt.Fprintf(out, "❌ Found %d problem(s):\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(out, "  • %s\n", v.Error())
	}
	return fmt.Errorf("settings file is invalid: %d problem(s) found", len(violations))
}
