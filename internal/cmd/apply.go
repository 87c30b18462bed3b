package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reposync/pkg/config"
	"reposync/pkg/github"
	"reposync/pkg/gitrepo"
)

var (
	applyDryRun           bool
	applyOwner            string
	applyRepo             string
	applyRepoPath         string
	applySkipBranchCheck  bool
	applyEnvironmentsOnly bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [settings-file]",
	Short: "Apply the repository settings file to GitHub",
	Long: `Apply reads the settings file and reconciles the GitHub repository with it.

Without an argument the settings file is read from the HEAD commit of the
local clone (default .reposync.yaml), and the run only proceeds when the
clone is on its default branch. Owner and repository name default to the
origin remote.

Environments not listed in the file are deleted as soon as the environments
key is present, even when it is empty. Branch policies not listed for an
environment are deleted unless the environment uses protected branches.

Examples:
  reposync apply
  reposync apply --dry-run
  reposync apply settings.yaml --owner myorg --repo myrepo
  reposync apply --environments-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show planned changes without applying them")
	applyCmd.Flags().StringVar(&applyOwner, "owner", "", "Repository owner (default: github.owner or the origin remote)")
	applyCmd.Flags().StringVar(&applyRepo, "repo", "", "Repository name (default: the origin remote)")
	applyCmd.Flags().StringVar(&applyRepoPath, "repo-path", ".", "Path to the local clone")
	applyCmd.Flags().BoolVar(&applySkipBranchCheck, "skip-branch-check", false, "Apply even when the clone is not on its default branch")
	applyCmd.Flags().BoolVar(&applyEnvironmentsOnly, "environments-only", false, "Only reconcile deployment environments")
}

// target is the repository a run applies to and the document to apply
type target struct {
	Owner    string
	Repo     string
	Settings *github.Config
	// Skip is set when the clone is not on its default branch.
	Skip   bool
	Branch string
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)

	t, err := resolveTarget(cfg, args, logger)
	if err != nil {
		return err
	}
	if t.Skip {
		logger.Info().Str("branch", t.Branch).
			Msg("Saw settings file, but not on the default branch of the repository, not updating")
		return nil
	}

	client, err := github.NewClientFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n", github.GetAuthInstructions())
		return err
	}

	rcfg := github.ReconcilerConfig{
		Owner:                    t.Owner,
		Repository:               t.Repo,
		DryRun:                   applyDryRun,
		RecreateExistingPolicies: cfg.GitHub.RecreateExistingPolicies,
		JiraURL:                  cfg.GitHub.JiraURL,
		Logger:                   &logger,
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if applyEnvironmentsOnly {
		plan, err := github.NewEnvironmentReconciler(client, rcfg).Reconcile(ctx, t.Settings)
		if err != nil {
			return err
		}
		displayPlans(out, &github.SyncResult{Environments: plan}, t.Owner, t.Repo, applyDryRun)
		return nil
	}

	result, err := github.Sync(ctx, client, rcfg, t.Settings)
	if err != nil {
		return err
	}
	displayPlans(out, result, t.Owner, t.Repo, applyDryRun)
	return nil
}

// resolveTarget works out which document to apply to which repository
func resolveTarget(cfg *config.Config, args []string, logger zerolog.Logger) (*target, error) {
	t := &target{Owner: applyOwner, Repo: applyRepo}
	if t.Owner == "" {
		t.Owner = cfg.GitHub.Owner
	}

	needRepo := len(args) == 0 || !applySkipBranchCheck || t.Owner == "" || t.Repo == ""

	var repo *gitrepo.Repo
	if needRepo {
		var err error
		repo, err = gitrepo.Open(applyRepoPath)
		if err != nil {
			return nil, err
		}
	}

	if !applySkipBranchCheck {
		branch, err := repo.CurrentBranch()
		if err != nil {
			return nil, err
		}
		t.Branch = branch
		if def := repo.DefaultBranch(cfg.GitHub.DefaultBranch); branch != def {
			logger.Debug().Str("default_branch", def).Msg("Branch check failed")
			t.Skip = true
			return t, nil
		}
	}

	if t.Owner == "" || t.Repo == "" {
		owner, name, err := repo.Slug()
		if err != nil {
			return nil, fmt.Errorf("repository not specified and could not be derived from the clone: %w", err)
		}
		if t.Owner == "" {
			t.Owner = owner
		}
		if t.Repo == "" {
			t.Repo = name
		}
	}

	var err error
	if len(args) == 1 {
		t.Settings, err = github.LoadConfigFromFile(args[0])
	} else {
		var data []byte
		data, err = repo.ReadFile(cfg.GitHub.SettingsFile)
		if err == nil {
			t.Settings, err = github.LoadConfig(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load repository settings: %w", err)
	}

	return t, nil
}

// displayPlans shows the planned changes in a human-readable format
func displayPlans(w io.Writer, result *github.SyncResult, owner, repo string, isDryRun bool) {
	if isDryRun {
		fmt.Fprintf(w, "\n🔍 Dry-run mode: Showing planned changes for %s/%s\n", owner, repo)
	} else {
		fmt.Fprintf(w, "\n📋 Changes for %s/%s:\n", owner, repo)
	}

	changeCount := 0
	destructiveChanges := 0

	if plan := result.Settings; plan != nil {
		if plan.Topics != nil {
			changeCount++
			fmt.Fprintf(w, "  ~ Topics: [%s]\n", strings.Join(plan.Topics, ", "))
		}
		for _, link := range plan.Autolinks {
			changeCount++
			fmt.Fprintf(w, "  + Autolink: CREATE %s → %s\n", link.KeyPrefix, link.URLTemplate)
		}
		if u := plan.Update; u != nil {
			changeCount++
			fmt.Fprintf(w, "  ~ Repository: UPDATE settings\n")
			if u.Description != nil {
				fmt.Fprintf(w, "    - Description: %s\n", *u.Description)
			}
			if u.Homepage != nil {
				fmt.Fprintf(w, "    - Homepage: %s\n", *u.Homepage)
			}
			if f := u.Features; f != nil {
				fmt.Fprintf(w, "    - Features: issues=%t wiki=%t projects=%t discussions=%t\n",
					f.Issues, f.Wiki, f.Projects, f.Discussions)
			}
			if m := u.MergeButtons; m != nil {
				fmt.Fprintf(w, "    - Merge buttons: squash=%t merge=%t rebase=%t\n", m.Squash, m.Merge, m.Rebase)
			}
		}
	}

	if plan := result.Environments; plan != nil {
		for _, change := range plan.Upserts {
			changeCount++
			switch change.Type {
			case github.ChangeTypeCreate:
				fmt.Fprintf(w, "  + Environment: CREATE %s\n", change.Name)
			default:
				fmt.Fprintf(w, "  ~ Environment: UPDATE %s\n", change.Name)
			}
			displayEnvironmentDetails(w, change.Config, "    ")
			for _, policy := range change.PoliciesToCreate {
				fmt.Fprintf(w, "    + Branch policy: %s\n", policy)
			}
		}
		for _, change := range plan.Deletions {
			changeCount++
			destructiveChanges++
			fmt.Fprintf(w, "  ⚠️  Environment: DELETE %s (NOT IN SETTINGS FILE)\n", change.Name)
		}
		for _, change := range plan.PolicyDeletions {
			changeCount++
			destructiveChanges++
			fmt.Fprintf(w, "  ⚠️  Branch policy: DELETE %s from %s\n", change.Policy.Name, change.Environment)
		}
	}

	if changeCount == 0 {
		fmt.Fprintf(w, "  No changes needed - repository is up to date\n")
		return
	}

	fmt.Fprintf(w, "\nTotal changes: %d", changeCount)
	if destructiveChanges > 0 {
		fmt.Fprintf(w, " (%d potentially destructive)\n", destructiveChanges)
		if isDryRun {
			fmt.Fprintf(w, "\n⚠️  WARNING: %d potentially destructive change(s) detected!\n", destructiveChanges)
			fmt.Fprintf(w, "   Review these changes carefully before applying.\n")
		}
	} else {
		fmt.Fprintf(w, "\n")
	}
}

// displayEnvironmentDetails shows the desired settings of an environment
func displayEnvironmentDetails(w io.Writer, env *github.EnvironmentConfig, indent string) {
	if env == nil {
		return
	}

	reviewers := make([]string, 0, len(env.RequiredReviewers))
	for _, r := range env.RequiredReviewers {
		reviewers = append(reviewers, r.ID.String())
	}
	fmt.Fprintf(w, "%s- Required reviewers: %s\n", indent, strings.Join(reviewers, ", "))
	fmt.Fprintf(w, "%s- Wait timer: %d minutes\n", indent, env.EffectiveWaitTimer())
	fmt.Fprintf(w, "%s- Prevent self review: %t\n", indent, env.EffectivePreventSelfReview())
	fmt.Fprintf(w, "%s- Deployment branches: %s\n", indent, env.BranchMode())
}
