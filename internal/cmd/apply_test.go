package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposync/pkg/config"
	"reposync/pkg/github"
)

func resetApplyFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		applyDryRun = false
		applyOwner = ""
		applyRepo = ""
		applyRepoPath = "."
		applySkipBranchCheck = false
		applyEnvironmentsOnly = false
	}
	reset()
	t.Cleanup(reset)
}

// initClone creates a clone on main with the settings file committed and an
// origin remote pointing at acme/widgets.
func initClone(t *testing.T, settings string) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultSettingsFile), []byte(settings), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(config.DefaultSettingsFile)
	require.NoError(t, err)
	_, err = wt.Commit("add settings", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.org", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/acme/widgets.git"},
	})
	require.NoError(t, err)

	return dir, repo
}

func defaultToolConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestResolveTarget_FromClone(t *testing.T) {
	resetApplyFlags(t)
	dir, _ := initClone(t, "labels: [go]\nenvironments: {}\n")
	applyRepoPath = dir

	target, err := resolveTarget(defaultToolConfig(), nil, zerolog.Nop())

	require.NoError(t, err)
	assert.False(t, target.Skip)
	assert.Equal(t, "main", target.Branch)
	assert.Equal(t, "acme", target.Owner)
	assert.Equal(t, "widgets", target.Repo)
	assert.Equal(t, []string{"go"}, target.Settings.Labels)
	assert.True(t, target.Settings.EnvironmentsDeclared)
}

func TestResolveTarget_OwnerPrecedence(t *testing.T) {
	resetApplyFlags(t)
	dir, _ := initClone(t, "labels: [go]\n")
	applyRepoPath = dir

	cfg := defaultToolConfig()
	cfg.GitHub.Owner = "config-org"

	target, err := resolveTarget(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "config-org", target.Owner)
	assert.Equal(t, "widgets", target.Repo)

	applyOwner = "flag-org"
	applyRepo = "flag-repo"

	target, err = resolveTarget(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "flag-org", target.Owner)
	assert.Equal(t, "flag-repo", target.Repo)
}

func TestResolveTarget_NotOnDefaultBranch(t *testing.T) {
	resetApplyFlags(t)
	dir, repo := initClone(t, "labels: [go]\n")
	applyRepoPath = dir

	require.NoError(t, repo.Storer.SetReference(plumbing.NewSymbolicReference(
		plumbing.NewRemoteHEADReferenceName("origin"),
		plumbing.NewRemoteReferenceName("origin", "develop"),
	)))

	target, err := resolveTarget(defaultToolConfig(), nil, zerolog.Nop())

	require.NoError(t, err)
	assert.True(t, target.Skip)
	assert.Equal(t, "main", target.Branch)
	assert.Nil(t, target.Settings)
}

func TestResolveTarget_ExplicitFileWithoutClone(t *testing.T) {
	resetApplyFlags(t)
	applyRepoPath = filepath.Join(t.TempDir(), "not-a-repo")
	applySkipBranchCheck = true
	applyOwner = "acme"
	applyRepo = "widgets"

	file := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte("labels: [go]\n"), 0o644))

	target, err := resolveTarget(defaultToolConfig(), []string{file}, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, "acme", target.Owner)
	assert.Equal(t, "widgets", target.Repo)
	assert.Equal(t, []string{"go"}, target.Settings.Labels)
}

func TestResolveTarget_MissingSettingsFile(t *testing.T) {
	resetApplyFlags(t)
	dir, _ := initClone(t, "labels: [go]\n")
	applyRepoPath = dir

	cfg := defaultToolConfig()
	cfg.GitHub.SettingsFile = "other.yaml"

	_, err := resolveTarget(cfg, nil, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load repository settings")
}

func TestDisplayPlans(t *testing.T) {
	reviewer := github.Reviewer{Type: github.ReviewerTypeUser, ID: github.Username("alice")}
	env := &github.EnvironmentConfig{RequiredReviewers: []github.Reviewer{reviewer}}
	description := "New description"

	result := &github.SyncResult{
		Settings: &github.SettingsPlan{
			Topics:    []string{"build", "go"},
			Autolinks: []github.Autolink{{KeyPrefix: "INFRA-", URLTemplate: "https://jira/INFRA-<num>"}},
			Update:    &github.RepositoryUpdate{Description: &description},
		},
		Environments: &github.EnvironmentPlan{
			Upserts: []github.EnvironmentChange{
				{Type: github.ChangeTypeCreate, Name: "preview", Config: env, PoliciesToCreate: []string{"main"}},
				{Type: github.ChangeTypeUpdate, Name: "production", Config: env},
			},
			Deletions: []github.EnvironmentChange{{Type: github.ChangeTypeDelete, Name: "old"}},
			PolicyDeletions: []github.BranchPolicyChange{{
				Type:        github.ChangeTypeDelete,
				Environment: "production",
				Policy:      github.BranchPolicy{ID: 7, Name: "stale/*"},
			}},
		},
	}

	var buf bytes.Buffer
	displayPlans(&buf, result, "acme", "widgets", true)
	output := buf.String()

	expected := []string{
		"🔍 Dry-run mode: Showing planned changes for acme/widgets",
		"  ~ Topics: [build, go]",
		"  + Autolink: CREATE INFRA- → https://jira/INFRA-<num>",
		"  ~ Repository: UPDATE settings",
		"    - Description: New description",
		"  + Environment: CREATE preview",
		"    - Required reviewers: alice",
		"    - Wait timer: 5 minutes",
		"    + Branch policy: main",
		"  ~ Environment: UPDATE production",
		"  ⚠️  Environment: DELETE old (NOT IN SETTINGS FILE)",
		"  ⚠️  Branch policy: DELETE stale/* from production",
		"Total changes: 7 (2 potentially destructive)",
		"WARNING: 2 potentially destructive change(s) detected!",
	}
	for _, line := range expected {
		assert.Contains(t, output, line)
	}
}

func TestDisplayPlans_NoChanges(t *testing.T) {
	var buf bytes.Buffer
	displayPlans(&buf, &github.SyncResult{
		Settings:     &github.SettingsPlan{},
		Environments: &github.EnvironmentPlan{},
	}, "acme", "widgets", false)

	output := buf.String()
	assert.Contains(t, output, "📋 Changes for acme/widgets:")
	assert.Contains(t, output, "No changes needed - repository is up to date")
	assert.NotContains(t, output, "Total changes")
}
