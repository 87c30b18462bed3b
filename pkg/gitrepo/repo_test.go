package gitrepo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository on main with one commit holding files
func initRepo(t *testing.T, files map[string]string) (string, *git.Repository, plumbing.Hash) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.org", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)

	return dir, repo, hash
}

func TestOpen(t *testing.T) {
	dir, _, _ := initRepo(t, map[string]string{"docs/README.md": "hi"})

	_, err := Open(filepath.Join(dir, "docs"))
	assert.NoError(t, err)

	_, err = Open(t.TempDir())
	assert.Error(t, err)
}

func TestCurrentBranch(t *testing.T) {
	dir, repo, hash := initRepo(t, map[string]string{"a.txt": "a"})

	r, err := Open(dir)
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, hash)))

	_, err = r.CurrentBranch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detached")
}

func TestDefaultBranch(t *testing.T) {
	dir, repo, _ := initRepo(t, map[string]string{"a.txt": "a"})

	r, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, "main", r.DefaultBranch("main"), "no remote HEAD falls back")

	require.NoError(t, repo.Storer.SetReference(plumbing.NewSymbolicReference(
		plumbing.NewRemoteHEADReferenceName("origin"),
		plumbing.NewRemoteReferenceName("origin", "develop"),
	)))

	assert.Equal(t, "develop", r.DefaultBranch("main"))
}

func TestReadFile(t *testing.T) {
	dir, _, _ := initRepo(t, map[string]string{
		".reposync.yaml": "labels: [go]\n",
	})

	// Uncommitted edits are not visible
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".reposync.yaml"), []byte("labels: [dirty]\n"), 0o644))

	r, err := Open(dir)
	require.NoError(t, err)

	data, err := r.ReadFile(".reposync.yaml")
	require.NoError(t, err)
	assert.Equal(t, "labels: [go]\n", string(data))

	_, err = r.ReadFile("missing.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestSlug(t *testing.T) {
	dir, repo, _ := initRepo(t, map[string]string{"a.txt": "a"})

	r, err := Open(dir)
	require.NoError(t, err)

	_, _, err = r.Slug()
	assert.Error(t, err, "no origin remote")

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/widgets.git"},
	})
	require.NoError(t, err)

	owner, name, err := r.Slug()
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)
}

func TestParseSlug(t *testing.T) {
	tests := []struct {
		url           string
		expectedOwner string
		expectedName  string
		expectedError bool
	}{
		{url: "https://github.com/acme/widgets.git", expectedOwner: "acme", expectedName: "widgets"},
		{url: "https://github.com/acme/widgets", expectedOwner: "acme", expectedName: "widgets"},
		{url: "git@github.com:acme/widgets.git", expectedOwner: "acme", expectedName: "widgets"},
		{url: "ssh://git@github.com/acme/widgets.git", expectedOwner: "acme", expectedName: "widgets"},
		{url: "https://git.example.org/scm/acme/widgets.git", expectedOwner: "acme", expectedName: "widgets"},
		{url: "https://github.com/widgets", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, name, err := ParseSlug(tt.url)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedOwner, owner)
			assert.Equal(t, tt.expectedName, name)
		})
	}
}
