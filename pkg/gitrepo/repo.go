// Package gitrepo reads the settings document and repository identity from a
// local clone.
package gitrepo

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// ErrFileNotFound is returned when the requested file is absent from HEAD
var ErrFileNotFound = errors.New("file not found in HEAD commit")

// Repo is an opened local git repository
type Repo struct {
	repo   *git.Repository
	remote string
}

// Open opens the repository containing dir, searching parent directories
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}
	return &Repo{repo: repo, remote: git.DefaultRemoteName}, nil
}

// CurrentBranch returns the short name of the checked out branch
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
	}
	return head.Name().Short(), nil
}

// DefaultBranch returns the branch origin/HEAD points at, or fallback when the
// remote HEAD is unknown (fresh clones without it, or no remote at all).
func (r *Repo) DefaultBranch(fallback string) string {
	ref, err := r.repo.Reference(plumbing.NewRemoteHEADReferenceName(r.remote), false)
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return fallback
	}
	return strings.TrimPrefix(ref.Target().Short(), r.remote+"/")
}

// ReadFile returns the contents of name as committed in HEAD
func (r *Repo) ReadFile(name string) ([]byte, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting HEAD commit: %w", err)
	}

	file, err := commit.File(name)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return []byte(contents), nil
}

// Slug returns the owner and name of the repository the origin remote points at
func (r *Repo) Slug() (owner, name string, err error) {
	remote, err := r.repo.Remote(r.remote)
	if err != nil {
		return "", "", fmt.Errorf("getting remote %s: %w", r.remote, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", "", fmt.Errorf("remote %s has no URL", r.remote)
	}
	return ParseSlug(urls[0])
}

// ParseSlug extracts owner and repository name from a clone URL. It accepts
// https, ssh and scp-like (git@host:owner/name.git) forms.
func ParseSlug(rawURL string) (owner, name string, err error) {
	endpoint, err := transport.NewEndpoint(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing remote URL %q: %w", rawURL, err)
	}

	p := strings.Trim(endpoint.Path, "/")
	p = strings.TrimSuffix(p, ".git")
	dir, base := path.Split(p)
	owner = path.Base(strings.TrimSuffix(dir, "/"))
	if base == "" || dir == "" || owner == "." || owner == "/" {
		return "", "", fmt.Errorf("remote URL %q does not name an owner and repository", rawURL)
	}
	return owner, base, nil
}
