package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client implements the APIClient interface using the GitHub REST API
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string) *Client {
	return &Client{
		client: github.NewClient(newTokenClient(token)),
	}
}

// NewEnterpriseClient creates a client for a GitHub Enterprise Server instance
func NewEnterpriseClient(baseURL, token string) (*Client, error) {
	gh, err := github.NewClient(newTokenClient(token)).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
	}
	return &Client{client: gh}, nil
}

func newTokenClient(token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return oauth2.NewClient(context.Background(), ts)
}

// ListEnvironments lists every deployment environment of a repository
func (c *Client) ListEnvironments(ctx context.Context, owner, repo string) ([]Environment, error) {
	opts := &github.EnvironmentListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var environments []Environment
	for {
		resp, r, err := c.client.Repositories.ListEnvironments(ctx, owner, repo, opts)
		if err != nil {
			return nil, WrapGitHubError(err, fmt.Sprintf("environments for %s/%s", owner, repo))
		}

		for _, env := range resp.Environments {
			environments = append(environments, Environment{
				ID:   env.GetID(),
				Name: env.GetName(),
			})
		}

		if r.NextPage == 0 {
			break
		}
		opts.Page = r.NextPage
	}

	return environments, nil
}

// CreateOrUpdateEnvironment creates the environment or overwrites its settings
func (c *Client) CreateOrUpdateEnvironment(ctx context.Context, owner, repo string, env EnvironmentSettings) error {
	request := &github.CreateUpdateEnvironment{
		WaitTimer:         github.Int(env.WaitTimer),
		PreventSelfReview: github.Bool(env.PreventSelfReview),
		Reviewers:         make([]*github.EnvReviewers, 0, len(env.Reviewers)),
	}

	for _, reviewer := range env.Reviewers {
		request.Reviewers = append(request.Reviewers, &github.EnvReviewers{
			Type: github.String(reviewer.Type),
			ID:   github.Int64(reviewer.ID),
		})
	}

	switch env.BranchMode {
	case BranchModeProtected:
		request.DeploymentBranchPolicy = &github.BranchPolicy{
			ProtectedBranches:    github.Bool(true),
			CustomBranchPolicies: github.Bool(false),
		}
	case BranchModeCustom:
		request.DeploymentBranchPolicy = &github.BranchPolicy{
			ProtectedBranches:    github.Bool(false),
			CustomBranchPolicies: github.Bool(true),
		}
	}

	_, _, err := c.client.Repositories.CreateUpdateEnvironment(ctx, owner, repo, url.PathEscape(env.Name), request)
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("environment %s in %s/%s", env.Name, owner, repo))
	}
	return nil
}

// DeleteEnvironment deletes a deployment environment
func (c *Client) DeleteEnvironment(ctx context.Context, owner, repo, name string) error {
	_, err := c.client.Repositories.DeleteEnvironment(ctx, owner, repo, url.PathEscape(name))
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("environment %s in %s/%s", name, owner, repo))
	}
	return nil
}

// ListBranchPolicies lists the deployment branch policies of an environment.
// go-github takes no list options for this endpoint, so pages are requested directly.
func (c *Client) ListBranchPolicies(ctx context.Context, owner, repo, env string) ([]BranchPolicy, error) {
	u := fmt.Sprintf("repos/%v/%v/environments/%v/deployment-branch-policies", owner, repo, url.PathEscape(env))
	resource := fmt.Sprintf("branch policies for environment %s", env)

	var policies []BranchPolicy
	page := 0
	for {
		query := url.Values{}
		query.Set("per_page", "100")
		if page > 0 {
			query.Set("page", strconv.Itoa(page))
		}

		req, err := c.client.NewRequest(http.MethodGet, u+"?"+query.Encode(), nil)
		if err != nil {
			return nil, WrapGitHubError(err, resource)
		}

		var body github.DeploymentBranchPolicyResponse
		resp, err := c.client.Do(ctx, req, &body)
		if err != nil {
			return nil, WrapGitHubError(err, resource)
		}

		for _, p := range body.BranchPolicies {
			policies = append(policies, BranchPolicy{
				ID:   p.GetID(),
				Name: p.GetName(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return policies, nil
}

// CreateBranchPolicy adds a branch name pattern to an environment.
// Any status between 200 and 303 counts as success.
func (c *Client) CreateBranchPolicy(ctx context.Context, owner, repo, env, name string) error {
	request := &github.DeploymentBranchPolicyRequest{
		Name: github.String(name),
	}

	_, resp, err := c.client.Repositories.CreateDeploymentBranchPolicy(ctx, owner, repo, url.PathEscape(env), request)
	resource := fmt.Sprintf("branch policy %s for environment %s", name, env)
	if err != nil {
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			return nil
		}
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && statusInRange(respErr.Response, http.StatusOK, http.StatusSeeOther) {
			return nil
		}
		return WrapGitHubError(err, resource)
	}

	if resp != nil && !statusInRange(resp.Response, http.StatusOK, http.StatusSeeOther) {
		return newStatusError(resp, resource, "200-303")
	}
	return nil
}

// DeleteBranchPolicy removes a branch policy by id. Only 204 counts as success.
func (c *Client) DeleteBranchPolicy(ctx context.Context, owner, repo, env string, policyID int64) error {
	resp, err := c.client.Repositories.DeleteDeploymentBranchPolicy(ctx, owner, repo, url.PathEscape(env), policyID)
	resource := fmt.Sprintf("branch policy %d for environment %s", policyID, env)
	if err != nil {
		return WrapGitHubError(err, resource)
	}

	if resp == nil || resp.StatusCode != http.StatusNoContent {
		return newStatusError(resp, resource, "204")
	}
	return nil
}

// ResolveUserID looks up the numeric id of a GitHub user
func (c *Client) ResolveUserID(ctx context.Context, username string) (int64, error) {
	user, _, err := c.client.Users.Get(ctx, username)
	if err != nil {
		return 0, WrapGitHubError(err, fmt.Sprintf("user %s", username))
	}
	return user.GetID(), nil
}

// ResolveTeamID looks up the numeric id of a team in an organization
func (c *Client) ResolveTeamID(ctx context.Context, org, slug string) (int64, error) {
	team, _, err := c.client.Teams.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		return 0, WrapGitHubError(err, fmt.Sprintf("team %s/%s", org, slug))
	}
	return team.GetID(), nil
}

// GetRepository retrieves a repository by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	repo, _, err := c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("repository %s/%s", owner, name))
	}

	return convertGitHubRepository(repo), nil
}

// UpdateRepository applies a partial edit to repository settings
func (c *Client) UpdateRepository(ctx context.Context, owner, name string, update RepositoryUpdate) error {
	repo := &github.Repository{
		Description: update.Description,
		Homepage:    update.Homepage,
	}

	if f := update.Features; f != nil {
		repo.HasIssues = github.Bool(f.Issues)
		repo.HasWiki = github.Bool(f.Wiki)
		repo.HasProjects = github.Bool(f.Projects)
		repo.HasDiscussions = github.Bool(f.Discussions)
	}

	if m := update.MergeButtons; m != nil {
		repo.AllowSquashMerge = github.Bool(m.Squash)
		repo.AllowMergeCommit = github.Bool(m.Merge)
		repo.AllowRebaseMerge = github.Bool(m.Rebase)
	}

	_, _, err := c.client.Repositories.Edit(ctx, owner, name, repo)
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("repository %s/%s", owner, name))
	}
	return nil
}

// ReplaceTopics replaces all topics of a repository
func (c *Client) ReplaceTopics(ctx context.Context, owner, name string, topics []string) error {
	_, _, err := c.client.Repositories.ReplaceAllTopics(ctx, owner, name, topics)
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("topics for repository %s/%s", owner, name))
	}
	return nil
}

// ListAutolinks lists all autolink references of a repository
func (c *Client) ListAutolinks(ctx context.Context, owner, name string) ([]Autolink, error) {
	opts := &github.ListOptions{PerPage: 100}

	var links []Autolink
	for {
		autolinks, resp, err := c.client.Repositories.ListAutolinks(ctx, owner, name, opts)
		if err != nil {
			return nil, WrapGitHubError(err, fmt.Sprintf("autolinks for repository %s/%s", owner, name))
		}

		for _, al := range autolinks {
			links = append(links, Autolink{
				ID:          al.GetID(),
				KeyPrefix:   al.GetKeyPrefix(),
				URLTemplate: al.GetURLTemplate(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return links, nil
}

// CreateAutolink adds an autolink reference to a repository
func (c *Client) CreateAutolink(ctx context.Context, owner, name string, link Autolink) error {
	opts := &github.AutolinkOptions{
		KeyPrefix:   github.String(link.KeyPrefix),
		URLTemplate: github.String(link.URLTemplate),
	}

	_, _, err := c.client.Repositories.AddAutolink(ctx, owner, name, opts)
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("autolink %s for repository %s/%s", link.KeyPrefix, owner, name))
	}
	return nil
}

// convertGitHubRepository converts a GitHub API repository to our internal type
func convertGitHubRepository(repo *github.Repository) *Repository {
	return &Repository{
		ID:            repo.GetID(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		Homepage:      repo.GetHomepage(),
		DefaultBranch: repo.GetDefaultBranch(),
		Topics:        repo.Topics,
		Features: RepositoryFeatures{
			Issues:      repo.GetHasIssues(),
			Wiki:        repo.GetHasWiki(),
			Projects:    repo.GetHasProjects(),
			Discussions: repo.GetHasDiscussions(),
		},
		MergeButtons: MergeButtons{
			Squash: repo.GetAllowSquashMerge(),
			Merge:  repo.GetAllowMergeCommit(),
			Rebase: repo.GetAllowRebaseMerge(),
		},
	}
}

func statusInRange(resp *http.Response, lo, hi int) bool {
	return resp != nil && resp.StatusCode >= lo && resp.StatusCode <= hi
}
