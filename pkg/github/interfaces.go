package github

import "context"

// EnvironmentsAPI defines the GitHub operations on a repository's deployment
// environments and their branch policies.
type EnvironmentsAPI interface {
	ListEnvironments(ctx context.Context, owner, repo string) ([]Environment, error)
	CreateOrUpdateEnvironment(ctx context.Context, owner, repo string, env EnvironmentSettings) error
	DeleteEnvironment(ctx context.Context, owner, repo, name string) error

	// Branch policy operations
	ListBranchPolicies(ctx context.Context, owner, repo, env string) ([]BranchPolicy, error)
	CreateBranchPolicy(ctx context.Context, owner, repo, env, name string) error
	DeleteBranchPolicy(ctx context.Context, owner, repo, env string, policyID int64) error

	// Reviewer lookups
	ResolveUserID(ctx context.Context, username string) (int64, error)
	ResolveTeamID(ctx context.Context, org, slug string) (int64, error)
}

// SettingsAPI defines the GitHub operations on general repository settings
type SettingsAPI interface {
	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)
	UpdateRepository(ctx context.Context, owner, repo string, update RepositoryUpdate) error
	ReplaceTopics(ctx context.Context, owner, repo string, topics []string) error
	ListAutolinks(ctx context.Context, owner, repo string) ([]Autolink, error)
	CreateAutolink(ctx context.Context, owner, repo string, link Autolink) error
}

// APIClient is the full set of GitHub operations used by reposync
type APIClient interface {
	EnvironmentsAPI
	SettingsAPI
}

// ChangeType represents the type of change in a reconciliation plan
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeUpdate ChangeType = "update"
	ChangeTypeDelete ChangeType = "delete"
)

// EnvironmentPlan is the ordered set of changes needed to converge environments
type EnvironmentPlan struct {
	Upserts         []EnvironmentChange  `json:"upserts,omitempty"`
	Deletions       []EnvironmentChange  `json:"deletions,omitempty"`
	PolicyDeletions []BranchPolicyChange `json:"policy_deletions,omitempty"`
}

// IsEmpty reports whether the plan contains no changes at all
func (p *EnvironmentPlan) IsEmpty() bool {
	return len(p.Upserts) == 0 && len(p.Deletions) == 0 && len(p.PolicyDeletions) == 0
}

// EnvironmentChange represents a change to one deployment environment
type EnvironmentChange struct {
	Type   ChangeType         `json:"type"`
	Name   string             `json:"name"`
	Config *EnvironmentConfig `json:"config,omitempty"`
	// PoliciesToCreate lists the branch policy names created after the upsert.
	PoliciesToCreate []string `json:"policies_to_create,omitempty"`
}

// BranchPolicyChange represents the removal of a stale branch policy
type BranchPolicyChange struct {
	Type        ChangeType   `json:"type"`
	Environment string       `json:"environment"`
	Policy      BranchPolicy `json:"policy"`
}

// SettingsPlan is the set of repository setting changes to apply
type SettingsPlan struct {
	Topics    []string          `json:"topics,omitempty"`
	Update    *RepositoryUpdate `json:"update,omitempty"`
	Autolinks []Autolink        `json:"autolinks,omitempty"`
}

// IsEmpty reports whether the plan contains no changes at all
func (p *SettingsPlan) IsEmpty() bool {
	return p.Topics == nil && p.Update == nil && len(p.Autolinks) == 0
}
