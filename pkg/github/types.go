package github

// Environment represents a deployment environment as it exists on GitHub
type Environment struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// BranchPolicy represents a deployment branch policy attached to an environment
type BranchPolicy struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EnvironmentReviewer is a reviewer whose identifier has been resolved to a numeric id
type EnvironmentReviewer struct {
	Type string `json:"type"` // User or Team
	ID   int64  `json:"id"`
}

// EnvironmentSettings is the payload of a create-or-update environment call
type EnvironmentSettings struct {
	Name              string                `json:"name"`
	WaitTimer         int                   `json:"wait_timer"`
	PreventSelfReview bool                  `json:"prevent_self_review"`
	Reviewers         []EnvironmentReviewer `json:"reviewers"`
	// BranchMode selects how deployment branches are restricted.
	BranchMode BranchMode `json:"branch_mode"`
}

// BranchMode is the effective deployment branch restriction of an environment
type BranchMode string

const (
	// BranchModeProtected allows deployments from protected branches only
	BranchModeProtected BranchMode = "protected_branches"
	// BranchModeCustom allows deployments from branches matching custom policies
	BranchModeCustom BranchMode = "custom_branch_policies"
	// BranchModeAll places no restriction on deployment branches
	BranchModeAll BranchMode = "all"
)

// Repository represents the subset of a GitHub repository reposync manages
type Repository struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	FullName      string             `json:"full_name"`
	Description   string             `json:"description"`
	Homepage      string             `json:"homepage"`
	DefaultBranch string             `json:"default_branch"`
	Topics        []string           `json:"topics"`
	Features      RepositoryFeatures `json:"features"`
	MergeButtons  MergeButtons       `json:"merge_buttons"`
}

// RepositoryFeatures represents repository feature settings
type RepositoryFeatures struct {
	Issues      bool `json:"has_issues" yaml:"issues"`
	Wiki        bool `json:"has_wiki" yaml:"wiki"`
	Projects    bool `json:"has_projects" yaml:"projects"`
	Discussions bool `json:"has_discussions" yaml:"discussions"`
}

// MergeButtons represents which pull request merge methods are enabled
type MergeButtons struct {
	Squash bool `json:"allow_squash_merge" yaml:"squash"`
	Merge  bool `json:"allow_merge_commit" yaml:"merge"`
	Rebase bool `json:"allow_rebase_merge" yaml:"rebase"`
}

// RepositoryUpdate is a partial repository edit; nil fields are left untouched
type RepositoryUpdate struct {
	Description  *string
	Homepage     *string
	Features     *RepositoryFeatures
	MergeButtons *MergeButtons
}

// Autolink represents a repository autolink reference
type Autolink struct {
	ID          int64  `json:"id,omitempty"`
	KeyPrefix   string `json:"key_prefix"`
	URLTemplate string `json:"url_template"`
}
