package github

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

const maxLabels = 20

var (
	labelPattern       = regexp.MustCompile(`^[-a-z0-9]{1,35}$`)
	jiraProjectPattern = regexp.MustCompile(`^[A-Z][A-Z]+$`)
)

// ValidateEnvironments checks every environment and returns all violations found.
// It never stops at the first one.
func ValidateEnvironments(environments map[string]EnvironmentConfig) ValidationErrors {
	var errs ValidationErrors

	for _, name := range sortedNames(environments) {
		env := environments[name]

		if len(env.RequiredReviewers) == 0 {
			errs.Add(name, "required_reviewers", "required_reviewers is missing, minimum 1 reviewer is required")
		}

		if len(env.RequiredReviewers) > MaxRequiredReviewers {
			errs.Add(name, "required_reviewers",
				fmt.Sprintf("required_reviewers cannot be more than %d reviewers", MaxRequiredReviewers))
		}

		for i, reviewer := range env.RequiredReviewers {
			if reviewer.Type != "" && reviewer.Type != ReviewerTypeUser && reviewer.Type != ReviewerTypeTeam {
				errs.Add(name, fmt.Sprintf("required_reviewers[%d].type", i),
					fmt.Sprintf("reviewer type must be %s or %s, got %q", ReviewerTypeUser, ReviewerTypeTeam, reviewer.Type))
			}
		}

		if env.WaitTimer != nil && (*env.WaitTimer < 0 || *env.WaitTimer > 43200) {
			errs.Add(name, "wait_timer", "wait_timer must be between 0 and 43200 minutes")
		}

		policy := env.DeploymentBranchPolicy
		if policy == nil {
			continue
		}

		protected := policy.ProtectedBranches != nil && *policy.ProtectedBranches
		if protected && policy.CustomBranchPolicies {
			errs.Add(name, "deployment_branch_policy",
				"protected_branches and custom_branch_policies cannot be enabled at the same time, set one of them to false")
		}

		if policy.CustomBranchPolicies && len(policy.Policies) == 0 {
			errs.Add(name, "deployment_branch_policy.policies",
				"policies is missing, when custom_branch_policies is enabled, minimum 1 policy is required")
		}
	}

	return errs
}

// ValidateSettings checks the repository-level settings of the document
func ValidateSettings(config *Config) ValidationErrors {
	var errs ValidationErrors

	if len(config.Labels) > maxLabels {
		errs.Add("", "labels", fmt.Sprintf("too many labels, must be <= %d items", maxLabels))
	}
	for _, label := range config.Labels {
		if !labelPattern.MatchString(label) {
			errs.Add("", "labels",
				fmt.Sprintf("invalid label %q, must be lowercase alphanumerical and <= 35 characters", label))
		}
	}

	for _, project := range config.AutolinkJira {
		if !jiraProjectPattern.MatchString(project) {
			errs.Add("", "autolink_jira",
				fmt.Sprintf("invalid Jira project %q, must be uppercase alphabetical characters only", project))
		}
	}

	if config.Features != nil && config.Features.Discussions && config.Notifications["discussions"] == "" {
		errs.Add("", "features.discussions",
			"discussions can only be enabled if a notification target exists for it")
	}

	return errs
}

// Validate runs all offline checks on the document
func (c *Config) Validate() error {
	errs := ValidateSettings(c)
	errs = append(errs, ValidateEnvironments(c.Environments)...)
	return errs.AsError()
}

// Validator checks that reviewers named in a document exist on GitHub
type Validator struct {
	client EnvironmentsAPI
	owner  string
}

// NewValidator creates a new validator backed by the given API client
func NewValidator(client EnvironmentsAPI, owner string) *Validator {
	return &Validator{
		client: client,
		owner:  owner,
	}
}

// ValidateConfig performs the offline checks and then resolves every named reviewer
func (v *Validator) ValidateConfig(ctx context.Context, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	var errs ValidationErrors
	for _, name := range sortedNames(config.Environments) {
		for i, reviewer := range config.Environments[name].RequiredReviewers {
			if reviewer.ID.IsNumeric() {
				continue
			}
			if _, err := resolveReviewer(ctx, v.client, v.owner, reviewer); err != nil {
				if !IsErrorType(err, ErrorTypeNotFound) {
					return fmt.Errorf("failed to validate reviewer %q: %w", reviewer.ID, err)
				}
				errs.Add(name, fmt.Sprintf("required_reviewers[%d]", i),
					fmt.Sprintf("%s %q does not exist on GitHub", reviewerType(reviewer), reviewer.ID))
			}
		}
	}

	return errs.AsError()
}

// resolveReviewer turns a document reviewer into a numeric GitHub id
func resolveReviewer(ctx context.Context, client EnvironmentsAPI, owner string, reviewer Reviewer) (int64, error) {
	if reviewer.ID.IsNumeric() {
		return reviewer.ID.Numeric, nil
	}
	if reviewerType(reviewer) == ReviewerTypeTeam {
		return client.ResolveTeamID(ctx, owner, reviewer.ID.Name)
	}
	return client.ResolveUserID(ctx, reviewer.ID.Name)
}

func reviewerType(reviewer Reviewer) string {
	if reviewer.Type == "" {
		return ReviewerTypeUser
	}
	return reviewer.Type
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
