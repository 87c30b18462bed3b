package github

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Reviewer types accepted by the environments API
const (
	ReviewerTypeUser = "User"
	ReviewerTypeTeam = "Team"
)

// Default environment settings applied when the document leaves them out
const (
	DefaultWaitTimer         = 5
	DefaultPreventSelfReview = true
	MaxRequiredReviewers     = 6
)

// Config is the declarative settings document checked into a repository
type Config struct {
	Description  *string             `yaml:"description,omitempty"`
	Homepage     *string             `yaml:"homepage,omitempty"`
	Labels       []string            `yaml:"labels,omitempty"`
	Features     *RepositoryFeatures `yaml:"features,omitempty"`
	MergeButtons *MergeButtons       `yaml:"enabled_merge_buttons,omitempty"`
	AutolinkJira StringList          `yaml:"autolink_jira,omitempty"`
	// Notifications maps a notification scheme to its target list address.
	Notifications map[string]string            `yaml:"notifications,omitempty"`
	Environments  map[string]EnvironmentConfig `yaml:"environments,omitempty"`

	// EnvironmentsDeclared is true when the environments key is present in the
	// document, even with an empty or null value.
	EnvironmentsDeclared bool `yaml:"-"`
}

// EnvironmentConfig is the desired state of one deployment environment
type EnvironmentConfig struct {
	RequiredReviewers      []Reviewer              `yaml:"required_reviewers,omitempty" json:"required_reviewers,omitempty"`
	PreventSelfReview      *bool                   `yaml:"prevent_self_review,omitempty" json:"prevent_self_review,omitempty"`
	WaitTimer              *int                    `yaml:"wait_timer,omitempty" json:"wait_timer,omitempty"`
	DeploymentBranchPolicy *DeploymentBranchPolicy `yaml:"deployment_branch_policy,omitempty" json:"deployment_branch_policy,omitempty"`
}

// DeploymentBranchPolicy selects which branches may deploy to an environment
type DeploymentBranchPolicy struct {
	ProtectedBranches    *bool                `yaml:"protected_branches,omitempty" json:"protected_branches,omitempty"`
	CustomBranchPolicies bool                 `yaml:"custom_branch_policies,omitempty" json:"custom_branch_policies,omitempty"`
	Policies             []BranchPolicyConfig `yaml:"policies,omitempty" json:"policies,omitempty"`
}

// BranchPolicyConfig is one desired branch name pattern
type BranchPolicyConfig struct {
	Name string `yaml:"name" json:"name"`
}

// Reviewer is a required reviewer as written in the document
type Reviewer struct {
	Type string     `yaml:"type" json:"type"`
	ID   ReviewerID `yaml:"id" json:"id"`
}

// ReviewerID is either a numeric GitHub id or a username / team slug that
// still needs resolving.
type ReviewerID struct {
	Numeric int64
	Name    string
}

// UserID returns a ReviewerID holding a numeric id
func UserID(id int64) ReviewerID {
	return ReviewerID{Numeric: id}
}

// Username returns a ReviewerID holding a login or team slug
func Username(name string) ReviewerID {
	return ReviewerID{Name: name}
}

// IsNumeric reports whether the id needs no lookup
func (r ReviewerID) IsNumeric() bool {
	return r.Name == ""
}

// String implements fmt.Stringer
func (r ReviewerID) String() string {
	if r.IsNumeric() {
		return strconv.FormatInt(r.Numeric, 10)
	}
	return r.Name
}

// UnmarshalYAML keeps integers as ids and everything else as names
func (r *ReviewerID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: reviewer id must be an integer or a name", value.Line)
	}

	if value.ShortTag() == "!!int" {
		id, err := strconv.ParseInt(value.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid reviewer id %q: %w", value.Line, value.Value, err)
		}
		*r = ReviewerID{Numeric: id}
		return nil
	}

	*r = ReviewerID{Name: value.Value}
	return nil
}

// MarshalYAML writes numeric ids as integers
func (r ReviewerID) MarshalYAML() (interface{}, error) {
	if r.IsNumeric() {
		return r.Numeric, nil
	}
	return r.Name, nil
}

// StringList accepts either a single string or a sequence of strings
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// EffectiveWaitTimer returns the wait timer in minutes, applying the default
func (e EnvironmentConfig) EffectiveWaitTimer() int {
	if e.WaitTimer == nil {
		return DefaultWaitTimer
	}
	return *e.WaitTimer
}

// EffectivePreventSelfReview returns prevent_self_review, applying the default
func (e EnvironmentConfig) EffectivePreventSelfReview() bool {
	if e.PreventSelfReview == nil {
		return DefaultPreventSelfReview
	}
	return *e.PreventSelfReview
}

// BranchMode returns the effective deployment branch mode. Protected branches
// is assumed unless custom policies are requested or it is explicitly disabled.
func (e EnvironmentConfig) BranchMode() BranchMode {
	p := e.DeploymentBranchPolicy
	if p == nil {
		return BranchModeProtected
	}
	if p.ProtectedBranches != nil && *p.ProtectedBranches {
		return BranchModeProtected
	}
	if p.CustomBranchPolicies {
		return BranchModeCustom
	}
	if p.ProtectedBranches == nil {
		return BranchModeProtected
	}
	return BranchModeAll
}

// ProtectedBranchesSet reports whether protected_branches is explicitly enabled.
// Only then are existing branch policies left untouched.
func (e EnvironmentConfig) ProtectedBranchesSet() bool {
	p := e.DeploymentBranchPolicy
	return p != nil && p.ProtectedBranches != nil && *p.ProtectedBranches
}

// PolicyNames returns the desired branch policy names in document order
func (e EnvironmentConfig) PolicyNames() []string {
	if e.DeploymentBranchPolicy == nil {
		return nil
	}
	names := make([]string, 0, len(e.DeploymentBranchPolicy.Policies))
	for _, p := range e.DeploymentBranchPolicy.Policies {
		names = append(names, p.Name)
	}
	return names
}

// LoadConfig parses a settings document. Unknown keys are rejected.
func LoadConfig(data []byte) (*Config, error) {
	var config Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	_, config.EnvironmentsDeclared = keys["environments"]

	return &config, nil
}

// LoadConfigFromFile loads a settings document from a file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadConfig(data)
}
