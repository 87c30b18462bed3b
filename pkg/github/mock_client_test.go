package github

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a mock implementation of APIClient for testing
type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) ListEnvironments(ctx context.Context, owner, repo string) ([]Environment, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Environment), args.Error(1)
}

func (m *MockAPIClient) CreateOrUpdateEnvironment(ctx context.Context, owner, repo string, env EnvironmentSettings) error {
	args := m.Called(ctx, owner, repo, env)
	return args.Error(0)
}

func (m *MockAPIClient) DeleteEnvironment(ctx context.Context, owner, repo, name string) error {
	args := m.Called(ctx, owner, repo, name)
	return args.Error(0)
}

func (m *MockAPIClient) ListBranchPolicies(ctx context.Context, owner, repo, env string) ([]BranchPolicy, error) {
	args := m.Called(ctx, owner, repo, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BranchPolicy), args.Error(1)
}

func (m *MockAPIClient) CreateBranchPolicy(ctx context.Context, owner, repo, env, name string) error {
	args := m.Called(ctx, owner, repo, env, name)
	return args.Error(0)
}

func (m *MockAPIClient) DeleteBranchPolicy(ctx context.Context, owner, repo, env string, policyID int64) error {
	args := m.Called(ctx, owner, repo, env, policyID)
	return args.Error(0)
}

func (m *MockAPIClient) ResolveUserID(ctx context.Context, username string) (int64, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAPIClient) ResolveTeamID(ctx context.Context, org, slug string) (int64, error) {
	args := m.Called(ctx, org, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAPIClient) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Repository), args.Error(1)
}

func (m *MockAPIClient) UpdateRepository(ctx context.Context, owner, repo string, update RepositoryUpdate) error {
	args := m.Called(ctx, owner, repo, update)
	return args.Error(0)
}

func (m *MockAPIClient) ReplaceTopics(ctx context.Context, owner, repo string, topics []string) error {
	args := m.Called(ctx, owner, repo, topics)
	return args.Error(0)
}

func (m *MockAPIClient) ListAutolinks(ctx context.Context, owner, repo string) ([]Autolink, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Autolink), args.Error(1)
}

func (m *MockAPIClient) CreateAutolink(ctx context.Context, owner, repo string, link Autolink) error {
	args := m.Called(ctx, owner, repo, link)
	return args.Error(0)
}

// upsertedSettings returns the payloads of every create-or-update call, in order
func (m *MockAPIClient) upsertedSettings() []EnvironmentSettings {
	var out []EnvironmentSettings
	for _, call := range m.Calls {
		if call.Method == "CreateOrUpdateEnvironment" {
			out = append(out, call.Arguments.Get(3).(EnvironmentSettings))
		}
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func userReviewer(name string) Reviewer {
	return Reviewer{Type: ReviewerTypeUser, ID: Username(name)}
}
