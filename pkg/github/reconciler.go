package github

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ReconcilerConfig is the explicit configuration shared by the reconcilers
type ReconcilerConfig struct {
	Owner      string
	Repository string

	// DryRun computes plans without applying them.
	DryRun bool

	// RecreateExistingPolicies re-issues a create call for every desired branch
	// policy, even when a policy with the same name already exists.
	RecreateExistingPolicies bool

	// JiraURL is the browse URL used for Jira autolinks.
	JiraURL string

	// Logger receives one event per mutating action. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultJiraURL is used for autolinks when no JiraURL is configured
const DefaultJiraURL = "https://issues.apache.org/jira/browse"

func (c ReconcilerConfig) logger() zerolog.Logger {
	if c.Logger == nil {
		return zerolog.Nop()
	}
	return c.Logger.With().Str("repository", c.Owner+"/"+c.Repository).Logger()
}

// EnvironmentReconciler converges a repository's deployment environments
type EnvironmentReconciler struct {
	client EnvironmentsAPI
	cfg    ReconcilerConfig
	log    zerolog.Logger
}

// NewEnvironmentReconciler creates a new environment reconciler
func NewEnvironmentReconciler(client EnvironmentsAPI, cfg ReconcilerConfig) *EnvironmentReconciler {
	return &EnvironmentReconciler{
		client: client,
		cfg:    cfg,
		log:    cfg.logger(),
	}
}

// Reconcile validates the desired environments, plans and, unless in dry-run
// mode, applies the plan. Nothing is mutated when validation fails.
func (r *EnvironmentReconciler) Reconcile(ctx context.Context, config *Config) (*EnvironmentPlan, error) {
	if err := ValidateEnvironments(config.Environments).AsError(); err != nil {
		return nil, fmt.Errorf("invalid environment configurations found: %w", err)
	}

	plan, err := r.Plan(ctx, config)
	if err != nil {
		return nil, err
	}

	if r.cfg.DryRun {
		return plan, nil
	}

	return plan, r.Apply(ctx, plan)
}

// Plan compares the desired environments with the repository. The environment
// list is read once; branch policies are read for every existing environment
// unless protected_branches is explicitly enabled for it.
func (r *EnvironmentReconciler) Plan(ctx context.Context, config *Config) (*EnvironmentPlan, error) {
	plan := &EnvironmentPlan{}

	if !config.EnvironmentsDeclared && len(config.Environments) == 0 {
		return plan, nil
	}

	remote, err := r.client.ListEnvironments(ctx, r.cfg.Owner, r.cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}

	existing := make(map[string]bool, len(remote))
	for _, env := range remote {
		existing[env.Name] = true
	}

	for _, name := range sortedNames(config.Environments) {
		env := config.Environments[name]
		change := EnvironmentChange{
			Type:   ChangeTypeCreate,
			Name:   name,
			Config: &env,
		}
		if existing[name] {
			change.Type = ChangeTypeUpdate
		}

		// Explicitly protected branches supersede custom policies, nothing to read or prune.
		if env.ProtectedBranchesSet() {
			plan.Upserts = append(plan.Upserts, change)
			continue
		}

		var current []BranchPolicy
		if existing[name] {
			current, err = r.client.ListBranchPolicies(ctx, r.cfg.Owner, r.cfg.Repository, name)
			if err != nil {
				return nil, fmt.Errorf("failed to list branch policies for environment %s: %w", name, err)
			}
		}

		if env.BranchMode() == BranchModeCustom {
			change.PoliciesToCreate = r.policiesToCreate(env.PolicyNames(), current)
		}
		plan.Upserts = append(plan.Upserts, change)

		desired := make(map[string]bool)
		for _, policyName := range env.PolicyNames() {
			desired[policyName] = true
		}
		for _, policy := range current {
			if !desired[policy.Name] {
				plan.PolicyDeletions = append(plan.PolicyDeletions, BranchPolicyChange{
					Type:        ChangeTypeDelete,
					Environment: name,
					Policy:      policy,
				})
			}
		}
	}

	for _, env := range remote {
		if _, ok := config.Environments[env.Name]; !ok {
			plan.Deletions = append(plan.Deletions, EnvironmentChange{
				Type: ChangeTypeDelete,
				Name: env.Name,
			})
		}
	}

	return plan, nil
}

// policiesToCreate returns the desired policy names that need a create call
func (r *EnvironmentReconciler) policiesToCreate(desired []string, current []BranchPolicy) []string {
	if r.cfg.RecreateExistingPolicies {
		return desired
	}

	seen := make(map[string]bool, len(current))
	for _, p := range current {
		seen[p.Name] = true
	}

	var create []string
	for _, name := range desired {
		if seen[name] {
			continue
		}
		seen[name] = true
		create = append(create, name)
	}
	return create
}

// Apply executes a plan in order: upserts with their branch policies, then
// environment deletions, then stale branch policy deletions. It stops at the
// first failure and does not roll back earlier changes.
func (r *EnvironmentReconciler) Apply(ctx context.Context, plan *EnvironmentPlan) error {
	for _, change := range plan.Upserts {
		if err := r.upsertEnvironment(ctx, change); err != nil {
			return err
		}
		if err := r.createBranchPolicies(ctx, change.Name, change.PoliciesToCreate); err != nil {
			return err
		}
	}

	for _, change := range plan.Deletions {
		r.log.Info().Str("environment", change.Name).
			Msg("Deleting deployment environment, no configuration provided for it")
		if err := r.client.DeleteEnvironment(ctx, r.cfg.Owner, r.cfg.Repository, change.Name); err != nil {
			return fmt.Errorf("failed to delete environment %s: %w", change.Name, err)
		}
	}

	for _, change := range plan.PolicyDeletions {
		r.log.Info().
			Str("environment", change.Environment).
			Str("policy", change.Policy.Name).
			Int64("policy_id", change.Policy.ID).
			Msg("Deleting deployment branch policy, no configuration provided for it")
		if err := r.client.DeleteBranchPolicy(ctx, r.cfg.Owner, r.cfg.Repository, change.Environment, change.Policy.ID); err != nil {
			return fmt.Errorf("failed to delete branch policy %s for environment %s: %w",
				change.Policy.Name, change.Environment, err)
		}
	}

	return nil
}

// upsertEnvironment resolves reviewers and issues the create-or-update call
func (r *EnvironmentReconciler) upsertEnvironment(ctx context.Context, change EnvironmentChange) error {
	r.log.Info().Str("environment", change.Name).Msg("Creating/Updating deployment environment")

	settings, err := r.environmentSettings(ctx, change.Name, *change.Config)
	if err != nil {
		return err
	}

	if err := r.client.CreateOrUpdateEnvironment(ctx, r.cfg.Owner, r.cfg.Repository, settings); err != nil {
		return fmt.Errorf("failed to create or update environment %s: %w", change.Name, err)
	}

	r.log.Info().
		Str("environment", change.Name).
		Str("change", string(change.Type)).
		Int("wait_timer", settings.WaitTimer).
		Int("reviewers", len(settings.Reviewers)).
		Str("branch_mode", string(settings.BranchMode)).
		Msg("Created/Updated deployment environment")
	return nil
}

// environmentSettings builds the API payload for one environment
func (r *EnvironmentReconciler) environmentSettings(ctx context.Context, name string, env EnvironmentConfig) (EnvironmentSettings, error) {
	settings := EnvironmentSettings{
		Name:              name,
		WaitTimer:         env.EffectiveWaitTimer(),
		PreventSelfReview: env.EffectivePreventSelfReview(),
		BranchMode:        env.BranchMode(),
		Reviewers:         make([]EnvironmentReviewer, 0, len(env.RequiredReviewers)),
	}

	// The environments API only accepts numeric ids.
	for _, reviewer := range env.RequiredReviewers {
		id, err := resolveReviewer(ctx, r.client, r.cfg.Owner, reviewer)
		if err != nil {
			return settings, fmt.Errorf("failed to resolve reviewer %q for environment %s: %w", reviewer.ID, name, err)
		}
		settings.Reviewers = append(settings.Reviewers, EnvironmentReviewer{
			Type: reviewerType(reviewer),
			ID:   id,
		})
	}

	return settings, nil
}

// createBranchPolicies issues one create call per policy, in order
func (r *EnvironmentReconciler) createBranchPolicies(ctx context.Context, env string, policies []string) error {
	if len(policies) == 0 {
		return nil
	}

	r.log.Info().Str("environment", env).Msg("Creating/Updating deployment branch policies")
	for _, policy := range policies {
		if err := r.client.CreateBranchPolicy(ctx, r.cfg.Owner, r.cfg.Repository, env, policy); err != nil {
			return fmt.Errorf("failed to create branch policy %s for environment %s: %w", policy, env, err)
		}
		r.log.Info().Str("environment", env).Str("policy", policy).Msg("Created/Updated deployment branch policy")
	}
	return nil
}
