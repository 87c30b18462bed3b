package github

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// SettingsReconciler converges general repository settings: topics, feature
// toggles, merge buttons, description, homepage and Jira autolinks.
type SettingsReconciler struct {
	client SettingsAPI
	cfg    ReconcilerConfig
	log    zerolog.Logger
}

// NewSettingsReconciler creates a new settings reconciler
func NewSettingsReconciler(client SettingsAPI, cfg ReconcilerConfig) *SettingsReconciler {
	if cfg.JiraURL == "" {
		cfg.JiraURL = DefaultJiraURL
	}
	return &SettingsReconciler{
		client: client,
		cfg:    cfg,
		log:    cfg.logger(),
	}
}

// Reconcile validates, plans and, unless in dry-run mode, applies settings
func (r *SettingsReconciler) Reconcile(ctx context.Context, config *Config) (*SettingsPlan, error) {
	if err := ValidateSettings(config).AsError(); err != nil {
		return nil, fmt.Errorf("invalid repository settings: %w", err)
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

// Plan compares the document with the current repository settings
func (r *SettingsReconciler) Plan(ctx context.Context, config *Config) (*SettingsPlan, error) {
	plan := &SettingsPlan{}

	if needsRepository(config) {
		current, err := r.client.GetRepository(ctx, r.cfg.Owner, r.cfg.Repository)
		if err != nil {
			return nil, fmt.Errorf("failed to get repository: %w", err)
		}

		if len(config.Labels) > 0 && !stringSetsEqual(current.Topics, config.Labels) {
			plan.Topics = config.Labels
		}

		update := RepositoryUpdate{}
		changed := false
		if config.Description != nil && *config.Description != current.Description {
			update.Description = config.Description
			changed = true
		}
		if config.Homepage != nil && *config.Homepage != current.Homepage {
			update.Homepage = config.Homepage
			changed = true
		}
		if config.Features != nil && *config.Features != current.Features {
			update.Features = config.Features
			changed = true
		}
		if config.MergeButtons != nil && *config.MergeButtons != current.MergeButtons {
			update.MergeButtons = config.MergeButtons
			changed = true
		}
		if changed {
			plan.Update = &update
		}
	}

	if len(config.AutolinkJira) > 0 {
		existing, err := r.client.ListAutolinks(ctx, r.cfg.Owner, r.cfg.Repository)
		if err != nil {
			return nil, fmt.Errorf("failed to list autolinks: %w", err)
		}

		templates := make(map[string]bool, len(existing))
		for _, link := range existing {
			templates[link.URLTemplate] = true
		}

		for _, project := range config.AutolinkJira {
			link := r.jiraAutolink(project)
			if templates[link.URLTemplate] {
				continue
			}
			templates[link.URLTemplate] = true
			plan.Autolinks = append(plan.Autolinks, link)
		}
	}

	return plan, nil
}

// Apply executes a settings plan, stopping at the first failure
func (r *SettingsReconciler) Apply(ctx context.Context, plan *SettingsPlan) error {
	if plan.Topics != nil {
		r.log.Info().Strs("topics", plan.Topics).Msg("Updating repository topics")
		if err := r.client.ReplaceTopics(ctx, r.cfg.Owner, r.cfg.Repository, plan.Topics); err != nil {
			return fmt.Errorf("failed to update topics: %w", err)
		}
	}

	for _, link := range plan.Autolinks {
		r.log.Info().
			Str("key_prefix", link.KeyPrefix).
			Str("url_template", link.URLTemplate).
			Msg("Setting up new autolink")
		if err := r.client.CreateAutolink(ctx, r.cfg.Owner, r.cfg.Repository, link); err != nil {
			return fmt.Errorf("failed to create autolink %s: %w", link.KeyPrefix, err)
		}
	}

	if plan.Update != nil {
		r.log.Info().Strs("fields", plan.Update.fields()).Msg("Updating repository settings")
		if err := r.client.UpdateRepository(ctx, r.cfg.Owner, r.cfg.Repository, *plan.Update); err != nil {
			return fmt.Errorf("failed to update repository settings: %w", err)
		}
	}

	return nil
}

func (r *SettingsReconciler) jiraAutolink(project string) Autolink {
	return Autolink{
		KeyPrefix:   project + "-",
		URLTemplate: fmt.Sprintf("%s/%s-<num>", strings.TrimRight(r.cfg.JiraURL, "/"), project),
	}
}

// fields lists the settings touched by an update, for logging
func (u RepositoryUpdate) fields() []string {
	var fields []string
	if u.Description != nil {
		fields = append(fields, "description")
	}
	if u.Homepage != nil {
		fields = append(fields, "homepage")
	}
	if u.Features != nil {
		fields = append(fields, "features")
	}
	if u.MergeButtons != nil {
		fields = append(fields, "enabled_merge_buttons")
	}
	return fields
}

func needsRepository(config *Config) bool {
	return len(config.Labels) > 0 ||
		config.Description != nil ||
		config.Homepage != nil ||
		config.Features != nil ||
		config.MergeButtons != nil
}

// stringSetsEqual compares two string slices ignoring order
func stringSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)

	return reflect.DeepEqual(sortedA, sortedB)
}
