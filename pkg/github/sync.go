package github

import (
	"context"
	"fmt"
)

// SyncResult holds the plans computed during a run
type SyncResult struct {
	Settings     *SettingsPlan
	Environments *EnvironmentPlan
}

// Sync validates the whole document before touching anything, then reconciles
// repository settings followed by deployment environments.
func Sync(ctx context.Context, client APIClient, cfg ReconcilerConfig, config *Config) (*SyncResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	result := &SyncResult{}

	settings, err := NewSettingsReconciler(client, cfg).Reconcile(ctx, config)
	if err != nil {
		return result, err
	}
	result.Settings = settings

	environments, err := NewEnvironmentReconciler(client, cfg).Reconcile(ctx, config)
	if err != nil {
		return result, err
	}
	result.Environments = environments

	return result, nil
}
