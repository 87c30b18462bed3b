// Package github reconciles a declarative repository settings document with
// the live state of a GitHub repository.
//
// The package includes:
// - EnvironmentsAPI and SettingsAPI interfaces for GitHub API operations
// - EnvironmentReconciler for deployment environments and their branch policies
// - SettingsReconciler for topics, features, merge buttons and autolinks
// - Configuration models and validation for the settings document
package github
