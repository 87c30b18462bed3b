package github

import (
	"fmt"
	"os"
	"strings"

	"reposync/pkg/config"
)

// TokenEnvVar is the environment variable consulted before the config file
const TokenEnvVar = "GITHUB_TOKEN"

// GetToken retrieves the GitHub token from the environment or the config file
func GetToken(cfg *config.Config) (string, error) {
	if token := os.Getenv(TokenEnvVar); token != "" {
		return strings.TrimSpace(token), nil
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		return strings.TrimSpace(cfg.GitHub.Token), nil
	}

	return "", fmt.Errorf("no GitHub token found: set %s environment variable or configure github.token in ~/.reposync/config.yaml", TokenEnvVar)
}

// NewClientFromConfig builds an API client for github.com or the configured
// Enterprise Server.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	token, err := GetToken(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.GitHub.BaseURL != "" {
		return NewEnterpriseClient(cfg.GitHub.BaseURL, token)
	}
	return NewClient(token), nil
}

// GetAuthInstructions returns instructions for setting up GitHub authentication
func GetAuthInstructions() string {
	return `GitHub authentication is required. Please set up authentication using one of the following methods:

1. Environment Variable (Recommended for CI/CD):
   export GITHUB_TOKEN="your_personal_access_token"

2. Configuration File:
   Add the following to ~/.reposync/config.yaml:

   github:
     token: "your_personal_access_token"

The token needs administration (write) access to the repository to manage
environments, topics, autolinks and repository settings.`
}
