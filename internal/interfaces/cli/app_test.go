package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofleet/gitfleet/internal/domain/provider"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "gitfleet.log")
	cfg.BaseDir = t.TempDir()
	return cfg
}

func TestNewApplication_PoolsGitHubTokenAndGitHubTokens(t *testing.T) {
	cfg := testConfig(t)
	cfg.GitHubToken = "primary"
	cfg.GitHubTokens = []string{"secondary", "tertiary"}

	app, err := NewApplication(cfg)
	require.NoError(t, err)
	defer app.Close()

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		creds := app.CloneCredentials(provider.GitHub)
		seen[creds.Username] = true
	}
	assert.True(t, seen["primary"], "the singular GITHUB_TOKEN must still be pooled")
	assert.True(t, seen["secondary"], "GITHUB_TOKENS entries must be pooled alongside GITHUB_TOKEN")
	assert.True(t, seen["tertiary"], "every comma-separated GITHUB_TOKENS entry must be pooled")
}

func TestNewApplication_PoolsBitbucketEmailAndAPIToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.BitbucketEmail = "dev@example.com"
	cfg.BitbucketAPIToken = "api-token-123"

	app, err := NewApplication(cfg)
	require.NoError(t, err)
	defer app.Close()

	creds := app.CloneCredentials(provider.Bitbucket)
	assert.Equal(t, "dev@example.com", creds.Username)
	assert.Equal(t, "api-token-123", creds.Password)
}

func TestCloneCredentials_GitLabUsesOAuth2Username(t *testing.T) {
	cfg := testConfig(t)
	cfg.GitLabToken = "glpat-xyz"

	app, err := NewApplication(cfg)
	require.NoError(t, err)
	defer app.Close()

	creds := app.CloneCredentials(provider.GitLab)
	assert.Equal(t, "oauth2", creds.Username)
	assert.Equal(t, "glpat-xyz", creds.Password)
}
