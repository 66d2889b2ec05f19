package cli

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the gitfleet root command, mirroring the
// teacher's fang.NewRootCommand: persistent flags for credentials,
// logging, and concurrency, shared by every subcommand.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitfleet",
		Short: "Fleet-scale Git repository analyzer",
		Long: `gitfleet clones, blames, and extracts commit history across a fleet of
repositories pulled from GitHub, GitLab, or Bitbucket, with bounded
concurrency and token-rotated API access.

Features:
  • Concurrent cloning with a bounded worker pool and live progress
  • Per-file bulk blame over an already-cloned repository
  • First-parent commit history extraction with line statistics
  • GitHub, GitLab, and Bitbucket repository listing and cloning
  • Multi-token rotation that skips rate-limited tokens`,
		Version: "0.1.0",
		Example: `  # Clone every non-fork repository a GitHub user owns
  gitfleet github clone octocat

  # List a GitLab user's repositories as JSON, skipping forks
  gitfleet gitlab list myuser --skip-forks --format json

  # Blame two files in an already-cloned repository
  gitfleet blame ./myrepo file1.go file2.go

  # Extract first-parent commit history
  gitfleet history ./myrepo --limit 50`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub personal access token (env: GITHUB_TOKEN)")
	cmd.PersistentFlags().String("github-tokens", os.Getenv("GITHUB_TOKENS"), "Comma-separated GitHub tokens pooled for rotation (env: GITHUB_TOKENS)")
	cmd.PersistentFlags().String("gitlab-token", os.Getenv("GITLAB_TOKEN"), "GitLab personal access token (env: GITLAB_TOKEN)")
	cmd.PersistentFlags().String("gitlab-base-url", "https://gitlab.com", "GitLab instance base URL")
	cmd.PersistentFlags().String("bitbucket-email", os.Getenv("BITBUCKET_EMAIL"), "Bitbucket account email (env: BITBUCKET_EMAIL)")
	cmd.PersistentFlags().String("bitbucket-api-token", os.Getenv("BITBUCKET_API_TOKEN"), "Bitbucket API token (env: BITBUCKET_API_TOKEN)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-file", "logs/gitfleet.log", "Log file path")
	cmd.PersistentFlags().Int("concurrency", runtime.NumCPU()*2, "Number of concurrent workers")
	cmd.PersistentFlags().String("base-dir", ".", "Base directory for clone destinations")

	cmd.AddCommand(newGitHubCommand())
	cmd.AddCommand(newGitLabCommand())
	cmd.AddCommand(newBitbucketCommand())
	cmd.AddCommand(newBlameCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newCleanupCommand())

	return cmd
}

// Execute runs the CLI with Fang's styled help/usage/error rendering.
func Execute(ctx context.Context) error {
	return fang.Execute(ctx, NewRootCommand())
}

func configFromFlags(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()

	var err error
	get := func(name string) string {
		v, e := cmd.Flags().GetString(name)
		if e != nil {
			err = e
		}
		return v
	}

	cfg.GitHubToken = get("github-token")
	githubTokens := get("github-tokens")
	cfg.GitLabToken = get("gitlab-token")
	cfg.GitLabBaseURL = get("gitlab-base-url")
	cfg.BitbucketEmail = get("bitbucket-email")
	cfg.BitbucketAPIToken = get("bitbucket-api-token")
	cfg.LogLevel = get("log-level")
	cfg.LogFile = get("log-file")
	cfg.BaseDir = get("base-dir")
	if err != nil {
		return nil, err
	}

	if githubTokens != "" {
		for _, tok := range strings.Split(githubTokens, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				cfg.GitHubTokens = append(cfg.GitHubTokens, tok)
			}
		}
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}
	cfg.Concurrency = concurrency

	return cfg, nil
}
