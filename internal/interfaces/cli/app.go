// Package cli wires gitfleet's cobra+fang command tree on top of the
// application layer (fleetmanager, listing). Structure is grounded on
// the teacher's interfaces/cli/fang package: one Application struct
// built by NewApplication, holding every long-lived dependency, and
// one file per command group.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/domain/shared"
	"github.com/repofleet/gitfleet/internal/infrastructure/gitexec"
	"github.com/repofleet/gitfleet/internal/infrastructure/logging"
	"github.com/repofleet/gitfleet/internal/infrastructure/providers/bitbucket"
	"github.com/repofleet/gitfleet/internal/infrastructure/providers/github"
	"github.com/repofleet/gitfleet/internal/infrastructure/providers/gitlab"
	"github.com/repofleet/gitfleet/internal/infrastructure/tokens"
)

// Config holds every flag/env-derived setting NewApplication needs.
type Config struct {
	LogLevel string
	LogFile  string
	BaseDir  string

	Concurrency int
	CloneDepth  int
	CloneBranch string

	GitHubToken  string
	GitHubTokens []string // additional tokens pooled alongside GitHubToken, for rotation

	GitLabToken   string
	GitLabBaseURL string

	BitbucketEmail    string
	BitbucketAPIToken string
}

// NewDefaultConfig returns the configuration used when no flags or
// environment variables override it, matching the teacher's
// NewDefaultConfig defaults (concurrency = 2x NumCPU, base-dir = ".").
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		LogFile:       "logs/gitfleet.log",
		BaseDir:       ".",
		Concurrency:   runtime.NumCPU() * 2,
		GitLabBaseURL: "https://gitlab.com",
	}
}

// Application is the single object every command builds its work
// from: one logger, one token manager, and the base directory clones
// land under. Provider clients are constructed on demand per command
// invocation (ProviderClient) since only one is ever needed at a time.
type Application struct {
	logger    shared.Logger
	tuiLogger *logging.TUILogger
	fileLog   *logging.ZapLogger
	buffer    *logging.RingBuffer
	tokenMgr  *tokens.Manager
	cfg       *Config
}

// NewApplication builds the Application: a file-backed, buffer-backed
// logger (so both `--log-level` output and the TUI's log pane share
// one source), a token pool seeded from cfg, and the configured base
// directory. Mirrors the teacher's NewApplication wiring order:
// logger, then provider credentials, then storage.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	fileLog, err := logging.NewZapLogger(&logging.Config{
		Level:       cfg.LogLevel,
		Encoding:    "json",
		OutputPaths: []string{cfg.LogFile},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing file logger: %w", err)
	}

	buffer := logging.NewRingBuffer(200)
	tuiLogger := logging.NewTUILogger(buffer, fileLog)
	logger := shared.Logger(tuiLogger)

	logger.Info("initializing gitfleet application",
		shared.StringField("go_version", runtime.Version()),
		shared.IntField("concurrency", cfg.Concurrency))

	tokenMgr := tokens.NewManager()
	if cfg.GitHubToken != "" {
		tokenMgr.AddToken(cfg.GitHubToken, provider.GitHub)
	}
	for _, tok := range cfg.GitHubTokens {
		if tok != "" {
			tokenMgr.AddToken(tok, provider.GitHub)
		}
	}
	if cfg.GitLabToken != "" {
		tokenMgr.AddToken(cfg.GitLabToken, provider.GitLab)
	}
	if cfg.BitbucketEmail != "" && cfg.BitbucketAPIToken != "" {
		tokenMgr.AddToken(cfg.BitbucketEmail+":"+cfg.BitbucketAPIToken, provider.Bitbucket)
	}

	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	return &Application{
		logger:    logger,
		tuiLogger: tuiLogger,
		fileLog:   fileLog,
		buffer:    buffer,
		tokenMgr:  tokenMgr,
		cfg:       cfg,
	}, nil
}

// ProviderClient builds the provider.Client for t. Constructed fresh
// per call: the clients themselves are stateless wrappers around the
// shared token manager.
func (a *Application) ProviderClient(t provider.Type) (provider.Client, error) {
	switch t {
	case provider.GitHub:
		return github.New(a.tokenMgr), nil
	case provider.GitLab:
		return gitlab.New(a.tokenMgr, a.cfg.GitLabBaseURL), nil
	case provider.Bitbucket:
		return bitbucket.New(a.tokenMgr), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", t)
	}
}

// CloneCredentials returns the HTTPS basic-auth pair the Clone
// Executor should use for t, derived from whichever token is
// currently pooled for that provider.
func (a *Application) CloneCredentials(t provider.Type) gitexec.Credentials {
	tok, ok := a.tokenMgr.GetNextAvailableToken(t)
	if !ok {
		return gitexec.Credentials{}
	}
	switch t {
	case provider.GitHub:
		return gitexec.Credentials{Username: tok.Token, Password: "x-oauth-basic"}
	case provider.GitLab:
		return gitexec.Credentials{Username: "oauth2", Password: tok.Token}
	case provider.Bitbucket:
		// Pooled as "email:api-token" (Bitbucket's API-token auth model);
		// split back into the HTTPS basic-auth pair git expects.
		for i := range tok.Token {
			if tok.Token[i] == ':' {
				return gitexec.Credentials{Username: tok.Token[:i], Password: tok.Token[i+1:]}
			}
		}
		return gitexec.Credentials{}
	default:
		return gitexec.Credentials{}
	}
}

// Logger exposes the application's shared.Logger for commands that
// need to log outside an Application-owned component.
func (a *Application) Logger() shared.Logger { return a.logger }

// TUILogger exposes the buffered logger for bubbletea models that
// render a live log pane.
func (a *Application) TUILogger() *logging.TUILogger { return a.tuiLogger }

// Config exposes the resolved configuration.
func (a *Application) Config() *Config { return a.cfg }

// Close flushes the file logger. Call once, on process exit.
func (a *Application) Close() error {
	a.logger.Info("shutting down gitfleet application")
	if a.fileLog != nil {
		return a.fileLog.Sync()
	}
	return nil
}
