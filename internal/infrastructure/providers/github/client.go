// Package github implements provider.Client against the GitHub REST
// API, using google/go-github/v66 and golang.org/x/oauth2 the way
// Gizzahub-gzh-cli-gitforge/pkg/github/provider.go wires them, but
// rewired here onto the spec's provider.Client surface and its pooled
// tokens.Manager instead of that package's single-token Provider.
// Pagination and error classification follow the teacher's hand-rolled
// infrastructure/github/client.go, adapted to go-github's typed
// Response.NextPage and *github.ErrorResponse instead of manual JSON
// decoding.
package github

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/fleeterr"
	"github.com/repofleet/gitfleet/internal/infrastructure/tokens"
)

const perPage = 100

func epochTime(epochSeconds int64) time.Time { return time.Unix(epochSeconds, 0) }

func parseEpochHeader(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Now().Add(time.Minute)
	}
	return time.Unix(n, 0)
}

// Client implements provider.Client for GitHub.
type Client struct {
	manager *tokens.Manager
}

// New creates a GitHub client pulling tokens from manager.
func New(manager *tokens.Manager) *Client {
	return &Client{manager: manager}
}

func (c *Client) ghClient(ctx context.Context) (*github.Client, string, error) {
	tok, ok := c.manager.GetNextAvailableToken(provider.GitHub)
	if !ok {
		return github.NewClient(nil), "", nil
	}
	if tok.Status == provider.TokenRateLimited {
		return nil, tok.Token, fleeterr.RateLimitExceeded(epochTime(tok.ResetTime), "all GitHub tokens rate limited")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok.Token})
	return github.NewClient(oauth2.NewClient(ctx, ts)), tok.Token, nil
}

func (c *Client) FetchRepositories(ctx context.Context, owner string) ([]provider.RepoInfo, error) {
	gh, token, err := c.ghClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryListByUserOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var out []provider.RepoInfo
	for {
		repos, resp, err := gh.Repositories.ListByUser(ctx, owner, opts)
		if err != nil {
			return nil, c.classify(token, err)
		}
		c.trackRateLimit(token, resp)

		for _, r := range repos {
			out = append(out, convertRepo(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) FetchUserInfo(ctx context.Context) (provider.UserInfo, error) {
	gh, token, err := c.ghClient(ctx)
	if err != nil {
		return provider.UserInfo{}, err
	}
	u, resp, err := gh.Users.Get(ctx, "")
	if err != nil {
		return provider.UserInfo{}, c.classify(token, err)
	}
	c.trackRateLimit(token, resp)
	return provider.UserInfo{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		Name:      u.GetName(),
		Email:     u.GetEmail(),
		AvatarURL: u.GetAvatarURL(),
		Type:      provider.GitHub,
		RawData:   u,
	}, nil
}

func (c *Client) GetRateLimit(ctx context.Context) (provider.RateLimitInfo, error) {
	gh, token, err := c.ghClient(ctx)
	if err != nil {
		return provider.RateLimitInfo{}, err
	}
	limits, _, err := gh.RateLimit.Get(ctx)
	if err != nil {
		return provider.RateLimitInfo{}, c.classify(token, err)
	}
	core := limits.GetCore()
	return provider.RateLimitInfo{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		ResetTime: core.Reset.Unix(),
		Used:      core.Limit - core.Remaining,
		Type:      provider.GitHub,
	}, nil
}

func (c *Client) FetchRepositoryDetails(ctx context.Context, owner, repo string) (provider.RepoDetails, error) {
	gh, token, err := c.ghClient(ctx)
	if err != nil {
		return provider.RepoDetails{}, err
	}
	r, resp, err := gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return provider.RepoDetails{}, c.classify(token, err)
	}
	c.trackRateLimit(token, resp)

	details := provider.RepoDetails{
		RepoInfo:    convertRepo(r),
		Topics:      r.Topics,
		Homepage:    r.GetHomepage(),
		HasWiki:     r.GetHasWiki(),
		HasIssues:   r.GetHasIssues(),
		HasProjects: r.GetHasProjects(),
		Archived:    r.GetArchived(),
		Size:        int64(r.GetSize()),
	}
	if r.License != nil {
		details.License = r.License.GetName()
	}
	if !r.GetPushedAt().IsZero() {
		t := r.GetPushedAt().Unix()
		details.PushedAt = &t
	}
	return details, nil
}

func (c *Client) FetchContributors(ctx context.Context, owner, repo string) ([]provider.ContributorInfo, error) {
	gh, token, err := c.ghClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var out []provider.ContributorInfo
	for {
		contributors, resp, err := gh.Repositories.ListContributors(ctx, owner, repo, opts)
		if err != nil {
			return nil, c.classify(token, err)
		}
		c.trackRateLimit(token, resp)

		for _, ct := range contributors {
			out = append(out, provider.ContributorInfo{
				ID:            ct.GetID(),
				Login:         ct.GetLogin(),
				Contributions: ct.GetContributions(),
				AvatarURL:     ct.GetAvatarURL(),
				Type:          provider.GitHub,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) FetchBranches(ctx context.Context, owner, repo string) ([]provider.BranchInfo, error) {
	gh, token, err := c.ghClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var out []provider.BranchInfo
	for {
		branches, resp, err := gh.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, c.classify(token, err)
		}
		c.trackRateLimit(token, resp)

		for _, b := range branches {
			out = append(out, provider.BranchInfo{
				Name:      b.GetName(),
				CommitSHA: b.GetCommit().GetSHA(),
				Protected: b.GetProtected(),
				Type:      provider.GitHub,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// ValidateCredentials is FetchUserInfo succeeding (spec §4.6): an
// AuthenticationFailure is reported as (false, nil) so callers can
// distinguish "bad token" from "transport broke".
func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := c.FetchUserInfo(ctx)
	if err == nil {
		return true, nil
	}
	if fleeterr.KindOf(err) == fleeterr.KindAuthenticationFailure {
		return false, nil
	}
	return false, err
}

func (c *Client) trackRateLimit(token string, resp *github.Response) {
	if resp == nil || token == "" {
		return
	}
	c.manager.UpdateRateLimit(token, provider.GitHub, resp.Rate.Remaining, resp.Rate.Reset.Unix())
}

func (c *Client) classify(token string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		switch ghErr.Response.StatusCode {
		case 401:
			if token != "" {
				c.manager.MarkTokenInvalid(token, provider.GitHub)
			}
			return fleeterr.AuthenticationFailure("github: %s", ghErr.Message)
		case 403:
			if ghErr.Response.Header.Get("X-RateLimit-Remaining") == "0" {
				reset := parseEpochHeader(ghErr.Response.Header.Get("X-RateLimit-Reset"))
				if token != "" {
					c.manager.UpdateRateLimit(token, provider.GitHub, 0, reset.Unix())
				}
				return fleeterr.RateLimitExceeded(reset, "github rate limit exceeded")
			}
			return fleeterr.AuthenticationFailure("github: %s", ghErr.Message)
		case 404:
			return fleeterr.NotFound("github: %s", ghErr.Message)
		}
	}
	var rlErr *github.RateLimitError
	if errors.As(err, &rlErr) {
		if token != "" {
			c.manager.UpdateRateLimit(token, provider.GitHub, 0, rlErr.Rate.Reset.Unix())
		}
		return fleeterr.RateLimitExceeded(rlErr.Rate.Reset.Time, "github rate limit exceeded")
	}
	return fleeterr.ProtocolFailure(err, "github API request failed")
}

func convertRepo(r *github.Repository) provider.RepoInfo {
	info := provider.RepoInfo{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		CloneURL:      r.GetCloneURL(),
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.GetLanguage(),
		Fork:          r.GetFork(),
		ForksCount:    r.GetForksCount(),
		Type:          provider.GitHub,
		Visibility:    r.GetVisibility(),
		RawData:       r,
	}
	if r.StargazersCount != nil {
		n := r.GetStargazersCount()
		info.StargazersCount = &n
	}
	if !r.GetCreatedAt().IsZero() {
		t := r.GetCreatedAt().Unix()
		info.CreatedAt = &t
	}
	if !r.GetUpdatedAt().IsZero() {
		t := r.GetUpdatedAt().Unix()
		info.UpdatedAt = &t
	}
	if r.Owner != nil {
		info.Owner = &provider.UserInfo{
			ID:    r.Owner.GetID(),
			Login: r.Owner.GetLogin(),
			Type:  provider.GitHub,
		}
	}
	return info
}
