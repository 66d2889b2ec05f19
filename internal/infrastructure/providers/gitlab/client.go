// Package gitlab implements provider.Client against the GitLab REST
// API, using github.com/xanzy/go-gitlab the way
// Gizzahub-gzh-cli-gitforge/pkg/gitlab/provider.go wires it. GitLab
// has no GitHub-style rate-limit endpoint; GetRateLimit instead reads
// the RateLimit-* response headers go-gitlab surfaces per call,
// mirroring the teacher's own "no dedicated API, derive from the last
// response" comment.
package gitlab

import (
	"context"
	"strconv"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/fleeterr"
	"github.com/repofleet/gitfleet/internal/infrastructure/tokens"
)

const perPage = 100

// Client implements provider.Client for GitLab.
type Client struct {
	manager *tokens.Manager
	baseURL string
	last    provider.RateLimitInfo
}

// New creates a GitLab client pulling tokens from manager. baseURL may
// be empty to use gitlab.com.
func New(manager *tokens.Manager, baseURL string) *Client {
	return &Client{manager: manager, baseURL: baseURL}
}

func (c *Client) glClient() (*gitlab.Client, string, error) {
	tok, ok := c.manager.GetNextAvailableToken(provider.GitLab)
	token := ""
	if ok {
		if tok.Status == provider.TokenRateLimited {
			return nil, tok.Token, fleeterr.RateLimitExceeded(time.Unix(tok.ResetTime, 0), "all GitLab tokens rate limited")
		}
		token = tok.Token
	}

	var opts []gitlab.ClientOptionFunc
	if c.baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(c.baseURL))
	}
	cl, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, token, fleeterr.ProtocolFailure(err, "constructing gitlab client")
	}
	return cl, token, nil
}

func (c *Client) FetchRepositories(ctx context.Context, owner string) ([]provider.RepoInfo, error) {
	cl, token, err := c.glClient()
	if err != nil {
		return nil, err
	}

	opts := &gitlab.ListProjectsOptions{ListOptions: gitlab.ListOptions{PerPage: perPage}}
	var out []provider.RepoInfo
	for {
		projects, resp, err := cl.Projects.ListUserProjects(owner, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, c.classify(token, err)
		}
		c.trackRateLimit(token, resp)

		for _, p := range projects {
			out = append(out, convertProject(p))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) FetchUserInfo(ctx context.Context) (provider.UserInfo, error) {
	cl, token, err := c.glClient()
	if err != nil {
		return provider.UserInfo{}, err
	}
	u, resp, err := cl.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return provider.UserInfo{}, c.classify(token, err)
	}
	c.trackRateLimit(token, resp)
	return provider.UserInfo{
		ID:        int64(u.ID),
		Login:     u.Username,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Type:      provider.GitLab,
		RawData:   u,
	}, nil
}

// GetRateLimit returns the quota observed on the most recent response,
// since GitLab exposes no dedicated rate-limit endpoint.
func (c *Client) GetRateLimit(ctx context.Context) (provider.RateLimitInfo, error) {
	return c.last, nil
}

func (c *Client) FetchRepositoryDetails(ctx context.Context, owner, repo string) (provider.RepoDetails, error) {
	cl, token, err := c.glClient()
	if err != nil {
		return provider.RepoDetails{}, err
	}
	projectPath := owner + "/" + repo
	p, resp, err := cl.Projects.GetProject(projectPath, nil, gitlab.WithContext(ctx))
	if err != nil {
		return provider.RepoDetails{}, c.classify(token, err)
	}
	c.trackRateLimit(token, resp)

	return provider.RepoDetails{
		RepoInfo:  convertProject(p),
		Topics:    p.Topics,
		Homepage:  p.WebURL,
		HasIssues: p.IssuesEnabled,
		HasWiki:   p.WikiEnabled,
		Archived:  p.Archived,
	}, nil
}

func (c *Client) FetchContributors(ctx context.Context, owner, repo string) ([]provider.ContributorInfo, error) {
	cl, token, err := c.glClient()
	if err != nil {
		return nil, err
	}
	projectPath := owner + "/" + repo

	opts := &gitlab.ListContributorsOptions{ListOptions: gitlab.ListOptions{PerPage: perPage}}
	var out []provider.ContributorInfo
	for {
		contributors, resp, err := cl.Repositories.Contributors(projectPath, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, c.classify(token, err)
		}
		c.trackRateLimit(token, resp)

		for _, ct := range contributors {
			out = append(out, provider.ContributorInfo{
				Login:         ct.Name,
				Contributions: ct.Commits,
				Type:          provider.GitLab,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) FetchBranches(ctx context.Context, owner, repo string) ([]provider.BranchInfo, error) {
	cl, token, err := c.glClient()
	if err != nil {
		return nil, err
	}
	projectPath := owner + "/" + repo

	opts := &gitlab.ListBranchesOptions{ListOptions: gitlab.ListOptions{PerPage: perPage}}
	var out []provider.BranchInfo
	for {
		branches, resp, err := cl.Branches.ListBranches(projectPath, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, c.classify(token, err)
		}
		c.trackRateLimit(token, resp)

		for _, b := range branches {
			sha := ""
			if b.Commit != nil {
				sha = b.Commit.ID
			}
			out = append(out, provider.BranchInfo{
				Name:      b.Name,
				CommitSHA: sha,
				Protected: b.Protected,
				Type:      provider.GitLab,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

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

func (c *Client) trackRateLimit(token string, resp *gitlab.Response) {
	if resp == nil {
		return
	}
	limit, _ := strconv.Atoi(resp.Header.Get("RateLimit-Limit"))
	remaining, _ := strconv.Atoi(resp.Header.Get("RateLimit-Remaining"))
	resetEpoch, _ := strconv.ParseInt(resp.Header.Get("RateLimit-Reset"), 10, 64)
	if limit == 0 {
		return
	}
	c.last = provider.RateLimitInfo{Limit: limit, Remaining: remaining, ResetTime: resetEpoch, Used: limit - remaining, Type: provider.GitLab}
	if token != "" {
		c.manager.UpdateRateLimit(token, provider.GitLab, remaining, resetEpoch)
	}
}

func (c *Client) classify(token string, err error) error {
	glErr, _ := err.(*gitlab.ErrorResponse)
	if glErr != nil && glErr.Response != nil {
		switch glErr.Response.StatusCode {
		case 401:
			if token != "" {
				c.manager.MarkTokenInvalid(token, provider.GitLab)
			}
			return fleeterr.AuthenticationFailure("gitlab: %s", glErr.Message)
		case 403, 429:
			return fleeterr.RateLimitExceeded(time.Now().Add(time.Minute), "gitlab rate limit exceeded")
		case 404:
			return fleeterr.NotFound("gitlab: %s", glErr.Message)
		}
	}
	return fleeterr.ProtocolFailure(err, "gitlab API request failed")
}

func convertProject(p *gitlab.Project) provider.RepoInfo {
	info := provider.RepoInfo{
		Name:          p.Path,
		FullName:      p.PathWithNamespace,
		CloneURL:      p.HTTPURLToRepo,
		Description:   p.Description,
		DefaultBranch: p.DefaultBranch,
		Fork:          p.ForkedFromProject != nil,
		Type:          provider.GitLab,
		Visibility:    string(p.Visibility),
		RawData:       p,
	}
	if p.CreatedAt != nil {
		t := p.CreatedAt.Unix()
		info.CreatedAt = &t
	}
	if p.LastActivityAt != nil {
		t := p.LastActivityAt.Unix()
		info.UpdatedAt = &t
	}
	if p.Namespace != nil {
		info.Owner = &provider.UserInfo{Login: p.Namespace.Path, Type: provider.GitLab}
	}
	return info
}
