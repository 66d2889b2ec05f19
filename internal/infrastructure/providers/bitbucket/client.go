// Package bitbucket implements provider.Client against the Bitbucket
// Cloud REST API with a hand-rolled net/http client, since neither the
// teacher nor the rest of the retrieval pack ships a Bitbucket SDK.
// Shape (page-cursor pagination, basic-auth app passwords, JSON
// response structs) is carried over nearly verbatim from the
// teacher's infrastructure/bitbucket/client.go, re-keyed onto
// provider.Client and tokens.Manager.
package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/fleeterr"
	"github.com/repofleet/gitfleet/internal/infrastructure/tokens"
)

const defaultBaseURL = "https://api.bitbucket.org/2.0"

// apiRepo is the subset of Bitbucket's repository JSON shape this
// client cares about.
type apiRepo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Size        int64     `json:"size"`
	UpdatedOn   time.Time `json:"updated_on"`
	CreatedOn   time.Time `json:"created_on"`
	IsPrivate   bool      `json:"is_private"`
	Parent      *struct {
		FullName string `json:"full_name"`
	} `json:"parent"`
	Owner struct {
		Username string `json:"username"`
	} `json:"owner"`
	Links struct {
		Clone []struct {
			Name string `json:"name"`
			Href string `json:"href"`
		} `json:"clone"`
	} `json:"links"`
	MainBranch *struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
}

type pageResponse struct {
	Values []apiRepo `json:"values"`
	Next   string    `json:"next"`
}

type userResponse struct {
	UUID        string `json:"uuid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Client implements provider.Client for Bitbucket Cloud.
type Client struct {
	httpClient *http.Client
	baseURL    string
	manager    *tokens.Manager
}

// New creates a Bitbucket client. Credentials are pooled in manager as
// "email:api-token" strings (Bitbucket's API-token auth model),
// matching how AddToken is called for this provider.
func New(manager *tokens.Manager) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		manager:    manager,
	}
}

func (c *Client) credentials() (username, password string, ok bool) {
	tok, found := c.manager.GetNextAvailableToken(provider.Bitbucket)
	if !found || tok.Status == provider.TokenRateLimited {
		return "", "", false
	}
	username, password, split := splitToken(tok.Token)
	return username, password, split
}

func splitToken(token string) (string, string, bool) {
	for i := range token {
		if token[i] == ':' {
			return token[:i], token[i+1:], true
		}
	}
	return "", "", false
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fleeterr.TransportFailure(err, "building bitbucket request")
	}
	req.Header.Set("Accept", "application/json")

	if username, password, ok := c.credentials(); ok {
		req.SetBasicAuth(username, password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fleeterr.TransportFailure(err, "bitbucket request failed")
	}
	return resp, nil
}

func (c *Client) classifyStatus(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case 401:
		if username, password, ok := c.credentials(); ok {
			c.manager.MarkTokenInvalid(username+":"+password, provider.Bitbucket)
		}
		return fleeterr.AuthenticationFailure("bitbucket: %s", string(body))
	case 404:
		return fleeterr.NotFound("bitbucket: %s", string(body))
	case 429:
		reset := time.Now().Add(time.Minute)
		if retry := resp.Header.Get("Retry-After"); retry != "" {
			if secs, err := strconv.Atoi(retry); err == nil {
				reset = time.Now().Add(time.Duration(secs) * time.Second)
			}
		}
		return fleeterr.RateLimitExceeded(reset, "bitbucket rate limit exceeded")
	default:
		return fleeterr.ProtocolFailure(nil, "bitbucket API returned %d: %s", resp.StatusCode, string(body))
	}
}

func (c *Client) FetchRepositories(ctx context.Context, owner string) ([]provider.RepoInfo, error) {
	var out []provider.RepoInfo
	url := fmt.Sprintf("%s/repositories/%s?pagelen=100", c.baseURL, owner)

	for url != "" {
		resp, err := c.do(ctx, http.MethodGet, url)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fleeterr.TransportFailure(readErr, "reading bitbucket response")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, c.classifyStatus(resp, body)
		}

		var page pageResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fleeterr.ProtocolFailure(err, "parsing bitbucket repository page")
		}
		for _, r := range page.Values {
			out = append(out, convertRepo(r))
		}
		url = page.Next
	}
	return out, nil
}

func (c *Client) FetchUserInfo(ctx context.Context) (provider.UserInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/user")
	if err != nil {
		return provider.UserInfo{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.UserInfo{}, fleeterr.TransportFailure(err, "reading bitbucket user response")
	}
	if resp.StatusCode != http.StatusOK {
		return provider.UserInfo{}, c.classifyStatus(resp, body)
	}
	var u userResponse
	if err := json.Unmarshal(body, &u); err != nil {
		return provider.UserInfo{}, fleeterr.ProtocolFailure(err, "parsing bitbucket user")
	}
	return provider.UserInfo{Login: u.Username, Name: u.DisplayName, Type: provider.Bitbucket, RawData: u}, nil
}

// GetRateLimit is not implemented by Bitbucket Cloud; it reports an
// unset quota rather than fabricating one.
func (c *Client) GetRateLimit(ctx context.Context) (provider.RateLimitInfo, error) {
	return provider.RateLimitInfo{Type: provider.Bitbucket}, nil
}

func (c *Client) FetchRepositoryDetails(ctx context.Context, owner, repo string) (provider.RepoDetails, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/repositories/%s/%s", c.baseURL, owner, repo))
	if err != nil {
		return provider.RepoDetails{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.RepoDetails{}, fleeterr.TransportFailure(err, "reading bitbucket repository response")
	}
	if resp.StatusCode != http.StatusOK {
		return provider.RepoDetails{}, c.classifyStatus(resp, body)
	}
	var r apiRepo
	if err := json.Unmarshal(body, &r); err != nil {
		return provider.RepoDetails{}, fleeterr.ProtocolFailure(err, "parsing bitbucket repository")
	}
	return provider.RepoDetails{RepoInfo: convertRepo(r), Size: r.Size}, nil
}

// FetchContributors is unsupported: Bitbucket Cloud exposes no
// contributor-count endpoint analogous to GitHub's/GitLab's.
func (c *Client) FetchContributors(ctx context.Context, owner, repo string) ([]provider.ContributorInfo, error) {
	return nil, fleeterr.ProtocolFailure(nil, "bitbucket does not expose a contributors endpoint")
}

func (c *Client) FetchBranches(ctx context.Context, owner, repo string) ([]provider.BranchInfo, error) {
	var out []provider.BranchInfo
	url := fmt.Sprintf("%s/repositories/%s/%s/refs/branches?pagelen=100", c.baseURL, owner, repo)

	for url != "" {
		resp, err := c.do(ctx, http.MethodGet, url)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fleeterr.TransportFailure(readErr, "reading bitbucket branches response")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, c.classifyStatus(resp, body)
		}

		var page struct {
			Values []struct {
				Name   string `json:"name"`
				Target struct {
					Hash string `json:"hash"`
				} `json:"target"`
			} `json:"values"`
			Next string `json:"next"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fleeterr.ProtocolFailure(err, "parsing bitbucket branches")
		}
		for _, b := range page.Values {
			out = append(out, provider.BranchInfo{Name: b.Name, CommitSHA: b.Target.Hash, Type: provider.Bitbucket})
		}
		url = page.Next
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

func convertRepo(r apiRepo) provider.RepoInfo {
	info := provider.RepoInfo{
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		Fork:        r.Parent != nil,
		Type:        provider.Bitbucket,
		Owner:       &provider.UserInfo{Login: r.Owner.Username, Type: provider.Bitbucket},
	}
	if r.IsPrivate {
		info.Visibility = "private"
	} else {
		info.Visibility = "public"
	}
	if r.MainBranch != nil {
		info.DefaultBranch = r.MainBranch.Name
	}
	for _, link := range r.Links.Clone {
		if link.Name == "https" {
			info.CloneURL = link.Href
		}
	}
	if !r.CreatedOn.IsZero() {
		t := r.CreatedOn.Unix()
		info.CreatedAt = &t
	}
	if !r.UpdatedOn.IsZero() {
		t := r.UpdatedOn.Unix()
		info.UpdatedAt = &t
	}
	return info
}
