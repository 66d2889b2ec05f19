// Package provider defines the hosted-provider capability surface
// (spec §4.6) and its domain records (spec §3), shared by the GitHub,
// GitLab, and Bitbucket infrastructure clients. The capability
// interface follows the "no inheritance depth beyond one" design note:
// one flat interface, one struct per provider implementing it —
// grounded on Gizzahub-gzh-cli-gitforge/pkg/provider/types.go's
// provider-agnostic Provider interface.
package provider

import "context"

// Type names a hosted provider. GitLab and Bitbucket are "reserved"
// per spec §4.6's original phrasing, but both are implemented here
// since the retrieval pack supplies ready client libraries for them.
type Type string

const (
	GitHub    Type = "github"
	GitLab    Type = "gitlab"
	Bitbucket Type = "bitbucket"
)

// UserInfo is a provider-agnostic account record.
type UserInfo struct {
	ID        int64
	Login     string
	Name      string
	Email     string
	AvatarURL string
	Type      Type
	RawData   any
}

// RepoInfo is a provider-agnostic repository summary.
type RepoInfo struct {
	Name            string
	FullName        string
	CloneURL        string
	Description     string
	DefaultBranch   string
	CreatedAt       *int64 // epoch seconds, nil if unknown
	UpdatedAt       *int64
	Language        string
	Fork            bool
	ForksCount      int
	StargazersCount *int
	Type            Type
	Visibility      string
	Owner           *UserInfo
	RawData         any
}

// RepoDetails extends RepoInfo with the fields only a single-repo
// fetch exposes.
type RepoDetails struct {
	RepoInfo
	Topics      []string
	License     string
	Homepage    string
	HasWiki     bool
	HasIssues   bool
	HasProjects bool
	Archived    bool
	PushedAt    *int64
	Size        int64
}

// RateLimitInfo mirrors a provider's current API quota.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime int64 // epoch seconds
	Used      int
	Type      Type
}

// BranchInfo is a provider-agnostic branch summary.
type BranchInfo struct {
	Name      string
	CommitSHA string
	Protected bool
	Type      Type
}

// ContributorInfo is a provider-agnostic contributor summary.
type ContributorInfo struct {
	ID            int64
	Login         string
	Contributions int
	AvatarURL     string
	Type          Type
}

// Client is the capability set every provider implementation exposes
// (spec §4.6). Every method is cancellable via ctx.
type Client interface {
	FetchRepositories(ctx context.Context, owner string) ([]RepoInfo, error)
	FetchUserInfo(ctx context.Context) (UserInfo, error)
	GetRateLimit(ctx context.Context) (RateLimitInfo, error)
	FetchRepositoryDetails(ctx context.Context, owner, repo string) (RepoDetails, error)
	FetchContributors(ctx context.Context, owner, repo string) ([]ContributorInfo, error)
	FetchBranches(ctx context.Context, owner, repo string) ([]BranchInfo, error)
	// ValidateCredentials is defined as FetchUserInfo succeeding: an
	// authentication failure returns (false, nil); any other failure
	// propagates per spec §4.6.
	ValidateCredentials(ctx context.Context) (bool, error)
}
