package listing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofleet/gitfleet/internal/application/listing"
	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/infrastructure/logging"
)

type fakeClient struct {
	repos []provider.RepoInfo
}

func (f *fakeClient) FetchRepositories(ctx context.Context, owner string) ([]provider.RepoInfo, error) {
	return f.repos, nil
}
func (f *fakeClient) FetchUserInfo(ctx context.Context) (provider.UserInfo, error) { return provider.UserInfo{}, nil }
func (f *fakeClient) GetRateLimit(ctx context.Context) (provider.RateLimitInfo, error) {
	return provider.RateLimitInfo{}, nil
}
func (f *fakeClient) FetchRepositoryDetails(ctx context.Context, owner, repo string) (provider.RepoDetails, error) {
	return provider.RepoDetails{}, nil
}
func (f *fakeClient) FetchContributors(ctx context.Context, owner, repo string) ([]provider.ContributorInfo, error) {
	return nil, nil
}
func (f *fakeClient) FetchBranches(ctx context.Context, owner, repo string) ([]provider.BranchInfo, error) {
	return nil, nil
}
func (f *fakeClient) ValidateCredentials(ctx context.Context) (bool, error) { return true, nil }

func star(n int) *int { return &n }

func TestFetch_FiltersForksAndLanguage(t *testing.T) {
	client := &fakeClient{repos: []provider.RepoInfo{
		{Name: "a", Fork: true, Language: "Go"},
		{Name: "b", Fork: false, Language: "Go"},
		{Name: "c", Fork: false, Language: "Python"},
	}}

	res, err := listing.Fetch(context.Background(), client, "octocat", listing.Filter{SkipForks: true, Language: "go"}, logging.NewNoOpLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 2, res.FilteredOut)
	require.Len(t, res.Repositories, 1)
	assert.Equal(t, "b", res.Repositories[0].Name)
}

func TestNewFilter_SkipsForksByDefault(t *testing.T) {
	assert.True(t, listing.NewFilter().SkipForks)
}

func TestFetch_FiltersByMinStargazers(t *testing.T) {
	client := &fakeClient{repos: []provider.RepoInfo{
		{Name: "low", StargazersCount: star(2)},
		{Name: "high", StargazersCount: star(200)},
		{Name: "unknown"},
	}}

	res, err := listing.Fetch(context.Background(), client, "octocat", listing.Filter{MinStargazers: 100}, logging.NewNoOpLogger())
	require.NoError(t, err)
	require.Len(t, res.Repositories, 1)
	assert.Equal(t, "high", res.Repositories[0].Name)
}
