// Package listing implements repository listing and filtering, a
// feature the distillation dropped but the teacher's
// application/usecases/fetch_repositories.go fully implements.
// Generalized from that use case's GitHub/Bitbucket-client switch to
// operate against any provider.Client, and from its single
// ShouldInclude filter to the small predicate set below.
package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/domain/shared"
)

// Filter narrows a fetched repository list. NewFilter is the default
// the CLI seeds (forks skipped, matching the teacher's
// NewRepositoryFilter); the zero value Filter{} instead includes
// everything, including forks, and exists for callers that build one
// field-by-field.
type Filter struct {
	SkipForks     bool
	Language      string // case-insensitive exact match; "" = any
	NamePrefix    string // case-insensitive prefix match; "" = any
	MinStargazers int
}

// NewFilter returns the default filter: forks skipped, everything else
// unrestricted.
func NewFilter() Filter {
	return Filter{SkipForks: true}
}

func (f Filter) include(r provider.RepoInfo) bool {
	if f.SkipForks && r.Fork {
		return false
	}
	if f.Language != "" && !strings.EqualFold(r.Language, f.Language) {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(strings.ToLower(r.Name), strings.ToLower(f.NamePrefix)) {
		return false
	}
	if f.MinStargazers > 0 {
		if r.StargazersCount == nil || *r.StargazersCount < f.MinStargazers {
			return false
		}
	}
	return true
}

// Result is the outcome of a Fetch call.
type Result struct {
	Repositories []provider.RepoInfo
	TotalCount   int
	FilteredOut  int
}

// Fetch lists owner's repositories via client and applies filter.
func Fetch(ctx context.Context, client provider.Client, owner string, filter Filter, logger shared.Logger) (Result, error) {
	logger.Info("fetching repositories", shared.StringField("owner", owner))

	repos, err := client.FetchRepositories(ctx, owner)
	if err != nil {
		return Result{}, fmt.Errorf("fetching repositories for %s: %w", owner, err)
	}

	kept := make([]provider.RepoInfo, 0, len(repos))
	filteredOut := 0
	for _, r := range repos {
		if filter.include(r) {
			kept = append(kept, r)
		} else {
			filteredOut++
		}
	}

	logger.Info("fetched repositories",
		shared.StringField("owner", owner),
		shared.IntField("total", len(repos)),
		shared.IntField("kept", len(kept)),
		shared.IntField("filtered_out", filteredOut))

	return Result{Repositories: kept, TotalCount: len(repos), FilteredOut: filteredOut}, nil
}
