package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repofleet/gitfleet/internal/application/fleetmanager"
	"github.com/repofleet/gitfleet/internal/application/listing"
	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/infrastructure/gitexec"
	"github.com/repofleet/gitfleet/internal/interfaces/tui"

	tea "github.com/charmbracelet/bubbletea"
)

// newProviderCommand builds the "list"/"clone" subcommand pair shared
// by github, gitlab, and bitbucket, generalizing the teacher's
// per-provider command duplication (clone.go and
// interfaces/cli/fang's Bitbucket equivalent) into one implementation
// parameterized on provider.Type.
func newProviderCommand(use, short string, t provider.Type) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}
	cmd.AddCommand(newListCommand(t))
	cmd.AddCommand(newCloneCommand(t))
	return cmd
}

func newGitHubCommand() *cobra.Command {
	return newProviderCommand("github", "GitHub repository operations", provider.GitHub)
}

func newGitLabCommand() *cobra.Command {
	return newProviderCommand("gitlab", "GitLab repository operations", provider.GitLab)
}

func newBitbucketCommand() *cobra.Command {
	return newProviderCommand("bitbucket", "Bitbucket repository operations", provider.Bitbucket)
}

func filterFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("skip-forks", listing.NewFilter().SkipForks, "Skip forked repositories")
	cmd.Flags().String("language", "", "Keep only repositories in this language")
	cmd.Flags().String("name-prefix", "", "Keep only repositories whose name has this prefix")
	cmd.Flags().Int("min-stars", 0, "Keep only repositories with at least this many stargazers")
}

func filterFromFlags(cmd *cobra.Command) (listing.Filter, error) {
	skipForks, err := cmd.Flags().GetBool("skip-forks")
	if err != nil {
		return listing.Filter{}, err
	}
	language, err := cmd.Flags().GetString("language")
	if err != nil {
		return listing.Filter{}, err
	}
	prefix, err := cmd.Flags().GetString("name-prefix")
	if err != nil {
		return listing.Filter{}, err
	}
	minStars, err := cmd.Flags().GetInt("min-stars")
	if err != nil {
		return listing.Filter{}, err
	}
	return listing.Filter{
		SkipForks:     skipForks,
		Language:      language,
		NamePrefix:    prefix,
		MinStargazers: minStars,
	}, nil
}

func newListCommand(t provider.Type) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <owner>",
		Short: fmt.Sprintf("List %s repositories for an owner", t),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, t, args[0])
		},
	}
	filterFlags(cmd)
	cmd.Flags().String("format", "table", "Output format: table or json")
	return cmd
}

func runList(cmd *cobra.Command, t provider.Type, owner string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.ProviderClient(t)
	if err != nil {
		return err
	}

	result, err := listing.Fetch(cmd.Context(), client, owner, filter, app.Logger())
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return printRepoTable(result)
	}
}

func printRepoTable(result listing.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLANGUAGE\tFORK\tVISIBILITY\tCLONE URL")
	for _, r := range result.Repositories {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", r.Name, r.Language, r.Fork, r.Visibility, r.CloneURL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d repositories (%d filtered out of %d total)\n",
		len(result.Repositories), result.FilteredOut, result.TotalCount)
	return nil
}

func newCloneCommand(t provider.Type) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone <owner>",
		Short: fmt.Sprintf("Clone every %s repository for an owner", t),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClone(cmd, t, args[0])
		},
	}
	filterFlags(cmd)
	cmd.Flags().Int("depth", 0, "Clone depth (0 = full history)")
	cmd.Flags().String("branch", "", "Specific branch to clone (default: repository default branch)")
	cmd.Flags().Bool("watch", true, "Show a live TUI while cloning")
	return cmd
}

func runClone(cmd *cobra.Command, t provider.Type, owner string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}
	branch, err := cmd.Flags().GetString("branch")
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.ProviderClient(t)
	if err != nil {
		return err
	}

	result, err := listing.Fetch(cmd.Context(), client, owner, filter, app.Logger())
	if err != nil {
		return err
	}
	if len(result.Repositories) == 0 {
		fmt.Printf("no repositories found for %s/%s\n", t, owner)
		return nil
	}

	urls := make([]string, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		urls = append(urls, r.CloneURL)
	}

	destDir := filepath.Join(cfg.BaseDir, owner)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	manager, err := fleetmanager.New(urls, fleetmanager.Config{
		Logger:      app.Logger(),
		BaseDir:     destDir,
		Concurrency: cfg.Concurrency,
		Credentials: app.CloneCredentials(t),
		CloneOpts:   gitexec.Options{Depth: depth, Branch: branch},
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	fmt.Printf("gitfleet - cloning %d repositories from %s/%s into %s\n", len(urls), t, owner, destDir)

	if !watch {
		failures := manager.CloneAll(cmd.Context())
		printCloneSummary(manager, failures)
		return nil
	}

	model := tui.New(cmd.Context(), manager, app.TUILogger(), fmt.Sprintf("%s/%s", t, owner))
	p := tea.NewProgram(model)
	_, err = p.Run()
	return err
}

func printCloneSummary(manager *fleetmanager.Manager, failures map[string]error) {
	tasks := manager.FetchCloneTasks()
	completed := len(tasks) - len(failures)
	fmt.Printf("clone run finished: %d completed, %d failed (of %d)\n", completed, len(failures), len(tasks))
	for url, err := range failures {
		fmt.Printf("  %s: %v\n", url, err)
	}
}
