package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repofleet/gitfleet/internal/infrastructure/blameengine"
	"github.com/repofleet/gitfleet/internal/infrastructure/workerpool"
)

func newBlameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blame <repo-path> <file> [file...]",
		Short: "Bulk-blame files within an already-cloned repository",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlame(cmd, args[0], args[1:])
		},
	}
	return cmd
}

func runBlame(cmd *cobra.Command, repoPath string, files []string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	pool, err := workerpool.New(cfg.Concurrency, app.Logger())
	if err != nil {
		return err
	}
	defer pool.Release()

	engine, err := blameengine.New(app.Logger(), pool)
	if err != nil {
		return err
	}

	results, err := engine.BulkBlame(cmd.Context(), repoPath, files)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	for i, file := range files {
		res := results[i]
		if !res.Succeeded() {
			fmt.Fprintf(w, "%s\tERROR\t%s\n", file, res.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d lines\t\n", file, len(res.Lines))
		for _, line := range res.Lines {
			fmt.Fprintf(w, "  %s\t%s <%s>\t%d: %s\n",
				line.CommitID[:minInt(8, len(line.CommitID))], line.AuthorName, line.AuthorEmail,
				line.FinalLineNo, truncate(line.LineContent, 80))
		}
	}
	return w.Flush()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
