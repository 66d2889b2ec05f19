package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/repofleet/gitfleet/internal/infrastructure/commitextractor"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <repo-path>",
		Short: "Extract first-parent commit history from an already-cloned repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0])
		},
	}
	cmd.Flags().Int("limit", 0, "Maximum number of commits to print (0 = all)")
	return cmd
}

func runHistory(cmd *cobra.Command, repoPath string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	extractor, err := commitextractor.New(app.Logger())
	if err != nil {
		return err
	}

	records, err := extractor.Extract(cmd.Context(), repoPath)
	if err != nil {
		return err
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "SHA\tDATE\tAUTHOR\t+/-\tMERGE\tSUBJECT")
	for _, r := range records {
		date := time.Unix(r.CommitterTimestamp, 0).UTC().Format("2006-01-02")
		fmt.Fprintf(w, "%s\t%s\t%s\t+%d/-%d\t%t\t%s\n",
			r.SHA[:minInt(8, len(r.SHA))], date, r.AuthorName, r.Additions, r.Deletions, r.IsMerge, truncate(r.Message, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d commits\n", len(records))
	return nil
}
