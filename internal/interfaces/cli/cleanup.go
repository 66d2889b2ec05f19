package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// newCleanupCommand sweeps a base directory for leftover
// "gitfleet-*" temp clone directories from a process that was
// interrupted before its own Manager.Cleanup could run (the registry
// that tracks those directories lives only in that process's memory,
// so a crashed run leaves no record to clean itself up).
func newCleanupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup <base-dir>",
		Short: "Remove leftover temp clone directories under base-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(args[0])
		},
	}
	return cmd
}

func runCleanup(baseDir string) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", baseDir, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "gitfleet-") {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			fmt.Printf("failed to remove %s: %v\n", path, err)
			continue
		}
		removed++
	}

	fmt.Printf("removed %d stale temp clone director%s under %s\n", removed, plural(removed), baseDir)
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
