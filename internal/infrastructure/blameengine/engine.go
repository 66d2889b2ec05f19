// Package blameengine implements the Blame Engine (spec §4.3): bulk
// per-file blame over a cloned repository. Validation that repoPath is
// really a usable git worktree is grounded on the teacher's
// infrastructure/git/validator.go (ValidateDestinationPath,
// repositoryExists) but performed with go-git/v5's PlainOpen instead
// of hand-rolled os.Stat checks, since go-git already encodes every
// edge case (bare repos, missing HEAD, corrupt refs) the teacher
// checked for by hand. Per-file blame itself still shells out to the
// native git binary (git blame --line-porcelain), matching the
// teacher's os/exec idiom for anything that needs real git semantics,
// since go-git's own blame implementation is markedly slower on large
// histories and the spec's bulk-blame contract is defined in terms of
// git's own porcelain output.
package blameengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-git/v5"

	"github.com/repofleet/gitfleet/internal/domain/blame"
	"github.com/repofleet/gitfleet/internal/domain/shared"
	"github.com/repofleet/gitfleet/internal/fleeterr"
	"github.com/repofleet/gitfleet/internal/infrastructure/workerpool"
)

// Engine runs bulk blame over a single repository checkout.
type Engine struct {
	gitPath string
	logger  shared.Logger
	pool    *workerpool.Pool
}

// New locates the git binary and wraps pool for fan-out. pool may be
// shared with other callers; Engine never calls Release on it.
func New(logger shared.Logger, pool *workerpool.Pool) (*Engine, error) {
	path, err := exec.LookPath("git")
	if err != nil {
		return nil, fleeterr.RepositoryFailure(err, "git binary not found in PATH")
	}
	return &Engine{gitPath: path, logger: logger, pool: pool}, nil
}

// BulkBlame blames every path in files against repoPath's HEAD,
// returning one blame.Result per requested path in the same order.
// A single file's failure (missing path, binary content, escape
// attempt) is isolated into that file's Result.Err and never aborts
// the others.
func (e *Engine) BulkBlame(ctx context.Context, repoPath string, files []string) ([]blame.Result, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fleeterr.RepositoryFailure(err, "opening repository at %s", repoPath)
	}
	if _, err := repo.Head(); err != nil {
		return nil, fleeterr.RepositoryFailure(err, "repository at %s has no HEAD", repoPath)
	}

	results := make([]blame.Result, len(files))
	var wg sync.WaitGroup

	for i, f := range files {
		i, f := i, f
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			results[i] = e.blameFile(ctx, repoPath, f)
		})
		if err != nil {
			results[i] = blame.Result{Err: fmt.Sprintf("submit blame job: %v", err)}
			wg.Done()
		}
	}
	wg.Wait()

	return results, nil
}

func (e *Engine) blameFile(ctx context.Context, repoPath, relPath string) blame.Result {
	fullPath, err := securejoin.SecureJoin(repoPath, relPath)
	if err != nil {
		return blame.Result{Err: fmt.Sprintf("path escapes repository: %v", err)}
	}

	cmd := exec.CommandContext(ctx, e.gitPath, "-C", repoPath, "blame", "--line-porcelain", "HEAD", "--", relPath)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return blame.Result{Err: err.Error()}
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return blame.Result{Err: err.Error()}
	}

	lines, parseErr := parsePorcelain(out)

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return blame.Result{Err: fmt.Sprintf("git blame %s: %s", fullPath, msg)}
	}
	if parseErr != nil {
		return blame.Result{Err: parseErr.Error()}
	}

	return blame.Result{Lines: lines}
}

// parsePorcelain parses `git blame --line-porcelain` output into
// blame.Line records. The porcelain format emits, per attributed
// line, a header "<sha> <orig-line> <final-line> [group-size]"
// followed by metadata keys (author, author-mail, ...) the first time
// a commit is seen, then a line prefixed with a tab holding the
// content itself.
func parsePorcelain(r io.Reader) ([]blame.Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	type commitMeta struct {
		authorName, authorEmail string
	}
	meta := make(map[string]commitMeta)

	var lines []blame.Line
	var cur blame.Line
	var curMeta commitMeta

	for scanner.Scan() {
		text := scanner.Text()
		switch {
		case strings.HasPrefix(text, "\t"):
			cur.LineContent = text[1:]
			cur.AuthorName = curMeta.authorName
			cur.AuthorEmail = curMeta.authorEmail
			lines = append(lines, cur)
		case strings.HasPrefix(text, "author "):
			curMeta.authorName = strings.TrimPrefix(text, "author ")
			meta[cur.CommitID] = curMeta
		case strings.HasPrefix(text, "author-mail "):
			email := strings.TrimPrefix(text, "author-mail ")
			curMeta.authorEmail = strings.Trim(email, "<>")
			meta[cur.CommitID] = curMeta
		case isHeaderLine(text):
			fields := strings.Fields(text)
			cur = blame.Line{CommitID: fields[0]}
			if len(fields) >= 3 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					cur.OrigLineNo = n
				}
				if n, err := strconv.Atoi(fields[2]); err == nil {
					cur.FinalLineNo = n
				}
			}
			if m, ok := meta[cur.CommitID]; ok {
				curMeta = m
			} else {
				curMeta = commitMeta{}
			}
		default:
			// Other porcelain metadata keys (committer, summary, ...)
			// are not part of blame.Line and are ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning blame output: %w", err)
	}
	return lines, nil
}

// isHeaderLine reports whether text opens a new porcelain block: a
// 40-or-64-hex-char SHA followed by two or three space-separated
// integers.
func isHeaderLine(text string) bool {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return false
	}
	sha := fields[0]
	if len(sha) != 40 && len(sha) != 64 {
		return false
	}
	for _, c := range sha {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	_, err1 := strconv.Atoi(fields[1])
	_, err2 := strconv.Atoi(fields[2])
	return err1 == nil && err2 == nil
}
