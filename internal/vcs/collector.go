// Package vcs collects working tree changes from git for code review.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Status values reported for changed files.
const (
	StatusModified  = "M"
	StatusUntracked = "??"
)

// DiffContext is the number of context lines around each hunk.
const DiffContext = 10

// ErrNotRepository is returned when the directory is not inside a git work tree.
var ErrNotRepository = errors.New("either git is not found or the git repository is not initialized in the workspace")

// Options configures CollectChanges.
type Options struct {
	// Exclude holds doublestar globs matched against repository-relative
	// slash paths.
	Exclude []string
}

// CollectChanges lists the tracked changes and untracked files under
// workDir, in git's order, tracked first. Modified files carry their diff,
// untracked files their content; other statuses carry an empty diff.
func CollectChanges(ctx context.Context, workDir string, opts Options) ([]types.ChangedFile, error) {
	root, err := gitOutput(ctx, workDir, "rev-parse", "--show-toplevel")
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not a git repository") {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}

	tracked, err := changedFiles(ctx, root)
	if err != nil {
		return nil, err
	}
	untracked, err := untrackedFiles(ctx, root)
	if err != nil {
		return nil, err
	}

	files := make([]types.ChangedFile, 0, len(tracked)+len(untracked))
	for _, f := range append(tracked, untracked...) {
		if excluded(f.FilePath, opts.Exclude) {
			logging.Debug().Str("file", f.FilePath).Msg("skipping excluded file")
			continue
		}

		abs := filepath.Join(root, filepath.FromSlash(f.FilePath))
		switch f.Status {
		case StatusUntracked:
			data, err := os.ReadFile(abs)
			if err != nil {
				logging.Warn().Err(err).Str("file", abs).Msg("failed to read untracked file")
				break
			}
			f.GitDiff = fmt.Sprintf("New file with name \"%s\" in added in GIT \n\n %s", filepath.Base(abs), data)
		case StatusModified:
			diff, err := gitOutput(ctx, root, "diff", fmt.Sprintf("--unified=%d", DiffContext), "--", f.FilePath)
			if err != nil {
				return nil, err
			}
			f.GitDiff = diff
		}
		f.FilePath = abs
		files = append(files, f)
	}
	return files, nil
}

// changedFiles parses `git diff --name-status -z`. Paths are relative to
// the repository root and arrive unquoted.
func changedFiles(ctx context.Context, dir string) ([]types.ChangedFile, error) {
	out, err := gitRaw(ctx, dir, "diff", "--name-status", "-z", "--diff-filter=ACDMRTUXB")
	if err != nil {
		return nil, err
	}

	var files []types.ChangedFile
	fields := splitNUL(out)
	for i := 0; i < len(fields); {
		status := fields[i]
		if status == "" {
			i++
			continue
		}
		// Renames and copies list the old and the new path; keep the new one.
		paths := 1
		if status[0] == 'R' || status[0] == 'C' {
			paths = 2
		}
		if i+paths >= len(fields) {
			break
		}
		files = append(files, types.ChangedFile{
			Status:   status[:1],
			FilePath: fields[i+paths],
		})
		i += paths + 1
	}
	return files, nil
}

// untrackedFiles parses `git status --porcelain -z` for untracked entries.
// Porcelain paths are relative to the repository root.
func untrackedFiles(ctx context.Context, dir string) ([]types.ChangedFile, error) {
	out, err := gitRaw(ctx, dir, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}

	var files []types.ChangedFile
	entries := splitNUL(out)
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		xy, path := entry[:2], entry[3:]
		if xy[0] == 'R' || xy[0] == 'C' {
			// The original path follows as its own entry.
			i++
			continue
		}
		if xy != StatusUntracked {
			continue
		}
		files = append(files, types.ChangedFile{
			Status:   StatusUntracked,
			FilePath: path,
		})
	}
	return files, nil
}

func excluded(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Branch returns the current branch of workDir, or "" outside a repository.
func Branch(ctx context.Context, workDir string) string {
	out, err := gitOutput(ctx, workDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return out
}

// gitOutput runs git in dir and returns its trimmed stdout.
func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := gitRaw(ctx, dir, args...)
	return strings.TrimSpace(out), err
}

// gitRaw runs git in dir and returns stdout untouched. Pathspecs are
// literal so file names with glob characters match themselves.
func gitRaw(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_LITERAL_PATHSPECS=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return string(out), nil
}

func splitNUL(s string) []string {
	s = strings.TrimSuffix(s, "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x00")
}
