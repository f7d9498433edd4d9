// Package layout detects the on-disk project arrangement (Classic,
// InRepoWorktrees, Container) and, for worktree-capable layouts, manages
// named feature worktrees. It shells out to git with
// exec.CommandContext and a bounded timeout, and returns sentinel errors
// for the caller to match with errors.Is.
package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

// DefaultGitTimeout bounds every git subprocess invocation this package
// makes.
const DefaultGitTimeout = 10 * time.Second

// Locator is the resolved layout for one project: its kind, its config
// root, its primary working tree root, and (for Container) the container
// root that holds the bare repository and feature worktrees.
type Locator struct {
	Kind            model.Layout
	ConfigRoot      string
	WorkingTreeRoot string
	ContainerRoot   string
	timeout         time.Duration
}

// Detect walks upward from startingPath probing, in order, for Container,
// then InRepoWorktrees, then Classic layout markers.
func Detect(startingPath string) (*Locator, error) {
	return DetectWithTimeout(startingPath, DefaultGitTimeout)
}

// DetectWithTimeout is Detect with an explicit git subprocess timeout, for
// callers (tests, slow filesystems) that need a different bound.
func DetectWithTimeout(startingPath string, timeout time.Duration) (*Locator, error) {
	abs, err := filepath.Abs(startingPath)
	if err != nil {
		return nil, fmt.Errorf("resolve starting path: %w", err)
	}

	for dir := abs; ; {
		if loc := detectContainer(dir, timeout); loc != nil {
			return loc, nil
		}
		if loc := detectGitLayout(dir, timeout); loc != nil {
			return loc, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, apperrors.ErrLayoutDetectionFailed
}

// detectContainer looks for a bare ".gt/" directory plus a sibling "main/"
// worktree — the container layout's defining marker.
func detectContainer(dir string, timeout time.Duration) *Locator {
	bareDir := filepath.Join(dir, ".gt")
	mainDir := filepath.Join(dir, "main")
	if !isDir(bareDir) || !isDir(mainDir) {
		return nil
	}
	return &Locator{
		Kind:            model.LayoutContainer,
		ConfigRoot:      filepath.Join(dir, ".repository"),
		WorkingTreeRoot: mainDir,
		ContainerRoot:   dir,
		timeout:         timeout,
	}
}

// detectGitLayout distinguishes Classic from InRepoWorktrees: both have a
// ".git" entry at dir, but InRepoWorktrees additionally has sibling
// directories that git recognizes as worktrees of the same repository.
func detectGitLayout(dir string, timeout time.Duration) *Locator {
	gitPath := filepath.Join(dir, ".git")
	if !pathExists(gitPath) {
		return nil
	}

	if siblings := siblingWorktrees(dir, timeout); len(siblings) > 0 {
		return &Locator{
			Kind:            model.LayoutInRepoWorktrees,
			ConfigRoot:      filepath.Join(dir, ".repository"),
			WorkingTreeRoot: dir,
			timeout:         timeout,
		}
	}

	return &Locator{
		Kind:            model.LayoutClassic,
		ConfigRoot:      filepath.Join(dir, ".repository"),
		WorkingTreeRoot: dir,
		timeout:         timeout,
	}
}

// siblingWorktrees returns the set of worktree paths (excluding dir
// itself) that git registers for the repository rooted at dir.
func siblingWorktrees(dir string, timeout time.Duration) []string {
	out, err := runGit(dir, timeout, "worktree", "list", "--porcelain")
	if err != nil {
		return nil
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "worktree "); ok {
			if p := strings.TrimSpace(rest); p != "" && filepath.Clean(p) != filepath.Clean(dir) {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// runGit runs a git subcommand in dir with the package's bounded timeout,
// returning combined output with its trailing newline trimmed.
func runGit(dir string, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out after %s", args[0], timeout)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &apperrors.CommandFailedError{
			Command:  "git " + strings.Join(args, " "),
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(string(out)),
		}
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentBranch returns the branch checked out at l.WorkingTreeRoot.
func (l *Locator) CurrentBranch() (string, error) {
	out, err := runGit(l.WorkingTreeRoot, l.timeout, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", fmt.Errorf("detached HEAD at %s", l.WorkingTreeRoot)
	}
	return out, nil
}

// RequireKind returns a LayoutMismatchError if l is not of kind want.
func (l *Locator) RequireKind(want model.Layout) error {
	if l.Kind != want {
		return &apperrors.LayoutMismatchError{Expected: string(want), Found: string(l.Kind)}
	}
	return nil
}
