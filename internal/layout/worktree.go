package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

// windowsReservedNames are device names Windows reserves regardless of
// extension; a feature slug matching one (case-insensitively) is rejected
// rather than silently renamed.
var windowsReservedNames = map[string]bool{
	"CON": true, "NUL": true, "PRN": true, "AUX": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

var nonSlugRune = regexp.MustCompile(`[^A-Za-z0-9_\-\p{L}\p{N}]`)
var dashRun = regexp.MustCompile(`-+`)

// Slugify converts a feature name into a filesystem- and git-branch-safe
// slug: any character outside [A-Za-z0-9_-] (unicode letters/digits
// included) is replaced with '-', runs of '-' collapse to one, and
// leading/trailing '-' are stripped.
func Slugify(name string) string {
	slug := nonSlugRune.ReplaceAllString(name, "-")
	slug = dashRun.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ValidWindowsSlug reports whether slug is safe to use as a directory name
// on Windows, rejecting the reserved device names regardless of case.
func ValidWindowsSlug(slug string) bool {
	base := slug
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return !windowsReservedNames[strings.ToUpper(base)]
}

func hasUnicodeAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// featurePath returns the on-disk path a feature worktree named slug would
// occupy, which differs by layout kind: Container keeps features as
// siblings of main/ inside the container root; InRepoWorktrees keeps them
// as siblings of the working tree root.
func (l *Locator) featurePath(slug string) string {
	switch l.Kind {
	case model.LayoutContainer:
		return filepath.Join(l.ContainerRoot, slug)
	default:
		return filepath.Join(filepath.Dir(l.WorkingTreeRoot), filepath.Base(l.WorkingTreeRoot)+"-"+slug)
	}
}

// featureNameFromPath recovers a feature's slug from its worktree path,
// inverting featurePath. Paths that don't match the expected naming
// scheme (e.g. the primary working tree itself) fall back to their base
// name.
func (l *Locator) featureNameFromPath(path string) string {
	switch l.Kind {
	case model.LayoutContainer:
		return filepath.Base(path)
	default:
		prefix := filepath.Base(l.WorkingTreeRoot) + "-"
		base := filepath.Base(path)
		if rest, ok := strings.CutPrefix(base, prefix); ok {
			return rest
		}
		return base
	}
}

// CreateFeature creates a named feature worktree checked out on a new
// branch from baseBranch. Fails with ErrFeatureExists if the target path
// already exists, ErrBaseBranchNotFound if baseBranch cannot be resolved.
// If the worktree is created but git's per-branch setup otherwise fails,
// the partial worktree is left in place (not silently discarded) and the
// error is returned so the caller can log it.
func (l *Locator) CreateFeature(name, baseBranch string) (model.Feature, error) {
	slug := Slugify(name)
	if slug == "" || !hasUnicodeAlnum(slug) {
		return model.Feature{}, fmt.Errorf("feature name %q has no usable characters after slugification", name)
	}
	if !ValidWindowsSlug(slug) {
		return model.Feature{}, fmt.Errorf("feature slug %q is a reserved Windows device name", slug)
	}

	path := l.featurePath(slug)
	if pathExists(path) {
		return model.Feature{}, apperrors.ErrFeatureExists
	}

	repoRoot := l.WorkingTreeRoot
	if _, err := runGit(repoRoot, l.timeout, "rev-parse", "--verify", baseBranch); err != nil {
		return model.Feature{}, apperrors.ErrBaseBranchNotFound
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.Feature{}, fmt.Errorf("prepare feature worktree parent: %w", err)
	}

	if _, err := runGit(repoRoot, l.timeout, "worktree", "add", "-b", slug, path, baseBranch); err != nil {
		return model.Feature{}, err
	}

	return model.Feature{Name: slug, Branch: slug, Path: path}, nil
}

// RemoveFeature deletes a feature worktree's directory and attempts to
// delete its branch. Per the cleanup policy, a branch-deletion failure
// (e.g. unmerged commits) does not fail the removal — it is downgraded to
// a returned warning string.
func (l *Locator) RemoveFeature(name string) (warning string, err error) {
	slug := Slugify(name)
	repoRoot := l.WorkingTreeRoot

	features, listErr := l.ListFeatures()
	if listErr != nil {
		return "", listErr
	}
	var target *model.Feature
	for i := range features {
		if features[i].Name == slug {
			target = &features[i]
			break
		}
	}
	if target == nil {
		return "", apperrors.ErrFeatureNotFound
	}

	if _, err := runGit(repoRoot, l.timeout, "worktree", "remove", target.Path, "--force"); err != nil {
		_ = os.RemoveAll(target.Path) //nolint:errcheck
	}

	if _, err := runGit(repoRoot, l.timeout, "branch", "-d", target.Branch); err != nil {
		return fmt.Sprintf("worktree removed but branch %q could not be deleted: %v", target.Branch, err), nil
	}
	return "", nil
}

// ListFeatures enumerates the feature worktrees registered against the
// project's repository, excluding the primary working tree.
func (l *Locator) ListFeatures() ([]model.Feature, error) {
	out, err := runGit(l.WorkingTreeRoot, l.timeout, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var features []model.Feature
	var cur model.Feature
	flush := func() {
		if cur.Path != "" && filepath.Clean(cur.Path) != filepath.Clean(l.WorkingTreeRoot) {
			features = append(features, cur)
		}
		cur = model.Feature{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			cur.Path = strings.TrimSpace(strings.TrimPrefix(line, "worktree "))
			cur.Name = l.featureNameFromPath(cur.Path)
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimSpace(strings.TrimPrefix(line, "branch "))
			cur.Branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	flush()
	return features, nil
}
