package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kirillkom/git-guard/internal/core/domain"
)

// ChangeSource reads the staged change set of a working repository through
// the git CLI.
type ChangeSource struct {
	root string
}

func NewChangeSource(root string) *ChangeSource {
	return &ChangeSource{root: root}
}

// StagedChanges lists staged files with their diffs. Deleted files are
// skipped: there is nothing to review in code that is going away. A staged
// file without diff text (a rename, a new empty file) is kept with a
// placeholder so the analysis still sees the path.
func (s *ChangeSource) StagedChanges(ctx context.Context) ([]domain.ChangedFile, error) {
	out, err := s.git(ctx, "diff", "--cached", "--name-status")
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}

	var changes []domain.ChangedFile
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status, path := fields[0], fields[len(fields)-1]
		if strings.HasPrefix(status, "D") {
			continue
		}

		diff, err := s.git(ctx, "diff", "--cached", "--", path)
		if err != nil {
			return nil, fmt.Errorf("diff staged file %s: %w", path, err)
		}
		diff = strings.TrimSpace(diff)
		if diff == "" {
			diff = "(New File)"
		}
		changes = append(changes, domain.ChangedFile{Path: path, Diff: diff})
	}
	return changes, nil
}

// RepoName is the base name of the repository top-level directory.
func (s *ChangeSource) RepoName() string {
	out, err := s.git(context.Background(), "rev-parse", "--show-toplevel")
	if err != nil {
		return filepath.Base(s.root)
	}
	return filepath.Base(strings.TrimSpace(out))
}

func (s *ChangeSource) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return stdout.String(), nil
}
