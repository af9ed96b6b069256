package cmd

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// gitCurrentHeadRef resolves repoRoot's current HEAD commit, the
// concrete implementation of pipeline.Options.CurrentHeadRef: the
// pipeline itself never imports a VCS library, so this shellout is
// supplied from the CLI that wires it.
func gitCurrentHeadRef(repoRoot string) (string, error) {
	out, err := runGit(repoRoot, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// gitCheckoutWorktree is the concrete worktree.Checkout implementation:
// it materializes ref into worktreePath via `git worktree add`, reusing
// the path if a worktree is already registered there.
func gitCheckoutWorktree(repoRoot, ref, worktreePath string) error {
	if _, err := runGit(repoRoot, "worktree", "add", "--force", "--detach", worktreePath, ref); err != nil {
		return fmt.Errorf("git worktree add %s %s: %w", worktreePath, ref, err)
	}
	return nil
}

// gitRemoveWorktree prunes a worktree this process created, best-effort
// — CleanupStale already drives eviction off the lease table regardless
// of whether the underlying directory still exists.
func gitRemoveWorktree(repoRoot, worktreePath string) error {
	_, err := runGit(repoRoot, "worktree", "remove", "--force", worktreePath)
	return err
}

func runGit(repoRoot string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s", msg)
	}
	return stdout.String(), nil
}
