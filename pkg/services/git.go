package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"postdesk/pkg/config"
)

// ExecuteGitWithToken runs git in dir with every occurrence of the remote name
// in args swapped for a token-authenticated remote URL. The token never
// appears in the returned log.
func ExecuteGitWithToken(ctx context.Context, dir, token string, args ...string) (string, error) {
	cmdGetURL := exec.CommandContext(ctx, "git", "remote", "get-url", config.GitRemote)
	cmdGetURL.Dir = dir
	outURL, err := cmdGetURL.Output()
	if err != nil {
		return "Failed to get remote url", err
	}
	remoteURL := strings.TrimSpace(string(outURL))
	authenticatedURL, err := authenticatedRemote(remoteURL, token)
	if err != nil {
		return "Invalid remote url", err
	}

	newArgs := make([]string, len(args))
	copy(newArgs, args)
	for i, v := range newArgs {
		if v == config.GitRemote {
			newArgs[i] = authenticatedURL
		}
	}
	cmd := exec.CommandContext(ctx, "git", newArgs...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	return scrubToken(string(output), token, authenticatedURL, remoteURL), err
}

func authenticatedRemote(remoteURL, token string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("remote %q is not an http(s) url", remoteURL)
	}
	u.User = url.UserPassword("oauth2", token)
	return u.String(), nil
}

func scrubToken(log, token, authenticatedURL, remoteURL string) string {
	if authenticatedURL != "" {
		log = strings.ReplaceAll(log, authenticatedURL, remoteURL)
	}
	if token != "" {
		log = strings.ReplaceAll(log, token, "***")
	}
	return log
}

func SyncRepo(ctx context.Context, token string) (string, error) {
	log, err := ExecuteGitWithToken(ctx, config.RepoPath, token, "pull", config.GitRemote, config.GitBranch)
	if err == nil {
		InvalidateCache()
	}
	return log, err
}

func PublishRepo(ctx context.Context, token string) (string, error) {
	addCmd := exec.CommandContext(ctx, "git", "add", config.ContentDir)
	addCmd.Dir = config.RepoPath
	if out, err := addCmd.CombinedOutput(); err != nil {
		return string(out), err
	}
	msg := fmt.Sprintf("Update posts: %s", time.Now().Format("2006-01-02 15:04:05"))
	staged, err := hasStagedChanges(ctx, config.RepoPath)
	if err != nil {
		return "", err
	}
	if staged {
		commitCmd := exec.CommandContext(ctx, "git",
			"-c", "user.name="+config.GitUserName,
			"-c", "user.email="+config.GitUserEmail,
			"commit", "-m", msg)
		commitCmd.Dir = config.RepoPath
		if out, err := commitCmd.CombinedOutput(); err != nil {
			return string(out), fmt.Errorf("git commit: %w", err)
		}
	}
	return ExecuteGitWithToken(ctx, config.RepoPath, token, "push", config.GitRemote, config.GitBranch)
}

// hasStagedChanges reports whether the index differs from HEAD.
func hasStagedChanges(ctx context.Context, dir string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff --cached: %w: %s", err, strings.TrimSpace(string(out)))
}

// Diff compares the saved file against the editor copy. When they match it
// falls back to the working tree diff against HEAD. The kind is "unsaved",
// "git" or "none".
func Diff(ctx context.Context, savedPath, editedPath, relPath string) (string, string) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--no-index", savedPath, editedPath)
	output, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		diffStr := string(output)
		diffStr = strings.ReplaceAll(diffStr, savedPath, "Saved (Normalized)")
		diffStr = strings.ReplaceAll(diffStr, editedPath, "Editor")
		return diffStr, "unsaved"
	}

	cmdGit := exec.CommandContext(ctx, "git", "diff", "HEAD", "--", relPath)
	cmdGit.Dir = config.RepoPath
	outGit, _ := cmdGit.CombinedOutput()

	if len(outGit) > 0 {
		return string(outGit), "git"
	}
	return "", "none"
}

func getGitDirtyFiles(ctx context.Context, dir string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parsePorcelain(string(out)), nil
}

func parsePorcelain(out string) map[string]bool {
	dirty := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new".
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		dirty[strings.Trim(path, "\"")] = true
	}
	return dirty
}
