package services

import (
	"os"
	"path/filepath"
	"testing"

	"postdesk/pkg/config"

	"github.com/stretchr/testify/require"
)

// setupRepo points the config at an empty Hugo site in a temp dir.
func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	prevRepo, prevPublic := config.RepoPath, config.PublicPath
	prevContent, prevSection, prevStatic := config.ContentDir, config.PostsSection, config.StaticDir
	prevCMS, prevMedia := config.CMSConfig, config.MediaDir
	t.Cleanup(func() {
		config.RepoPath, config.PublicPath = prevRepo, prevPublic
		config.ContentDir, config.PostsSection, config.StaticDir = prevContent, prevSection, prevStatic
		config.CMSConfig, config.MediaDir = prevCMS, prevMedia
		InvalidateCache()
	})

	config.SetRepoPath(root)
	config.ContentDir = "content"
	config.PostsSection = "posts"
	config.StaticDir = "static"
	config.CMSConfig = "static/admin/config.yml"
	config.MediaDir = ""
	InvalidateCache()

	require.NoError(t, os.MkdirAll(config.PostsDir(), 0755))
	return root
}

// writeFile writes content at a repo-relative path.
func writeFile(t *testing.T, rel, content string) string {
	t.Helper()
	full := filepath.Join(config.RepoPath, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	return full
}

func writePost(t *testing.T, name, content string) string {
	t.Helper()
	return writeFile(t, "content/posts/"+name, content)
}
