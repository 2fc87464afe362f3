package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	repo, public, content, posts, static := RepoPath, PublicPath, ContentDir, PostsSection, StaticDir
	media, cc, level := MediaDir, CacheConcurrency, LogLevel
	t.Cleanup(func() {
		RepoPath, PublicPath, ContentDir, PostsSection, StaticDir = repo, public, content, posts, static
		MediaDir, CacheConcurrency, LogLevel = media, cc, level
		OauthConf = nil
	})
}

func TestInitReadsEnvironment(t *testing.T) {
	restoreGlobals(t)
	t.Setenv("REPO_PATH", "/srv/blog")
	t.Setenv("POSTS_SECTION", "articles")
	t.Setenv("CACHE_CONCURRENCY", "4")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_URL", "https://desk.example.com")

	Init()

	assert.Equal(t, "/srv/blog", RepoPath)
	assert.Equal(t, filepath.Join("/srv/blog", "public"), PublicPath)
	assert.Equal(t, filepath.Join("/srv/blog", "content", "articles"), PostsDir())
	assert.Equal(t, 4, CacheConcurrency)
	assert.Equal(t, "debug", LogLevel)
	require.NotNil(t, OauthConf)
	assert.Equal(t, "https://desk.example.com/auth/callback", OauthConf.RedirectURL)
}

func TestInitIgnoresInvalidConcurrency(t *testing.T) {
	restoreGlobals(t)
	CacheConcurrency = 20
	t.Setenv("CACHE_CONCURRENCY", "-3")

	Init()
	assert.Equal(t, 20, CacheConcurrency)
}

func TestSetRepoPath(t *testing.T) {
	restoreGlobals(t)
	SetRepoPath("/tmp/site")

	assert.Equal(t, filepath.Join("/tmp/site", "public"), PublicPath)
	assert.Equal(t, filepath.Join("/tmp/site", "content"), ContentRoot())
	assert.Equal(t, filepath.Join("/tmp/site", "static"), StaticRoot())
}
