package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"postdesk/pkg/config"
	"postdesk/pkg/models"
	"postdesk/pkg/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	prevRepo, prevPublic := config.RepoPath, config.PublicPath
	t.Cleanup(func() {
		config.RepoPath, config.PublicPath = prevRepo, prevPublic
		services.InvalidateCache()
	})
	config.SetRepoPath(root)
	config.ContentDir, config.PostsSection, config.StaticDir = "content", "posts", "static"
	config.CMSConfig, config.MediaDir = "static/admin/config.yml", ""
	services.InvalidateCache()
	require.NoError(t, os.MkdirAll(config.PostsDir(), 0755))

	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("test-secret"))))
	g := r.Group("/api")
	g.GET("/posts", ListArticles)
	g.GET("/post", GetArticle)
	g.POST("/post", SaveArticle)
	g.POST("/create", CreateArticle)
	g.POST("/diff", GetDiff)
	g.GET("/tags", ListTags)
	g.GET("/lint", LintPosts)
	g.POST("/preview", PreviewBody)
	g.GET("/config", GetConfig)
	g.GET("/media", ListMedia)
	g.POST("/media", UploadMedia)
	g.DELETE("/media", DeleteMedia)
	g.GET("/media/raw", ServeMediaRaw)
	g.POST("/sync", HandleSync)
	return r
}

func writePost(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(config.PostsDir(), name), []byte(content), 0644))
}

func doJSON(t *testing.T, r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListArticlesAndTags(t *testing.T) {
	r := setupRouter(t)
	writePost(t, "2024-01-01-redis.md", "---\ntitle: Redis\ndate: 2024-01-01\ndraft: false\ntags: [redis, db]\n---\nBody\n")
	writePost(t, "2024-01-02-draft.md", "---\ntitle: Draft\ndate: 2024-01-02\ndraft: true\ntags: [db]\n---\nBody\n")

	w := doJSON(t, r, http.MethodGet, "/api/posts?drafts=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var articles []models.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "Redis", articles[0].Title)

	w = doJSON(t, r, http.MethodGet, "/api/posts?tag=db", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	assert.Len(t, articles, 2)

	w = doJSON(t, r, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tags []models.TagCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, "db", tags[0].Tag)
	assert.Equal(t, 2, tags[0].Count)
}

func TestCreateGetSaveArticle(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/create", gin.H{"title": "SSH tunnels", "date": "2024-02-03T00:00:00Z", "tags": []string{"ssh"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct{ Path string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "posts/2024-02-03-ssh-tunnels.md", created.Path)

	w = doJSON(t, r, http.MethodPost, "/api/create", gin.H{"title": "SSH tunnels", "date": "2024-02-03T00:00:00Z"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/create", gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/post?path="+created.Path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var art models.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &art))
	assert.Equal(t, "SSH tunnels", art.Title)
	assert.Equal(t, "yaml", art.Format)

	art.Body = "Port forwarding basics."
	w = doJSON(t, r, http.MethodPost, "/api/post", art)
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := services.ReadPost(created.Path)
	require.NoError(t, err)
	assert.Equal(t, "Port forwarding basics.", saved.Body)

	w = doJSON(t, r, http.MethodGet, "/api/post?path=posts/missing.md", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/post?path=../../etc/passwd", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/post", gin.H{"path": "../x.md", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLintEndpoint(t *testing.T) {
	r := setupRouter(t)
	writePost(t, "2024-01-01-ok.md", "---\ntitle: OK\ndate: 2024-01-01\ndraft: false\ntags: [a]\n---\nBody\n")
	writePost(t, "bad name.md", "---\ntitle: Bad\ndate: 2024-01-01\ndraft: false\ntags: [b]\n---\n```\ncode\n```\n")

	w := doJSON(t, r, http.MethodGet, "/api/lint", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Report   models.Report `json:"report"`
		Errors   int           `json:"errors"`
		Warnings int           `json:"warnings"`
		Failed   bool          `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Report.Files)
	assert.Equal(t, 1, resp.Errors)
	assert.Equal(t, 1, resp.Warnings)
	assert.True(t, resp.Failed)

	w = doJSON(t, r, http.MethodGet, "/api/lint?path=posts/2024-01-01-ok.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Report.Files)
	assert.False(t, resp.Failed)

	w = doJSON(t, r, http.MethodGet, "/api/lint?path=posts/nope.md", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	r := setupRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/preview", gin.H{"body": "# Hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.HTML, `<h1 id="hello">Hello</h1>`)
}

func TestDiffEndpointReportsChange(t *testing.T) {
	r := setupRouter(t)
	writePost(t, "2024-01-01-a.md", "---\ntitle: A\n---\nBody\n")

	w := doJSON(t, r, http.MethodPost, "/api/diff", gin.H{
		"path":        "posts/2024-01-01-a.md",
		"frontmatter": gin.H{"title": "A"},
		"body":        "Body",
		"format":      "yaml",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Changed bool `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Changed)

	w = doJSON(t, r, http.MethodPost, "/api/diff", gin.H{
		"path":        "posts/2024-01-01-a.md",
		"frontmatter": gin.H{"title": "B"},
		"body":        "Body",
		"format":      "yaml",
	})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
}

func TestConfigEndpoint(t *testing.T) {
	r := setupRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	cfgPath := filepath.Join(config.RepoPath, config.CMSConfig)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0755))
	require.NoError(t, os.WriteFile(cfgPath, []byte("media_folder: static/images\n"), 0644))
	w = doJSON(t, r, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "static/images")
}

func TestMediaEndpoints(t *testing.T) {
	r := setupRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "chart.png")
	require.NoError(t, err)
	fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved services.MediaFile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))

	w = doJSON(t, r, http.MethodGet, "/api/media", nil)
	var files []services.MediaFile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	require.Len(t, files, 1)

	w = doJSON(t, r, http.MethodGet, "/api/media/raw?name="+saved.Name, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	w = doJSON(t, r, http.MethodDelete, "/api/media", gin.H{"name": saved.Name})
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/media/raw?name="+saved.Name, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/media", gin.H{"name": saved.Name})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncRequiresToken(t *testing.T) {
	r := setupRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/sync", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDiffEndpointFailsWithoutTempDir(t *testing.T) {
	r := setupRouter(t)
	writePost(t, "2024-01-01-a.md", "---\ntitle: A\n---\nBody\n")
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))

	w := doJSON(t, r, http.MethodPost, "/api/diff", gin.H{
		"path":        "posts/2024-01-01-a.md",
		"frontmatter": gin.H{"title": "B"},
		"body":        "Body",
		"format":      "yaml",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWriteTemp(t *testing.T) {
	path, err := writeTemp("diff_test_*", []byte("content"))
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = writeTemp("bad/pattern_*", []byte("x"))
	assert.Error(t, err)
}
