package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"postdesk/pkg/config"
	"postdesk/pkg/models"
	"postdesk/pkg/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func sessionToken(c *gin.Context) (string, bool) {
	token, ok := sessions.Default(c).Get("access_token").(string)
	return token, ok && token != ""
}

func HandleBuild(c *gin.Context) {
	log, err := services.BuildSite(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func HandleSync(c *gin.Context) {
	token, ok := sessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	log, err := services.SyncRepo(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func HandlePublish(c *gin.Context) {
	token, ok := sessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	log, err := services.PublishRepo(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "log": log})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "log": log})
}

func ListArticles(c *gin.Context) {
	articles, err := services.GetArticlesCache()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch articles"})
		return
	}
	includeDrafts := true
	if v := c.Query("drafts"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			includeDrafts = b
		}
	}
	c.JSON(http.StatusOK, services.FilterArticles(articles, c.Query("tag"), includeDrafts))
}

func ListTags(c *gin.Context) {
	articles, err := services.GetArticlesCache()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch articles"})
		return
	}
	c.JSON(http.StatusOK, services.TagIndex(articles))
}

func GetArticle(c *gin.Context) {
	art, err := services.ReadPost(c.Query("path"))
	if errors.Is(err, services.ErrInvalidPath) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.JSON(http.StatusOK, art)
}

func SaveArticle(c *gin.Context) {
	var art models.Article
	if err := c.BindJSON(&art); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := services.SavePost(art); err != nil {
		if errors.Is(err, services.ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Save failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func CreateArticle(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	path, err := services.CreatePost(req)
	switch {
	case errors.Is(err, services.ErrPostExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTitleRequired), errors.Is(err, services.ErrInvalidFilename), errors.Is(err, services.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed: " + err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{"status": "created", "path": path})
	}
}

func GetDiff(c *gin.Context) {
	var art models.Article
	if err := c.BindJSON(&art); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	fullPath := services.SafeJoin(config.RepoPath, config.ContentDir, art.Path)
	if fullPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
		return
	}

	collection := services.PostsCollection()
	currentContent, err := os.ReadFile(fullPath)
	if err != nil {
		currentContent = []byte("")
	}
	currentContent = services.NormalizeContent(currentContent, collection)

	newContent, err := services.RenderPostFile(art)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Construction failed"})
		return
	}
	newContent = services.NormalizeContent(newContent, collection)

	oldPath, err := writeTemp("diff_old_*", currentContent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Temp file failed"})
		return
	}
	defer os.Remove(oldPath)
	newPath, err := writeTemp("diff_new_*", newContent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Temp file failed"})
		return
	}
	defer os.Remove(newPath)

	relPath := filepath.ToSlash(filepath.Join(config.ContentDir, art.Path))
	diffStr, diffType := services.Diff(c.Request.Context(), oldPath, newPath, relPath)

	c.JSON(http.StatusOK, gin.H{
		"diff":    diffStr,
		"type":    diffType,
		"changed": !services.SameContent(currentContent, newContent, collection),
	})
}

// writeTemp stores content in a new temp file and returns its path. The file
// is removed again when the write fails.
func writeTemp(pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	_, werr := f.Write(content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func LintPosts(c *gin.Context) {
	linter := services.NewLinter(services.LintOptions{Strict: c.Query("strict") == "true"})

	var (
		report *models.Report
		err    error
	)
	if path := c.Query("path"); path != "" {
		report, err = linter.LintFile(c.Request.Context(), path)
	} else {
		report, err = linter.Lint(c.Request.Context())
	}
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lint failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":   report,
		"errors":   report.Errors(),
		"warnings": report.Warnings(),
		"failed":   linter.Failed(report),
	})
}

func PreviewBody(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	html, err := services.RenderHTML([]byte(req.Body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": string(html)})
}

func GetConfig(c *gin.Context) {
	cfg, err := services.GetConfig()
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No collection config"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}
