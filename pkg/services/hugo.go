package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"postdesk/pkg/config"
	"postdesk/pkg/models"
)

var (
	ErrPostExists    = errors.New("post already exists")
	ErrTitleRequired = errors.New("title is required")
)

func BuildSite(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "hugo", buildArgs()...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// buildArgs writes the preview build to PublicPath, the directory served
// under PreviewURL.
func buildArgs() []string {
	dest := config.PublicPath
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return []string{
		"--source", config.RepoPath,
		"--destination", dest,
		"--baseURL", config.GetAppURL() + config.PreviewURL,
		"--cleanDestinationDir",
		"-D",
	}
}

// ServeSite runs hugo's development server with drafts until ctx is done.
func ServeSite(ctx context.Context, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "hugo", "server",
		"--source", config.RepoPath,
		"--bind", config.HugoServerBind,
		"--port", config.HugoServerPort,
		"-D",
	)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// CreatePost writes a new post file named after its date and slug. It returns
// the path relative to the content root.
func CreatePost(req models.CreatePostRequest) (string, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "", ErrTitleRequired
	}
	slug := req.Slug
	if slug == "" {
		slug = Slugify(title)
	}
	if !ValidSlug(slug) {
		return "", fmt.Errorf("%w: slug %q", ErrInvalidFilename, slug)
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	draft := true
	if req.Draft != nil {
		draft = *req.Draft
	}

	content, err := GeneratePostContent(PostsCollection(), map[string]interface{}{
		"title": title,
		"date":  date.Truncate(time.Second),
		"draft": draft,
		"tags":  tagsValue(req.Tags),
		"body":  req.Body,
	})
	if err != nil {
		return "", err
	}

	relPath := filepath.ToSlash(filepath.Join(config.PostsSection, PostFilename(date, slug)))
	fullPath := SafeJoin(config.RepoPath, config.ContentDir, relPath)
	if fullPath == "" {
		return "", ErrInvalidPath
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%w: %s", ErrPostExists, relPath)
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return "", err
	}

	InvalidateCache()
	return relPath, nil
}

func tagsValue(tags []string) []interface{} {
	out := make([]interface{}, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// GeneratePostContent builds a file from the collection's field defaults with
// overrides applied. The "body" key is the Markdown body.
func GeneratePostContent(collection *models.Collection, overrides map[string]interface{}) ([]byte, error) {
	fm := make(map[string]interface{})
	var bodyContent string
	if body, ok := overrides["body"].(string); ok {
		bodyContent = body
	}

	format := FormatYAML
	if collection != nil {
		if strings.HasPrefix(collection.Format, "toml") {
			format = FormatTOML
		}
		for _, field := range collection.Fields {
			if field.Name == "body" {
				if val, ok := field.Default.(string); ok && bodyContent == "" {
					bodyContent = val
				}
				continue
			}

			if field.Default != nil {
				fm[field.Name] = field.Default
				continue
			}
			switch field.Widget {
			case "datetime":
				fm[field.Name] = time.Now().Format(time.RFC3339)
			case "boolean":
				fm[field.Name] = false
			case "list":
				fm[field.Name] = []interface{}{}
			default:
				fm[field.Name] = ""
			}
		}
	}

	for k, v := range overrides {
		if k != "body" {
			fm[k] = v
		}
	}

	return ConstructFileContent(fm, bodyContent, format)
}

// ReadPost loads a content file for the editor.
func ReadPost(relPath string) (*models.Article, error) {
	fullPath := SafeJoin(config.RepoPath, config.ContentDir, relPath)
	if fullPath == "" {
		return nil, ErrInvalidPath
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	raw, body, format, err := ParseFrontMatter(content)
	if err != nil {
		return &models.Article{Path: relPath, Title: relPath, Content: string(content)}, nil
	}
	fm, _ := DecodeFrontMatter(raw)
	title := fm.Title
	if title == "" {
		title = relPath
	}
	return &models.Article{
		Path:        relPath,
		Title:       title,
		Slug:        fm.Slug,
		Date:        fm.Date,
		Draft:       fm.Draft,
		Tags:        fm.Tags,
		FrontMatter: raw,
		Body:        body,
		Format:      format,
	}, nil
}

// RenderPostFile returns the editor payload for art: structured front matter
// when present, the raw content otherwise.
func RenderPostFile(art models.Article) ([]byte, error) {
	if art.FrontMatter != nil {
		content, err := ConstructFileContent(art.FrontMatter, art.Body, art.Format)
		if err != nil {
			return nil, fmt.Errorf("construct file content: %w", err)
		}
		return content, nil
	}
	return []byte(art.Content), nil
}

// SavePost writes art below the content root.
func SavePost(art models.Article) error {
	fullPath := SafeJoin(config.RepoPath, config.ContentDir, art.Path)
	if fullPath == "" || !strings.HasSuffix(fullPath, ".md") {
		return ErrInvalidPath
	}
	content, err := RenderPostFile(art)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return err
	}
	InvalidateCache()
	return nil
}
