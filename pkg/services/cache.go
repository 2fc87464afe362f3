package services

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"postdesk/pkg/config"
	"postdesk/pkg/models"

	"golang.org/x/sync/errgroup"
)

var (
	articleCache []models.Article
	cacheMutex   sync.Mutex
	cacheLoaded  bool
)

// GetArticlesCache returns every Markdown file below the content root,
// newest first. The listing is memoized until InvalidateCache.
func GetArticlesCache() ([]models.Article, error) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if cacheLoaded {
		return articleCache, nil
	}

	articles, err := loadArticles(context.Background())
	if err != nil {
		return nil, err
	}

	articleCache = articles
	cacheLoaded = true
	return articleCache, nil
}

func InvalidateCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	cacheLoaded = false
	articleCache = nil
}

// markdownFiles lists .md files below dir in walk order.
func markdownFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return paths, err
}

func loadArticles(ctx context.Context) ([]models.Article, error) {
	contentDir := config.ContentRoot()
	paths, err := markdownFiles(contentDir)
	if err != nil {
		return nil, err
	}

	dirtyFiles, _ := getGitDirtyFiles(ctx, config.RepoPath)

	articles := make([]models.Article, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(config.CacheConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			relPath, _ := filepath.Rel(contentDir, path)
			repoRelPath, _ := filepath.Rel(config.RepoPath, path)

			art := models.Article{
				Path:    filepath.ToSlash(relPath),
				Title:   filepath.ToSlash(relPath),
				IsDirty: dirtyFiles[filepath.ToSlash(repoRelPath)],
			}
			if head, err := readFrontMatterHead(path); err == nil {
				if raw, _, _, err := ParseFrontMatter(head); err == nil {
					fm, _ := DecodeFrontMatter(raw)
					if fm.Title != "" {
						art.Title = fm.Title
					}
					art.Date = fm.Date
					art.Draft = fm.Draft
					art.Tags = fm.Tags
					art.Slug = fm.Slug
				}
			}
			articles[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].Date.Equal(articles[j].Date) {
			return articles[i].Date.After(articles[j].Date)
		}
		return articles[i].Path < articles[j].Path
	})
	return articles, nil
}

// readFrontMatterHead reads the first FileReadHeadLimit bytes of path. When
// the front matter does not close within that window the whole file is read.
func readFrontMatterHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, config.FileReadHeadLimit))
	if err != nil {
		return nil, err
	}
	if int64(len(head)) < config.FileReadHeadLimit {
		return head, nil
	}
	if _, _, _, err := ParseFrontMatter(head); err == nil {
		return head, nil
	}
	rest, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return append(head, rest...), nil
}

// FilterArticles keeps articles carrying tag (case-insensitive, empty keeps
// all). Drafts are dropped unless includeDrafts is set.
func FilterArticles(articles []models.Article, tag string, includeDrafts bool) []models.Article {
	tag = strings.ToLower(strings.TrimSpace(tag))
	out := make([]models.Article, 0, len(articles))
	for _, art := range articles {
		if art.Draft && !includeDrafts {
			continue
		}
		if tag != "" && !hasTag(art.Tags, tag) {
			continue
		}
		out = append(out, art)
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}

// TagIndex counts tag usage across the listing, case-folded, most used first.
func TagIndex(articles []models.Article) []models.TagCount {
	byTag := map[string]*models.TagCount{}
	for _, art := range articles {
		seen := map[string]bool{}
		for _, t := range art.Tags {
			key := strings.ToLower(strings.TrimSpace(t))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			tc, ok := byTag[key]
			if !ok {
				tc = &models.TagCount{Tag: key}
				byTag[key] = tc
			}
			tc.Count++
			tc.Posts = append(tc.Posts, art.Path)
		}
	}

	out := make([]models.TagCount, 0, len(byTag))
	for _, tc := range byTag {
		sort.Strings(tc.Posts)
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
