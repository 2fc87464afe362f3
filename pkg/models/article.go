package models

import "time"

// Article represents a content file in the desk, either as a listing row or
// as an editor payload.
type Article struct {
	Path        string                 `json:"path"`
	Title       string                 `json:"title"`
	Slug        string                 `json:"slug,omitempty"`
	Date        time.Time              `json:"date,omitempty"`
	Draft       bool                   `json:"draft"`
	Tags        []string               `json:"tags,omitempty"`
	Content     string                 `json:"content,omitempty"` // Raw content when front matter does not parse
	FrontMatter map[string]interface{} `json:"frontmatter,omitempty"`
	Body        string                 `json:"body,omitempty"`
	Format      string                 `json:"format,omitempty"` // yaml, toml, json
	IsDirty     bool                   `json:"is_dirty"`
}

// TagCount is one row of the tag index.
type TagCount struct {
	Tag   string   `json:"tag"`
	Count int      `json:"count"`
	Posts []string `json:"posts"`
}
