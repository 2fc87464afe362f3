package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"postdesk/pkg/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidFilename = errors.New("file name does not match YYYY-MM-DD-slug.md")

const postDateLayout = "2006-01-02"

var (
	postFilenamePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-([a-z0-9]+(?:-[a-z0-9]+)*)\.md$`)
	slugPattern         = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugRun          = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParsePostFilename extracts the date and slug from a post file name.
func ParsePostFilename(name string) (models.PostName, error) {
	m := postFilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return models.PostName{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	date, err := time.Parse(postDateLayout, m[1])
	if err != nil {
		return models.PostName{}, fmt.Errorf("%w: %q has no calendar date %s", ErrInvalidFilename, name, m[1])
	}
	return models.PostName{Date: date, Slug: m[2]}, nil
}

// PostFilename builds the file name for a post published on date.
func PostFilename(date time.Time, slug string) string {
	return date.Format(postDateLayout) + "-" + slug + ".md"
}

// ValidSlug reports whether s is lowercase words joined by single dashes.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Slugify turns a title into a URL slug, folding accents to ASCII.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "post"
	}
	return slug
}

// sameDay compares calendar days as written, ignoring time zones.
func sameDay(a, b time.Time) bool {
	return a.Format(postDateLayout) == b.Format(postDateLayout)
}
