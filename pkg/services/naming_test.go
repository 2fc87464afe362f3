package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostFilename(t *testing.T) {
	name, err := ParsePostFilename("2023-11-20-backpressure-explained.md")
	require.NoError(t, err)
	assert.Equal(t, "backpressure-explained", name.Slug)
	assert.Equal(t, time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC), name.Date)
}

func TestParsePostFilenameRejects(t *testing.T) {
	for _, bad := range []string{
		"backpressure.md",
		"2023-11-20-Backpressure.md",
		"2023-11-20-back--pressure.md",
		"2023-11-20-.md",
		"2023-11-20-slug.markdown",
		"2023-02-30-impossible-date.md",
		"23-11-20-short-year.md",
	} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParsePostFilename(bad)
			assert.True(t, errors.Is(err, ErrInvalidFilename))
		})
	}
}

func TestPostFilename(t *testing.T) {
	date := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02-stripe-integration.md", PostFilename(date, "stripe-integration"))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Understanding SSL/TLS":            "understanding-ssl-tls",
		"  RAG pipelines, part 2!  ":       "rag-pipelines-part-2",
		"Crème brûlée & Café":              "creme-brulee-cafe",
		"NumPy: Broadcasting -- Explained": "numpy-broadcasting-explained",
		"日本語":                              "post",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
		assert.True(t, ValidSlug(Slugify(in)))
	}
}
