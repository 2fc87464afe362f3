package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportSortAndCounts(t *testing.T) {
	var r Report
	r.Add(
		Issue{Path: "posts/b.md", Line: 3, Rule: "empty-body", Severity: SeverityWarning},
		Issue{Path: "posts/a.md", Line: 7, Rule: "broken-link", Severity: SeverityError},
		Issue{Path: "posts/a.md", Line: 1, Rule: "required-field", Severity: SeverityError},
		Issue{Path: "posts/a.md", Line: 1, Rule: "field-type", Severity: SeverityError},
	)
	r.Sort()

	got := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		got[i] = issue.Path + ":" + issue.Rule
	}
	assert.Equal(t, []string{
		"posts/a.md:field-type",
		"posts/a.md:required-field",
		"posts/a.md:broken-link",
		"posts/b.md:empty-body",
	}, got)
	assert.Equal(t, 3, r.Errors())
	assert.Equal(t, 1, r.Warnings())
}

func TestReportFailed(t *testing.T) {
	var r Report
	assert.False(t, r.Failed(true))

	r.Add(Issue{Severity: SeverityWarning})
	assert.False(t, r.Failed(false))
	assert.True(t, r.Failed(true))

	r.Add(Issue{Severity: SeverityError})
	assert.True(t, r.Failed(false))
}

func TestFieldIsRequired(t *testing.T) {
	no := false
	assert.True(t, Field{Name: "title"}.IsRequired())
	assert.False(t, Field{Name: "series", Required: &no}.IsRequired())
}
