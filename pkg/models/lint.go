package models

import "sort"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding.
type Issue struct {
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report aggregates the findings of one lint run.
type Report struct {
	Files  int     `json:"files"`
	Issues []Issue `json:"issues"`
}

func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Sort orders issues by path, line and rule.
func (r *Report) Sort() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Rule < b.Rule
	})
}

func (r *Report) Errors() int {
	return r.count(SeverityError)
}

func (r *Report) Warnings() int {
	return r.count(SeverityWarning)
}

// Failed reports whether the run should exit non-zero. In strict mode
// warnings count as failures.
func (r *Report) Failed(strict bool) bool {
	if r.Errors() > 0 {
		return true
	}
	return strict && r.Warnings() > 0
}

func (r *Report) count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}
