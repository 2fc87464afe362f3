package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"postdesk/pkg/config"
	"postdesk/pkg/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// Lint rule names.
const (
	RuleFrontMatter     = "frontmatter"
	RuleRequiredField   = "required-field"
	RuleFieldType       = "field-type"
	RuleFilename        = "filename"
	RuleFilenameDate    = "filename-date"
	RuleCodeFenceLang   = "code-fence-language"
	RuleBrokenLink      = "broken-link"
	RuleDuplicateSlug   = "duplicate-slug"
	RuleDuplicateTitle  = "duplicate-title"
	RuleDuplicateTag    = "duplicate-tag"
	RuleEmptyBody       = "empty-body"
	RuleFutureDate      = "future-date"
	sectionListFilename = "_index.md"
)

// Rules lists every rule the linter knows, in report order.
var Rules = []string{
	RuleFrontMatter, RuleRequiredField, RuleFieldType, RuleFilename,
	RuleFilenameDate, RuleCodeFenceLang, RuleBrokenLink, RuleDuplicateSlug,
	RuleDuplicateTitle, RuleDuplicateTag, RuleEmptyBody, RuleFutureDate,
}

var requiredFields = []string{"title", "date", "draft", "tags"}

type LintOptions struct {
	Strict   bool
	Now      func() time.Time
	Disabled []string
}

// Linter checks the post collection for content conventions.
type Linter struct {
	opts     LintOptions
	disabled map[string]bool
	validate *validator.Validate
}

func NewLinter(opts LintOptions) *Linter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, r := range opts.Disabled {
		disabled[strings.TrimSpace(r)] = true
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hugoslug", func(fl validator.FieldLevel) bool {
		return ValidSlug(fl.Field().String())
	})
	return &Linter{opts: opts, disabled: disabled, validate: v}
}

// UnknownRules returns the names in rules the linter does not define.
func UnknownRules(rules []string) []string {
	known := map[string]bool{}
	for _, r := range Rules {
		known[r] = true
	}
	var unknown []string
	for _, r := range rules {
		if r = strings.TrimSpace(r); r != "" && !known[r] {
			unknown = append(unknown, r)
		}
	}
	return unknown
}

type postDoc struct {
	rel       string // relative to the content root, slash separated
	full      string
	content   string
	raw       map[string]interface{}
	fm        models.FrontMatter
	fieldErrs []FieldError
	body      string
	bodyLine  int
	parseErr  error
	urlSlug   string
}

type siteIndex struct {
	slugs  map[string][]string
	pages  map[string]bool
	titles map[string][]string
	tags   map[string]bool
}

// Lint checks every post in the posts section.
func (l *Linter) Lint(ctx context.Context) (*models.Report, error) {
	return l.run(ctx, nil)
}

// LintFile checks the posts named by rel (relative to the content root)
// against the whole collection.
func (l *Linter) LintFile(ctx context.Context, rel ...string) (*models.Report, error) {
	only := map[string]bool{}
	for _, r := range rel {
		only[filepath.ToSlash(filepath.Clean(r))] = true
	}
	return l.run(ctx, only)
}

// Failed reports whether report should fail the run under these options.
func (l *Linter) Failed(report *models.Report) bool {
	return report.Failed(l.opts.Strict)
}

func (l *Linter) run(ctx context.Context, only map[string]bool) (*models.Report, error) {
	docs, err := loadPostDocs(ctx)
	if err != nil {
		return nil, err
	}
	for rel := range only {
		if !containsDoc(docs, rel) {
			return nil, fmt.Errorf("%w: %s is not a post", os.ErrNotExist, rel)
		}
	}
	idx := buildSiteIndex(docs)
	required := requiredKeys()

	report := &models.Report{Issues: []models.Issue{}}
	for _, doc := range docs {
		if only != nil && !only[doc.rel] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Files++
		report.Add(l.checkDoc(doc, idx, required)...)
	}
	report.Sort()
	return report, nil
}

func containsDoc(docs []*postDoc, rel string) bool {
	for _, d := range docs {
		if d.rel == rel {
			return true
		}
	}
	return false
}

func loadPostDocs(ctx context.Context) ([]*postDoc, error) {
	paths, err := markdownFiles(config.PostsDir())
	if err != nil {
		return nil, err
	}

	contentRoot := config.ContentRoot()
	docs := make([]*postDoc, 0, len(paths))
	for _, p := range paths {
		if filepath.Base(p) == sectionListFilename {
			continue
		}
		rel, _ := filepath.Rel(contentRoot, p)
		docs = append(docs, &postDoc{rel: filepath.ToSlash(rel), full: p})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(config.CacheConcurrency)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(doc.full)
			if err != nil {
				return err
			}
			doc.load(content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (d *postDoc) load(content []byte) {
	d.content = string(content)
	d.urlSlug = strings.TrimSuffix(path.Base(d.rel), ".md")

	raw, body, _, err := ParseFrontMatter(content)
	if err != nil {
		d.parseErr = err
		return
	}
	d.raw = raw
	d.body = body
	d.fm, d.fieldErrs = DecodeFrontMatter(raw)
	if d.fm.Slug != "" {
		d.urlSlug = d.fm.Slug
	}
	if body != "" {
		if i := strings.Index(d.content, body); i >= 0 {
			d.bodyLine = strings.Count(d.content[:i], "\n") + 1
		}
	}
}

func buildSiteIndex(docs []*postDoc) *siteIndex {
	idx := &siteIndex{
		slugs:  map[string][]string{},
		pages:  map[string]bool{},
		titles: map[string][]string{},
		tags:   map[string]bool{},
	}
	for _, d := range docs {
		idx.slugs[d.urlSlug] = append(idx.slugs[d.urlSlug], d.rel)
		idx.pages[d.urlSlug] = true
		idx.pages[strings.TrimSuffix(path.Base(d.rel), ".md")] = true
		if d.fm.Title != "" {
			key := strings.ToLower(d.fm.Title)
			idx.titles[key] = append(idx.titles[key], d.rel)
		}
		for _, t := range d.fm.Tags {
			idx.tags[strings.ToLower(t)] = true
		}
	}
	return idx
}

func (l *Linter) checkDoc(d *postDoc, idx *siteIndex, required []string) []models.Issue {
	var issues []models.Issue
	add := func(rule string, sev models.Severity, line int, format string, args ...interface{}) {
		if l.disabled[rule] {
			return
		}
		issues = append(issues, models.Issue{
			Path:     d.rel,
			Line:     line,
			Rule:     rule,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	name, nameErr := ParsePostFilename(path.Base(d.rel))
	if nameErr != nil {
		add(RuleFilename, models.SeverityError, 0, "file name %q does not follow YYYY-MM-DD-slug.md", path.Base(d.rel))
	}

	if d.parseErr != nil {
		add(RuleFrontMatter, models.SeverityError, 1, "%v", d.parseErr)
		return issues
	}

	for _, key := range required {
		if _, ok := d.raw[key]; !ok {
			add(RuleRequiredField, models.SeverityError, 1, "front matter is missing %q", key)
		}
	}
	for _, fe := range d.fieldErrs {
		add(RuleFieldType, models.SeverityError, fieldLine(d.content, fe.Field), "%s", fe.Error())
	}
	for _, msg := range l.validateFrontMatter(d) {
		add(RuleFieldType, models.SeverityError, fieldLine(d.content, msg.field), "%s", msg.text)
	}

	if nameErr == nil && !d.fm.Date.IsZero() && !sameDay(name.Date, d.fm.Date) {
		add(RuleFilenameDate, models.SeverityWarning, fieldLine(d.content, "date"),
			"file name date %s differs from front matter date %s",
			name.Date.Format(postDateLayout), d.fm.Date.Format(postDateLayout))
	}

	if !d.fm.Draft && d.fm.Date.After(l.opts.Now()) {
		add(RuleFutureDate, models.SeverityWarning, fieldLine(d.content, "date"),
			"published post is dated in the future (%s)", d.fm.Date.Format(time.RFC3339))
	}

	seenTags := map[string]bool{}
	for _, t := range d.fm.Tags {
		key := strings.ToLower(t)
		if key != "" && seenTags[key] {
			add(RuleDuplicateTag, models.SeverityWarning, fieldLine(d.content, "tags"), "tag %q is listed more than once", t)
		}
		seenTags[key] = true
	}

	if others := idx.slugs[d.urlSlug]; len(others) > 1 {
		add(RuleDuplicateSlug, models.SeverityError, 0, "slug %q is also used by %s", d.urlSlug, strings.Join(without(others, d.rel), ", "))
	}
	if d.fm.Title != "" {
		if others := idx.titles[strings.ToLower(d.fm.Title)]; len(others) > 1 {
			add(RuleDuplicateTitle, models.SeverityWarning, fieldLine(d.content, "title"), "title %q is also used by %s", d.fm.Title, strings.Join(without(others, d.rel), ", "))
		}
	}

	info := AnalyzeBody([]byte(d.body))
	if !info.HasContent {
		add(RuleEmptyBody, models.SeverityWarning, 0, "post has no body")
	}
	for _, block := range info.CodeBlocks {
		if block.Language == "" {
			add(RuleCodeFenceLang, models.SeverityWarning, d.fileLine(block.Line), "fenced code block has no language tag")
		}
	}
	for _, link := range info.Links {
		if reason := resolveLink(d, link, idx); reason != "" {
			kind := "link"
			if link.Image {
				kind = "image"
			} else if link.Shortcode {
				kind = "ref"
			}
			add(RuleBrokenLink, models.SeverityError, d.fileLine(link.Line), "%s %q %s", kind, link.Destination, reason)
		}
	}

	return issues
}

func (d *postDoc) fileLine(bodyLine int) int {
	if bodyLine <= 0 || d.bodyLine == 0 {
		return bodyLine
	}
	return d.bodyLine + bodyLine - 1
}

// requiredKeys is the built-in key set plus required collection fields.
func requiredKeys() []string {
	keys := append([]string(nil), requiredFields...)
	if col := PostsCollection(); col != nil {
		for _, f := range col.Fields {
			if f.Name == "body" || !f.IsRequired() || contains(keys, f.Name) {
				continue
			}
			keys = append(keys, f.Name)
		}
	}
	return keys
}

type validationMessage struct {
	field string
	text  string
}

// validateFrontMatter applies struct rules to keys that are present; missing
// keys are reported by the required-field rule instead.
func (l *Linter) validateFrontMatter(d *postDoc) []validationMessage {
	err := l.validate.Struct(d.fm)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []validationMessage{{"", err.Error()}}
	}

	var out []validationMessage
	for _, fe := range verrs {
		field := strings.ToLower(fe.StructField())
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		if _, present := d.raw[field]; !present {
			continue
		}
		switch fe.Tag() {
		case "required":
			if strings.Contains(fe.Namespace(), "[") {
				out = append(out, validationMessage{field, fmt.Sprintf("%s: contains an empty entry", field)})
			} else {
				out = append(out, validationMessage{field, fmt.Sprintf("%s: must not be empty", field)})
			}
		case "hugoslug":
			out = append(out, validationMessage{field, fmt.Sprintf("%s: %q is not lowercase words joined by dashes", field, fe.Value())})
		default:
			out = append(out, validationMessage{field, fmt.Sprintf("%s: failed %s", field, fe.Tag())})
		}
	}
	return out
}

// fieldLine finds the front matter line declaring key.
func fieldLine(content, key string) int {
	if key == "" {
		return 1
	}
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, key+":") || strings.HasPrefix(trimmed, key+" =") || strings.HasPrefix(trimmed, key+"=") || strings.HasPrefix(trimmed, `"`+key+`"`) {
			return i + 1
		}
		if i > 0 && (trimmed == "---" || trimmed == "+++") {
			break
		}
	}
	return 1
}

// resolveLink returns why link does not resolve, or "" when it does or is
// external.
func resolveLink(d *postDoc, link LinkRef, idx *siteIndex) string {
	dest := strings.TrimSpace(link.Destination)
	if dest == "" {
		return "is empty"
	}
	if link.Shortcode {
		target, _, _ := strings.Cut(dest, "#")
		if refExists(d, target) {
			return ""
		}
		return "does not match a content file"
	}

	u, err := url.Parse(dest)
	if err != nil {
		return "is not a valid URL"
	}
	if u.Scheme != "" || u.Host != "" || strings.HasPrefix(dest, "//") {
		return ""
	}
	p := u.Path
	if p == "" {
		return ""
	}

	if !strings.HasPrefix(p, "/") {
		if fileExists(filepath.Join(filepath.Dir(d.full), filepath.FromSlash(p))) {
			return ""
		}
		if strings.HasSuffix(p, ".md") {
			return "does not match a file next to the post"
		}
		if AssetExists("/" + p) {
			return ""
		}
		// Relative URLs resolve against the post's pretty URL.
		pageURL := "/" + config.PostsSection + "/" + d.urlSlug + "/"
		p = path.Join(pageURL, p)
	}
	if resolveSitePath(p, idx) {
		return ""
	}
	return "does not resolve to a page or static file"
}

func resolveSitePath(p string, idx *siteIndex) bool {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return true
	}
	trimmed := strings.Trim(clean, "/")
	section, rest, _ := strings.Cut(trimmed, "/")

	switch {
	case section == config.PostsSection && rest == "":
		return true
	case section == config.PostsSection && !strings.Contains(rest, "/"):
		if idx.pages[rest] {
			return true
		}
	case section == "tags" && rest == "":
		return len(idx.tags) > 0
	case section == "tags" && !strings.Contains(rest, "/"):
		if idx.tags[strings.ToLower(rest)] {
			return true
		}
	}

	contentRoot := config.ContentRoot()
	for _, candidate := range []string{
		trimmed + ".md",
		filepath.Join(trimmed, "index.md"),
		filepath.Join(trimmed, sectionListFilename),
	} {
		if full := SafeJoin(contentRoot, "", candidate); full != "" && fileExists(full) {
			return true
		}
	}
	return AssetExists(clean)
}

func refExists(d *postDoc, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	candidates := []string{target}
	if !strings.HasSuffix(target, ".md") {
		candidates = append(candidates, target+".md", path.Join(target, "index.md"), path.Join(target, sectionListFilename))
	}
	for _, c := range candidates {
		rel := strings.TrimPrefix(c, "/")
		if full := SafeJoin(config.ContentRoot(), "", rel); full != "" && fileExists(full) {
			return true
		}
		if full := SafeJoin(config.PostsDir(), "", rel); full != "" && fileExists(full) {
			return true
		}
		if !strings.HasPrefix(c, "/") && fileExists(filepath.Join(filepath.Dir(d.full), filepath.FromSlash(c))) {
			return true
		}
	}
	return false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
