package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"postdesk/pkg/models"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrNoFrontMatter = errors.New("no front matter")

const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// dateLayouts are the date shapes Hugo accepts in front matter.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FieldError describes a front matter key holding the wrong kind of value.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// splitFenced cuts a fenced block off the top of content. The opening fence
// must be the first line and the closing fence a line of its own.
func splitFenced(content, fence string) (block, body string, ok bool) {
	first, rest, found := strings.Cut(content, "\n")
	if !found || strings.TrimRight(first, "\r \t") != fence {
		return "", "", false
	}
	offset := 0
	for offset <= len(rest) {
		line, _, more := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, "\r \t") == fence {
			block = rest[:offset]
			body = ""
			if more {
				body = rest[offset+len(line)+1:]
			}
			return block, body, true
		}
		if !more {
			break
		}
		offset += len(line) + 1
	}
	return "", "", false
}

// ParseFrontMatter splits content into its metadata map, body and format.
func ParseFrontMatter(content []byte) (map[string]interface{}, string, string, error) {
	str := strings.TrimPrefix(string(content), "\ufeff")

	if block, body, ok := splitFenced(str, "---"); ok {
		fm := map[string]interface{}{}
		if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
			return nil, "", "", fmt.Errorf("decode yaml front matter: %w", err)
		}
		return stringKeys(fm), strings.TrimSpace(body), FormatYAML, nil
	}
	if block, body, ok := splitFenced(str, "+++"); ok {
		fm := map[string]interface{}{}
		if err := toml.Unmarshal([]byte(block), &fm); err != nil {
			return nil, "", "", fmt.Errorf("decode toml front matter: %w", err)
		}
		return stringKeys(fm), strings.TrimSpace(body), FormatTOML, nil
	}
	if strings.HasPrefix(strings.TrimSpace(str), "{") {
		dec := json.NewDecoder(strings.NewReader(str))
		fm := map[string]interface{}{}
		if err := dec.Decode(&fm); err != nil {
			return nil, "", "", fmt.Errorf("decode json front matter: %w", err)
		}
		rest := str[dec.InputOffset():]
		return fm, strings.TrimSpace(rest), FormatJSON, nil
	}

	return nil, "", "", ErrNoFrontMatter
}

func ConstructFileContent(fm map[string]interface{}, body string, format string) ([]byte, error) {
	normalizedFM := stringKeys(fm)
	if normalizedFM == nil {
		normalizedFM = map[string]interface{}{}
	}

	var buf bytes.Buffer
	switch format {
	case FormatYAML, "":
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	case FormatTOML:
		buf.WriteString("+++\n")
		enc := toml.NewEncoder(&buf)
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
		buf.WriteString("+++\n")
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(strings.TrimSpace(body))
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// DecodeFrontMatter maps a raw front matter map onto the typed model. Keys of
// the wrong type are reported instead of being coerced.
func DecodeFrontMatter(raw map[string]interface{}) (models.FrontMatter, []FieldError) {
	fm := models.FrontMatter{Raw: raw}
	var errs []FieldError

	if v, ok := raw["title"]; ok {
		if s, ok := v.(string); ok {
			fm.Title = strings.TrimSpace(s)
		} else {
			errs = append(errs, FieldError{"title", fmt.Sprintf("must be a string, got %T", v)})
		}
	}

	if v, ok := raw["date"]; ok {
		if t, err := parseDate(v); err == nil {
			fm.Date = t
		} else {
			errs = append(errs, FieldError{"date", err.Error()})
		}
	}

	if v, ok := raw["draft"]; ok {
		if b, ok := v.(bool); ok {
			fm.Draft = b
		} else {
			errs = append(errs, FieldError{"draft", fmt.Sprintf("must be a boolean, got %T", v)})
		}
	}

	if v, ok := raw["tags"]; ok && v != nil {
		switch list := v.(type) {
		case []interface{}:
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					errs = append(errs, FieldError{"tags", fmt.Sprintf("item %d must be a string, got %T", i, item)})
					continue
				}
				fm.Tags = append(fm.Tags, strings.TrimSpace(s))
			}
		case []string:
			for _, s := range list {
				fm.Tags = append(fm.Tags, strings.TrimSpace(s))
			}
		default:
			errs = append(errs, FieldError{"tags", fmt.Sprintf("must be a list of strings, got %T", v)})
		}
	}

	if v, ok := raw["slug"]; ok {
		if s, ok := v.(string); ok {
			fm.Slug = strings.TrimSpace(s)
		} else {
			errs = append(errs, FieldError{"slug", fmt.Sprintf("must be a string, got %T", v)})
		}
	}

	return fm, errs
}

func parseDate(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case toml.LocalDate:
		return d.AsTime(time.UTC), nil
	case toml.LocalDateTime:
		return d.AsTime(time.UTC), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	default:
		return time.Time{}, fmt.Errorf("must be a date, got %T", v)
	}
}

// NormalizeContent re-serializes content canonically, filling collection
// defaults. Content without front matter is only trimmed.
func NormalizeContent(content []byte, collection *models.Collection) []byte {
	if len(content) == 0 {
		return content
	}
	fm, body, format, err := ParseFrontMatter(content)
	if err != nil {
		return append(bytes.TrimSpace(content), '\n')
	}

	fillDefaults(fm, collection)

	normalized, err := ConstructFileContent(fm, body, format)
	if err != nil {
		return append(bytes.TrimSpace(content), '\n')
	}
	return append(bytes.TrimSpace(normalized), '\n')
}

// stringKeys converts nested YAML maps to string-keyed maps so the value can
// be encoded as JSON or TOML.
func stringKeys(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		out[k] = stringKeysValue(v)
	}
	return out
}

func stringKeysValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return stringKeys(v)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[fmt.Sprint(key)] = stringKeysValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = stringKeysValue(inner)
		}
		return out
	default:
		return v
	}
}

// fillDefaults sets collection defaults for keys fm does not have.
func fillDefaults(fm map[string]interface{}, collection *models.Collection) {
	if fm == nil || collection == nil {
		return
	}
	for _, field := range collection.Fields {
		if field.Name == "body" || field.Default == nil {
			continue
		}
		if _, ok := fm[field.Name]; !ok {
			fm[field.Name] = field.Default
		}
	}
}

func normalizeLineEndings(input string) string {
	return strings.ReplaceAll(input, "\r\n", "\n")
}

// canonicalFrontMatter reduces fm to the form compared for change detection.
// List fields of the collection are always lists, times are UTC strings, and
// empty strings and lists are dropped so "tags: []" equals a missing key.
func canonicalFrontMatter(fm map[string]interface{}, collection *models.Collection) map[string]interface{} {
	lists := map[string]bool{}
	if collection != nil {
		for _, field := range collection.Fields {
			if field.Widget == "list" {
				lists[field.Name] = true
			}
		}
	}
	fillDefaults(fm, collection)

	out := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		if lists[k] {
			v = asList(v)
		}
		if c := canonicalValue(v); c != nil {
			out[k] = c
		}
	}
	return out
}

func asList(v interface{}) interface{} {
	switch v.(type) {
	case nil, []interface{}, []string:
		return v
	}
	return []interface{}{v}
}

func canonicalValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			if c := canonicalValue(inner); c != nil {
				out[k] = c
			}
		}
		return out
	case map[interface{}]interface{}:
		return canonicalValue(stringKeysValue(v))
	case []interface{}:
		if len(v) == 0 {
			return nil
		}
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = canonicalValue(inner)
		}
		return out
	case []string:
		if len(v) == 0 {
			return nil
		}
		return v
	case string:
		if v == "" {
			return nil
		}
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// CanonicalizeForDiff returns a canonical JSON form of the front matter and
// the normalized body, so two files that differ only in formatting compare
// equal.
func CanonicalizeForDiff(content []byte, collection *models.Collection) ([]byte, string, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, "", nil
	}

	fm, body, _, err := ParseFrontMatter(trimmed)
	if err != nil {
		return nil, strings.TrimSpace(normalizeLineEndings(string(trimmed))), err
	}

	canonicalFM, err := json.Marshal(canonicalFrontMatter(fm, collection))
	if err != nil {
		return nil, "", err
	}

	return canonicalFM, strings.TrimSpace(normalizeLineEndings(body)), nil
}

// SameContent reports whether a and b differ only in formatting.
func SameContent(a, b []byte, collection *models.Collection) bool {
	fmA, bodyA, errA := CanonicalizeForDiff(a, collection)
	fmB, bodyB, errB := CanonicalizeForDiff(b, collection)
	if errA != nil || errB != nil {
		return strings.TrimSpace(normalizeLineEndings(string(a))) == strings.TrimSpace(normalizeLineEndings(string(b)))
	}
	return bytes.Equal(fmA, fmB) && bodyA == bodyB
}
