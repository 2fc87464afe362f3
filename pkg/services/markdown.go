package services

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block; Language is empty when the fence has no
// info string.
type CodeBlock struct {
	Language string
	Line     int
}

// LinkRef is a link, image or ref shortcode target found in a body.
type LinkRef struct {
	Destination string
	Line        int
	Image       bool
	Shortcode   bool
}

// BodyInfo is what the linter needs to know about a Markdown body. Lines are
// 1-based and relative to the body.
type BodyInfo struct {
	CodeBlocks []CodeBlock
	Links      []LinkRef
	Headings   []string
	HasContent bool
}

var refShortcode = regexp.MustCompile(`\{\{[<%]\s*(?:rel)?ref\s+"([^"]+)"\s*[>%]\}\}`)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// RenderHTML renders a post body the way Hugo's default goldmark setup does.
func RenderHTML(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{}
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

// line returns the 1-based line holding offset.
func (l lineIndex) line(offset int) int {
	return sort.SearchInts(l, offset) + 1
}

type span struct{ start, stop int }

// AnalyzeBody walks the goldmark AST of body.
func AnalyzeBody(body []byte) BodyInfo {
	info := BodyInfo{}
	lines := newLineIndex(body)
	root := markdownEngine.Parser().Parse(text.NewReader(body))

	var code []span
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Document:
			return ast.WalkContinue, nil
		case *ast.FencedCodeBlock:
			info.HasContent = true
			block := CodeBlock{Language: string(node.Language(body))}
			if node.Info != nil {
				block.Line = lines.line(node.Info.Segment.Start)
			} else if node.Lines().Len() > 0 {
				block.Line = lines.line(node.Lines().At(0).Start) - 1
			} else {
				block.Line = lineOfNode(node, body, lines)
			}
			info.CodeBlocks = append(info.CodeBlocks, block)
			code = append(code, blockSpan(node))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			info.HasContent = true
			code = append(code, blockSpan(node))
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			info.HasContent = true
			if node.Level == 1 {
				info.Headings = append(info.Headings, string(node.Text(body)))
			}
		case *ast.Link:
			info.Links = append(info.Links, LinkRef{
				Destination: string(node.Destination),
				Line:        lineOfNode(node, body, lines),
			})
		case *ast.Image:
			info.Links = append(info.Links, LinkRef{
				Destination: string(node.Destination),
				Line:        lineOfNode(node, body, lines),
				Image:       true,
			})
		case *ast.CodeSpan:
			code = append(code, inlineSpan(node))
			return ast.WalkSkipChildren, nil
		default:
			if n.Type() == ast.TypeBlock {
				info.HasContent = true
			}
		}
		return ast.WalkContinue, nil
	})

	for _, m := range refShortcode.FindAllSubmatchIndex(body, -1) {
		if insideAny(code, m[0]) {
			continue
		}
		info.Links = append(info.Links, LinkRef{
			Destination: string(body[m[2]:m[3]]),
			Line:        lines.line(m[0]),
			Shortcode:   true,
		})
	}
	sort.SliceStable(info.Links, func(i, j int) bool {
		return info.Links[i].Line < info.Links[j].Line
	})
	return info
}

func blockSpan(n ast.Node) span {
	segs := n.Lines()
	if segs.Len() == 0 {
		return span{-1, -1}
	}
	return span{segs.At(0).Start, segs.At(segs.Len() - 1).Stop}
}

// inlineSpan covers the text segments of an inline node.
func inlineSpan(n ast.Node) span {
	s := span{-1, -1}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if s.start < 0 || t.Segment.Start < s.start {
			s.start = t.Segment.Start
		}
		if t.Segment.Stop > s.stop {
			s.stop = t.Segment.Stop
		}
	}
	return s
}

func insideAny(spans []span, offset int) bool {
	for _, s := range spans {
		if offset >= s.start && offset < s.stop {
			return true
		}
	}
	return false
}

// lineOfNode finds the first source position under n, falling back to its
// enclosing block.
func lineOfNode(n ast.Node, src []byte, lines lineIndex) int {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			return lines.line(t.Segment.Start)
		}
		if l := lineOfNode(c, src, lines); l > 0 {
			return l
		}
	}
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return lines.line(p.Lines().At(0).Start)
		}
	}
	return 0
}
