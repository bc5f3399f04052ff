package corpus

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
)

var (
	reFrontMatter     = regexp.MustCompile(`(?ms)^---[ \t]*\nmetadata:[ \t]*\n(.*?)\n---`)
	reFrontMatterFull = regexp.MustCompile(`(?ms)^---[ \t]*\nmetadata:[ \t]*\n.*?\n---[ \t]*(\n|\z)`)
	reBlankRuns       = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// Section is one heading-delimited part of a free-text document.
type Section struct {
	Title    string
	Subtitle string
	Body     string
}

// FrontMatter extracts the "metadata:" block at the top of a section or document.
// List values written as [a, b] become string lists.
func FrontMatter(text string) map[string]any {
	m := reFrontMatter.FindStringSubmatch(text)
	if m == nil {
		return map[string]any{}
	}
	if out, err := parseYAMLBlock(m[1]); err == nil {
		return out
	}
	return parseLines(m[1])
}

func parseYAMLBlock(block string) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(dedent(block)), &raw); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalizeYAML(v)
	}
	return out, nil
}

func normalizeYAML(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02")
	case []any:
		items := make([]string, 0, len(val))
		for _, it := range val {
			items = append(items, strings.TrimSpace(fmt.Sprint(normalizeYAML(it))))
		}
		return items
	case int:
		return int64(val)
	default:
		return val
	}
}

// parseLines is the lenient "key: value" reader used when the block is not valid YAML.
func parseLines(block string) map[string]any {
	out := map[string]any{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]") {
			out[key] = chunk.SplitList(val)
			continue
		}
		out[key] = val
	}
	return out
}

func dedent(block string) string {
	lines := strings.Split(block, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return block
	}
	for i, l := range lines {
		if len(l) >= indent {
			lines[i] = l[indent:]
		}
	}
	return strings.Join(lines, "\n")
}

// StripFrontMatter removes the metadata block and collapses runs of blank lines.
func StripFrontMatter(text string) string {
	text = reFrontMatterFull.ReplaceAllString(text, "")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Sections splits markdown on level-1 and level-2 headings. Heading lines are
// moved into Title/Subtitle; fenced code blocks are never split.
func Sections(text string) []Section {
	var (
		out     []Section
		cur     Section
		body    []string
		inFence bool
	)
	emit := func() {
		cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if cur.Body != "" {
			out = append(out, cur)
		}
		body = body[:0]
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			switch level, h := heading(trimmed); level {
			case 1:
				emit()
				cur = Section{Title: h}
				continue
			case 2:
				emit()
				cur = Section{Title: cur.Title, Subtitle: h}
				continue
			}
		}
		body = append(body, line)
	}
	emit()
	return out
}

func heading(line string) (int, string) {
	switch {
	case line == "#":
		return 1, ""
	case line == "##":
		return 2, ""
	case strings.HasPrefix(line, "# "):
		return 1, strings.TrimSpace(line[2:])
	case strings.HasPrefix(line, "## "):
		return 2, strings.TrimSpace(line[3:])
	default:
		return 0, ""
	}
}

// chunkMarkdown turns a free-text document into chunks. The front matter
// applies to every chunk of the document.
func (l *Loader) chunkMarkdown(text string, base map[string]any) []pending {
	meta := FrontMatter(text)
	var out []pending
	for i, sec := range Sections(text) {
		clean := StripFrontMatter(sec.Body)
		if clean == "" {
			continue
		}
		md := merge(meta, base)
		md["section_index"] = i
		if sec.Title != "" {
			md[chunk.KeyTitle] = sec.Title
		}
		if sec.Subtitle != "" {
			md[chunk.KeySubtitle] = sec.Subtitle
		}
		for _, piece := range Split(clean, l.ceiling) {
			out = append(out, pending{content: piece, metadata: md})
		}
	}
	return out
}

// chunkPlain handles extracted text from binary formats (pdf, docx).
func (l *Loader) chunkPlain(text string, base map[string]any) []pending {
	var out []pending
	for _, piece := range Split(StripFrontMatter(text), l.ceiling) {
		out = append(out, pending{content: piece, metadata: merge(base)})
	}
	return out
}

func merge(maps ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
