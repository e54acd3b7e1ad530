package runbook

import (
	"cmp"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the optional YAML header of a runbook document.
type FrontMatter struct {
	Title string `yaml:"title"`
	Phase string `yaml:"phase"`
	Mode  string `yaml:"mode"`
}

// Document is a parsed runbook file.
type Document struct {
	FrontMatter *FrontMatter
	Title       string // front matter title, else first # heading, else fallback
	Body        string
	// FrontMatterErr is set when a front matter block exists but is not
	// valid YAML. The block is then kept as body text.
	FrontMatterErr error
}

// ParseFile reads and parses a markdown runbook.
func ParseFile(path, fallbackTitle string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), fallbackTitle), nil
}

// Parse splits content into front matter, title and body. Malformed front
// matter is treated as body text.
func Parse(content, fallbackTitle string) *Document {
	doc := &Document{}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if strings.HasPrefix(content, "---\n") {
		before, after, found := strings.Cut(content[4:], "\n---")
		if found {
			var fm FrontMatter
			if err := yaml.Unmarshal([]byte(before), &fm); err != nil {
				doc.FrontMatterErr = err
			} else {
				doc.FrontMatter = &fm
				// drop the rest of the closing delimiter line
				if _, rest, ok := strings.Cut(after, "\n"); ok {
					content = rest
				} else {
					content = ""
				}
			}
		}
	}

	lines := strings.Split(content, "\n")
	bodyStart := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			doc.Title = strings.TrimPrefix(trimmed, "# ")
			bodyStart = i + 1
			break
		}
		if trimmed != "" {
			break
		}
	}

	if doc.FrontMatter != nil && doc.FrontMatter.Title != "" {
		doc.Title = doc.FrontMatter.Title
	}
	doc.Title = cmp.Or(doc.Title, fallbackTitle)

	if bodyStart > 0 && bodyStart < len(lines) {
		doc.Body = strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	} else if bodyStart == 0 {
		doc.Body = strings.TrimSpace(content)
	}

	return doc
}
