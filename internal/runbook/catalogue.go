// Package runbook lists the reference documents available to planning.
//
// A runbook is any regular file in the catalogue directory; its identifier
// is the file name minus extension. Markdown runbooks may carry YAML front
// matter naming the phase they document:
//
//	---
//	title: Contract first
//	phase: contract
//	mode: sequential
//	---
package runbook

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/phase"
)

// DefaultDir is the catalogue location relative to the project root.
const DefaultDir = "docs/runbooks"

// Runbook is one catalogue entry.
type Runbook struct {
	ID    string
	Path  string
	Title string
	Phase phase.Phase
	Mode  phase.Mode
}

// Catalogue scans a runbook directory.
type Catalogue struct {
	dir string
}

// NewCatalogue returns a catalogue rooted at dir.
func NewCatalogue(dir string) *Catalogue {
	if dir == "" {
		dir = DefaultDir
	}
	return &Catalogue{dir: dir}
}

// Dir returns the catalogue directory.
func (c *Catalogue) Dir() string {
	return c.dir
}

// Scan lists the runbooks sorted by identifier, creating the directory when
// it does not exist yet.
func (c *Catalogue) Scan() ([]Runbook, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create runbook directory: %w", err)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read runbook directory: %w", err)
	}

	var out []Runbook
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		ext := filepath.Ext(name)
		rb := Runbook{
			ID:   strings.TrimSuffix(name, ext),
			Path: filepath.Join(c.dir, name),
		}
		rb.Title = rb.ID

		if isMarkdown(ext) {
			// Entries that cannot be read or parsed stay listed under their
			// file name so the phase still finds its runbook by reference.
			doc, err := ParseFile(rb.Path, rb.ID)
			switch {
			case err != nil:
				log.Warn("runbook unreadable, listing it without metadata", "path", rb.Path, log.Err(err))
			case doc.FrontMatterErr != nil:
				log.Warn("runbook front matter is not valid YAML", "path", rb.Path, log.Err(doc.FrontMatterErr))
				rb.Title = doc.Title
			default:
				rb.Title = doc.Title
				if fm := doc.FrontMatter; fm != nil {
					rb.Phase = phase.Phase(strings.TrimSpace(fm.Phase))
					rb.Mode = phase.Mode(strings.TrimSpace(fm.Mode))
				}
			}
		}

		out = append(out, rb)
	}

	slices.SortFunc(out, func(a, b Runbook) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// IDs returns the identifiers of all runbooks.
func (c *Catalogue) IDs() ([]string, error) {
	rbs, err := c.Scan()
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rbs))
	for i, rb := range rbs {
		ids[i] = rb.ID
	}
	return ids, nil
}

// ForPhase finds the runbook documenting p: the entry whose identifier is
// the phase's runbook reference, else the first entry whose front matter
// names the phase.
func ForPhase(rbs []Runbook, p phase.Phase) (Runbook, bool) {
	ref := phase.Lookup(p).Runbook
	if ref != "" {
		if i := slices.IndexFunc(rbs, func(rb Runbook) bool { return rb.ID == ref }); i >= 0 {
			return rbs[i], true
		}
	}
	if i := slices.IndexFunc(rbs, func(rb Runbook) bool { return rb.Phase == p }); i >= 0 {
		return rbs[i], true
	}
	return Runbook{}, false
}

func isMarkdown(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return true
	}
	return false
}
