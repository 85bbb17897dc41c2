// Package ignore decides which vault entries the scanner skips, using
// gitignore-style glob patterns.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-vault ignore file read from the vault root when present.
const FileName = ".vaultignore"

// Defaults are always applied: dependency-manager directories. Dot entries are
// handled separately by Hidden.
var Defaults = []string{
	"node_modules/",
	"bower_components/",
}

type pattern struct {
	glob    string
	negated bool
	dirOnly bool
}

// Matcher holds compiled ignore patterns. The zero value ignores nothing but
// dot entries.
type Matcher struct {
	patterns []pattern
}

// New returns a Matcher seeded with Defaults plus the given extra patterns.
func New(extra ...string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range Defaults {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	for _, p := range extra {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add compiles one pattern line. Blank lines and "#" comments are ignored.
// A leading "!" negates, a trailing "/" restricts the pattern to directories,
// and a leading "/" anchors it at the vault root; unanchored patterns without a
// slash match at any depth.
func (m *Matcher) Add(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	var p pattern
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	anchored := strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	if !anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}
	if !doublestar.ValidatePattern(line) {
		return fmt.Errorf("ignore: %q: %w", line, doublestar.ErrBadPattern)
	}
	p.glob = line
	m.patterns = append(m.patterns, p)
	return nil
}

// LoadFile adds every pattern in a gitignore-style file. A missing file is not an error.
func (m *Matcher) LoadFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := m.Add(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Hidden reports whether a single path element is a dot entry.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Match reports whether rel (slash-separated, relative to the vault root) is ignored.
// The last matching pattern wins, as in gitignore.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	for _, part := range strings.Split(rel, "/") {
		if Hidden(part) {
			return true
		}
	}
	if m == nil {
		return false
	}

	ignored := false
	for _, p := range m.patterns {
		var hit bool
		if p.dirOnly && !isDir {
			hit = matchParent(p.glob, rel)
		} else {
			hit = matchGlob(p.glob, rel)
		}
		if hit {
			ignored = !p.negated
		}
	}
	return ignored
}

// matchParent reports whether any parent directory of a file path matches glob.
func matchParent(glob, rel string) bool {
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if matchGlob(glob, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

func matchGlob(glob, rel string) bool {
	if ok, _ := doublestar.Match(glob, rel); ok {
		return true
	}
	if !strings.HasSuffix(glob, "/**") {
		ok, _ := doublestar.Match(glob+"/**", rel)
		return ok
	}
	return false
}
