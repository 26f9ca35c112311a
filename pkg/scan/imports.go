// Package scan discovers Python source files under a project root and
// extracts their import statements into graph build units.
//
// The parser is line-oriented on purpose. A full Python grammar buys nothing
// here: import statements are statements, not expressions, and the handful of
// forms that matter (plain imports, from-imports, aliases, relative dots,
// parenthesized continuation) are all recognizable from line shape. Imports
// inside strings are a known false positive and accepted as noise.
package scan

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/agentpm/modgraph/pkg/errors"
)

var (
	importRE = regexp.MustCompile(`^\s*import\s+(.+)$`)
	fromRE   = regexp.MustCompile(`^\s*from\s+(\S+)\s+import\s+(.+)$`)
)

// ParseImports extracts imported module identifiers from Python source.
//
// pkg is the dotted package containing the module ("app.cli" for
// app/cli/utils.py, "app.cli" for app/cli/__init__.py itself); it anchors
// relative imports. Absolute results are returned in dotted form; resolution
// against the scanned module set happens later, at graph build time.
func ParseImports(r io.Reader, pkg string) ([]string, error) {
	var (
		imports []string
		seen    = make(map[string]bool)
	)
	add := func(mod string) {
		mod = strings.TrimSpace(mod)
		if mod != "" && !seen[mod] {
			seen[mod] = true
			imports = append(imports, mod)
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := sc.Text()

		// Fold parenthesized from-import lists onto one line.
		if fromRE.MatchString(line) && strings.Contains(line, "(") && !strings.Contains(line, ")") {
			var b strings.Builder
			b.WriteString(line)
			for sc.Scan() {
				cont := sc.Text()
				b.WriteString(" ")
				b.WriteString(cont)
				if strings.Contains(cont, ")") {
					break
				}
			}
			line = b.String()
		}

		line = stripComment(line)

		if m := fromRE.FindStringSubmatch(line); m != nil {
			base, names := m[1], m[2]
			if err := addFromImport(add, pkg, base, names); err != nil {
				return imports, err
			}
			continue
		}
		if m := importRE.FindStringSubmatch(line); m != nil {
			// "import a.b, c.d as e" names full module paths.
			for _, part := range strings.Split(m[1], ",") {
				add(firstToken(part))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return imports, errors.Wrap(errors.ErrCodeInvalidFormat, err, "reading source")
	}
	return imports, nil
}

// addFromImport resolves one "from base import names" statement. Relative
// bases (leading dots) are anchored at pkg, one package level per dot beyond
// the first. A bare-dot base means the imported names are themselves sibling
// modules, so each name is recorded; any other base names the module itself.
func addFromImport(add func(string), pkg, base, names string) error {
	dots := 0
	for dots < len(base) && base[dots] == '.' {
		dots++
	}
	rest := base[dots:]

	if dots == 0 {
		add(base)
		return nil
	}

	parts := []string{}
	if pkg != "" {
		parts = strings.Split(pkg, ".")
	}
	up := dots - 1
	if up > len(parts) {
		return errors.New(errors.ErrCodeInvalidFormat, "relative import escapes project root: from %s", base)
	}
	parts = parts[:len(parts)-up]

	if rest != "" {
		add(strings.Join(append(parts, rest), "."))
		return nil
	}

	// "from . import a, b": each imported name is a module in the package.
	for _, name := range strings.Split(names, ",") {
		name = firstToken(name)
		if name == "" || name == "*" {
			continue
		}
		add(strings.Join(append(parts, name), "."))
	}
	return nil
}

// firstToken trims a name down to its leading identifier, dropping
// "as alias" clauses, parentheses, and trailing continuation characters.
func firstToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "()\\")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Trim(fields[0], "(),"))
}

// stripComment removes a trailing # comment. Hash characters inside string
// literals on import lines are rare enough to ignore.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}
