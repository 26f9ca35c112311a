package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentpm/modgraph/pkg/errors"
	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

// DefaultIgnoreDirs are directory names skipped during the walk in addition
// to hidden directories. They hold third-party or generated code that would
// drown the project's own modules.
var DefaultIgnoreDirs = []string{
	"__pycache__", "node_modules", "venv", "env",
	"site-packages", "build", "dist", "vendor",
}

// Options configures a project scan.
type Options struct {
	Root        string
	Rules       ident.Rules // zero value means ident.DefaultRules()
	IgnoreDirs  []string    // merged with DefaultIgnoreDirs
	Concurrency int         // parse workers; <= 0 means GOMAXPROCS
}

// Scanner walks a project tree and turns each source file into a build unit.
type Scanner struct {
	opts   Options
	ignore map[string]bool
}

// New validates options and returns a Scanner.
func New(opts Options) (*Scanner, error) {
	if opts.Root == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "scan root is required")
	}
	if len(opts.Rules.Extensions) == 0 {
		opts.Rules = ident.DefaultRules()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	ignore := make(map[string]bool, len(DefaultIgnoreDirs)+len(opts.IgnoreDirs))
	for _, d := range DefaultIgnoreDirs {
		ignore[d] = true
	}
	for _, d := range opts.IgnoreDirs {
		ignore[d] = true
	}

	return &Scanner{opts: opts, ignore: ignore}, nil
}

// Scan walks the root, parses every matching source file, and returns one
// unit per file. Unreadable or unparseable files are collected as non-fatal
// errors so one broken file cannot sink the whole analysis; the returned
// error is reserved for walk failures and context cancellation.
func (s *Scanner) Scan(ctx context.Context) ([]graph.Unit, []error, error) {
	files, err := s.collect()
	if err != nil {
		return nil, nil, err
	}

	units := make([]graph.Unit, len(files))
	var (
		mu        sync.Mutex
		malformed []error
	)

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.opts.Concurrency)

	for i, rel := range files {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			unit, err := s.parseFile(rel)
			if err != nil {
				mu.Lock()
				malformed = append(malformed, err)
				mu.Unlock()
				return nil
			}
			units[i] = unit
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}

	// Drop slots left empty by malformed files.
	out := units[:0]
	for _, u := range units {
		if u.RawSourceID != "" {
			out = append(out, u)
		}
	}
	return out, malformed, nil
}

// collect gathers repo-relative source paths in walk order.
func (s *Scanner) collect() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.opts.Root && (s.ignore[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.matchesExtension(name) {
			return nil
		}
		rel, err := filepath.Rel(s.opts.Root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "walking %s", s.opts.Root)
	}
	slices.Sort(files)
	return files, nil
}

func (s *Scanner) matchesExtension(name string) bool {
	for _, ext := range s.opts.Rules.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// parseFile reads one source file and extracts its unit.
func (s *Scanner) parseFile(rel string) (graph.Unit, error) {
	f, err := os.Open(filepath.Join(s.opts.Root, filepath.FromSlash(rel)))
	if err != nil {
		return graph.Unit{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "opening %s", rel)
	}
	defer f.Close()

	imports, err := ParseImports(f, s.packageOf(rel))
	if err != nil {
		return graph.Unit{}, errors.Wrap(errors.GetCode(err), err, "parsing %s", rel)
	}
	return graph.Unit{RawSourceID: rel, RawImports: imports}, nil
}

// packageOf computes the dotted package that anchors a file's relative
// imports. For an index file ("__init__") the file's own identity is the
// package; for a regular module the package is the identity minus its last
// segment.
func (s *Scanner) packageOf(rel string) string {
	id, err := s.opts.Rules.Normalize(rel)
	if err != nil {
		return ""
	}
	dotted := id.String()

	base := rel[strings.LastIndexByte(rel, '/')+1:]
	for _, ext := range s.opts.Rules.Extensions {
		base = strings.TrimSuffix(base, ext)
	}
	if slices.Contains(s.opts.Rules.IndexNames, base) {
		return dotted
	}
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return ""
}
