package tracegen

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"firmtrace/descriptor"
	"firmtrace/types"
)

// Generated file names, per package.
const (
	sitesFile    = "zz_trace_sites.go"
	regionPrefix = "zz_region_"
)

var ErrNoModule = errors.New("tracegen: no go.mod found")

// Site is one annotated emission call.
type Site struct {
	Name   string // site constant passed as the first argument
	ID     uint32
	Pinned bool
	Family Family
	Arity  int
	Class  types.Class
	Code   uint32
	Format string
	File   string // module-relative, slash separated
	Line   int
}

// Package is every site found in one directory.
type Package struct {
	Dir   string
	Name  string
	Sites []*Site

	previous map[string]uint32 // IDs from the existing sites file
	existing []string          // generated files currently on disk
}

// Module is the set of packages sharing one descriptor ID space.
type Module struct {
	Root     string
	Packages []*Package

	reserved map[uint32]string // IDs held by packages outside the scan
}

// FindRoot walks up from dir to the directory holding go.mod.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for d := abs; ; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d, nil
		}
		if filepath.Dir(d) == d {
			return "", fmt.Errorf("%w above %s", ErrNoModule, abs)
		}
	}
}

// Scan loads the module rooted at root. With no dirs every package below the
// root is scanned, skipping directories the go tool ignores (leading '_' or
// '.', testdata, vendor). With dirs, the IDs recorded by every other
// package's generated sites file stay reserved.
func Scan(root string, dirs ...string) (*Module, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	all, err := packageDirs(root)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		dirs = all
	}

	m := &Module{Root: root}
	scanned := make(map[string]bool, len(dirs))
	var errs scanner.ErrorList
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		dir = filepath.Clean(dir)
		scanned[dir] = true
		p, err := scanPackage(root, dir)
		if err != nil {
			var list scanner.ErrorList
			if errors.As(err, &list) {
				errs = append(errs, list...)
				continue
			}
			return nil, err
		}
		if len(p.Sites) > 0 || len(p.existing) > 0 {
			m.Packages = append(m.Packages, p)
		}
	}
	if len(errs) > 0 {
		errs.Sort()
		return nil, errs
	}
	sort.Slice(m.Packages, func(i, j int) bool { return m.Packages[i].Dir < m.Packages[j].Dir })

	for _, dir := range all {
		if scanned[dir] {
			continue
		}
		prev := readPrevious(filepath.Join(dir, sitesFile))
		if len(prev) == 0 {
			continue
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return nil, err
		}
		if m.reserved == nil {
			m.reserved = map[uint32]string{}
		}
		for name, id := range prev {
			m.reserved[id] = filepath.ToSlash(rel) + "." + name
		}
	}
	return m, nil
}

func packageDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") ||
			name == "testdata" || name == "vendor") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

func isGenerated(name string) bool {
	return name == sitesFile || strings.HasPrefix(name, regionPrefix)
}

func scanPackage(root, dir string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tracegen: %w", err)
	}
	p := &Package{Dir: dir}
	fset := token.NewFileSet()
	var errs scanner.ErrorList

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		if isGenerated(name) {
			p.existing = append(p.existing, name)
			if name == sitesFile {
				p.previous = readPrevious(path)
			}
			continue
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("tracegen: %w", err)
		}
		f, err := parser.ParseFile(fset, filepath.ToSlash(rel), src, parser.ParseComments)
		if err != nil {
			var list scanner.ErrorList
			if errors.As(err, &list) {
				errs = append(errs, list...)
				continue
			}
			return nil, err
		}
		if p.Name == "" {
			p.Name = f.Name.Name
		}
		sites, ferrs := scanFile(fset, f)
		p.Sites = append(p.Sites, sites...)
		errs = append(errs, ferrs...)
	}

	seen := map[string]*Site{}
	for _, s := range p.Sites {
		if prev, dup := seen[s.Name]; dup {
			errs.Add(token.Position{Filename: s.File, Line: s.Line},
				fmt.Sprintf("site %s already used at %s:%d; every call needs its own site", s.Name, prev.File, prev.Line))
			continue
		}
		seen[s.Name] = s
	}
	if len(errs) > 0 {
		return nil, errs
	}
	sort.Slice(p.Sites, func(i, j int) bool {
		if p.Sites[i].File != p.Sites[j].File {
			return p.Sites[i].File < p.Sites[j].File
		}
		return p.Sites[i].Line < p.Sites[j].Line
	})
	return p, nil
}

type pending struct {
	dir  Directive
	pos  token.Position
	used bool
}

// scanFile pairs directives with the emission call on the following line.
func scanFile(fset *token.FileSet, f *ast.File) ([]*Site, scanner.ErrorList) {
	var errs scanner.ErrorList
	byLine := map[int]*pending{}
	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, directivePrefix) {
				continue
			}
			pos := fset.Position(c.Slash)
			d, err := ParseDirective(c.Text)
			if err != nil {
				errs.Add(pos, "bad trace directive: "+err.Error())
				continue
			}
			byLine[pos.Line] = &pending{dir: d, pos: pos}
		}
	}

	var sites []*Site
	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pos := fset.Position(call.Pos())
		p, ok := byLine[pos.Line-1]
		if !ok || p.used {
			return true
		}
		family, arity, ok := parseMethod(sel.Sel.Name)
		if !ok {
			return true
		}
		p.used = true

		if arity > types.MaxParams {
			errs.Add(pos, fmt.Sprintf("%s passes %d parameters; at most %d are supported",
				sel.Sel.Name, arity, types.MaxParams))
			return true
		}
		if len(call.Args) != arity+1 {
			errs.Add(pos, fmt.Sprintf("%s takes a site and %d parameters, got %d arguments",
				sel.Sel.Name, arity, len(call.Args)))
			return true
		}
		ident, ok := call.Args[0].(*ast.Ident)
		if !ok {
			errs.Add(pos, "first argument must be a site identifier")
			return true
		}
		if verbs := descriptor.CountVerbs(p.dir.Format); verbs != arity {
			errs.Add(p.pos, fmt.Sprintf("format %s has %d conversions but %s passes %d",
				strconv.Quote(p.dir.Format), verbs, sel.Sel.Name, arity))
			return true
		}
		sites = append(sites, &Site{
			Name:   ident.Name,
			ID:     p.dir.ID,
			Pinned: p.dir.ID != 0,
			Family: family,
			Arity:  arity,
			Class:  p.dir.Class,
			Code:   p.dir.Code,
			Format: p.dir.Format,
			File:   pos.Filename,
			Line:   pos.Line,
		})
		return true
	})

	for _, p := range byLine {
		if !p.used {
			errs.Add(p.pos, "trace directive is not followed by an emission call")
		}
	}
	return sites, errs
}

// readPrevious recovers site IDs from an earlier run so unchanged sites keep
// their references. A missing or unreadable file yields nothing.
func readPrevious(path string) map[string]uint32 {
	f, err := parser.ParseFile(token.NewFileSet(), path, nil, 0)
	if err != nil {
		return nil
	}
	out := map[string]uint32{}
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			if len(vs.Names) != 1 || len(vs.Values) != 1 {
				continue
			}
			lit, ok := vs.Values[0].(*ast.BasicLit)
			if !ok || lit.Kind != token.INT {
				continue
			}
			id, err := strconv.ParseUint(lit.Value, 0, 32)
			if err != nil {
				continue
			}
			out[vs.Names[0].Name] = uint32(id)
		}
	}
	return out
}
