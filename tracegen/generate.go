package tracegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"firmtrace/constants"
	"firmtrace/descriptor"
)

const header = "// Code generated by tracegen. DO NOT EDIT.\n\n"

const (
	typesImport      = "firmtrace/types"
	descriptorImport = "firmtrace/descriptor"
)

// chunk is the number of region bytes per string literal line.
const chunk = 16

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ID ASSIGNMENT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Assign gives every site a module-unique ID. Pinned IDs are honoured first,
// then IDs remembered from the previous run, then fresh IDs counting up from
// first. IDs reserved by packages outside the scan are never handed out.
func (m *Module) Assign(first uint32) error {
	used := map[uint32]*Site{}
	claim := func(s *Site, id uint32) bool {
		if _, taken := used[id]; taken {
			return false
		}
		if _, taken := m.reserved[id]; taken {
			return false
		}
		s.ID = id
		used[id] = s
		return true
	}

	for _, p := range m.Packages {
		for _, s := range p.Sites {
			if !s.Pinned {
				s.ID = 0
				continue
			}
			if other, taken := used[s.ID]; taken {
				return fmt.Errorf("tracegen: %s:%d: id %d already pinned at %s:%d",
					s.File, s.Line, s.ID, other.File, other.Line)
			}
			if owner, taken := m.reserved[s.ID]; taken {
				return fmt.Errorf("tracegen: %s:%d: id %d already used by %s",
					s.File, s.Line, s.ID, owner)
			}
			used[s.ID] = s
		}
	}
	for _, p := range m.Packages {
		for _, s := range p.Sites {
			if id, ok := p.previous[s.Name]; ok && !s.Pinned && id >= first {
				claim(s, id)
			}
		}
	}
	next := first
	for _, p := range m.Packages {
		for _, s := range p.Sites {
			if s.ID != 0 {
				continue
			}
			for !claim(s, next) {
				next++
			}
			next++
		}
	}
	return nil
}

// Descriptor returns the descriptor recorded for s.
func (s *Site) Descriptor() descriptor.Descriptor {
	return descriptor.Descriptor{
		ID:        s.ID,
		Level:     s.Family.Level(),
		Component: s.Class.Component(s.Code),
		ParamsNum: uint32(s.Arity),
		Line:      uint32(s.Line),
		File:      s.File,
		Format:    s.Format,
	}
}

// tagSets are the build tag combinations that change which family regions
// are linked. notrace links none and stamps no build ID.
var tagSets = []struct {
	tags     string
	families []Family
}{
	{"default", []Family{FamilyEvent, FamilyError}},
	{"tracev", []Family{FamilyEvent, FamilyVerbose, FamilyError}},
	{"notracee", []Family{FamilyEvent}},
	{"tracev,notracee", []Family{FamilyEvent, FamilyVerbose}},
}

// Registry collects every site of the module, regardless of build tags, and
// records the build ID each tag set would stamp into its sinks.
func (m *Module) Registry() (*descriptor.Registry, error) {
	reg := descriptor.NewRegistry()
	for _, p := range m.Packages {
		for _, s := range p.Sites {
			if err := reg.Add(s.Descriptor()); err != nil {
				return nil, fmt.Errorf("tracegen: %s:%d: %w", s.File, s.Line, err)
			}
		}
	}
	reg.SetBuilds(m.Builds())
	return reg, nil
}

// Builds returns the build ID of the regions each tag set links.
func (m *Module) Builds() map[string]uint32 {
	out := make(map[string]uint32, len(tagSets))
	for _, ts := range tagSets {
		var descs []descriptor.Descriptor
		for _, p := range m.Packages {
			for _, s := range p.Sites {
				if slices.Contains(ts.families, s.Family) {
					descs = append(descs, s.Descriptor())
				}
			}
		}
		sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
		out[ts.tags] = descriptor.BuildIDOf(descs)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SOURCE GENERATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Files renders the generated sources for p: the site constants and one
// region file per family that has sites. Assign must have run.
func (p *Package) Files() (map[string][]byte, error) {
	out := map[string][]byte{}
	if len(p.Sites) == 0 {
		return out, nil
	}
	sites := append([]*Site(nil), p.Sites...)
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })

	src, err := p.sitesSource(sites)
	if err != nil {
		return nil, err
	}
	out[sitesFile] = src

	for f := Family(0); f < numFamilies; f++ {
		var region descriptor.Region
		region.Level = f.Level()
		for _, s := range sites {
			if s.Family == f {
				d := s.Descriptor()
				if err := d.Validate(); err != nil {
					return nil, fmt.Errorf("tracegen: %w", err)
				}
				region.Entries = append(region.Entries, d)
			}
		}
		if len(region.Entries) == 0 {
			continue
		}
		src, err := p.regionSource(f, &region)
		if err != nil {
			return nil, err
		}
		out[regionFile(f)] = src
	}
	return out, nil
}

func regionFile(f Family) string { return regionPrefix + f.String() + ".go" }

func regionConst(f Family) string {
	name := f.String()
	return "region" + string(name[0]-'a'+'A') + name[1:]
}

func (p *Package) sitesSource(sites []*Site) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(header)
	fmt.Fprintf(&b, "package %s\n\nimport %q\n\nconst (\n", p.Name, typesImport)
	for _, s := range sites {
		fmt.Fprintf(&b, "\t%s types.Site%d = %d // %s:%d\n", s.Name, s.Arity, s.ID, s.File, s.Line)
	}
	b.WriteString(")\n")
	return formatSource(p, sitesFile, b.Bytes())
}

func (p *Package) regionSource(f Family, region *descriptor.Region) ([]byte, error) {
	name := regionConst(f)
	var b bytes.Buffer
	b.WriteString(header)
	fmt.Fprintf(&b, "//go:build %s\n\npackage %s\n\nimport %q\n\n", f.buildTag(), p.Name, descriptorImport)
	fmt.Fprintf(&b, "// %s holds the %s family's %s descriptors.\n", name, f, region.Name())
	fmt.Fprintf(&b, "const %s = ", name)
	b.Write(quoteBlob(region.Encode()))
	fmt.Fprintf(&b, "\n\nfunc init() { descriptor.MustRegister(%s) }\n", name)
	return formatSource(p, regionFile(f), b.Bytes())
}

func formatSource(p *Package, name string, src []byte) ([]byte, error) {
	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("tracegen: format %s: %w", filepath.Join(p.Dir, name), err)
	}
	return out, nil
}

// quoteBlob renders b as concatenated string literals of chunk bytes each.
// Printable ASCII stays readable; everything else is a \x escape.
func quoteBlob(b []byte) []byte {
	const hex = "0123456789abcdef"
	var out []byte
	for i := 0; i < len(b); i += chunk {
		if i > 0 {
			out = append(out, " +\n\t"...)
		}
		end := min(i+chunk, len(b))
		out = append(out, '"')
		for _, c := range b[i:end] {
			if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
				out = append(out, c)
				continue
			}
			out = append(out, '\\', 'x', hex[c>>4], hex[c&15])
		}
		out = append(out, '"')
	}
	if len(out) == 0 {
		out = append(out, strconv.Quote("")...)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Change is one generated file that differs from disk.
type Change struct {
	Path   string
	Remove bool // generated file no longer needed
	Data   []byte
}

// Changes compares the generated sources against disk.
func (m *Module) Changes() ([]Change, error) {
	var out []Change
	for _, p := range m.Packages {
		files, err := p.Files()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(p.Dir, name)
			if cur, err := os.ReadFile(path); err == nil && bytes.Equal(cur, files[name]) {
				continue
			}
			out = append(out, Change{Path: path, Data: files[name]})
		}
		for _, name := range p.existing {
			if _, keep := files[name]; !keep {
				out = append(out, Change{Path: filepath.Join(p.Dir, name), Remove: true})
			}
		}
	}
	return out, nil
}

// Apply writes or removes the changed files.
func Apply(changes []Change) error {
	for _, c := range changes {
		if c.Remove {
			if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("tracegen: %w", err)
			}
			continue
		}
		if err := os.WriteFile(c.Path, c.Data, 0o644); err != nil {
			return fmt.Errorf("tracegen: %w", err)
		}
	}
	return nil
}

// Generate scans the module at root, assigns IDs and brings every generated
// file up to date. It returns what was changed.
func Generate(root string, dirs ...string) ([]Change, error) {
	m, err := Scan(root, dirs...)
	if err != nil {
		return nil, err
	}
	if err := m.Assign(constants.FirstSiteID); err != nil {
		return nil, err
	}
	changes, err := m.Changes()
	if err != nil {
		return nil, err
	}
	return changes, Apply(changes)
}
