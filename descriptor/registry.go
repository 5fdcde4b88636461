package descriptor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/crypto/sha3"

	"firmtrace/types"
)

// ErrDuplicateID reports two descriptors claiming the same site reference.
var ErrDuplicateID = errors.New("descriptor: duplicate site id")

// Registry resolves site references to descriptors. It is filled during
// package initialisation and read-only afterwards; the lock only guards
// registration racing with a decoder in tests and tools.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uint32]*Descriptor
	builds map[string]uint32 // build ID per tag set, for tables covering every family
}

// Default collects the regions linked into the running image.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]*Descriptor)}
}

// Register parses a region blob and adds all of its entries.
func (r *Registry) Register(blob string) error {
	reg, _, err := ParseRegion([]byte(blob))
	if err != nil {
		return err
	}
	return r.AddRegion(reg)
}

// MustRegister is Register for generated init functions.
func MustRegister(blob string) {
	if err := Default.Register(blob); err != nil {
		panic(err)
	}
}

// AddRegion adds every entry of a decoded region. Nothing is added if any
// entry collides with an existing ID.
func (r *Registry) AddRegion(reg Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range reg.Entries {
		if _, dup := r.byID[reg.Entries[i].ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateID, reg.Entries[i].ID)
		}
	}
	for i := range reg.Entries {
		d := reg.Entries[i]
		r.byID[d.ID] = &d
	}
	return nil
}

// Add registers a single descriptor.
func (r *Registry) Add(d Descriptor) error {
	return r.AddRegion(Region{Level: d.Level, Entries: []Descriptor{d}})
}

// Lookup returns the descriptor for a site reference.
func (r *Registry) Lookup(id uint32) (*Descriptor, bool) {
	r.mu.RLock()
	d, ok := r.byID[id]
	r.mu.RUnlock()
	return d, ok
}

// Arity returns params_num for a site reference.
func (r *Registry) Arity(id uint32) (int, bool) {
	d, ok := r.Lookup(id)
	if !ok {
		return 0, false
	}
	return int(d.ParamsNum), true
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Descriptors returns a copy of every descriptor in ascending ID order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, *d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Regions regroups the registry by level, one Region per level present.
func (r *Registry) Regions() []Region {
	byLevel := map[types.Level]*Region{}
	var levels []types.Level
	for _, d := range r.Descriptors() {
		reg, ok := byLevel[d.Level]
		if !ok {
			reg = &Region{Level: d.Level}
			byLevel[d.Level] = reg
			levels = append(levels, d.Level)
		}
		reg.Entries = append(reg.Entries, d)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	out := make([]Region, 0, len(levels))
	for _, l := range levels {
		out = append(out, *byLevel[l])
	}
	return out
}

// BuildID fingerprints the descriptor table: the first 32 bits of SHA3-256
// over every (id, descriptor) pair in ID order. Sinks stamp it into their
// header so a capture can be matched to the image that produced it.
// An empty registry has build ID 0.
func (r *Registry) BuildID() uint32 {
	return BuildIDOf(r.Descriptors())
}

// BuildIDOf fingerprints descs, which must be in ascending ID order.
func BuildIDOf(descs []Descriptor) uint32 {
	if len(descs) == 0 {
		return 0
	}
	h := sha3.New256()
	var buf []byte
	for i := range descs {
		buf = binary.LittleEndian.AppendUint32(buf[:0], descs[i].ID)
		buf = descs[i].AppendBinary(buf)
		h.Write(buf)
	}
	return binary.LittleEndian.Uint32(h.Sum(nil))
}

// SetBuilds records the build ID each tag set links from this table. A
// generator-built table covers every family, while a sink only carries the
// regions its build tags linked.
func (r *Registry) SetBuilds(builds map[string]uint32) {
	r.mu.Lock()
	r.builds = builds
	r.mu.Unlock()
}

// Builds returns the per-tag-set build IDs, keyed by tag set.
func (r *Registry) Builds() map[string]uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.builds
}

// MatchesBuild reports whether a sink stamped with id was produced from this
// table, either whole or under one of the recorded tag sets.
func (r *Registry) MatchesBuild(id uint32) bool {
	if id == r.BuildID() {
		return true
	}
	for _, b := range r.Builds() {
		if b == id {
			return true
		}
	}
	return false
}

// ============================================================================
// SIDECAR EXPORT
// ============================================================================

// sidecarEntry is the JSON shape of one descriptor in the sidecar file.
type sidecarEntry struct {
	ID        uint32 `json:"id"`
	Level     string `json:"level"`
	Class     string `json:"class"`
	Code      uint32 `json:"code"`
	Component uint32 `json:"component_id"`
	ParamsNum uint32 `json:"params_num"`
	File      string `json:"file"`
	Line      uint32 `json:"line"`
	Format    string `json:"format"`
}

type sidecar struct {
	BuildID     uint32            `json:"build_id"`
	Builds      map[string]uint32 `json:"builds,omitempty"`
	Descriptors []sidecarEntry    `json:"descriptors"`
}

// WriteJSON writes the registry as a sidecar metadata file.
func (r *Registry) WriteJSON(w io.Writer) error {
	sc := sidecar{BuildID: r.BuildID(), Builds: r.Builds()}
	for _, d := range r.Descriptors() {
		sc.Descriptors = append(sc.Descriptors, sidecarEntry{
			ID:        d.ID,
			Level:     d.Level.String(),
			Class:     d.Component.Class().String(),
			Code:      d.Component.Code(),
			Component: uint32(d.Component),
			ParamsNum: d.ParamsNum,
			File:      d.File,
			Line:      d.Line,
			Format:    d.Format,
		})
	}
	out, err := sonnet.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("descriptor: encode sidecar: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// ReadJSON loads a sidecar file written by WriteJSON.
func ReadJSON(data []byte) (*Registry, error) {
	var sc sidecar
	if err := sonnet.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("descriptor: decode sidecar: %w", err)
	}
	r := NewRegistry()
	for _, e := range sc.Descriptors {
		lvl, err := types.ParseLevel(e.Level)
		if err != nil {
			return nil, err
		}
		d := Descriptor{
			ID:        e.ID,
			Level:     lvl,
			Component: types.ComponentID(e.Component),
			ParamsNum: e.ParamsNum,
			Line:      e.Line,
			File:      e.File,
			Format:    e.Format,
		}
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	if sc.BuildID != 0 && r.BuildID() != sc.BuildID {
		return nil, fmt.Errorf("descriptor: sidecar build id %08x does not match content %08x",
			sc.BuildID, r.BuildID())
	}
	if len(sc.Builds) > 0 {
		r.SetBuilds(sc.Builds)
	}
	return r, nil
}
