// ============================================================================
// DESCRIPTOR REGISTRY VALIDATION SUITE
// ============================================================================
//
// Test categories:
//   - Bit-exact layout: field order, NUL terminators, 4-byte padding
//   - Region envelope: encode/parse, byte order detection, corrupt input
//   - Image scanning: regions embedded among unrelated bytes
//   - Registry: duplicate IDs, arity lookup, build ID stability, sidecar

package descriptor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"firmtrace/types"
)

// ============================================================================
// TEST UTILITIES AND HELPERS
// ============================================================================

func ipcSite() Descriptor {
	return Descriptor{
		ID:        7,
		Level:     types.LevelVerbose,
		Component: types.ClassIPC.Component(0x05),
		ParamsNum: 1,
		Line:      42,
		File:      "ipc/handler.go",
		Format:    "ipc: reply %d",
	}
}

// ============================================================================
// LAYOUT TESTS
// ============================================================================

func TestDescriptor_Layout(t *testing.T) {
	d := Descriptor{
		Level:     types.LevelCritical,
		Component: types.ClassDMA.Component(3),
		ParamsNum: 2,
		Line:      9,
		File:      "a.c",  // 3 bytes + NUL = 4, no padding
		Format:    "x%dy", // 4 bytes + NUL = 5, padded to 8
	}
	b := d.AppendBinary(nil)

	if len(b) != d.EncodedSize() {
		t.Fatalf("EncodedSize = %d, encoded %d bytes", d.EncodedSize(), len(b))
	}
	want := []uint32{1, 6<<24 | 3, 2, 9, 4}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(b[4*i:]); got != w {
			t.Fatalf("word %d = %#x, want %#x", i, got, w)
		}
	}
	if !bytes.Equal(b[20:24], []byte("a.c\x00")) {
		t.Fatalf("file bytes = %q", b[20:24])
	}
	if got := binary.LittleEndian.Uint32(b[24:]); got != 5 {
		t.Fatalf("format_text_len = %d, want 5", got)
	}
	if !bytes.Equal(b[28:36], []byte("x%dy\x00\x00\x00\x00")) {
		t.Fatalf("format bytes = %q", b[28:36])
	}
}

func TestDescriptor_DecodeRoundTrip(t *testing.T) {
	d := ipcSite()
	b := d.AppendBinary(nil)
	got, n, err := Decode(b, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(b) {
		t.Fatalf("consumed %d of %d", n, len(b))
	}
	d.ID = 0
	if got != d {
		t.Fatalf("got %+v, want %+v", got, d)
	}
}

func TestDescriptor_DecodeRejects(t *testing.T) {
	d := ipcSite()
	b := d.AppendBinary(nil)

	if _, _, err := Decode(b[:10], binary.LittleEndian); !errors.Is(err, ErrShort) {
		t.Errorf("short header: %v", err)
	}
	if _, _, err := Decode(b[:len(b)-4], binary.LittleEndian); !errors.Is(err, ErrShort) {
		t.Errorf("short format: %v", err)
	}

	bad := append([]byte(nil), b...)
	binary.LittleEndian.PutUint32(bad[8:], 4)
	if _, _, err := Decode(bad, binary.LittleEndian); !errors.Is(err, ErrBadArity) {
		t.Errorf("params_num 4: %v", err)
	}

	noNul := append([]byte(nil), b...)
	noNul[20+len(d.File)] = 'x'
	if _, _, err := Decode(noNul, binary.LittleEndian); !errors.Is(err, ErrBadString) {
		t.Errorf("missing NUL: %v", err)
	}
}

func TestDescriptor_Validate(t *testing.T) {
	d := ipcSite()
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	d.ParamsNum = 2
	if err := d.Validate(); err == nil {
		t.Fatal("mismatched conversions accepted")
	}
	d.ParamsNum = 4
	if err := d.Validate(); !errors.Is(err, ErrBadArity) {
		t.Fatalf("arity 4: %v", err)
	}
}

// ============================================================================
// FORMAT SCANNING
// ============================================================================

func TestVerbs(t *testing.T) {
	tests := []struct {
		format string
		convs  string
	}{
		{"", ""},
		{"no params", ""},
		{"100%% done", ""},
		{"value %d", "d"},
		{"%08x and %u", "xu"},
		{"%ld %-4i %#x", "dix"},
		{"ptr %p chr %c", "pc"},
		{"trailing %", ""},
		{"%d%d%d", "ddd"},
	}
	for _, tt := range tests {
		var got []byte
		for _, v := range Verbs(tt.format) {
			got = append(got, v.Conv)
		}
		if string(got) != tt.convs {
			t.Errorf("Verbs(%q) = %q, want %q", tt.format, got, tt.convs)
		}
	}

	v := Verbs("a %08x b")[0]
	if v.Start != 2 || v.End != 6 || v.Flags != "08" {
		t.Fatalf("span = %+v", v)
	}
}

// ============================================================================
// REGION TESTS
// ============================================================================

func TestRegion_RoundTrip(t *testing.T) {
	a := ipcSite()
	b := ipcSite()
	b.ID, b.Line = 3, 50 // identical text, distinct call site
	reg := Region{Level: types.LevelVerbose, Entries: []Descriptor{a, b}}

	blob := reg.Encode()
	got, n, err := ParseRegion(blob)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(blob) {
		t.Fatalf("consumed %d of %d", n, len(blob))
	}
	if len(got.Entries) != 2 || got.Entries[0].ID != 3 || got.Entries[1].ID != 7 {
		t.Fatalf("entries = %+v", got.Entries)
	}
	if got.Entries[0].Line != 50 || got.Entries[1].Line != 42 {
		t.Fatal("descriptors with identical text were merged or reordered wrongly")
	}
	if got.Name() != ".static_log.verbose" {
		t.Fatalf("Name = %q", got.Name())
	}
}

func TestRegion_BigEndian(t *testing.T) {
	d := ipcSite()
	var body []byte
	be := binary.BigEndian
	body = be.AppendUint32(body, d.ID)
	body = be.AppendUint32(body, uint32(d.Level))
	body = be.AppendUint32(body, uint32(d.Component))
	body = be.AppendUint32(body, d.ParamsNum)
	body = be.AppendUint32(body, d.Line)
	for _, s := range []string{d.File, d.Format} {
		body = be.AppendUint32(body, uint32(len(s)+1))
		body = append(body, s...)
		for i := len(s); i < pad4(len(s)+1); i++ {
			body = append(body, 0)
		}
	}
	blob := []byte(Magic)
	blob = be.AppendUint32(blob, uint32(d.Level))
	blob = be.AppendUint32(blob, 1)
	blob = be.AppendUint32(blob, uint32(len(body)))
	blob = append(blob, body...)

	got, _, err := ParseRegion(blob)
	if err != nil {
		t.Fatal(err)
	}
	if got.Entries[0] != d {
		t.Fatalf("got %+v, want %+v", got.Entries[0], d)
	}
}

func TestRegion_Corrupt(t *testing.T) {
	blob := (&Region{Level: types.LevelVerbose, Entries: []Descriptor{ipcSite()}}).Encode()

	if _, _, err := ParseRegion(blob[1:]); !errors.Is(err, ErrNoMagic) {
		t.Errorf("shifted: %v", err)
	}
	if _, _, err := ParseRegion(blob[:len(blob)-1]); err == nil {
		t.Error("truncated region accepted")
	}

	mixed := append([]byte(nil), blob...)
	binary.LittleEndian.PutUint32(mixed[len(Magic):], uint32(types.LevelCritical))
	if _, _, err := ParseRegion(mixed); !errors.Is(err, ErrBadRegion) {
		t.Errorf("level mismatch: %v", err)
	}
}

func TestScanRegions(t *testing.T) {
	verbose := (&Region{Level: types.LevelVerbose, Entries: []Descriptor{ipcSite()}}).Encode()
	crit := ipcSite()
	crit.ID, crit.Level, crit.ParamsNum, crit.Format = 9, types.LevelCritical, 0, "dma: fault"
	critical := (&Region{Level: types.LevelCritical, Entries: []Descriptor{crit}}).Encode()

	var image []byte
	image = append(image, bytes.Repeat([]byte{0xcc}, 13)...)
	image = append(image, Magic...) // stray magic, no valid envelope
	image = append(image, 0xff, 0xff)
	image = append(image, verbose...)
	image = append(image, bytes.Repeat([]byte{0}, 7)...)
	image = append(image, critical...)

	regions := ScanRegions(image)
	if len(regions) != 2 {
		t.Fatalf("found %d regions, want 2", len(regions))
	}
	if regions[0].Level != types.LevelVerbose || regions[1].Level != types.LevelCritical {
		t.Fatalf("levels = %v, %v", regions[0].Level, regions[1].Level)
	}
}

// ============================================================================
// REGISTRY TESTS
// ============================================================================

func TestRegistry_RegisterLookup(t *testing.T) {
	r := NewRegistry()
	blob := (&Region{Level: types.LevelVerbose, Entries: []Descriptor{ipcSite()}}).Encode()
	if err := r.Register(string(blob)); err != nil {
		t.Fatal(err)
	}
	d, ok := r.Lookup(7)
	if !ok || d.Format != "ipc: reply %d" {
		t.Fatalf("Lookup(7) = %+v, %v", d, ok)
	}
	if n, ok := r.Arity(7); !ok || n != 1 {
		t.Fatalf("Arity(7) = %d, %v", n, ok)
	}
	if _, ok := r.Arity(8); ok {
		t.Fatal("Arity of unknown id reported ok")
	}
	if err := r.Register(string(blob)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("re-register: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d after rejected duplicate", r.Len())
	}
}

func TestRegistry_BuildID(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	if a.BuildID() != 0 {
		t.Fatal("empty registry has non-zero build id")
	}

	d1, d2 := ipcSite(), ipcSite()
	d2.ID, d2.Line = 8, 43
	_ = a.Add(d1)
	_ = a.Add(d2)
	_ = b.Add(d2)
	_ = b.Add(d1)
	if a.BuildID() != b.BuildID() {
		t.Fatal("build id depends on registration order")
	}

	c := NewRegistry()
	d3 := d2
	d3.Line = 44
	_ = c.Add(d1)
	_ = c.Add(d3)
	if c.BuildID() == a.BuildID() {
		t.Fatal("build id ignores source line")
	}
}

func TestRegistry_Regions(t *testing.T) {
	r := NewRegistry()
	crit := ipcSite()
	crit.ID, crit.Level = 1, types.LevelCritical
	_ = r.Add(ipcSite())
	_ = r.Add(crit)

	regions := r.Regions()
	if len(regions) != 2 || regions[0].Level != types.LevelCritical {
		t.Fatalf("regions = %+v", regions)
	}
}

func TestRegistry_Sidecar(t *testing.T) {
	r := NewRegistry()
	_ = r.Add(ipcSite())

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if back.BuildID() != r.BuildID() {
		t.Fatalf("build id %08x, want %08x", back.BuildID(), r.BuildID())
	}
	d, _ := back.Lookup(7)
	if d.Component.Class() != types.ClassIPC || d.Component.Code() != 5 {
		t.Fatalf("component = %#x", d.Component)
	}
}

func TestRegistry_MatchesBuild(t *testing.T) {
	r := NewRegistry()
	d1, d2 := ipcSite(), ipcSite()
	d2.ID, d2.Level = 9, types.LevelCritical
	_ = r.Add(d1)
	_ = r.Add(d2)

	subset := BuildIDOf([]Descriptor{d1})
	if r.MatchesBuild(subset) {
		t.Fatal("subset build matched without recorded tag sets")
	}
	if !r.MatchesBuild(r.BuildID()) {
		t.Fatal("whole-table build id rejected")
	}

	r.SetBuilds(map[string]uint32{"notracee": subset, "default": r.BuildID()})
	if !r.MatchesBuild(subset) {
		t.Fatal("recorded tag-set build id rejected")
	}
	if r.MatchesBuild(subset ^ 1) {
		t.Fatal("foreign build id matched")
	}

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !back.MatchesBuild(subset) || back.Builds()["notracee"] != subset {
		t.Fatalf("builds after sidecar round trip = %v", back.Builds())
	}
}
