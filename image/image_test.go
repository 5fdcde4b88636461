package image

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"firmtrace/descriptor"
	_ "firmtrace/trace" // links the built-in value regions into the test binary
	"firmtrace/types"
)

func sampleRegion(id uint32, level types.Level, format string) *descriptor.Region {
	return &descriptor.Region{Level: level, Entries: []descriptor.Descriptor{{
		ID:        id,
		Level:     level,
		Component: types.ClassDMA.Component(1),
		ParamsNum: uint32(descriptor.CountVerbs(format)),
		Line:      12,
		File:      "audio/dma.go",
		Format:    format,
	}}}
}

func writeTemp(t *testing.T, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fw.bin")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestScan_Raw(t *testing.T) {
	var img []byte
	img = append(img, "\x7fNOTELF padding"...)
	img = append(img, descriptor.Magic...) // stray magic with no envelope
	img = append(img, 0xde, 0xad)
	img = append(img, sampleRegion(20, types.LevelVerbose, "ch %d").Encode()...)
	img = append(img, make([]byte, 13)...)
	img = append(img, sampleRegion(21, types.LevelCritical, "xrun").Encode()...)

	im, err := Scan(writeTemp(t, img))
	if err != nil {
		t.Fatal(err)
	}
	if im.Format != FormatRaw || len(im.Found) != 2 || im.Found[0].Section != "" {
		t.Fatalf("image = %+v", im)
	}
	reg, err := im.Registry()
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := reg.Lookup(21); !ok || d.Format != "xrun" || d.Level != types.LevelCritical {
		t.Fatalf("lookup 21 = %+v %v", d, ok)
	}
	if n, _ := reg.Arity(20); n != 1 {
		t.Fatalf("arity 20 = %d", n)
	}
}

func TestRegistry_DuplicateRegions(t *testing.T) {
	r := sampleRegion(30, types.LevelVerbose, "a %d").Encode()
	im, err := ScanBytes(append(append([]byte{}, r...), r...))
	if err != nil {
		t.Fatal(err)
	}
	if len(im.Found) != 2 {
		t.Fatalf("found %d", len(im.Found))
	}
	reg, err := im.Registry()
	if err != nil || reg.Len() != 1 {
		t.Fatalf("identical copies: len %d err %v", reg.Len(), err)
	}

	clash := append(append([]byte{}, r...), sampleRegion(30, types.LevelVerbose, "b %d").Encode()...)
	im, _ = ScanBytes(clash)
	if _, err := im.Registry(); !errors.Is(err, descriptor.ErrDuplicateID) {
		t.Fatalf("conflicting copies: %v", err)
	}
}

func TestScan_NoRegions(t *testing.T) {
	if _, err := Scan(writeTemp(t, []byte("nothing to see"))); !errors.Is(err, ErrNoRegions) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("missing file accepted")
	}
}

// TestScan_OwnExecutable reads the running test binary, which links the
// trace package's regions, and expects to recover them from ELF sections.
func TestScan_OwnExecutable(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("ELF images only")
	}
	if descriptor.Default.Len() == 0 {
		t.Skip("no regions built in")
	}
	exe, err := os.Executable()
	if err != nil {
		t.Skip(err)
	}
	im, err := Scan(exe)
	if err != nil {
		t.Fatal(err)
	}
	if im.Format != FormatELF {
		t.Fatalf("format = %s", im.Format)
	}
	reg, err := im.Registry()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range descriptor.Default.Descriptors() {
		got, ok := reg.Lookup(want.ID)
		if !ok {
			t.Fatalf("site %d not recovered", want.ID)
		}
		if *got != want {
			t.Fatalf("site %d = %+v, want %+v", want.ID, *got, want)
		}
	}
}
