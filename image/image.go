// Package image locates descriptor regions inside a built program image.
//
// Regions are plain byte blobs linked into read-only data, so any image that
// carries them verbatim can be decoded against: ELF files are searched
// section by section, anything else is scanned as raw bytes.
package image

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"firmtrace/descriptor"
)

var ErrNoRegions = errors.New("image: no descriptor regions found")

// Format names the container an image was read from.
type Format string

const (
	FormatELF Format = "elf"
	FormatRaw Format = "raw"
)

// Found is one region and where it was located.
type Found struct {
	Section string // ELF section name, empty for raw scans
	Region  descriptor.Region
}

// Image is the result of scanning one file.
type Image struct {
	Path   string
	Format Format
	Found  []Found
}

// Scan reads path and extracts every descriptor region it contains.
func Scan(path string) (*Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read: %w", err)
	}
	im, err := ScanBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	im.Path = path
	return im, nil
}

// ScanBytes extracts regions from an in-memory image. An ELF image whose
// sections yield nothing, for example because they are compressed, is
// rescanned raw.
func ScanBytes(b []byte) (*Image, error) {
	im := &Image{Format: FormatRaw}
	if ef, err := elf.NewFile(bytes.NewReader(b)); err == nil {
		im.Format = FormatELF
		im.Found = scanSections(ef)
		ef.Close()
	}
	if len(im.Found) == 0 {
		for _, r := range descriptor.ScanRegions(b) {
			im.Found = append(im.Found, Found{Region: r})
		}
	}
	if len(im.Found) == 0 {
		return nil, ErrNoRegions
	}
	return im, nil
}

func scanSections(ef *elf.File) []Found {
	var out []Found
	for _, s := range ef.Sections {
		if s.Type == elf.SHT_NOBITS || s.Size == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			continue
		}
		for _, r := range descriptor.ScanRegions(data) {
			out = append(out, Found{Section: s.Name, Region: r})
		}
	}
	return out
}

// Registry builds a registry from the scanned regions. A region linked more
// than once with identical content is added once; two different regions
// claiming the same ID are an error.
func (im *Image) Registry() (*descriptor.Registry, error) {
	reg := descriptor.NewRegistry()
	seen := make(map[string]bool, len(im.Found))
	for i := range im.Found {
		key := string(im.Found[i].Region.Encode())
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := reg.AddRegion(im.Found[i].Region); err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
	}
	return reg, nil
}

// Load scans path and returns its registry.
func Load(path string) (*descriptor.Registry, error) {
	im, err := Scan(path)
	if err != nil {
		return nil, err
	}
	return im.Registry()
}
