package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"firmtrace/decoder"
	"firmtrace/types"
)

func TestParse_OverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
image: build/fw.elf
classes: [ipc, dma]
levels: [critical]
format: json
show_unknown: false
database: trace.db
follow:
  debounce: 250ms
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Image != "build/fw.elf" || cfg.Database != "trace.db" || cfg.OutputFormat() != decoder.FormatJSON {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Colour || cfg.Poll.Core != -1 {
		t.Fatal("unset fields lost their defaults")
	}
	if cfg.Follow.Debounce != 250*time.Millisecond {
		t.Fatalf("debounce = %s", cfg.Follow.Debounce)
	}

	f, err := cfg.Filter()
	if err != nil {
		t.Fatal(err)
	}
	if !f.Classes[types.ClassIPC] || !f.Classes[types.ClassDMA] || len(f.Classes) != 2 {
		t.Fatalf("classes = %v", f.Classes)
	}
	if !f.Levels[types.LevelCritical] || !f.HideUnknown {
		t.Fatalf("filter = %+v", f)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, doc := range []string{
		"format: xml",
		"classes: [nosuch]",
		"levels: [loud]",
		"follow: {debounce: -1s}",
		"poll: {core: -5}",
		"classes: {ipc: 1}",
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%q accepted", doc)
		}
	}
	if _, err := Parse([]byte("format: xml")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_Paths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(EnvPath, "")

	cfg, err := Load("")
	if err != nil || cfg.Format != "text" {
		t.Fatalf("no file: %+v %v", cfg, err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("explicit missing path accepted")
	}

	p := filepath.Join(dir, "env.yaml")
	if err := os.WriteFile(p, []byte("capture: fw.trc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPath, p)
	cfg, err = Load("")
	if err != nil || cfg.Capture != "fw.trc" {
		t.Fatalf("env path: %+v %v", cfg, err)
	}

	home := filepath.Join(dir, ".firmtrace")
	os.MkdirAll(home, 0o755)
	os.WriteFile(filepath.Join(home, "tracedec.yaml"), []byte("mailbox: /dev/shm/mbox\n"), 0o644)
	t.Setenv(EnvPath, "")
	cfg, err = Load("")
	if err != nil || cfg.Mailbox != "/dev/shm/mbox" {
		t.Fatalf("home path: %+v %v", cfg, err)
	}
}
