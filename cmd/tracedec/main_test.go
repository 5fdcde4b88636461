package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firmtrace/capture"
	"firmtrace/descriptor"
	"firmtrace/ring"
	"firmtrace/types"
)

// runCLI executes tracedec with args and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()
	w.Close()
	os.Stdout = orig

	out, _ := io.ReadAll(r)
	return string(out), runErr
}

// fixture writes a sidecar for one IPC site and a capture holding seq 0 and
// 2 of that site, so seq 1 is a gap.
func fixture(t *testing.T) (dir, sidecar, trc string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("FIRMTRACE_CONFIG", "")

	reg := descriptor.NewRegistry()
	if err := reg.Add(descriptor.Descriptor{
		ID: 40, Level: types.LevelVerbose, Component: types.ClassIPC.Component(0x05),
		ParamsNum: 1, Line: 50, File: "ipc/handler.go", Format: "msg %d",
	}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := reg.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	sidecar = filepath.Join(dir, "fw.json")
	os.WriteFile(sidecar, buf.Bytes(), 0o644)

	rg, _ := ring.New(16)
	rg.SetBuildID(reg.BuildID())
	rg.Append(40, 0, 42, 0, 0)
	rg.Append(40, 2, 43, 0, 0)
	trc = filepath.Join(dir, "fw.trc")
	if err := capture.WriteFile(trc, capture.SourceRing, rg.Export(), capture.Options{Compress: true}); err != nil {
		t.Fatal(err)
	}
	return dir, sidecar, trc
}

func TestDecodeAndQuery(t *testing.T) {
	dir, sidecar, trc := fixture(t)
	db := filepath.Join(dir, "trace.db")

	out, err := runCLI(t, "decode", "-q", "--no-colour", "--sidecar", sidecar, "--db", db, trc)
	if err != nil {
		t.Fatal(err)
	}
	want := "[0] IPC/VERBOSE ipc/handler.go:50 msg 42\n" +
		"--- lost 1 frames (seq 1..1) ---\n" +
		"[2] IPC/VERBOSE ipc/handler.go:50 msg 43\n"
	if out != want {
		t.Fatalf("decode output:\n%s\nwant:\n%s", out, want)
	}

	out, err = runCLI(t, "query", "-q", "--no-colour", "--db", db, "--class", "ipc", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"text":"msg 43"`) {
		t.Fatalf("query output:\n%s", out)
	}

	out, err = runCLI(t, "query", "-q", "--db", db, "--sessions")
	if err != nil || !strings.Contains(out, "ring") || !strings.Contains(out, "2 records") {
		t.Fatalf("sessions output %q, err %v", out, err)
	}
}

func TestDescriptors(t *testing.T) {
	_, sidecar, _ := fixture(t)
	out, err := runCLI(t, "descriptors", "-q", "--sidecar", sidecar, "--format", "text", "--class", "", "--db", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "40\tIPC/VERBOSE 0x5\tipc/handler.go:50\t\"msg %d\"\n") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestDecode_NoTable(t *testing.T) {
	_, _, trc := fixture(t)
	if _, err := runCLI(t, "decode", "-q", "--sidecar", "", trc); err == nil {
		t.Fatal("decode without a descriptor table succeeded")
	}
}
