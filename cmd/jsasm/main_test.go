package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/jsos/image"
)

const source = `name: hello
sections:
  - code: |
      string "hi"
      ret
`

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"init.jsa.yaml": "init.jmg",
		"lib/a.yaml":    "lib/a.jmg",
		"b.yml":         "b.jmg",
		"raw":           "raw.jmg",
	}
	for in, want := range tests {
		if got := outputPath(in); got != want {
			t.Errorf("outputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssembleAndDisassemble(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.jsa.yaml")
	if err := os.WriteFile(src, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	if err := process(src, "", false, nil); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "hello.jmg"))
	if err != nil {
		t.Fatal(err)
	}
	img, err := image.Parse(data)
	if err != nil {
		t.Fatalf("written image does not parse: %v", err)
	}
	if img.Name != "hello" || len(img.Sections) != 1 {
		t.Errorf("image = %+v", img)
	}

	var out bytes.Buffer
	if err := process(filepath.Join(dir, "hello.jmg"), "", true, &out); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.Contains(out.String(), `string "hi"`) {
		t.Errorf("disassembly missing instruction:\n%s", out.String())
	}
}

func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jsa.yaml")
	if err := os.WriteFile(bad, []byte("sections:\n  - code: bogus\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := process(bad, "", false, nil); err == nil {
		t.Error("bad source assembled")
	}
	if err := process(filepath.Join(dir, "missing.jmg"), "", true, nil); err == nil {
		t.Error("missing file accepted")
	}
}
