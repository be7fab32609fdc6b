package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, Filename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[compile]
debug = true
no-ext-ops = true

[embed]
symbol = "app_code"
struct = true
octal = true
line-size = 8
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Compile.Debug || !m.Compile.NoExtOps || m.Compile.NoOptimize {
		t.Errorf("compile section: %+v", m.Compile)
	}
	if m.Embed.Symbol != "app_code" || !m.Embed.Struct || m.Embed.Static || !m.Embed.Octal {
		t.Errorf("embed section: %+v", m.Embed)
	}
	if m.Embed.LineSize != 8 {
		t.Errorf("line-size = %d, want 8", m.Embed.LineSize)
	}
	if m.Dir == "" || !filepath.IsAbs(m.Dir) {
		t.Errorf("Dir = %q, want absolute path", m.Dir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[compile\ndebug = yes")
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("got %v, want parse error", err)
	}
}

func TestLoadLineSizeBounds(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[embed]\nline-size = 256\n")
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "line-size out of bounds") {
		t.Errorf("got %v, want line-size bounds error", err)
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[embed]\nsymbol = \"from_root\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Embed.Symbol != "from_root" {
		t.Fatalf("got %+v, want manifest from root", m)
	}
	if m.Dir != root {
		t.Errorf("Dir = %q, want %q", m.Dir, root)
	}
}

func TestFindAndLoadNearestWins(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[embed]\nsymbol = \"outer\"\n")
	nested := filepath.Join(root, "sub")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, nested, "[embed]\nsymbol = \"inner\"\n")

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m.Embed.Symbol != "inner" {
		t.Errorf("symbol = %q, want inner", m.Embed.Symbol)
	}
}
