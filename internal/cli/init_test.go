package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScaffoldProject_CreatesExpectedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")

	if err := scaffoldProject(dir); err != nil {
		t.Fatalf("scaffoldProject: %v", err)
	}

	for _, name := range []string{"main.ts", "config.yml", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestScaffoldProject_DoesNotClobberExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("// custom entry\n")
	if err := os.WriteFile(filepath.Join(dir, "main.ts"), custom, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := scaffoldProject(dir); err != nil {
		t.Fatalf("scaffoldProject: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "main.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(custom) {
		t.Errorf("main.ts was overwritten: %q", got)
	}
}

func TestModuleCacheDir_DefaultsToDotCache(t *testing.T) {
	os.Unsetenv("DINO_ENV")
	if got := moduleCacheDir(); got != ".cache" {
		t.Errorf("moduleCacheDir() = %q, want .cache", got)
	}
}

func TestModuleCacheDir_ProductionUsesHomeDir(t *testing.T) {
	t.Setenv("DINO_ENV", "production")
	got := moduleCacheDir()
	if got == ".cache" {
		t.Errorf("moduleCacheDir() in production mode should not be .cache, got %q", got)
	}
}
