package buildutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFilesWithExtensions_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.ts"), "a")
	writeTestFile(t, filepath.Join(dir, "test1", "b.ts"), "b")
	writeTestFile(t, filepath.Join(dir, "test1", "c.js"), "c")
	writeTestFile(t, filepath.Join(dir, "test2", "test3", "d.json"), "d")
	writeTestFile(t, filepath.Join(dir, "ignored.txt"), "x")

	files, err := filesWithExtensions(dir, hashedExtensions)
	if err != nil {
		t.Fatalf("filesWithExtensions: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.ts"),
		filepath.Join(dir, "test1", "b.ts"),
		filepath.Join(dir, "test2", "test3", "d.json"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestProjectHash_DeterministicAndSensitiveToContent(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "main.ts"), "console.log(1);")
	writeTestFile(t, filepath.Join(dir, "config.json"), `{"a":1}`)

	h1, err := ProjectHash(dir)
	if err != nil {
		t.Fatalf("ProjectHash: %v", err)
	}
	if len(h1) != hashLen {
		t.Errorf("hash length = %d, want %d", len(h1), hashLen)
	}

	h2, err := ProjectHash(dir)
	if err != nil {
		t.Fatalf("ProjectHash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s != %s", h1, h2)
	}

	writeTestFile(t, filepath.Join(dir, "main.ts"), "console.log(2);")
	h3, err := ProjectHash(dir)
	if err != nil {
		t.Fatalf("ProjectHash: %v", err)
	}
	if h3 == h1 {
		t.Error("hash did not change after editing a hashed file")
	}
}

func TestProjectHash_IgnoresUnrelatedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "main.ts"), "console.log(1);")

	h1, err := ProjectHash(dir)
	if err != nil {
		t.Fatalf("ProjectHash: %v", err)
	}

	writeTestFile(t, filepath.Join(dir, "README.md"), "unrelated change")
	h2, err := ProjectHash(dir)
	if err != nil {
		t.Fatalf("ProjectHash: %v", err)
	}
	if h1 != h2 {
		t.Error("hash changed after editing a non-hashed extension")
	}
}
