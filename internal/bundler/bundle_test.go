package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBundle_SingleFileNoImports(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.ts")
	os.WriteFile(entry, []byte(`export default { hello(req) { return req; } };`), 0o644)

	out, err := Bundle(entry, Options{})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if !strings.Contains(out, "export default") {
		t.Errorf("bundle should end with an ES module default export, got %q", out)
	}
	if strings.Contains(out, "import ") {
		t.Errorf("bundle should have no remaining import statements, got %q", out)
	}
}

func TestBundle_FollowsRelativeImports(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "greeting.ts"), []byte(`export function greet(name) { return "hi " + name; }`), 0o644)
	entry := filepath.Join(dir, "main.ts")
	os.WriteFile(entry, []byte(`
import { greet } from "./greeting.ts";
export default { hello(req) { return greet("world"); } };
`), 0o644)

	out, err := Bundle(entry, Options{})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if !strings.Contains(out, "hi \" + name") {
		t.Errorf("bundle should inline greeting.ts's body, got %q", out)
	}
	if strings.Contains(out, `from "./greeting.ts"`) {
		t.Errorf("bundle should not leave the original import statement, got %q", out)
	}
}

func TestBundle_MissingImportFails(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.ts")
	os.WriteFile(entry, []byte(`import { x } from "./nope.ts"; export default { f(){ return x; } };`), 0o644)

	if _, err := Bundle(entry, Options{}); err == nil {
		t.Error("expected a ModuleNotFound-flavored error")
	}
}

func TestBundle_CoreModulesStayExternal(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "lib.ts"), []byte(`
import { get } from "dino:kv";
export function read(key) { return get(key); }
`), 0o644)
	entry := filepath.Join(dir, "main.ts")
	os.WriteFile(entry, []byte(`
import { read } from "./lib.ts";
import dino from "dino:kv";
export default { f(req) { return dino.wrap(read(req.params.key)); } };
`), 0o644)

	out, err := Bundle(entry, Options{CoreModules: []string{"dino:kv"}})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if !strings.Contains(out, `from "dino:kv"`) {
		t.Errorf("bundle should retain a bare import of the core module, got %q", out)
	}
	if strings.Count(out, `"dino:kv"`) != 2 {
		t.Errorf("bundle should hoist each distinct dino:kv import once (one named, one default), got %q", out)
	}
	if !strings.Contains(out, "function read(key)") {
		t.Errorf("lib.ts's own function body should still be inlined, got %q", out)
	}
}

func TestBundle_MinifyDropsBannerAndShrinksOutput(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.ts")
	os.WriteFile(entry, []byte(`
export default {
	hello(req) {
		const greeting = "hello";
		return { status: 200, headers: {}, body: greeting };
	},
};
`), 0o644)

	plain, err := Bundle(entry, Options{})
	if err != nil {
		t.Fatalf("Bundle (plain): %v", err)
	}
	if !strings.HasPrefix(plain, "// bundled by dino\n") {
		t.Errorf("unminified bundle should carry the version banner, got %q", plain)
	}

	minified, err := Bundle(entry, Options{Minify: true})
	if err != nil {
		t.Fatalf("Bundle (minified): %v", err)
	}
	if strings.Contains(minified, "// bundled by dino") {
		t.Errorf("minified bundle should drop the version banner, got %q", minified)
	}
	if len(minified) >= len(plain) {
		t.Errorf("minified bundle (%d bytes) should be smaller than plain (%d bytes)", len(minified), len(plain))
	}
}

func TestBundle_RewritesImportMetaMainForEntryOnly(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "lib.ts"), []byte(`export const isMain = import.meta.main;`), 0o644)
	entry := filepath.Join(dir, "main.ts")
	os.WriteFile(entry, []byte(`
import { isMain } from "./lib.ts";
export default { f() { return { entryMain: import.meta.main, libMain: isMain }; } };
`), 0o644)

	out, err := Bundle(entry, Options{})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if !strings.Contains(out, "entryMain: true") {
		t.Errorf("entry module's import.meta.main should be true, got %q", out)
	}
	if !strings.Contains(out, "isMain = false") {
		t.Errorf("non-entry module's import.meta.main should be false, got %q", out)
	}
}
