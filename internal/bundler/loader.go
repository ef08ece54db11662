package bundler

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dinoserve/dino/internal/core"
)

// extensions is the probe order load_as_file walks when a specifier has
// no extension of its own, and load_as_directory walks for "index.*".
// Grounded in original_source's FsModuleLoader::EXTENSIONS.
var extensions = []string{"js", "jsx", "ts", "tsx", "json", "wasm"}

var urlRegex = regexp.MustCompile(`^(http|https)://`)
var windowsDriveRegex = regexp.MustCompile(`^[a-zA-Z]:\\`)

// LoadedModule is one resolved and read module: its resolved specifier
// (used as the ModuleMap key) and raw source text.
type LoadedModule struct {
	Specifier string
	Source    string
}

// Loader resolves and reads module source, dispatching between the
// filesystem and HTTP(S) loaders the same way original_source's
// resolve_import/load_import do: a specifier or base matching
// urlRegex goes through the URL loader, everything else through the
// filesystem loader.
type Loader struct {
	ImportMap *ImportMap
	CacheDir  string // URL download cache; "" disables caching
	SkipCache bool
	cwd       string
}

// NewLoader builds a Loader rooted at cwd (used to expand "./" import
// map targets and to resolve relative specifiers with no base).
func NewLoader(cwd string, im *ImportMap, cacheDir string, skipCache bool) *Loader {
	return &Loader{ImportMap: im, CacheDir: cacheDir, SkipCache: skipCache, cwd: cwd}
}

// Resolve turns a (base, specifier) pair into an absolute path or URL,
// applying the import map first and falling back to the specifier
// itself when nothing matches — mirroring resolve_import.
func (l *Loader) Resolve(base, specifier string) (string, error) {
	resolvedSpecifier := specifier
	if l.ImportMap != nil {
		if mapped, ok := l.ImportMap.Lookup(specifier, l.cwd); ok {
			resolvedSpecifier = mapped
		}
	}

	if urlRegex.MatchString(resolvedSpecifier) || (base != "" && urlRegex.MatchString(base)) {
		return resolveURL(base, resolvedSpecifier)
	}
	return l.resolveFS(base, resolvedSpecifier)
}

// resolveFS turns an absolute/relative specifier into an absolute
// filesystem path without checking it exists yet — existence and
// extension-probing happen in Load. Mirrors FsModuleLoader::resolve.
func (l *Loader) resolveFS(base, specifier string) (string, error) {
	if filepath.IsAbs(specifier) || windowsDriveRegex.MatchString(specifier) {
		return filepath.Clean(specifier), nil
	}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		dir := l.cwd
		if base != "" {
			dir = filepath.Dir(base)
		}
		return filepath.Clean(filepath.Join(dir, specifier)), nil
	}
	return "", &core.ModuleNotFound{Specifier: specifier}
}

func resolveURL(base, specifier string) (string, error) {
	if u, err := url.Parse(specifier); err == nil && u.IsAbs() {
		return specifier, nil
	}
	if base == "" {
		return "", &core.ModuleNotFound{Specifier: specifier}
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", &core.ModuleNotFound{Specifier: specifier}
	}
	ref, err := baseURL.Parse(specifier)
	if err != nil {
		return "", &core.ModuleNotFound{Specifier: specifier}
	}
	return ref.String(), nil
}

// Load reads the module at a resolved specifier (as returned by
// Resolve), dispatching on whether it looks like a URL.
func (l *Loader) Load(resolved string) (*LoadedModule, error) {
	if urlRegex.MatchString(resolved) {
		return l.loadURL(resolved)
	}
	return loadFSModule(resolved)
}

// loadFSModule mirrors FsModuleLoader::load: try the specifier as an
// exact file, then as a directory index; JSON files are wrapped as an
// ES module default export so the rest of the pipeline never special-
// cases the JSON-import case.
func loadFSModule(resolved string) (*LoadedModule, error) {
	if path, ok := loadAsFile(resolved); ok {
		return readFSModule(path)
	}
	if path, ok := loadAsDirectory(resolved); ok {
		return readFSModule(path)
	}
	return nil, &core.ModuleNotFound{Specifier: resolved}
}

func loadAsFile(p string) (string, bool) {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, true
	}
	for _, ext := range extensions {
		withExt := p + "." + ext
		if info, err := os.Stat(withExt); err == nil && !info.IsDir() {
			return withExt, true
		}
	}
	return "", false
}

func loadAsDirectory(dir string) (string, bool) {
	for _, ext := range extensions {
		candidate := filepath.Join(dir, "index."+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func readFSModule(path string) (*LoadedModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ModuleNotFound{Specifier: path}
	}
	source := string(data)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		source = wrapJSON(source)
	}
	return &LoadedModule{Specifier: path, Source: source}, nil
}

// wrapJSON turns a JSON document into an ES module exporting it as the
// default export, matching FsModuleLoader::wrap_json.
func wrapJSON(source string) string {
	return fmt.Sprintf("export default JSON.parse(%s);", backtickQuote(source))
}

func backtickQuote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	return "`" + s + "`"
}

// loadURL loads a remote module, caching it on disk by the SHA-1 of its
// URL. Mirrors UrlModuleLoader::load; TS sources are transpiled before
// being cached so every cache hit is already plain JS.
func (l *Loader) loadURL(specifier string) (*LoadedModule, error) {
	cachePath := l.cacheFilePath(specifier)

	if cachePath != "" && !l.SkipCache {
		if data, err := os.ReadFile(cachePath); err == nil {
			return &LoadedModule{Specifier: specifier, Source: string(data)}, nil
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(specifier)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", specifier, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", specifier, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", specifier, err)
	}
	source := string(body)

	if isTypeScriptURL(specifier) {
		source, err = TranspileTypeScript(source)
		if err != nil {
			return nil, fmt.Errorf("transpiling %s: %w", specifier, err)
		}
	}

	if cachePath != "" {
		_ = os.MkdirAll(filepath.Dir(cachePath), 0o755)
		_ = os.WriteFile(cachePath, []byte(source), 0o644)
	}

	return &LoadedModule{Specifier: specifier, Source: source}, nil
}

func isTypeScriptURL(specifier string) bool {
	u, err := url.Parse(specifier)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(u.Path))
	return ext == ".ts" || ext == ".tsx"
}

// cacheFilePath hashes specifier with SHA-1 into a hex filename under
// CacheDir, matching UrlModuleLoader's cache key derivation.
func (l *Loader) cacheFilePath(specifier string) string {
	if l.CacheDir == "" {
		return ""
	}
	sum := sha1.Sum([]byte(specifier))
	return filepath.Join(l.CacheDir, hex.EncodeToString(sum[:]))
}
