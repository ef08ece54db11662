package bundler

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dinoserve/dino/internal/core"
)

// ImportMap is a WICG import map restricted to a flat "imports" table
// (no scopes), matching what original_source's ImportMap::parse_from_json
// supports. Entries are stored longest-key-first so Lookup always tries
// the most specific prefix before a shorter one.
type ImportMap struct {
	entries []importMapEntry
}

type importMapEntry struct {
	key    string
	target string
}

// ParseImportMap parses an import-map JSON document. The top-level
// "imports" key is required and must be a JSON object; anything else is
// a *core.ConfigParseFailed error.
func ParseImportMap(data []byte) (*ImportMap, error) {
	var doc struct {
		Imports map[string]string `json:"imports"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &core.ConfigParseFailed{Path: "import map", Err: err}
	}
	if doc.Imports == nil {
		return nil, &core.ConfigParseFailed{Path: "import map", Err: fmt.Errorf("no \"imports\" object")}
	}

	m := &ImportMap{entries: make([]importMapEntry, 0, len(doc.Imports))}
	for k, v := range doc.Imports {
		m.entries = append(m.entries, importMapEntry{key: k, target: v})
	}
	// Longer keys first so a lookup like "std/" shadows a hypothetical
	// shorter "std" prefix before it ever gets a chance to match.
	sort.Slice(m.entries, func(i, j int) bool {
		return len(m.entries[i].key) > len(m.entries[j].key)
	})
	return m, nil
}

// Lookup resolves specifier against the map, or returns (specifier,
// false) unchanged if nothing matches. cwd is used to expand "./"-
// prefixed targets, matching the original's replacing the leading "."
// with the current working directory.
//
// A specifier that is exactly the key (with any extension of the key's
// own removed) plus the specifier's file extension is deliberately
// excluded from rewriting — e.g. a map
// entry "./log" -> "./logger.ts" must not also capture a literal
// "./log.ts" import, since that import already names a concrete file.
// This mirrors a subtle rule in original_source's ImportMap::lookup.
func (m *ImportMap) Lookup(specifier, cwd string) (string, bool) {
	for _, e := range m.entries {
		if !strings.HasPrefix(specifier, e.key) {
			continue
		}

		target := e.target
		if strings.HasPrefix(target, "./") {
			target = cwd + target[1:]
		}

		if ext := path.Ext(specifier); ext != "" {
			base := strings.TrimSuffix(e.key, path.Ext(e.key))
			if specifier == base+ext {
				continue
			}
		}

		return strings.Replace(specifier, e.key, target, 1), true
	}
	return specifier, false
}
