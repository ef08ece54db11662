// Package buildutil computes the content hash used to name and cache a
// tenant's bundled output, mirroring original_source's
// dino/src/utils.rs (calc_project_hash/build_project).
package buildutil

import (
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// hashedExtensions lists the file extensions folded into a project's
// content hash. ".fs" is carried over from original_source even though
// this spec has no F# interop of its own — a project that happens to
// contain one still invalidates the build cache when it changes.
var hashedExtensions = []string{"ts", "fs", "json"}

// hashLen is the number of hex characters kept from the full BLAKE3
// digest, matching calc_hash_for_files's truncation.
const hashLen = 16

// ProjectHash walks dir for every file under hashedExtensions, hashes
// their contents in sorted path order with BLAKE3, and returns the
// first hashLen hex characters of the digest. Sorting the file set
// before hashing is what original_source's BTreeSet glob collection
// achieves; without it, directory iteration order would make the hash
// nondeterministic across platforms.
func ProjectHash(dir string) (string, error) {
	files, err := filesWithExtensions(dir, hashedExtensions)
	if err != nil {
		return "", err
	}

	h := blake3.New()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		if _, err := h.Write(data); err != nil {
			return "", err
		}
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:hashLen], nil
}

// filesWithExtensions globs dir recursively for files whose extension
// (without the leading dot) is in exts, returning paths sorted
// lexically. Mirrors get_files_with_exts.
func filesWithExtensions(dir string, exts []string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[e] = true
	}

	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if want[ext] {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}
