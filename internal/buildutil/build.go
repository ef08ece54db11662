package buildutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dinoserve/dino/internal/bundler"
)

// BuildDir is where bundled projects are cached, named by content hash.
const BuildDir = "build"

// BuildResult is what Build returns: the path to the bundled entry
// module and its paired config copy, plus whether a cached build was
// reused instead of re-running the bundler.
type BuildResult struct {
	ModulePath string
	ConfigPath string
	Cached     bool
}

// Build computes dir's project hash, and either returns the
// already-cached bundle for that hash or runs the bundler fresh and
// writes {hash}.mjs into BuildDir. In both cases the current config
// file is copied to {hash}.yml, since config.yml is not part of the
// hash. Mirrors original_source's build_project, including its "hash
// already on disk means skip the bundle" cache semantics.
func Build(dir string, entryFile string, configFile string, opts bundler.Options) (*BuildResult, error) {
	hash, err := ProjectHash(dir)
	if err != nil {
		return nil, fmt.Errorf("hashing project: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, BuildDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating build dir: %w", err)
	}

	modulePath := filepath.Join(dir, BuildDir, hash+".mjs")
	configPath := filepath.Join(dir, BuildDir, hash+".yml")

	if info, err := os.Stat(modulePath); err == nil && !info.IsDir() {
		if err := copyFile(filepath.Join(dir, configFile), configPath); err != nil {
			return nil, fmt.Errorf("copying config: %w", err)
		}
		return &BuildResult{ModulePath: modulePath, ConfigPath: configPath, Cached: true}, nil
	}

	bundled, err := bundler.Bundle(filepath.Join(dir, entryFile), opts)
	if err != nil {
		return nil, fmt.Errorf("bundling %s: %w", entryFile, err)
	}

	if err := os.WriteFile(modulePath, []byte(bundled), 0o644); err != nil {
		return nil, fmt.Errorf("writing bundle: %w", err)
	}

	if err := copyFile(filepath.Join(dir, configFile), configPath); err != nil {
		return nil, fmt.Errorf("copying config: %w", err)
	}

	return &BuildResult{ModulePath: modulePath, ConfigPath: configPath, Cached: false}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
