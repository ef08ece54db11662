package cli

import (
	"os"
	"path/filepath"
)

// moduleCacheDir mirrors original_source's release-vs-development
// cache directory split, with the project's own name substituted for
// the cache folder: "~/.dino/cache" for a production build, "./.cache"
// otherwise. DINO_ENV=production selects the release path.
func moduleCacheDir() string {
	if os.Getenv("DINO_ENV") == "production" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".dino", "cache")
		}
	}
	return ".cache"
}
