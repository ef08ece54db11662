package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dinoserve/dino/internal/bundler"
	"github.com/dinoserve/dino/internal/buildutil"
)

const (
	entryFile  = "main.ts"
	configFile = "config.yml"
)

var buildMinify bool

var buildCmd = &cobra.Command{
	Use:   "build [directory]",
	Short: "Bundle the project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runBuild(dir, buildMinify)
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildMinify, "minify", false, "minify the emitted bundle instead of prepending a version banner")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(dir string, minify bool) error {
	result, err := buildutil.Build(dir, entryFile, configFile, bundler.Options{CacheDir: moduleCacheDir(), Minify: minify})
	if err != nil {
		return err
	}

	name := filepath.Base(result.ModulePath)
	if result.Cached {
		fmt.Printf("Build success: %s (cached)\n", name)
	} else {
		fmt.Printf("Build success: %s\n", name)
	}
	return nil
}
