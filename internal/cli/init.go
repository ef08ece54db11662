package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

const scaffoldMainTS = `export default {
  async hello(req) {
    return { status: 200, body: JSON.stringify({ message: "hello from dino" }) };
  },
};
`

const scaffoldConfigYML = `name: my-project
routes:
  - method: GET
    path: /
    handler: hello
`

const scaffoldGitignore = "build/\n.cache/\nnode_modules/\n"

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Scaffold a new tenant project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return scaffoldProject(dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func scaffoldProject(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	files := map[string]string{
		"main.ts":    scaffoldMainTS,
		"config.yml": scaffoldConfigYML,
		".gitignore": scaffoldGitignore,
	}
	for name, contents := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue // don't clobber an existing file on re-init
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		gitInit := exec.Command("git", "init")
		gitInit.Dir = dir
		if err := gitInit.Run(); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
	}

	fmt.Printf("Scaffolded project in %s\n", dir)
	return nil
}
