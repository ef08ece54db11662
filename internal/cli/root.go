// Package cli implements the command surface spec.md §6 names: init,
// build, and run. Structured the way bennypowers-cem's cmd package
// does — one cobra.Command per file, a package-level rootCmd, and an
// exported Execute() called once from main.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dino",
	Short: "Run multi-tenant HTTP handlers written in TypeScript/JavaScript",
	Long: `dino bundles a tenant's TypeScript/JavaScript handlers, runs them in a
pool of embedded script-engine workers, and routes incoming HTTP
requests to them by virtual host and path.`,
}

// Execute runs the root command. Called once from cmd/dino/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
