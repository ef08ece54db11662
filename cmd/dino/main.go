// Command dino is the CLI entry point: init, build, and run.
package main

import "github.com/dinoserve/dino/internal/cli"

func main() {
	cli.Execute()
}
