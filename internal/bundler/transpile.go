package bundler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// TranspileTypeScript strips TypeScript syntax down to plain JS, using
// esbuild purely as a single-file parser/printer (no bundling, no
// resolution) — the module graph itself is walked by hand in bundle.go,
// per the design decision recorded in DESIGN.md.
func TranspileTypeScript(source string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader: api.LoaderTS,
		Format: api.FormatESModule,
		Target: api.ESNext,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("transpiling TypeScript: %s", joinErrors(result.Errors))
	}
	return string(result.Code), nil
}

// parseAndPrint runs any JS/TS/JSX source through esbuild with no
// bundling, producing plain ESNext JS. Used on every module in the
// graph (not just .ts ones) so JSX and modern syntax are normalized
// before the IIFE-wrapping step in internal/qjsengine/worker.go.
func parseAndPrint(source string, loader api.Loader) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader: loader,
		Format: api.FormatESModule,
		Target: api.ESNext,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("parsing module: %s", joinErrors(result.Errors))
	}
	return string(result.Code), nil
}

func joinErrors(errs []api.Message) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Text)
	}
	return strings.Join(msgs, "; ")
}

// loaderFor picks the esbuild loader for a module's resolved path based
// on its extension.
func loaderFor(path string) api.Loader {
	switch {
	case strings.HasSuffix(path, ".tsx"):
		return api.LoaderTSX
	case strings.HasSuffix(path, ".ts"):
		return api.LoaderTS
	case strings.HasSuffix(path, ".jsx"):
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}
