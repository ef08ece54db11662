// Package config loads a tenant's config.yml, the YAML document
// spec.md §6 describes: a project name and a list of method/path/
// handler route entries. It uses gopkg.in/yaml.v2, the teacher's own
// choice for structured config elsewhere in the pack.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/dinoserve/dino/internal/core"
)

// RouteConfig is one entry of the routes list in config.yml.
type RouteConfig struct {
	Method  string `yaml:"method"`
	Path    string `yaml:"path"`
	Handler string `yaml:"handler"`
}

// ProjectConfig is the parsed shape of a tenant's config.yml.
type ProjectConfig struct {
	Name   string        `yaml:"name"`
	Routes []RouteConfig `yaml:"routes"`
}

// Load reads and parses the config.yml at path.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConfigParseFailed{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse parses raw YAML bytes into a ProjectConfig. path is used only
// to annotate a parse error.
func Parse(data []byte, path string) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &core.ConfigParseFailed{Path: path, Err: err}
	}
	return &cfg, nil
}

// CoreRoutes converts the config's route entries into core.Route
// values, upper-casing method the way httprouter itself expects
// (config.yml's method field is declared case-insensitive).
func (c *ProjectConfig) CoreRoutes() []core.Route {
	out := make([]core.Route, len(c.Routes))
	for i, r := range c.Routes {
		out[i] = core.Route{
			Method:  strings.ToUpper(r.Method),
			Path:    r.Path,
			Handler: r.Handler,
		}
	}
	return out
}
