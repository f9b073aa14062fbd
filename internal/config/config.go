// Package config loads and validates the Config/Limits documents of
// spec.md §6, grounded on the teacher's core/types/validation.go: a
// santhosh-tekuri/jsonschema/v5 compiler guards the document shape before
// any Session opens, and gopkg.in/yaml.v3 parses the CLI's on-disk form.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/logging"
)

// NetworkConfig describes the HTTP collaborator's allowlist, or is absent
// entirely (network access denied by default, per spec.md §6).
type NetworkConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts"`
	RatePerSec   float64  `yaml:"rate_per_sec" json:"rate_per_sec"`
	Burst        int      `yaml:"burst" json:"burst"`
}

// PythonConfig describes the sandboxed Python worker collaborator.
type PythonConfig struct {
	Interpreter string `yaml:"interpreter" json:"interpreter"`
	WallTimeout int     `yaml:"wall_timeout_seconds" json:"wall_timeout_seconds"`
}

// Config is the builder-options surface of spec.md §6, loadable from code
// or from a YAML document for the CLI wrapper.
type Config struct {
	Cwd      string            `yaml:"cwd" json:"cwd"`
	Env      map[string]string `yaml:"env" json:"env"`
	Username string            `yaml:"username" json:"username"`
	Hostname string            `yaml:"hostname" json:"hostname"`
	Limits   env.Limits        `yaml:"limits" json:"limits"`
	Log      logging.Config    `yaml:"-" json:"-"`
	Network  *NetworkConfig    `yaml:"network" json:"network"`
	Python   *PythonConfig     `yaml:"python" json:"python"`
}

// Default returns a Config with sane bounds, matching env.DefaultLimits
// and spec.md §6's stated username/hostname defaults.
func Default() Config {
	return Config{
		Username: "user",
		Hostname: "sandbox",
		Limits:   env.DefaultLimits(),
	}
}

// schemaDoc bounds every field a loaded document may set, rejecting
// limits outside sane bounds before a session ever opens.
const schemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "cwd": {"type": "string"},
    "username": {"type": "string", "minLength": 1},
    "hostname": {"type": "string", "minLength": 1},
    "env": {"type": "object", "additionalProperties": {"type": "string"}},
    "limits": {
      "type": "object",
      "properties": {
        "MaxCommands": {"type": "integer", "minimum": 1, "maximum": 10000000},
        "MaxLoopIterations": {"type": "integer", "minimum": 1, "maximum": 100000000},
        "MaxFunctionDepth": {"type": "integer", "minimum": 1, "maximum": 10000},
        "MaxOutputBytes": {"type": "integer", "minimum": 1, "maximum": 1073741824},
        "MaxInputBytes": {"type": "integer", "minimum": 1, "maximum": 1073741824}
      }
    },
    "network": {
      "type": "object",
      "properties": {
        "allowed_hosts": {"type": "array", "items": {"type": "string"}},
        "rate_per_sec": {"type": "number", "minimum": 0},
        "burst": {"type": "integer", "minimum": 0}
      }
    },
    "python": {
      "type": "object",
      "properties": {
        "interpreter": {"type": "string"},
        "wall_timeout_seconds": {"type": "integer", "minimum": 1, "maximum": 30}
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("bashkit://config.json", strings.NewReader(schemaDoc)); err != nil {
		return nil, err
	}
	sch, err := compiler.Compile("bashkit://config.json")
	if err != nil {
		return nil, err
	}
	compiledSchema = sch
	return sch, nil
}

// Validate checks cfg's JSON projection against schemaDoc, rejecting
// documents with out-of-bounds limits or malformed collaborator config.
func Validate(cfg Config) error {
	sch, err := schema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// LoadYAML reads a YAML config document from path, applying it over
// Default and validating the result.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
