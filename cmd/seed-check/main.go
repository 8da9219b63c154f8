// Command seed-check validates a mintd seed YAML against the seed JSON Schema
// and cross-checks that upgrade rules reference seeded categories.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// seedSchema is the structural contract for seed files. Category IDs are
// positional, so rules are cross-checked separately against the category list
// length.
const seedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "mintd-seed",
  "type": "object",
  "additionalProperties": false,
  "required": ["categories"],
  "properties": {
    "max_batch_size": {"type": "integer", "minimum": 1},
    "categories": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["supply_cap"],
        "properties": {
          "supply_cap": {"type": "integer", "minimum": 1},
          "creator": {"type": "string", "minLength": 1}
        }
      }
    },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["base", "mix", "target", "required_count"],
        "properties": {
          "base": {"type": "integer", "minimum": 0},
          "mix": {"type": "integer", "minimum": 0},
          "target": {"type": "integer", "minimum": 0},
          "required_count": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seed-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var seedPath string
	fs.StringVar(&seedPath, "seed", "seed.yaml", "path to seed yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(seedPath); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "Seed validation failed: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	if _, writeErr := fmt.Fprintln(stdout, "Seed validation passed."); writeErr != nil {
		return 1
	}
	return 0
}

// validatePath rejects absolute and path-traversing references so the check
// stays inside the working tree.
func validatePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths not allowed: %s", p)
	}
	clean := filepath.Clean(p)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("path traversal not allowed: %s", p)
	}
	return clean, nil
}

type seedFile struct {
	MaxBatchSize uint64 `yaml:"max_batch_size"`
	Categories   []struct {
		SupplyCap uint64 `yaml:"supply_cap"`
		Creator   string `yaml:"creator"`
	} `yaml:"categories"`
	Rules []struct {
		Base          uint64 `yaml:"base"`
		Mix           uint64 `yaml:"mix"`
		Target        uint64 `yaml:"target"`
		RequiredCount uint64 `yaml:"required_count"`
	} `yaml:"rules"`
}

func run(seedPath string) error {
	safePath, err := validatePath(seedPath)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(safePath) // #nosec G304: path validated by validatePath
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	return crossCheck(seed)
}

// validateSchema round-trips the YAML document through JSON so the schema
// library sees the value kinds it expects.
func validateSchema(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var jsonDoc any
	if err := json.Unmarshal(b, &jsonDoc); err != nil {
		return err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("seed.schema.json", strings.NewReader(seedSchema)); err != nil {
		return err
	}
	schema, err := c.Compile("seed.schema.json")
	if err != nil {
		return err
	}
	return schema.Validate(jsonDoc)
}

// crossCheck verifies referential rules the schema cannot express: rules must
// reference categories the seed creates, and no (base, mix) pair may repeat.
func crossCheck(seed seedFile) error {
	if len(seed.Categories) == 0 {
		return errors.New("categories entry is empty")
	}
	categoryCount := uint64(len(seed.Categories))
	seen := make(map[[2]uint64]struct{}, len(seed.Rules))
	for i, rule := range seed.Rules {
		for _, ref := range []struct {
			name string
			id   uint64
		}{{"base", rule.Base}, {"mix", rule.Mix}, {"target", rule.Target}} {
			if ref.id >= categoryCount {
				return fmt.Errorf("rules[%d]: %s references category %d, seed creates only %d", i, ref.name, ref.id, categoryCount)
			}
		}
		pair := [2]uint64{rule.Base, rule.Mix}
		if rule.Mix < rule.Base {
			pair = [2]uint64{rule.Mix, rule.Base}
		}
		if _, dup := seen[pair]; dup {
			return fmt.Errorf("rules[%d]: duplicate rule for pair (%d, %d)", i, rule.Base, rule.Mix)
		}
		seen[pair] = struct{}{}
	}
	return nil
}
