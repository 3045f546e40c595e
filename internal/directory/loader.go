package directory

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml schema/*.json
var embedded embed.FS

// Paths inside the listing filesystem
const (
	TheatersFile  = "data/theaters.yaml"
	GrantsFile    = "data/grants.yaml"
	TheaterSchema = "schema/theater.schema.json"
	GrantSchema   = "schema/grant.schema.json"
)

type entry interface {
	key() string
}

// Load builds the registry from the listings compiled into the binary
func Load() (*Registry, error) {
	return LoadFS(embedded)
}

// LoadFS builds the registry from fsys. Entries that fail decoding or
// schema validation are logged and skipped, as are repeated ids. A missing
// or unparseable file is an error.
func LoadFS(fsys fs.FS) (*Registry, error) {
	theaters, err := loadEntries[Theater](fsys, TheatersFile, TheaterSchema, "theaters")
	if err != nil {
		return nil, err
	}
	grants, err := loadEntries[Grant](fsys, GrantsFile, GrantSchema, "grants")
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded directory", "theaters", len(theaters), "grants", len(grants))
	return NewRegistry(theaters, grants), nil
}

func loadEntries[T entry](fsys fs.FS, dataPath, schemaPath, listKey string) ([]T, error) {
	schema, err := compileSchema(fsys, schemaPath)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(fsys, dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dataPath, err)
	}

	var doc map[string][]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", dataPath, err)
	}
	for k := range doc {
		if k != listKey {
			return nil, fmt.Errorf("%s: unknown top-level key %q", dataPath, k)
		}
	}

	nodes := doc[listKey]
	out := make([]T, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for i := range nodes {
		node := &nodes[i]

		v, err := decodeEntry[T](node, schema)
		if err != nil {
			slog.Warn("Skipping invalid directory entry", "file", dataPath, "line", node.Line, "error", err)
			continue
		}
		if seen[v.key()] {
			slog.Warn("Skipping duplicate directory entry", "file", dataPath, "line", node.Line, "id", v.key())
			continue
		}
		seen[v.key()] = true
		out = append(out, v)
	}
	return out, nil
}

// decodeEntry checks node against schema, then decodes it strictly into T
// so unknown keys are rejected.
func decodeEntry[T any](node *yaml.Node, schema *jsonschema.Schema) (T, error) {
	var v T

	var generic map[string]interface{}
	if err := node.Decode(&generic); err != nil {
		return v, fmt.Errorf("entry is not a mapping: %w", err)
	}
	if err := validate(schema, generic); err != nil {
		return v, err
	}

	raw, err := yaml.Marshal(node)
	if err != nil {
		return v, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

func compileSchema(fsys fs.FS, path string) (*jsonschema.Schema, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}

	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", path, err)
	}
	return schema, nil
}

// validate runs the schema over value after a JSON round trip, so numbers
// and nested maps have the shapes the schema library expects.
func validate(schema *jsonschema.Schema, value map[string]interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("entry cannot be represented as JSON: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return err
	}

	result := schema.Validate(instance)
	if result.IsValid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors))
	for field, evalErr := range result.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(msgs)
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
