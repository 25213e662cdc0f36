package questionnaire

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var builtinFS embed.FS

// Builtin returns the shipped survey variant with the given id.
func Builtin(id string) (Definition, error) {
	defs, err := LoadFS(builtinFS, "definitions")
	if err != nil {
		return Definition{}, err
	}
	for _, def := range defs {
		if def.ID == id {
			return def, nil
		}
	}
	return Definition{}, fmt.Errorf("unknown survey variant %q", id)
}

// BuiltinIDs lists the shipped variant ids in sorted order.
func BuiltinIDs() ([]string, error) {
	defs, err := LoadFS(builtinFS, "definitions")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadFS reads every .yaml file under root.
func LoadFS(fsys fs.FS, root string) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}
	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read definition %s: %w", entry.Name(), err)
		}
		parsed, err := Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse definition %s: %w", entry.Name(), err)
		}
		defs = append(defs, parsed...)
	}
	return defs, nil
}

// LoadFile reads operator-supplied definitions from a YAML file. The file may
// hold several documents separated by ---.
func LoadFile(filePath string) ([]Definition, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()
	defs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse definitions %s: %w", filePath, err)
	}
	return defs, nil
}

// Parse decodes one or more YAML documents and validates each definition.
func Parse(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var defs []Definition
	for {
		var def Definition
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, errors.New("no survey definitions found")
	}
	return defs, nil
}
