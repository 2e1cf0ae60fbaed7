package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadFile reads a schedule description from a .json, .yaml or .yml file.
// A file without a name takes its base name.
func LoadFile(path string) (*Profile, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return nil, fmt.Errorf("unsupported profile extension %q", filepath.Ext(path))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrInvalidFormat, path, err)
	}

	name := k.String("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	raw, ok := k.Get("data").([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing data array", ErrInvalidFormat, path)
	}
	points := make([]Point, 0, len(raw))
	for i, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: %s: point %d must be a [time, temperature] pair", ErrInvalidFormat, path, i)
		}
		t, okT := toFloat(pair[0])
		temp, okTemp := toFloat(pair[1])
		if !okT || !okTemp {
			return nil, fmt.Errorf("%w: %s: point %d is not numeric", ErrInvalidFormat, path, i)
		}
		points = append(points, Point{Time: t, Temperature: temp})
	}
	return New(name, points)
}

// LoadDir loads every profile file in dir, ordered by file name. A missing
// directory yields no profiles.
func LoadDir(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profile dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]*Profile, 0, len(names))
	for _, n := range names {
		p, err := LoadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
