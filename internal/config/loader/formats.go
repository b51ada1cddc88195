package loader

import (
	"math"

	"github.com/pelletier/go-toml/v2"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// NewTOMLLoader creates a TOML loader for the given path.
func NewTOMLLoader(path string) *FileLoader {
	return NewTOMLLoaderWithFS(DefaultFS(), path)
}

// NewTOMLLoaderWithFS creates a TOML loader with a custom file system.
func NewTOMLLoaderWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{fs: fsys, path: path, format: "toml", unmarshal: unmarshalTOML}
}

// NewYAMLLoader creates a YAML loader for the given path.
func NewYAMLLoader(path string) *FileLoader {
	return NewYAMLLoaderWithFS(DefaultFS(), path)
}

// NewYAMLLoaderWithFS creates a YAML loader with a custom file system.
func NewYAMLLoaderWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{fs: fsys, path: path, format: "yaml", unmarshal: unmarshalYAML}
}

// NewJSON5Loader creates a JSON5 loader for the given path. Plain JSON is
// valid JSON5.
func NewJSON5Loader(path string) *FileLoader {
	return NewJSON5LoaderWithFS(DefaultFS(), path)
}

// NewJSON5LoaderWithFS creates a JSON5 loader with a custom file system.
func NewJSON5LoaderWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{fs: fsys, path: path, format: "json5", unmarshal: unmarshalJSON5}
}

func unmarshalTOML(data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return config, nil
}

func unmarshalYAML(data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return config, nil
}

func unmarshalJSON5(data []byte) (map[string]any, error) {
	var config map[string]any
	if err := json5.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	normalizeNumbers(config)
	return config, nil
}

// normalizeNumbers turns integral float64 values into int64, so JSON5
// numbers decode like TOML and YAML integers.
func normalizeNumbers(m map[string]any) {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
	case map[string]any:
		normalizeNumbers(n)
	case []any:
		for i := range n {
			n[i] = normalizeValue(n[i])
		}
	}
	return v
}
