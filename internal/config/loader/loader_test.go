package loader

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func TestForPath_Formats(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[undo]
depth = 5

[log]
level = "debug"
`)
	memfs.AddFile("/config.yaml", `
undo:
  depth: 5
log:
  level: debug
`)
	memfs.AddFile("/config.json5", `{
  // trailing commas and comments are fine
  undo: { depth: 5, },
  log: { level: 'debug' },
}`)

	for _, path := range []string{"/config.toml", "/config.yaml", "/config.json5"} {
		t.Run(path, func(t *testing.T) {
			l, err := ForPathWithFS(memfs, path)
			if err != nil {
				t.Fatalf("ForPath: %v", err)
			}
			config, err := l.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			undo, ok := config["undo"].(map[string]any)
			if !ok {
				t.Fatalf("undo section = %T, want map", config["undo"])
			}
			if got := toInt(undo["depth"]); got != 5 {
				t.Errorf("undo.depth = %v (%T), want 5", undo["depth"], undo["depth"])
			}
			log, ok := config["log"].(map[string]any)
			if !ok || log["level"] != "debug" {
				t.Errorf("log.level = %v, want debug", config["log"])
			}
		})
	}
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return -1
	}
}

func TestForPath_Unsupported(t *testing.T) {
	_, err := ForPath("/config.ini")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestForPath_Extensions(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"a.toml", "toml"},
		{"a.TOML", "toml"},
		{"a.yml", "yaml"},
		{"a.yaml", "yaml"},
		{"a.json", "json5"},
		{"a.json5", "json5"},
	}

	for _, tt := range tests {
		l, err := ForPath(tt.path)
		if err != nil {
			t.Errorf("ForPath(%q): %v", tt.path, err)
			continue
		}
		if l.Format() != tt.format {
			t.Errorf("ForPath(%q).Format() = %q, want %q", tt.path, l.Format(), tt.format)
		}
		if l.Path() != tt.path {
			t.Errorf("Path() = %q, want %q", l.Path(), tt.path)
		}
	}
}

func TestFileLoader_MissingFile(t *testing.T) {
	l := NewTOMLLoaderWithFS(NewMemFS(), "/missing.toml")
	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config != nil {
		t.Errorf("config = %v, want nil", config)
	}
}

func TestFileLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[undo\ndepth = ")
	memfs.AddFile("/bad.yaml", "undo: [depth")
	memfs.AddFile("/bad.json5", "{undo: ")

	for _, path := range []string{"/bad.toml", "/bad.yaml", "/bad.json5"} {
		l, err := ForPathWithFS(memfs, path)
		if err != nil {
			t.Fatalf("ForPath: %v", err)
		}
		_, err = l.Load()
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("%s: err = %v, want ParseError", path, err)
			continue
		}
		if perr.Path != path || perr.Format != l.Format() {
			t.Errorf("%s: ParseError = %+v", path, perr)
		}
		if !strings.Contains(perr.Error(), path) {
			t.Errorf("%s: message %q missing path", path, perr.Error())
		}
	}
}

func TestFileLoader_LoadFromReader(t *testing.T) {
	l := NewYAMLLoader("")
	config, err := l.LoadFromReader(strings.NewReader("model:\n  metamodel: uml.yaml\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	model := config["model"].(map[string]any)
	if model["metamodel"] != "uml.yaml" {
		t.Errorf("model.metamodel = %v", model["metamodel"])
	}
}

func TestJSON5_NormalizesNumbers(t *testing.T) {
	config, err := unmarshalJSON5([]byte(`{a: 3, b: 1.5, c: [1, 2.0], d: {e: -4}}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"a": int64(3),
		"b": 1.5,
		"c": []any{int64(1), int64(2)},
		"d": map[string]any{"e": int64(-4)},
	}
	if !reflect.DeepEqual(config, want) {
		t.Errorf("config = %#v, want %#v", config, want)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"undo": map[string]any{"depth": int64(20)},
		"log":  map[string]any{"level": "info"},
	}
	src := map[string]any{
		"undo":  map[string]any{"depth": int64(5)},
		"model": map[string]any{"metamodel": "m.yaml"},
	}

	got := DeepMerge(dst, src)
	want := map[string]any{
		"undo":  map[string]any{"depth": int64(5)},
		"log":   map[string]any{"level": "info"},
		"model": map[string]any{"metamodel": "m.yaml"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DeepMerge = %#v, want %#v", got, want)
	}

	if got := DeepMerge(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("DeepMerge(nil, nil) = %v, want empty map", got)
	}
}
