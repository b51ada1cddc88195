package loader

import (
	"reflect"
	"testing"
)

func newTestEnvLoader(prefix string, env ...string) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.environ = func() []string { return env }
	return l
}

func TestEnvLoader_Load(t *testing.T) {
	l := newTestEnvLoader("MODELUNDO_",
		"MODELUNDO_UNDO_DEPTH=5",
		"MODELUNDO_LOG_LEVEL=debug",
		"MODELUNDO_MODEL_META_MODEL=uml.yaml",
		"HOME=/root",
		"MODELUNDO_EMPTY=",
	)

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := map[string]any{
		"undo":  map[string]any{"depth": int64(5)},
		"log":   map[string]any{"level": "debug"},
		"model": map[string]any{"metaModel": "uml.yaml"},
		"empty": "",
	}
	if !reflect.DeepEqual(config, want) {
		t.Errorf("config = %#v, want %#v", config, want)
	}
}

func TestEnvLoader_Mapping(t *testing.T) {
	l := newTestEnvLoader("MODELUNDO_", "MODELUNDO_METAMODEL=m.yaml")
	l.AddMapping("MODELUNDO_METAMODEL", "model.metamodel")

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	model, ok := config["model"].(map[string]any)
	if !ok || model["metamodel"] != "m.yaml" {
		t.Errorf("config = %#v", config)
	}
}

func TestEnvToPath(t *testing.T) {
	l := NewEnvLoader("MODELUNDO_")
	tests := []struct {
		env  string
		want string
	}{
		{"MODELUNDO_UNDO_DEPTH", "undo.depth"},
		{"MODELUNDO_LOG_LEVEL", "log.level"},
		{"MODELUNDO_MODEL_META_MODEL", "model.metaModel"},
		{"MODELUNDO_DEBUG", "debug"},
	}

	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.want {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"true", true},
		{"Off", false},
		{"1.5", 1.5},
		{"debug", "debug"},
		{"[1, 'a']", []any{int64(1), "a"}},
		{"{depth: 3}", map[string]any{"depth": int64(3)}},
		{"{broken", "{broken"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
