package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultMetamodel(t *testing.T) {
	mm := DefaultMetamodel()

	cls, ok := mm.Class("Class")
	if !ok {
		t.Fatal("Class missing from default metamodel")
	}
	if !cls.IsA("Type") || !cls.IsA("NamedElement") || !cls.IsA("Element") || cls.IsA("Package") {
		t.Error("unexpected Class ancestry")
	}

	name, ok := cls.Attribute("name")
	if !ok || name.Type != TypeString || name.Default != "" {
		t.Errorf("inherited name attribute = %+v", name)
	}
	owned, ok := cls.Association("ownedAttribute")
	if !ok || owned.Upper != Many || !owned.Composite || owned.Opposite != "class" {
		t.Errorf("ownedAttribute = %+v", owned)
	}

	prop, _ := mm.Class("Property")
	if a, _ := prop.Attribute("lowerValue"); a.Default != 1 {
		t.Errorf("lowerValue default = %#v", a.Default)
	}
	diag, _ := mm.Class("Diagram")
	if a, _ := diag.Attribute("zoom"); a.Default != 1.0 {
		t.Errorf("zoom default = %#v", a.Default)
	}
}

func TestLoadMetamodel_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown parent",
			yaml: "classes:\n  - name: A\n    extends: B\n",
			want: "extends unknown class",
		},
		{
			name: "cycle",
			yaml: "classes:\n  - name: A\n    extends: B\n  - name: B\n    extends: A\n",
			want: "inheritance cycle",
		},
		{
			name: "duplicate",
			yaml: "classes:\n  - name: A\n  - name: A\n",
			want: "duplicate class",
		},
		{
			name: "bad type",
			yaml: "classes:\n  - name: A\n    attributes:\n      - {name: x, type: date}\n",
			want: "unknown type",
		},
		{
			name: "bad default",
			yaml: "classes:\n  - name: A\n    attributes:\n      - {name: x, type: int, default: abc}\n",
			want: "default",
		},
		{
			name: "bad upper",
			yaml: "classes:\n  - name: A\n    associations:\n      - {name: x, target: A, upper: 2}\n",
			want: "upper must be",
		},
		{
			name: "missing opposite",
			yaml: "classes:\n  - name: A\n    associations:\n      - {name: x, target: A, opposite: y}\n",
			want: "missing opposite",
		},
		{
			name: "one-sided opposite",
			yaml: "classes:\n  - name: A\n    associations:\n      - {name: x, target: A, opposite: y}\n      - {name: y, target: A}\n",
			want: "not mutual opposites",
		},
		{
			name: "dotted attribute",
			yaml: "classes:\n  - name: A\n    attributes:\n      - {name: a.b}\n",
			want: `attribute A."a.b" is not an identifier`,
		},
		{
			name: "wildcard association",
			yaml: "classes:\n  - name: A\n    associations:\n      - {name: \"x*\", target: A}\n",
			want: "association A.\"x*\" is not an identifier",
		},
		{
			name: "query class name",
			yaml: "classes:\n  - name: \"A?\"\n",
			want: `class "A?" is not an identifier`,
		},
		{
			name: "unknown field",
			yaml: "classes:\n  - name: A\n    colour: red\n",
			want: "colour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMetamodel(strings.NewReader(tt.yaml))
			if !errors.Is(err, ErrInvalidMetamodel) {
				t.Fatalf("err = %v, want ErrInvalidMetamodel", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMetamodelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mm.yaml")
	src := `classes:
  - name: Node
    attributes:
      - {name: label, type: string, default: "n"}
    associations:
      - {name: next, target: Node, upper: 1, opposite: prev}
      - {name: prev, target: Node, upper: 1, opposite: next}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	mm, err := LoadMetamodelFile(path)
	if err != nil {
		t.Fatalf("LoadMetamodelFile: %v", err)
	}
	node, ok := mm.Class("Node")
	if !ok {
		t.Fatal("Node missing")
	}
	if got := node.AssociationNames(); len(got) != 2 || got[0] != "next" {
		t.Errorf("AssociationNames() = %v", got)
	}
	if names := mm.ClassNames(); len(names) != 1 {
		t.Errorf("ClassNames() = %v", names)
	}

	if _, err := LoadMetamodelFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMultiplicity_String(t *testing.T) {
	if One.String() != "1" || Many.String() != "*" {
		t.Error("unexpected multiplicity names")
	}
}
