package model

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_metamodel.yaml
var defaultMetamodelYAML []byte

// identifier matches class and property names. Names become snapshot keys
// and query path segments, so path syntax such as '.', '*' or '?' is
// excluded.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkName(kind, owner, name string) error {
	if identifier.MatchString(name) {
		return nil
	}
	if owner != "" {
		return fmt.Errorf("%w: %s %s.%q is not an identifier", ErrInvalidMetamodel, kind, owner, name)
	}
	return fmt.Errorf("%w: %s %q is not an identifier", ErrInvalidMetamodel, kind, name)
}

// AttrType is the declared type of an attribute.
type AttrType string

const (
	TypeString AttrType = "string"
	TypeInt    AttrType = "int"
	TypeBool   AttrType = "bool"
	TypeFloat  AttrType = "float"
)

// Multiplicity is the upper bound of an association end.
type Multiplicity int

const (
	// One is a single-valued reference.
	One Multiplicity = 1
	// Many is an ordered collection.
	Many Multiplicity = -1
)

// String returns "1" or "*".
func (m Multiplicity) String() string {
	if m == Many {
		return "*"
	}
	return "1"
}

// UnmarshalYAML accepts 1, "1", "*" or "many".
func (m *Multiplicity) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "1":
		*m = One
	case "*", "many":
		*m = Many
	default:
		return fmt.Errorf("line %d: upper must be 1 or \"*\", got %q", node.Line, node.Value)
	}
	return nil
}

// MarshalYAML writes the multiplicity in the form UnmarshalYAML reads.
func (m Multiplicity) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Attribute declares a typed attribute.
type Attribute struct {
	Name    string   `yaml:"name"`
	Type    AttrType `yaml:"type"`
	Default any      `yaml:"default,omitempty"`
}

// Association declares one end of an association.
type Association struct {
	Name      string       `yaml:"name"`
	Target    string       `yaml:"target"`
	Upper     Multiplicity `yaml:"upper"`
	Opposite  string       `yaml:"opposite,omitempty"`
	Composite bool         `yaml:"composite,omitempty"`
}

// Class declares an element class. Attributes and associations are
// inherited from the class named by Extends.
type Class struct {
	Name         string        `yaml:"name"`
	Extends      string        `yaml:"extends,omitempty"`
	Attributes   []Attribute   `yaml:"attributes,omitempty"`
	Associations []Association `yaml:"associations,omitempty"`

	parent *Class
	attrs  map[string]*Attribute
	assocs map[string]*Association
}

// Parent returns the superclass, or nil.
func (c *Class) Parent() *Class { return c.parent }

// IsA reports whether c is the named class or a subclass of it.
func (c *Class) IsA(name string) bool {
	for k := c; k != nil; k = k.parent {
		if k.Name == name {
			return true
		}
	}
	return false
}

// Attribute returns the attribute declared on c or an ancestor.
func (c *Class) Attribute(name string) (*Attribute, bool) {
	a, ok := c.attrs[name]
	return a, ok
}

// Association returns the association end declared on c or an ancestor.
func (c *Class) Association(name string) (*Association, bool) {
	a, ok := c.assocs[name]
	return a, ok
}

// AttributeNames returns all attribute names, sorted.
func (c *Class) AttributeNames() []string {
	return sortedKeys(c.attrs)
}

// AssociationNames returns all association end names, sorted.
func (c *Class) AssociationNames() []string {
	return sortedKeys(c.assocs)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Metamodel is a resolved set of classes.
type Metamodel struct {
	Classes []*Class `yaml:"classes"`

	byName map[string]*Class
}

// Class looks up a class by name.
func (mm *Metamodel) Class(name string) (*Class, bool) {
	c, ok := mm.byName[name]
	return c, ok
}

// ClassNames returns all class names, sorted.
func (mm *Metamodel) ClassNames() []string {
	return sortedKeys(mm.byName)
}

// DefaultMetamodel returns the built-in metamodel.
func DefaultMetamodel() *Metamodel {
	mm, err := LoadMetamodel(bytes.NewReader(defaultMetamodelYAML))
	if err != nil {
		panic(fmt.Sprintf("model: embedded metamodel: %v", err))
	}
	return mm
}

// LoadMetamodelFile reads a metamodel definition from a YAML file.
func LoadMetamodelFile(path string) (*Metamodel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metamodel: %w", err)
	}
	defer f.Close()

	mm, err := LoadMetamodel(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mm, nil
}

// LoadMetamodel decodes and resolves a YAML metamodel definition.
func LoadMetamodel(r io.Reader) (*Metamodel, error) {
	var mm Metamodel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetamodel, err)
	}
	if err := mm.resolve(); err != nil {
		return nil, err
	}
	return &mm, nil
}

func (mm *Metamodel) resolve() error {
	mm.byName = make(map[string]*Class, len(mm.Classes))
	for _, c := range mm.Classes {
		if c.Name == "" {
			return fmt.Errorf("%w: class without name", ErrInvalidMetamodel)
		}
		if err := checkName("class", "", c.Name); err != nil {
			return err
		}
		if _, dup := mm.byName[c.Name]; dup {
			return fmt.Errorf("%w: duplicate class %s", ErrInvalidMetamodel, c.Name)
		}
		mm.byName[c.Name] = c
	}

	resolved := make(map[string]bool, len(mm.Classes))
	for _, c := range mm.Classes {
		if err := mm.resolveClass(c, resolved, map[string]bool{}); err != nil {
			return err
		}
	}

	for _, c := range mm.Classes {
		for _, a := range c.assocs {
			if err := mm.checkOpposite(c, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (mm *Metamodel) resolveClass(c *Class, resolved, visiting map[string]bool) error {
	if resolved[c.Name] {
		return nil
	}
	if visiting[c.Name] {
		return fmt.Errorf("%w: inheritance cycle at %s", ErrInvalidMetamodel, c.Name)
	}
	visiting[c.Name] = true

	c.attrs = make(map[string]*Attribute)
	c.assocs = make(map[string]*Association)

	if c.Extends != "" {
		parent, ok := mm.byName[c.Extends]
		if !ok {
			return fmt.Errorf("%w: %s extends unknown class %s", ErrInvalidMetamodel, c.Name, c.Extends)
		}
		if err := mm.resolveClass(parent, resolved, visiting); err != nil {
			return err
		}
		c.parent = parent
		for k, v := range parent.attrs {
			c.attrs[k] = v
		}
		for k, v := range parent.assocs {
			c.assocs[k] = v
		}
	}

	for i := range c.Attributes {
		a := &c.Attributes[i]
		if err := mm.resolveAttribute(c, a); err != nil {
			return err
		}
		if c.hasProperty(a.Name) {
			return fmt.Errorf("%w: %s.%s declared twice", ErrInvalidMetamodel, c.Name, a.Name)
		}
		c.attrs[a.Name] = a
	}

	for i := range c.Associations {
		a := &c.Associations[i]
		if a.Name == "" {
			return fmt.Errorf("%w: %s has an association without name", ErrInvalidMetamodel, c.Name)
		}
		if err := checkName("association", c.Name, a.Name); err != nil {
			return err
		}
		if _, ok := mm.byName[a.Target]; !ok {
			return fmt.Errorf("%w: %s.%s targets unknown class %q", ErrInvalidMetamodel, c.Name, a.Name, a.Target)
		}
		if a.Upper == 0 {
			a.Upper = One
		}
		if c.hasProperty(a.Name) {
			return fmt.Errorf("%w: %s.%s declared twice", ErrInvalidMetamodel, c.Name, a.Name)
		}
		c.assocs[a.Name] = a
	}

	resolved[c.Name] = true
	return nil
}

func (c *Class) hasProperty(name string) bool {
	_, attr := c.attrs[name]
	_, assoc := c.assocs[name]
	return attr || assoc
}

func (mm *Metamodel) resolveAttribute(c *Class, a *Attribute) error {
	if a.Name == "" {
		return fmt.Errorf("%w: %s has an attribute without name", ErrInvalidMetamodel, c.Name)
	}
	if err := checkName("attribute", c.Name, a.Name); err != nil {
		return err
	}
	switch a.Type {
	case TypeString, TypeInt, TypeBool, TypeFloat:
	case "":
		a.Type = TypeString
	default:
		return fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidMetamodel, c.Name, a.Name, a.Type)
	}

	if a.Default == nil {
		a.Default = zeroValue(a.Type)
		return nil
	}
	v, ok := coerce(a.Type, a.Default)
	if !ok {
		return fmt.Errorf("%w: %s.%s default %v is not a %s", ErrInvalidMetamodel, c.Name, a.Name, a.Default, a.Type)
	}
	a.Default = v
	return nil
}

func (mm *Metamodel) checkOpposite(c *Class, a *Association) error {
	if a.Opposite == "" {
		return nil
	}
	target := mm.byName[a.Target]
	opp, ok := target.assocs[a.Opposite]
	if !ok {
		return fmt.Errorf("%w: %s.%s names missing opposite %s.%s", ErrInvalidMetamodel, c.Name, a.Name, a.Target, a.Opposite)
	}
	if opp.Opposite != a.Name {
		return fmt.Errorf("%w: %s.%s and %s.%s are not mutual opposites", ErrInvalidMetamodel, c.Name, a.Name, a.Target, a.Opposite)
	}
	return nil
}

func zeroValue(t AttrType) any {
	switch t {
	case TypeInt:
		return 0
	case TypeBool:
		return false
	case TypeFloat:
		return 0.0
	default:
		return ""
	}
}

// coerce converts v to the canonical Go type for t: string, int, bool or
// float64. Integral floats are accepted for int attributes, since scripts
// and YAML may produce them.
func coerce(t AttrType, v any) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeBool:
		b, ok := v.(bool)
		return b, ok
	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, true
		case int32:
			return int(n), true
		case int64:
			return int(n), true
		case uint:
			return int(n), true
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int(n), true
			}
		case float32:
			if f := float64(n); f == math.Trunc(f) && !math.IsInf(f, 0) {
				return int(f), true
			}
		}
		return nil, false
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case int32:
			return float64(n), true
		}
		return nil, false
	}
	return nil, false
}
