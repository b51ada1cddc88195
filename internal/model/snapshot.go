package model

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Snapshot encodes the model as JSON:
//
//	{"count":2,"elements":[{"id":"…","class":"Package","attributes":{"name":"P"},
//	  "associations":{"ownedType":["…"]}}, …]}
//
// Elements are listed in creation order. Only attributes that were set and
// non-empty associations are included.
func (m *Model) Snapshot() ([]byte, error) {
	elems := m.Elements()

	doc := []byte(`{"elements":[]}`)
	var err error
	if doc, err = sjson.SetBytes(doc, "count", len(elems)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	for i, e := range elems {
		base := fmt.Sprintf("elements.%d", i)
		if doc, err = sjson.SetBytes(doc, base+".id", string(e.id)); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", e, err)
		}
		if doc, err = sjson.SetBytes(doc, base+".class", e.class.Name); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", e, err)
		}

		for _, name := range sortedKeys(e.attrs) {
			if doc, err = sjson.SetBytes(doc, base+".attributes."+name, e.attrs[name]); err != nil {
				return nil, fmt.Errorf("snapshot %s.%s: %w", e, name, err)
			}
		}
		for _, name := range sortedKeys(e.refs) {
			if doc, err = sjson.SetBytes(doc, base+".associations."+name, string(e.refs[name])); err != nil {
				return nil, fmt.Errorf("snapshot %s.%s: %w", e, name, err)
			}
		}
		for _, name := range sortedKeys(e.sets) {
			ids := make([]string, len(e.sets[name]))
			for j, id := range e.sets[name] {
				ids[j] = string(id)
			}
			if doc, err = sjson.SetBytes(doc, base+".associations."+name, ids); err != nil {
				return nil, fmt.Errorf("snapshot %s.%s: %w", e, name, err)
			}
		}
	}
	return doc, nil
}

// Query evaluates a gjson path against the current snapshot, for example
// `elements.#(class=="Class")#.attributes.name`.
func (m *Model) Query(path string) (gjson.Result, error) {
	doc, err := m.Snapshot()
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(doc, path), nil
}
