// Package topic provides hierarchical topic types and pattern matching for the event bus.
//
// # Topic Format
//
// Topics use dot-notation to create hierarchical namespaces:
//
//	model.element.created
//	model.association.set
//	transaction.commit
//	undo.state.changed
//
// # Wildcards
//
// Two wildcard patterns are supported:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	model.*               matches model.flushed (not model.element.created)
//	model.**              matches model.flushed, model.element.created, model.a.b.c
//	transaction.*         matches transaction.begin, transaction.commit
//	model.*.created       matches model.element.created
//	**                    matches everything
//
// # Pattern Matching
//
// The Trie type stores subscription patterns and returns every pattern that
// matches a concrete event topic.
//
//	tr := topic.NewTrie()
//	tr.Insert(topic.Topic("model.**"))
//	tr.Insert(topic.Topic("model.element.created"))
//
//	matches := tr.Match(topic.Topic("model.element.created"))
//	// matches contains both patterns
package topic
