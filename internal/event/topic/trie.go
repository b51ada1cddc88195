package topic

import "sync"

// Trie stores subscription patterns and finds every pattern that matches a
// concrete topic. Lookup is O(k) in the number of segments for patterns
// without "**"; "**" branches are memoized per (node, depth).
//
// The zero value is ready to use.
type Trie struct {
	mu   sync.RWMutex
	root *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	patterns []Topic
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

func (n *trieNode) isEmpty() bool {
	return len(n.children) == 0 && len(n.patterns) == 0
}

// NewTrie creates a new topic pattern trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

// Insert adds a pattern to the trie.
// Returns true if the pattern was added, false if it already existed.
func (t *Trie) Insert(pattern Topic) bool {
	if pattern == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		t.root = newTrieNode()
	}

	node := t.root
	for _, seg := range pattern.Segments() {
		child := node.children[seg]
		if child == nil {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}

	for _, p := range node.patterns {
		if p == pattern {
			return false
		}
	}
	node.patterns = append(node.patterns, pattern)
	return true
}

// Delete removes a pattern from the trie and prunes empty nodes.
// Returns true if the pattern was removed.
func (t *Trie) Delete(pattern Topic) bool {
	if pattern == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		return false
	}

	type step struct {
		node *trieNode
		key  string
	}
	segments := pattern.Segments()
	path := make([]step, 0, len(segments)+1)
	path = append(path, step{node: t.root})

	node := t.root
	for _, seg := range segments {
		child := node.children[seg]
		if child == nil {
			return false
		}
		path = append(path, step{node: child, key: seg})
		node = child
	}

	found := false
	for i, p := range node.patterns {
		if p == pattern {
			node.patterns = append(node.patterns[:i], node.patterns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].key)
	}
	return true
}

type visitKey struct {
	node  *trieNode
	depth int
}

type matchState struct {
	seen    map[Topic]struct{}
	matches []Topic
	visited map[visitKey]struct{}
}

// Match returns all unique patterns that match the given concrete topic.
func (t *Trie) Match(eventTopic Topic) []Topic {
	if eventTopic == "" {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.root == nil {
		return nil
	}

	state := &matchState{
		seen:    make(map[Topic]struct{}),
		visited: make(map[visitKey]struct{}),
	}
	t.match(t.root, eventTopic.Segments(), 0, state)
	return state.matches
}

func (t *Trie) match(node *trieNode, segments []string, depth int, state *matchState) {
	key := visitKey{node: node, depth: depth}
	if _, seen := state.visited[key]; seen {
		return
	}
	state.visited[key] = struct{}{}

	if depth == len(segments) {
		for _, p := range node.patterns {
			if _, dup := state.seen[p]; !dup {
				state.seen[p] = struct{}{}
				state.matches = append(state.matches, p)
			}
		}
		if child := node.children[WildcardMulti]; child != nil {
			t.match(child, segments, depth, state)
		}
		return
	}

	if child := node.children[segments[depth]]; child != nil {
		t.match(child, segments, depth+1, state)
	}
	if child := node.children[WildcardSingle]; child != nil {
		t.match(child, segments, depth+1, state)
	}
	if child := node.children[WildcardMulti]; child != nil {
		for i := depth; i <= len(segments); i++ {
			t.match(child, segments, i, state)
		}
	}
}

// Size returns the number of patterns in the trie.
func (t *Trie) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var count func(n *trieNode) int
	count = func(n *trieNode) int {
		if n == nil {
			return 0
		}
		c := len(n.patterns)
		for _, child := range n.children {
			c += count(child)
		}
		return c
	}
	return count(t.root)
}

