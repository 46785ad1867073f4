package file

import (
	"fmt"
	"slices"
)

// Tree is either a single file (a leaf) or an ordered mapping from key to sub-tree,
// mirroring how the caller addressed the files: form field names, nested groups,
// or list indexes. Sibling keys keep their insertion order.
type Tree struct {
	file     *Info
	keys     []string
	children map[string]*Tree
}

// WalkFunc is called for every leaf with the keys leading to it.
// Returning an error stops the walk.
type WalkFunc func(path []string, f *Info) error

// Leaf wraps a single file.
func Leaf(f *Info) *Tree {
	return &Tree{file: f}
}

// Node creates an empty inner node.
func Node() *Tree {
	return &Tree{children: make(map[string]*Tree)}
}

// IsLeaf reports whether the tree holds a single file.
func (t *Tree) IsLeaf() bool {
	return t != nil && t.file != nil
}

// File returns the file of a leaf, or nil for inner nodes.
func (t *Tree) File() *Info {
	if t == nil {
		return nil
	}
	return t.file
}

// Set adds or replaces a child. Setting a child on a leaf panics.
func (t *Tree) Set(key string, child *Tree) {
	if t.IsLeaf() {
		panic(fmt.Sprintf("file: cannot set key %q on a leaf", key))
	}
	if child == nil {
		return
	}
	if _, exists := t.children[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.children[key] = child
}

// Keys returns the child keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Child returns the sub-tree stored under key.
func (t *Tree) Child(key string) (*Tree, bool) {
	if t == nil || t.children == nil {
		return nil, false
	}
	child, ok := t.children[key]
	return child, ok
}

// Select returns the sub-tree stored under key or ErrKeyNotFound.
func (t *Tree) Select(key string) (*Tree, error) {
	child, ok := t.Child(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return child, nil
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	n := 0
	_ = t.Walk(func([]string, *Info) error {
		n++
		return nil
	})
	return n
}

// Empty reports whether the tree holds no files.
func (t *Tree) Empty() bool {
	return t.Len() == 0
}

// Files returns every leaf in depth-first insertion order.
func (t *Tree) Files() []*Info {
	var files []*Info
	_ = t.Walk(func(_ []string, f *Info) error {
		files = append(files, f)
		return nil
	})
	return files
}

// Walk visits every leaf depth-first in insertion order.
func (t *Tree) Walk(fn WalkFunc) error {
	return t.walk(nil, fn)
}

func (t *Tree) walk(path []string, fn WalkFunc) error {
	if t == nil {
		return nil
	}
	if t.file != nil {
		return fn(slices.Clone(path), t.file)
	}
	for _, key := range t.keys {
		if err := t.children[key].walk(append(path, key), fn); err != nil {
			return err
		}
	}
	return nil
}
