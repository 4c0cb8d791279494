// Package catalog is the project-wide localization key index.
//
// A catalog is a directory with one message file per locale:
//
//	locales/
//	  en.json
//	  de.json
//
// or the YAML equivalent (en.yaml / en.yml). Key paths are dot-joined; with
// the nested key style "nav.home" lives at {"nav": {"home": "..."}}, with the
// flat style it is the literal key "nav.home".
//
// The Loader answers the lookups key generation needs (search by text, lookup
// by key) and persists batches of new messages.
package catalog

import (
	"context"
	"errors"
	"sort"
)

// ErrConflict is returned when a key path runs through an existing leaf
// ("a.b" cannot be added when "a" already holds a message).
var ErrConflict = errors.New("key path conflicts with an existing message")

// Node is one key path and its value in every locale that defines it.
type Node struct {
	KeyPath string
	// Values maps locale -> message.
	Values map[string]string
}

// Value returns the message for locale, or "".
func (n Node) Value(locale string) string {
	return n.Values[locale]
}

// Locales returns the sorted locales that define the node.
func (n Node) Locales() []string {
	out := make([]string, 0, len(n.Values))
	for l := range n.Values {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// PendingWrite is one message to persist.
type PendingWrite struct {
	// TextFromPath is the source file the message was extracted from.
	TextFromPath string
	// FilePath forces the target catalog file; empty picks the locale file.
	FilePath string
	KeyPath  string
	Value    string
	// Locale is the target locale; empty means the source language.
	Locale string
}

// KeyIndex answers key lookups.
type KeyIndex interface {
	// SearchKeyForTranslations returns the key whose source-language message
	// equals text, or "".
	SearchKeyForTranslations(text string) string
	// NodeByKey looks a key path up.
	NodeByKey(key string) (Node, bool)
	// Taken reports whether key cannot hold a new message because it is a
	// message or a group of messages.
	Taken(key string) bool
	// LeafAncestor returns the shortest proper prefix of key that holds a
	// message, so key cannot be nested under it, or "".
	LeafAncestor(key string) string
}

// Writer persists batches of messages.
type Writer interface {
	Write(ctx context.Context, entries []PendingWrite) error
}

// Store is a KeyIndex that can be written to and reloaded.
type Store interface {
	KeyIndex
	Writer
	// Invalidate drops cached state; the next access reloads from disk.
	Invalidate()
}
