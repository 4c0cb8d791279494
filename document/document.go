// Package document holds source files in memory while extracted strings are
// replaced, and writes them back when asked.
//
// Edits are applied as one transaction: either every replacement in an Edit
// call lands, or the buffer is left untouched.
package document

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	// ErrInvalidRange is returned for positions outside the document or
	// ranges that end before they start.
	ErrInvalidRange = errors.New("invalid range")
	// ErrOverlappingEdits is returned when edits in one transaction overlap
	// or are not in descending start order.
	ErrOverlappingEdits = errors.New("overlapping edits")
)

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   Range
	NewText string
}

// EditBuilder collects the edits of one transaction.
type EditBuilder struct {
	edits []TextEdit
}

// Replace queues a replacement.
func (b *EditBuilder) Replace(r Range, text string) {
	b.edits = append(b.edits, TextEdit{Range: r, NewText: text})
}

// File is a document backed by a file on disk.
type File struct {
	path string
	mode os.FileMode

	mu    sync.RWMutex
	text  string
	dirty bool
}

// Open reads path into a new File.
func Open(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &File{path: path, mode: info.Mode().Perm(), text: string(data)}, nil
}

// New returns an unsaved document with the given content.
func New(path, text string) *File {
	return &File{path: path, mode: 0644, text: text}
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Text returns the current buffer.
func (f *File) Text() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.text
}

// Edit runs fn to collect edits and applies them in order. Edits must be
// sorted by descending start and must not overlap, so applying one never
// shifts the text of the next.
func (f *File) Edit(fn func(*EditBuilder)) error {
	var b EditBuilder
	fn(&b)
	if len(b.edits) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	text := f.text
	for i, e := range b.edits {
		if e.Range.End.Before(e.Range.Start) {
			return fmt.Errorf("%w: %s ends before it starts", ErrInvalidRange, e.Range)
		}
		if i > 0 {
			prev := b.edits[i-1].Range
			switch {
			case e.Range.Overlaps(prev), prev.IsEmpty() && e.Range.IsEmpty() && prev.Start == e.Range.Start:
				return fmt.Errorf("%w: %s and %s", ErrOverlappingEdits, e.Range, prev)
			case prev.Start.Before(e.Range.End):
				return fmt.Errorf("%w: %s comes after %s", ErrOverlappingEdits, e.Range, prev)
			}
		}

		start, err := offsetAt(text, e.Range.Start)
		if err != nil {
			return err
		}
		end, err := offsetAt(text, e.Range.End)
		if err != nil {
			return err
		}
		text = text[:start] + e.NewText + text[end:]
	}

	f.text = text
	f.dirty = true
	return nil
}

// Save writes the buffer to disk if it changed.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return nil
	}
	if err := os.WriteFile(f.path, []byte(f.text), f.mode); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	f.dirty = false
	return nil
}

// offsetAt finds the byte offset of p. A character equal to the line length
// addresses the end of the line.
func offsetAt(text string, p Position) (int, error) {
	if p.Line < 0 || p.Character < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRange, p)
	}

	lineStart := 0
	for i := 0; i < p.Line; i++ {
		nl := strings.IndexByte(text[lineStart:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("%w: line %d past end of document", ErrInvalidRange, p.Line+1)
		}
		lineStart += nl + 1
	}

	line := text[lineStart:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}

	offset := 0
	for c := 0; c < p.Character; c++ {
		if offset >= len(line) {
			return 0, fmt.Errorf("%w: %s past end of line", ErrInvalidRange, p)
		}
		_, size := utf8.DecodeRuneInString(line[offset:])
		offset += size
	}
	return lineStart + offset, nil
}

// PositionAt converts a byte offset in text to a Position.
func PositionAt(text string, offset int) (Position, error) {
	if offset < 0 || offset > len(text) {
		return Position{}, fmt.Errorf("%w: offset %d", ErrInvalidRange, offset)
	}

	before := text[:offset]
	line := strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{Line: line, Character: utf8.RuneCountInString(before[lineStart:])}, nil
}
