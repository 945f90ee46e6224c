package watcher

import "sync"

// Buffer is the last known text of a watched file. It implements
// engine.Source.
type Buffer struct {
	mu   sync.RWMutex
	text string
}

// NewBuffer creates a buffer holding text.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Text implements engine.Source.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Swap replaces the text and returns the previous one.
func (b *Buffer) Swap(text string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.text
	b.text = text
	return old
}
