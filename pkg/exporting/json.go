package exporting

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

const DefaultBufferSize = 64 * 1024

func init() {
	Register(&JSONFormat{})
}

// JSONFormat writes one JSON document per line.
type JSONFormat struct{}

func (f *JSONFormat) Name() string         { return "json" }
func (f *JSONFormat) Extensions() []string { return []string{".json", ".jsonl"} }
func (f *JSONFormat) Writer() Writer       { return &JSONWriter{} }

// JSONWriter writes JSON Lines.
type JSONWriter struct {
	buf *bufio.Writer
	enc *json.Encoder
	mu  sync.Mutex
}

func (w *JSONWriter) Init(out io.Writer) error {
	w.buf = bufio.NewWriterSize(out, DefaultBufferSize)
	w.enc = json.NewEncoder(w.buf)
	return nil
}

func (w *JSONWriter) Write(doc *Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return fmt.Errorf("writer not initialized")
	}
	if err := w.enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf != nil {
		return w.buf.Flush()
	}
	return nil
}
