package exporting

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLFormat{})
}

// YAMLFormat writes a stream of YAML documents.
type YAMLFormat struct{}

func (f *YAMLFormat) Name() string         { return "yaml" }
func (f *YAMLFormat) Extensions() []string { return []string{".yaml", ".yml"} }
func (f *YAMLFormat) Writer() Writer       { return &YAMLWriter{} }

// YAMLWriter writes each document with the same field names as the JSON
// output.
type YAMLWriter struct {
	enc *yaml.Encoder
	mu  sync.Mutex
}

func (w *YAMLWriter) Init(out io.Writer) error {
	w.enc = yaml.NewEncoder(out)
	w.enc.SetIndent(2)
	return nil
}

func (w *YAMLWriter) Write(doc *Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return fmt.Errorf("writer not initialized")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to convert document: %w", err)
	}
	blockStyle(&node)

	if err := w.enc.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

func (w *YAMLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc != nil {
		return w.enc.Close()
	}
	return nil
}

// blockStyle drops the flow and quoting styles inherited from the JSON source.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
