package exporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer streams documents to an io.Writer.
type Writer interface {
	Init(w io.Writer) error
	Write(doc *Document) error
	Close() error
}

// Exporter writes documents to a file or stream in one format.
type Exporter struct {
	path   string
	format string
	file   *os.File
	writer Writer
}

// NewExporter creates an exporter. An empty path writes to stdout; an empty
// format is inferred from the path's extension.
func NewExporter(path, format string) (*Exporter, error) {
	f, err := Resolve(format, path)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	var file *os.File
	if path != "" && path != "-" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		file, err = os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
		out = file
	}

	e, err := NewStreamExporter(out, f.Name())
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, err
	}
	e.path = path
	e.file = file
	return e, nil
}

// NewStreamExporter creates an exporter on an existing stream.
func NewStreamExporter(out io.Writer, format string) (*Exporter, error) {
	f, ok := Get(format)
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	writer := f.Writer()
	if err := writer.Init(out); err != nil {
		return nil, fmt.Errorf("failed to initialize writer: %w", err)
	}
	return &Exporter{format: f.Name(), writer: writer}, nil
}

// Path returns the output file path, empty for streams.
func (e *Exporter) Path() string {
	return e.path
}

// Format returns the output format.
func (e *Exporter) Format() string {
	return e.format
}

// Write appends one document.
func (e *Exporter) Write(doc *Document) error {
	return e.writer.Write(doc)
}

// Close flushes the writer and closes the file, if any.
func (e *Exporter) Close() error {
	err := e.writer.Close()
	if e.file != nil {
		if cerr := e.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
