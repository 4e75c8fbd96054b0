package exporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
)

func init() {
	Register(&CSVFormat{})
	Register(&TSVFormat{})
}

// CSVFormat handles CSV output.
type CSVFormat struct{}

func (f *CSVFormat) Name() string         { return "csv" }
func (f *CSVFormat) Extensions() []string { return []string{".csv"} }
func (f *CSVFormat) Writer() Writer       { return &DelimitedWriter{delimiter: ','} }

// TSVFormat handles TSV output.
type TSVFormat struct{}

func (f *TSVFormat) Name() string         { return "tsv" }
func (f *TSVFormat) Extensions() []string { return []string{".tsv"} }
func (f *TSVFormat) Writer() Writer       { return &DelimitedWriter{delimiter: '\t'} }

// DelimitedWriter writes flattened rows as CSV/TSV.
type DelimitedWriter struct {
	writer    *csv.Writer
	headerSet bool
	delimiter rune
	mu        sync.Mutex
}

// Init prepares the writer.
func (w *DelimitedWriter) Init(out io.Writer) error {
	w.writer = csv.NewWriter(out)
	w.writer.Comma = w.delimiter
	return nil
}

// Write writes the rows of one document, preceded by the header on first use.
func (w *DelimitedWriter) Write(doc *Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return fmt.Errorf("writer not initialized")
	}
	if !w.headerSet {
		if err := w.writer.Write(ColumnNames()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.headerSet = true
	}

	for i, record := range Flatten(doc) {
		if err := w.writer.Write(recordToRow(record)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return nil
}

// Close flushes buffered rows.
func (w *DelimitedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer != nil {
		w.writer.Flush()
		return w.writer.Error()
	}
	return nil
}

func recordToRow(record Record) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		if val, ok := record[c.name]; ok {
			row[i] = formatValue(val)
		}
	}
	return row
}

// formatValue converts a record value to its text form.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
