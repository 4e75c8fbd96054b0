package exporting

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/parquet-go/parquet-go"
)

const ParquetBatchSize = 1000

func init() {
	Register(&ParquetFormat{})
}

// ParquetFormat handles Parquet output.
type ParquetFormat struct{}

func (f *ParquetFormat) Name() string         { return "parquet" }
func (f *ParquetFormat) Extensions() []string { return []string{".parquet"} }
func (f *ParquetFormat) Writer() Writer       { return &ParquetWriter{} }

// ParquetWriter writes flattened rows using the Row API.
type ParquetWriter struct {
	writer  *parquet.Writer
	columns []column
	buffer  []parquet.Row
	mu      sync.Mutex
}

// parquetSchema builds the optional-column schema. Group fields are ordered by
// name, so the returned columns follow the leaf order.
func parquetSchema() (*parquet.Schema, []column) {
	group := make(parquet.Group)
	for _, c := range columns {
		group[c.name] = columnNode(c.typ)
	}

	ordered := make([]column, len(columns))
	copy(ordered, columns)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].name < ordered[j].name })

	return parquet.NewSchema("snapshot", group), ordered
}

func columnNode(t columnType) parquet.Node {
	switch t {
	case typeInt:
		return parquet.Optional(parquet.Int(64))
	case typeFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case typeBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

func (w *ParquetWriter) Init(out io.Writer) error {
	schema, ordered := parquetSchema()
	w.columns = ordered
	w.buffer = make([]parquet.Row, 0, ParquetBatchSize)
	w.writer = parquet.NewWriter(out, schema,
		parquet.Compression(&parquet.Snappy),
	)
	return nil
}

func (w *ParquetWriter) recordToRow(record Record) parquet.Row {
	row := make(parquet.Row, len(w.columns))
	for i, c := range w.columns {
		val, ok := record[c.name]
		if !ok || val == nil {
			row[i] = parquet.NullValue().Level(0, 0, i)
			continue
		}
		row[i] = goToParquetValue(val, i)
	}
	return row
}

func goToParquetValue(val interface{}, columnIndex int) parquet.Value {
	switch v := val.(type) {
	case bool:
		return parquet.BooleanValue(v).Level(0, 1, columnIndex)
	case int64:
		return parquet.Int64Value(v).Level(0, 1, columnIndex)
	case float64:
		return parquet.DoubleValue(v).Level(0, 1, columnIndex)
	case string:
		return parquet.ByteArrayValue([]byte(v)).Level(0, 1, columnIndex)
	default:
		return parquet.ByteArrayValue([]byte(fmt.Sprintf("%v", v))).Level(0, 1, columnIndex)
	}
}

func (w *ParquetWriter) Write(doc *Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return fmt.Errorf("writer not initialized")
	}
	for _, record := range Flatten(doc) {
		w.buffer = append(w.buffer, w.recordToRow(record))
		if len(w.buffer) >= ParquetBatchSize {
			if err := w.flushBuffer(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *ParquetWriter) flushBuffer() error {
	if len(w.buffer) == 0 {
		return nil
	}
	if _, err := w.writer.WriteRows(w.buffer); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	w.buffer = w.buffer[:0]
	return nil
}

// Close writes buffered rows and the file footer.
func (w *ParquetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return nil
	}
	if err := w.flushBuffer(); err != nil {
		return err
	}
	return w.writer.Close()
}
