package writer

import (
	"context"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// ArrowWriter streams batches out as an Arrow IPC stream (spec §6),
// grounded on hugr-lab-airport-go's internal/serialize/catalog.go
// SerializeCatalog: build an arrow.Schema, fill a RecordBuilder column
// by column, and hand finished records to an ipc.Writer.
type ArrowWriter struct {
	dst       io.WriteCloser
	allocator memory.Allocator

	arrowSchema *arrow.Schema
	logSchema   schema.Schema
	ipcWriter   *ipc.Writer
}

var _ Writer = (*ArrowWriter)(nil)

// NewArrowWriter constructs an ArrowWriter over dst, closed by
// Dispose.
func NewArrowWriter(dst io.WriteCloser) *ArrowWriter {
	return &ArrowWriter{dst: dst, allocator: memory.NewGoAllocator()}
}

func (w *ArrowWriter) InspectTarget(ctx context.Context) (schema.TargetSchema, bool, error) {
	return schema.TargetSchema{}, false, nil
}

func (w *ArrowWriter) Initialize(ctx context.Context, in schema.Schema, compat schema.CompatibilityReport) (schema.Schema, error) {
	fields := make([]arrow.Field, in.Len())
	for i := 0; i < in.Len(); i++ {
		col := in.At(i)
		fields[i] = arrow.Field{Name: col.Name, Type: arrowTypeFor(col.LogicalType), Nullable: col.Nullable}
	}
	w.arrowSchema = arrow.NewSchema(fields, nil)
	w.logSchema = in

	w.ipcWriter = ipc.NewWriter(w.dst, ipc.WithSchema(w.arrowSchema), ipc.WithAllocator(w.allocator))
	return in, nil
}

func arrowTypeFor(lt schema.LogicalType) arrow.DataType {
	switch lt {
	case schema.Bool:
		return arrow.FixedWidthTypes.Boolean
	case schema.Int32:
		return arrow.PrimitiveTypes.Int32
	case schema.Int64:
		return arrow.PrimitiveTypes.Int64
	case schema.Float32:
		return arrow.PrimitiveTypes.Float32
	case schema.Float64:
		return arrow.PrimitiveTypes.Float64
	case schema.Decimal:
		return &arrow.Decimal128Type{Precision: 38, Scale: 9}
	case schema.Date:
		return arrow.FixedWidthTypes.Date32
	case schema.Timestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case schema.TimestampTz:
		return arrow.FixedWidthTypes.Timestamp_us
	case schema.Bytes:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func (w *ArrowWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	builder := array.NewRecordBuilder(w.allocator, w.arrowSchema)
	defer builder.Release()

	for i := 0; i < w.logSchema.Len(); i++ {
		col := w.logSchema.At(i)
		field := builder.Field(i)
		for _, row := range batch.Rows {
			appendArrowValue(field, col.LogicalType, row[i])
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	if err := w.ipcWriter.Write(record); err != nil {
		return errkind.Wrap(errkind.Unsupported, err, "writing Arrow IPC record")
	}
	return nil
}

func appendArrowValue(field array.Builder, lt schema.LogicalType, v any) {
	if schema.IsNull(v) {
		field.AppendNull()
		return
	}
	switch b := field.(type) {
	case *array.BooleanBuilder:
		b.Append(toBool(v))
	case *array.Int32Builder:
		b.Append(toInt32(v))
	case *array.Int64Builder:
		b.Append(toInt64(v))
	case *array.Float32Builder:
		b.Append(toFloat32(v))
	case *array.Float64Builder:
		b.Append(toFloat64(v))
	case *array.BinaryBuilder:
		b.Append(toBytes(v))
	case *array.StringBuilder:
		b.Append(schema.FormatInvariant(v))
	default:
		field.AppendNull()
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return schema.FormatInvariant(v) == "true"
}

func toInt32(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case int64:
		return int32(n)
	case int:
		return int32(n)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toFloat32(v any) float32 {
	switch n := v.(type) {
	case float32:
		return n
	case float64:
		return float32(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}

func toBytes(v any) []byte {
	if b, ok := v.([]byte); ok {
		return b
	}
	return []byte(schema.FormatInvariant(v))
}

func (w *ArrowWriter) Complete(ctx context.Context) error {
	return w.ipcWriter.Close()
}

func (w *ArrowWriter) Dispose() error {
	return w.dst.Close()
}
