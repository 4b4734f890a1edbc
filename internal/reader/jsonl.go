package reader

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// JSONLReader reads one JSON object per line. Schema is inferred from
// the first line: number -> Float64, true/false -> Bool, string ->
// String, null -> Unknown (spec §6). This is the specified behavior,
// not a bug: a second pass to promote integer-only columns is
// explicitly left unspecified by spec.md §9's Open Questions, so it is
// not implemented here.
type JSONLReader struct {
	src     io.ReadCloser
	scanner *bufio.Scanner
	sc      schema.Schema
	names   []string
	pending string
	mu      sync.Mutex
	lastErr error
}

var _ Reader = (*JSONLReader)(nil)

// NewJSONLReader constructs a JSONLReader over src, closed by Dispose.
func NewJSONLReader(src io.ReadCloser) *JSONLReader {
	return &JSONLReader{src: src}
}

func (r *JSONLReader) Open(ctx context.Context) error {
	r.scanner = bufio.NewScanner(r.src)
	r.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var first map[string]json.RawMessage
	var firstLine string
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		firstLine = line
		break
	}
	if firstLine == "" {
		r.sc, _ = schema.Build(nil)
		return nil
	}
	if err := json.Unmarshal([]byte(firstLine), &first); err != nil {
		return errkind.Wrap(errkind.Corrupt, err, "parsing first JSONL line")
	}

	// json.Unmarshal into a map loses key order; re-decode with an
	// ordered decoder pass to preserve the schema's column order as it
	// appeared in the line (spec §6: "property order follows schema
	// order" on write implies the read-side order should be stable
	// too).
	names, err := orderedKeys(firstLine)
	if err != nil {
		return errkind.Wrap(errkind.Corrupt, err, "parsing first JSONL line")
	}

	cols := make([]schema.Column, 0, len(names))
	for _, name := range names {
		cols = append(cols, schema.Column{
			Name:        name,
			LogicalType: inferType(first[name]),
			Nullable:    true,
		})
	}
	sc, err := schema.Build(cols)
	if err != nil {
		return errkind.Wrap(errkind.InvalidConfiguration, err, "building JSONL schema")
	}
	r.sc = sc
	r.names = names
	r.pending = firstLine
	return nil
}

func inferType(raw json.RawMessage) schema.LogicalType {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "null":
		return schema.Unknown
	case trimmed == "true" || trimmed == "false":
		return schema.Bool
	case len(trimmed) > 0 && trimmed[0] == '"':
		return schema.String
	default:
		return schema.Float64
	}
}

func orderedKeys(line string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if _, ok := tok.(json.Delim); !ok {
		return nil, errkind.New(errkind.Corrupt, "expected a JSON object")
	}
	var names []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		names = append(names, key)
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func (r *JSONLReader) Schema() schema.Schema { return r.sc }

func (r *JSONLReader) ReadBatches(ctx context.Context, batchSize int) <-chan schema.Batch {
	out := make(chan schema.Batch)
	go func() {
		defer close(out)
		batch := make([]schema.Row, 0, batchSize)
		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			select {
			case out <- schema.Batch{Schema: r.sc, Rows: batch}:
				batch = make([]schema.Row, 0, batchSize)
				return true
			case <-ctx.Done():
				return false
			}
		}

		emit := func(line string) bool {
			row, err := r.parseLine(line)
			if err != nil {
				r.setErr(err)
				return false
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				return flush()
			}
			return true
		}

		if r.pending != "" {
			line := r.pending
			r.pending = ""
			if !emit(line) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !r.scanner.Scan() {
				if err := r.scanner.Err(); err != nil {
					r.setErr(errkind.Wrap(errkind.Corrupt, err, "reading JSONL"))
					return
				}
				flush()
				return
			}
			line := strings.TrimSpace(r.scanner.Text())
			if line == "" {
				continue
			}
			if !emit(line) {
				return
			}
		}
	}()
	return out
}

func (r *JSONLReader) parseLine(line string) (schema.Row, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return nil, errkind.Wrap(errkind.Corrupt, err, "parsing JSONL row")
	}
	row := make(schema.Row, len(r.names))
	for i, name := range r.names {
		raw, ok := obj[name]
		if !ok {
			row[i] = schema.NullValue
			continue
		}
		row[i] = decodeValue(raw, r.sc.At(i).LogicalType)
	}
	return row, nil
}

func decodeValue(raw json.RawMessage, lt schema.LogicalType) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return schema.NullValue
	}
	switch lt {
	case schema.Bool:
		return trimmed == "true"
	case schema.String:
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case schema.Float64:
		var f float64
		_ = json.Unmarshal(raw, &f)
		return f
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return trimmed
	}
}

func (r *JSONLReader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}

func (r *JSONLReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *JSONLReader) Dispose() error {
	return r.src.Close()
}
