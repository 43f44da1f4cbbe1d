// Package dataset validates bulk data files with Apache Beam pipelines. A
// suite builds a pipeline from readers, transforms, and expectations, then
// runs it; expectation failures fail the pipeline run.
package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/io/filesystem"
	_ "github.com/apache/beam/sdks/v2/go/pkg/beam/io/filesystem/gcs"
	_ "github.com/apache/beam/sdks/v2/go/pkg/beam/io/filesystem/s3"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/io/textio"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/register"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/x/beamx"
)

// Record is one row of a dataset. All values are strings; aggregations parse
// them as needed.
type Record struct {
	Fields map[string]string
}

func init() {
	beam.RegisterType(reflect.TypeOf((*Record)(nil)).Elem())
	register.DoFn2x0[string, func(Record)](&parseCSVFn{})
	register.DoFn2x0[string, func(Record)](&parseJSONFn{})
	register.Emitter1[Record]()
}

// Get returns the value of a field, or "" if absent.
func (r Record) Get(field string) string { return r.Fields[field] }

// canonical returns a stable string form of the record, used as a grouping
// key for deduplication and for order-insensitive comparison.
func (r Record) canonical() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"\x1f"+r.Fields[k])
	}
	return strings.Join(parts, "\x1e")
}

// parseCSVFn turns CSV lines into Records, skipping the header line and
// dropping lines that do not parse or do not match the header width.
type parseCSVFn struct {
	Header     []string
	HeaderLine string
}

func (f *parseCSVFn) ProcessElement(line string, emit func(Record)) {
	if line == f.HeaderLine || strings.TrimSpace(line) == "" {
		return
	}
	values, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil || len(values) != len(f.Header) {
		return
	}
	fields := make(map[string]string, len(f.Header))
	for i, name := range f.Header {
		fields[name] = values[i]
	}
	emit(Record{Fields: fields})
}

// parseJSONFn turns newline-delimited JSON objects into Records. Non-string
// values are rendered in their JSON form.
type parseJSONFn struct{}

func (f *parseJSONFn) ProcessElement(line string, emit func(Record)) {
	if strings.TrimSpace(line) == "" {
		return
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		return
	}
	fields := make(map[string]string, len(doc))
	for k, v := range doc {
		switch value := v.(type) {
		case string:
			fields[k] = value
		case nil:
			fields[k] = ""
		case float64:
			fields[k] = formatNumber(value)
		case bool:
			if value {
				fields[k] = "true"
			} else {
				fields[k] = "false"
			}
		default:
			raw, _ := json.Marshal(value)
			fields[k] = string(raw)
		}
	}
	emit(Record{Fields: fields})
}

// ReadCSV reads a headered CSV file into a collection of Records. The header
// is read up front so field names are known at pipeline construction time.
// The path may name any registered Beam filesystem, so remote locations like
// gs:// or s3:// work the same as local files.
func ReadCSV(ctx context.Context, s beam.Scope, path string) (beam.PCollection, []string, error) {
	header, headerLine, err := readHeader(ctx, path)
	if err != nil {
		return beam.PCollection{}, nil, err
	}
	s = s.Scope("dataset.ReadCSV")
	lines := textio.Read(s, path)
	records := beam.ParDo(s, &parseCSVFn{Header: header, HeaderLine: headerLine}, lines)
	return records, header, nil
}

// ReadJSON reads a newline-delimited JSON file into a collection of Records.
// Like ReadCSV, the path may name any registered Beam filesystem.
func ReadJSON(s beam.Scope, path string) beam.PCollection {
	s = s.Scope("dataset.ReadJSON")
	lines := textio.Read(s, path)
	return beam.ParDo(s, &parseJSONFn{}, lines)
}

func readHeader(ctx context.Context, path string) ([]string, string, error) {
	fs, err := filesystem.New(ctx, path)
	if err != nil {
		return nil, "", err
	}
	defer fs.Close()
	rc, err := fs.OpenRead(ctx, path)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	// The raw header line is kept so it can be skipped during the
	// parallel read.
	raw, err := readFirstLine(rc)
	if err != nil {
		return nil, "", fmt.Errorf("%s: reading header: %w", path, err)
	}
	header, err := csv.NewReader(strings.NewReader(raw)).Read()
	if err != nil {
		return nil, "", fmt.Errorf("%s: reading header: %w", path, err)
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, "", fmt.Errorf("%s: duplicate column %q", path, name)
		}
		seen[name] = true
	}
	return header, raw, nil
}

func readFirstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return "", errors.New("empty file")
	}
	return line, nil
}

// Execute runs the pipeline on the configured runner. Failed expectations
// surface as a run error.
func Execute(ctx context.Context, p *beam.Pipeline) error {
	return beamx.Run(ctx, p)
}
