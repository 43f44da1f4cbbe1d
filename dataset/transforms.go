package dataset

import (
	"strconv"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/register"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/transforms/stats"
)

func init() {
	register.DoFn2x0[Record, func(Record)](&projectFn{})
	register.DoFn2x0[Record, func(Record)](&dropIncompleteFn{})
	register.Function1x2(keyByCanonical)
	register.DoFn3x0[string, func(*Record) bool, func(Record)](&firstPerKeyFn{})
	register.DoFn2x0[Record, func(string, float64)](&extractKVFn{})
	register.DoFn2x0[Record, func(string, float64)](&onePerKeyFn{})
	register.Function2x1(formatKV)
	register.DoFn1x1[Record, string](&extractColumnFn{})
	register.Emitter2[string, float64]()
	register.Iter1[Record]()
}

type projectFn struct {
	Columns []string
}

func (f *projectFn) ProcessElement(r Record, emit func(Record)) {
	fields := make(map[string]string, len(f.Columns))
	for _, name := range f.Columns {
		if value, ok := r.Fields[name]; ok {
			fields[name] = value
		}
	}
	emit(Record{Fields: fields})
}

// Project keeps only the given columns of each record.
func Project(s beam.Scope, records beam.PCollection, columns ...string) beam.PCollection {
	return beam.ParDo(s.Scope("dataset.Project"), &projectFn{Columns: columns}, records)
}

type dropIncompleteFn struct {
	Columns []string
}

func (f *dropIncompleteFn) ProcessElement(r Record, emit func(Record)) {
	for _, name := range f.Columns {
		if r.Fields[name] == "" {
			return
		}
	}
	emit(r)
}

func keyByCanonical(r Record) (string, Record) {
	return r.canonical(), r
}

type firstPerKeyFn struct{}

func (f *firstPerKeyFn) ProcessElement(_ string, values func(*Record) bool, emit func(Record)) {
	var r Record
	if values(&r) {
		emit(r)
	}
}

// Cleanse drops records with an empty or missing value in any of the given
// columns, then removes exact duplicates.
func Cleanse(s beam.Scope, records beam.PCollection, requiredColumns ...string) beam.PCollection {
	s = s.Scope("dataset.Cleanse")
	complete := beam.ParDo(s, &dropIncompleteFn{Columns: requiredColumns}, records)
	keyed := beam.ParDo(s, keyByCanonical, complete)
	grouped := beam.GroupByKey(s, keyed)
	return beam.ParDo(s, &firstPerKeyFn{}, grouped)
}

// extractKVFn emits (key column value, numeric value column). Records whose
// value column does not parse as a number are dropped.
type extractKVFn struct {
	KeyColumn   string
	ValueColumn string
}

func (f *extractKVFn) ProcessElement(r Record, emit func(string, float64)) {
	value, err := strconv.ParseFloat(r.Fields[f.ValueColumn], 64)
	if err != nil {
		return
	}
	emit(r.Fields[f.KeyColumn], value)
}

type onePerKeyFn struct {
	KeyColumn string
}

func (f *onePerKeyFn) ProcessElement(r Record, emit func(string, float64)) {
	emit(r.Fields[f.KeyColumn], 1)
}

// SumBy sums a numeric column per distinct value of a key column.
func SumBy(s beam.Scope, records beam.PCollection, keyColumn, valueColumn string) beam.PCollection {
	s = s.Scope("dataset.SumBy")
	kv := beam.ParDo(s, &extractKVFn{KeyColumn: keyColumn, ValueColumn: valueColumn}, records)
	return stats.SumPerKey(s, kv)
}

// MeanBy averages a numeric column per distinct value of a key column.
func MeanBy(s beam.Scope, records beam.PCollection, keyColumn, valueColumn string) beam.PCollection {
	s = s.Scope("dataset.MeanBy")
	kv := beam.ParDo(s, &extractKVFn{KeyColumn: keyColumn, ValueColumn: valueColumn}, records)
	return stats.MeanPerKey(s, kv)
}

// CountBy counts records per distinct value of a key column.
func CountBy(s beam.Scope, records beam.PCollection, keyColumn string) beam.PCollection {
	s = s.Scope("dataset.CountBy")
	kv := beam.ParDo(s, &onePerKeyFn{KeyColumn: keyColumn}, records)
	return stats.SumPerKey(s, kv)
}

type extractColumnFn struct {
	Column string
}

func (f *extractColumnFn) ProcessElement(r Record) string {
	return r.Fields[f.Column]
}

// Column extracts one column of each record as a string collection.
func Column(s beam.Scope, records beam.PCollection, column string) beam.PCollection {
	return beam.ParDo(s.Scope("dataset.Column"), &extractColumnFn{Column: column}, records)
}

func formatKV(key string, value float64) string {
	return key + "=" + formatNumber(value)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
