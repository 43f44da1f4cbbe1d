package dataset

import (
	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/register"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/testing/passert"
)

func init() {
	register.Function1x1(recordToCanonical)
}

// ExpectRowCount asserts the number of records in the collection when the
// pipeline runs.
func ExpectRowCount(s beam.Scope, records beam.PCollection, expected int) {
	passert.Count(s, records, "row count", expected)
}

// ExpectColumnValues asserts the multiset of values of a column.
func ExpectColumnValues(s beam.Scope, records beam.PCollection, column string, expected ...string) {
	s = s.Scope("dataset.ExpectColumnValues")
	values := Column(s, records, column)
	asInterfaces := make([]interface{}, len(expected))
	for i, v := range expected {
		asInterfaces[i] = v
	}
	passert.Equals(s, values, asInterfaces...)
}

// ExpectAggregates asserts the result of a per-key aggregation such as SumBy
// or CountBy.
func ExpectAggregates(s beam.Scope, aggregated beam.PCollection, expected map[string]float64) {
	s = s.Scope("dataset.ExpectAggregates")
	formatted := beam.ParDo(s, formatKV, aggregated)
	want := make([]interface{}, 0, len(expected))
	for key, value := range expected {
		want = append(want, formatKV(key, value))
	}
	passert.Equals(s, formatted, want...)
}

func recordToCanonical(r Record) string {
	return r.canonical()
}

// ExpectEqual asserts that two record collections hold the same records,
// ignoring order.
func ExpectEqual(s beam.Scope, actual, expected beam.PCollection) {
	s = s.Scope("dataset.ExpectEqual")
	a := beam.ParDo(s, recordToCanonical, actual)
	b := beam.ParDo(s, recordToCanonical, expected)
	passert.Equals(s, a, b)
}
