// Package data loads rows for data-driven test suites from CSV files, JSON
// files, and SQL queries. Every provider yields the same Row shape so suites
// can iterate uniformly regardless of the source.
package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/verax-qa/verax/sqldb"
)

// Row is one record of test input keyed by column name.
type Row map[string]ldvalue.Value

// String returns the value of a column as a string, or "" if absent.
func (r Row) String(column string) string {
	return r[column].StringValue()
}

// Int returns the value of a column as an int, or 0 if absent.
func (r Row) Int(column string) int {
	return r[column].IntValue()
}

// Bool returns the value of a column as a bool, or false if absent.
func (r Row) Bool(column string) bool {
	return r[column].BoolValue()
}

// Has reports whether a column is present.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// LoadCSV reads rows from a CSV file. The first record is the header; every
// value is loaded as a string. Duplicate header names are an error. A file
// with only a header yields zero rows.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header record", path)
	}

	header := records[0]
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("%s: duplicate column %q", path, name)
		}
		seen[name] = true
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, name := range header {
			row[name] = ldvalue.String(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadJSON reads rows from a JSON file holding an array of objects. Values
// keep their JSON types.
func LoadJSON(path string) ([]Row, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed := ldvalue.Parse(raw)
	if parsed.Type() != ldvalue.ArrayType {
		return nil, fmt.Errorf("%s: expected a JSON array of objects", path)
	}

	rows := make([]Row, 0, parsed.Count())
	for i := 0; i < parsed.Count(); i++ {
		element := parsed.GetByIndex(i)
		if element.Type() != ldvalue.ObjectType {
			return nil, fmt.Errorf("%s: element %d is not an object", path, i)
		}
		row := make(Row, element.Count())
		for _, key := range element.Keys() {
			row[key] = element.GetByKey(key)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromSQL runs a query and converts each result row into test input.
func FromSQL(ctx context.Context, client *sqldb.Client, query string, args ...interface{}) ([]Row, error) {
	results, err := client.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(results))
	for _, result := range results {
		row := make(Row, len(result))
		for name, value := range result {
			row[name] = ldvalue.CopyArbitraryValue(value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
