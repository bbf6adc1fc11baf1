// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Record is a row of arbitrary cell values, typically as decoded from JSON:
// string, json.Number, bool, nil, or a nested []any / map[string]any.
type Record []any

var _ Row = Record{}

// CSV implements Row.
func (r Record) CSV() []string {
	res := make([]string, len(r))
	for i, v := range r {
		res[i] = FormatCell(v)
	}
	return res
}

// FormatCell prints a single cell value. Missing values (nil) print as an
// empty string, numbers in the shortest exact decimal form.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// number extracts a numeric cell value, if it is one.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Describe summarizes numeric columns of a table of Records: the number of
// numeric cells, their mean, sample standard deviation, min and max. Columns
// without any numeric cells, and rows which are not Records, are skipped.
func (t *Table) Describe() *Table {
	var header []string
	var cols [][]float64
	for i, h := range t.Header {
		var xs []float64
		for _, r := range t.Rows {
			rec, ok := r.(Record)
			if !ok || i >= len(rec) {
				continue
			}
			if x, ok := number(rec[i]); ok {
				xs = append(xs, x)
			}
		}
		if len(xs) == 0 {
			continue
		}
		header = append(header, h)
		cols = append(cols, xs)
	}
	res := NewTable(append([]string{""}, header...)...)
	stats := []struct {
		name string
		f    func([]float64) float64
	}{
		{"count", func(xs []float64) float64 { return float64(len(xs)) }},
		{"mean", func(xs []float64) float64 { return stat.Mean(xs, nil) }},
		{"std", func(xs []float64) float64 { return stat.StdDev(xs, nil) }},
		{"min", floats.Min},
		{"max", floats.Max},
	}
	for _, s := range stats {
		row := Record{s.name}
		for _, xs := range cols {
			row = append(row, s.f(xs))
		}
		res.AddRow(row)
	}
	return res
}
