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

// Package export converts raw API responses into files and tables.
package export

import (
	"io"
	"os"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/waizao/table"
)

// WriteRaw writes the response text to a file verbatim, replacing its content
// if the file exists. The write is not atomic.
func WriteRaw(fileName, text string) error {
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", fileName)
	}
	defer f.Close()
	if _, err := io.WriteString(f, text); err != nil {
		return errors.Annotate(err, "failed to write to '%s'", fileName)
	}
	return nil
}

// Table creates a table from the envelope data. The columns are the union of
// the record keys in the order they first appear; a record lacking a key has a
// nil cell in that column.
func (e *Envelope) Table() *table.Table {
	cols := e.Columns()
	tbl := table.NewTable(cols...)
	for _, o := range e.Data {
		row := make(table.Record, len(cols))
		for i, c := range cols {
			row[i] = o.Values[c]
		}
		tbl.AddRow(row)
	}
	return tbl
}

// LabeledTable creates a table from the envelope data with the column headers
// replaced by the labels. There must be exactly one label per column. When
// there are no records, the labels become the header of the empty table.
func (e *Envelope) LabeledTable() (*table.Table, error) {
	if !e.HasLabels {
		return nil, &MissingFieldError{Field: LabelsField}
	}
	if len(e.Data) == 0 {
		return table.NewTable(e.Labels...), nil
	}
	tbl := e.Table()
	if len(e.Labels) != len(tbl.Header) {
		return nil, &LabelMismatchError{Labels: len(e.Labels), Columns: len(tbl.Header)}
	}
	return tbl.Relabel(e.Labels...)
}

// ToTable parses the JSON response text and converts its "data" field into a
// table with the record keys as the header. It returns *ParseError when the
// text is not a JSON object with a "data" array of objects.
func ToTable(text string) (*table.Table, error) {
	env, err := ParseEnvelope(text)
	if err != nil {
		return nil, err
	}
	return env.Table(), nil
}

// ToLabeledTable is like ToTable, but replaces the column headers by the
// human readable labels from the "zh" field, left to right. It returns
// *MissingFieldError when "zh" is absent and *LabelMismatchError when the
// number of labels is different from the number of columns.
func ToLabeledTable(text string) (*table.Table, error) {
	env, err := ParseEnvelope(text)
	if err != nil {
		return nil, err
	}
	return env.LabeledTable()
}
