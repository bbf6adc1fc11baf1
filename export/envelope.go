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

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Names of the envelope fields.
const (
	DataField   = "data"
	LabelsField = "zh"
)

// ParseError is returned when the response text is not a valid JSON envelope.
// Error responses from the server usually end up here, as they don't have the
// "data" field.
type ParseError struct {
	Reason string
	Err    error // the underlying decoder error, if any
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "failed to parse response: " + e.Reason
	}
	return fmt.Sprintf("failed to parse response: %s: %s", e.Reason, e.Err.Error())
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingFieldError is returned when a required envelope field is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("response has no '%s' field", e.Field)
}

// LabelMismatchError is returned when the number of labels differs from the
// number of columns.
type LabelMismatchError struct {
	Labels  int
	Columns int
}

func (e *LabelMismatchError) Error() string {
	return fmt.Sprintf("%d labels in '%s' for %d columns in '%s'",
		e.Labels, LabelsField, e.Columns, DataField)
}

// Object is a JSON object which remembers the order of its keys.
type Object struct {
	Keys   []string // in the order of first appearance
	Values map[string]any
}

// Envelope is the JSON response of the server:
//
//   {"data": [{"code": "000001", "close": 10.5}, ...], "zh": ["股票代码", "收盘价"]}
//
// where "zh" is only present for the labeled table export mode.
type Envelope struct {
	Data      []Object
	Labels    []string
	HasLabels bool // whether "zh" is present
}

// Columns returns the union of the keys of all the Data records, in the order
// they are first encountered.
func (e *Envelope) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, o := range e.Data {
		for _, k := range o.Keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

func expectDelim(dec *json.Decoder, d json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != d {
		return errors.Reason("expected '%s', got %v", d, tok)
	}
	return nil
}

// decodeObject reads the next JSON object from the stream preserving the order
// of its keys. Nested values are decoded as generic JSON values, with numbers
// kept as json.Number.
func decodeObject(dec *json.Decoder) (Object, error) {
	obj := Object{Values: make(map[string]any)}
	if err := expectDelim(dec, '{'); err != nil {
		return obj, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return obj, err
		}
		key, ok := tok.(string)
		if !ok {
			return obj, errors.Reason("expected object key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return obj, err
		}
		if _, ok := obj.Values[key]; !ok {
			obj.Keys = append(obj.Keys, key)
		}
		obj.Values[key] = v
	}
	return obj, expectDelim(dec, '}')
}

// decodeData reads the "data" value. It returns false if the value is null.
func decodeData(dec *json.Decoder) ([]Object, bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if tok == nil {
		return nil, false, nil
	}
	if tok != json.Delim('[') {
		return nil, false, errors.Reason("expected an array, got %v", tok)
	}
	data := []Object{}
	for dec.More() {
		obj, err := decodeObject(dec)
		if err != nil {
			return nil, false, errors.Annotate(err, "record %d", len(data))
		}
		data = append(data, obj)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ParseEnvelope parses the response text in a single pass. It requires the
// "data" field to be an array of objects, and "zh", when present, to be an
// array of strings. Other fields are ignored.
func ParseEnvelope(text string) (*Envelope, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var env Envelope
	hasData := false
	if err := expectDelim(dec, '{'); err != nil {
		return nil, &ParseError{Reason: "expected a JSON object", Err: err}
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Reason: "invalid JSON", Err: err}
		}
		key, ok := tok.(string)
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("unexpected token %v", tok)}
		}
		switch key {
		case DataField:
			data, ok, err := decodeData(dec)
			if err != nil {
				return nil, &ParseError{Reason: "invalid '" + DataField + "'", Err: err}
			}
			env.Data = data
			hasData = ok
		case LabelsField:
			var labels []string
			if err := dec.Decode(&labels); err != nil {
				return nil, &ParseError{Reason: "invalid '" + LabelsField + "'", Err: err}
			}
			env.Labels = labels
			env.HasLabels = labels != nil
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &ParseError{Reason: "invalid JSON", Err: err}
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Reason: "unexpected data after the JSON object", Err: err}
	}
	if !hasData {
		return nil, &ParseError{Reason: "no '" + DataField + "' field"}
	}
	return &env, nil
}
