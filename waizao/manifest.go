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

package waizao

import (
	"bytes"
	_ "embed"
	"io"
	"strings"

	"github.com/stockparfait/errors"

	toml "github.com/pelletier/go-toml/v2"
)

//go:embed endpoints.toml
var defaultManifest []byte

// Endpoint describes a single remote operation.
type Endpoint struct {
	Name   string   `toml:"name"`   // unique name, e.g. getDayKLine
	Path   string   `toml:"path"`   // URL path under /doc/; default: Name
	Params []string `toml:"params"` // accepted parameter names, in order
	Doc    string   `toml:"doc"`    // optional human readable description
}

// URLPath returns the endpoint's path relative to the /doc/ URL.
func (e *Endpoint) URLPath() string {
	if e.Path == "" {
		return e.Name
	}
	return e.Path
}

// Accepts checks if the parameter name is declared by the endpoint. The
// "token" parameter is accepted by all endpoints.
func (e *Endpoint) Accepts(name string) bool {
	if name == ParamToken {
		return true
	}
	for _, p := range e.Params {
		if p == name {
			return true
		}
	}
	return false
}

// Check that all the params are declared by the endpoint.
func (e *Endpoint) Check(params Params) error {
	var unknown []string
	for _, name := range params.Names() {
		if !e.Accepts(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return errors.Reason("unknown parameters: %s; expected some of: %s",
			strings.Join(unknown, ", "), strings.Join(e.Params, ", "))
	}
	return nil
}

func (e *Endpoint) validate() error {
	if e.Name == "" {
		return errors.Reason("endpoint name is required")
	}
	seen := make(map[string]bool)
	for _, p := range e.Params {
		if p == "" {
			return errors.Reason("empty parameter name in %s", e.Name)
		}
		if p == "method" {
			return errors.Reason("%s: 'method' is a client side option, not a parameter", e.Name)
		}
		if seen[p] {
			return errors.Reason("duplicate parameter %s in %s", p, e.Name)
		}
		seen[p] = true
	}
	return nil
}

// Manifest is the list of supported endpoints.
type Manifest struct {
	Endpoints []Endpoint `toml:"endpoint"`
	index     map[string]int
}

// LoadManifest reads a manifest in TOML format:
//
//   [[endpoint]]
//   name = "getDayKLine"
//   params = ["type", "code", "ktype", "fq", "startDate", "endDate"]
//
// Endpoint names and paths must be unique.
func LoadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	d := toml.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(&m); err != nil {
		return nil, errors.Annotate(err, "failed to decode manifest")
	}
	m.index = make(map[string]int)
	paths := make(map[string]string)
	for i := range m.Endpoints {
		e := &m.Endpoints[i]
		if err := e.validate(); err != nil {
			return nil, errors.Annotate(err, "invalid endpoint #%d", i+1)
		}
		if _, ok := m.index[e.Name]; ok {
			return nil, errors.Reason("duplicate endpoint %s", e.Name)
		}
		if other, ok := paths[e.URLPath()]; ok {
			return nil, errors.Reason("duplicate path %s in %s and %s",
				e.URLPath(), other, e.Name)
		}
		paths[e.URLPath()] = e.Name
		m.index[e.Name] = i
	}
	return &m, nil
}

// DefaultManifest returns the manifest embedded in the package. Each call
// returns a new copy.
func DefaultManifest() *Manifest {
	m, err := LoadManifest(bytes.NewReader(defaultManifest))
	if err != nil {
		panic(errors.Annotate(err, "failed to load the default manifest"))
	}
	return m
}

// Endpoint looks up the endpoint by name.
func (m *Manifest) Endpoint(name string) (*Endpoint, error) {
	i, ok := m.index[name]
	if !ok {
		return nil, errors.Reason("unknown endpoint: %s", name)
	}
	return &m.Endpoints[i], nil
}

// Names of all the endpoints in the manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Endpoints))
	for i, e := range m.Endpoints {
		names[i] = e.Name
	}
	return names
}
