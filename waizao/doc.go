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

// Package waizao implements a generic client of the Waizao financial data API
// (http://www.waizaowang.com).
//
// Every remote operation of the API is an endpoint at
// http://api.waizaowang.com/doc/<name>, taking a flat set of named parameters
// in the URL query string, for both GET and POST requests. The access token is
// just another parameter named "token". The response body is returned as is;
// its format depends on the "export" parameter (see Export* constants), and
// package export converts JSON responses into tables.
//
// Rather than one Go function per endpoint, endpoints are described by a
// Manifest: the endpoint name, its URL path and the list of parameters it
// accepts. A default manifest is embedded in the package, and a custom one can
// be loaded with LoadManifest.
//
// A typical use:
//
//   c := waizao.NewClient(token, nil)
//   e, err := waizao.DefaultManifest().Endpoint("getDayKLine")
//   ...
//   text, err := c.Call(ctx, e, waizao.Params{
//     "type": 1, "code": "000001,000002", "ktype": 101, "fq": 1,
//     "startDate": "2024-01-01", "endDate": "2024-02-01",
//     "fields": "all", "export": waizao.ExportJSON,
//   }, waizao.MethodGet)
package waizao
