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
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "http://api.waizaowang.com"

// Names of the parameters shared by most endpoints.
const (
	ParamFields = "fields" // comma separated field names, or "all"
	ParamExport = "export" // one of Export* values
	ParamFilter = "filter" // server side filter expression, e.g. "open>=15"
	ParamCode   = "code"   // up to 50 comma separated codes, or "all"
	ParamToken  = "token"  // user's access token
)

// Values of the "export" parameter, selecting the response format.
const (
	ExportText     = 0 // delimited plain text
	ExportJSON     = 1 // {"data": [...]}
	ExportTextFile = 2 // delimited text file
	ExportJSONFile = 3 // JSON file
	ExportCSVFile  = 4 // CSV file
	ExportTable    = 5 // {"data": [...], "zh": [...]}
)

// Method is the HTTP method of a request. It is a client side option and is
// never sent to the server.
type Method string

// Values of Method.
const (
	MethodPost = Method("post")
	MethodGet  = Method("get")
)

// ParseMethod converts a user supplied string to a Method. Only "get" (in any
// case) selects GET; everything else, including the empty string, is POST.
func ParseMethod(s string) Method {
	if strings.ToLower(s) == string(MethodGet) {
		return MethodGet
	}
	return MethodPost
}

// verb returns the HTTP verb for the method.
func (m Method) verb() string {
	if ParseMethod(string(m)) == MethodGet {
		return http.MethodGet
	}
	return http.MethodPost
}

// Params of a request: parameter name -> value. Values are typically strings
// or integers; a []string is sent as a comma separated list.
type Params map[string]any

// formatValue converts a parameter value to its query string representation.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return strings.Join(x, ",")
	}
	return fmt.Sprintf("%v", v)
}

// Values returns the parameters as URL query values. Parameters with a nil
// value are omitted. Each call creates a new object, so the caller is free to
// modify it.
func (p Params) Values() url.Values {
	v := make(url.Values)
	for name, value := range p {
		if value == nil {
			continue
		}
		v.Set(name, formatValue(value))
	}
	return v
}

// Names of the parameters, sorted.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Client for querying the Waizao API.
type Client struct {
	baseURL string       // the base URL of the server
	token   string       // optional access token added to every request
	http    *http.Client // the transport; http.DefaultClient if nil
}

// NewClient creates a new client using the current base URL. The token, when
// not empty, is sent with every request that doesn't set its own "token"
// parameter. A nil httpClient means http.DefaultClient.
func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: URL,
		token:   token,
		http:    httpClient,
	}
}

// WithBaseURL returns a copy of the client sending requests to baseURL
// instead. The receiver is not modified.
func (c *Client) WithBaseURL(baseURL string) *Client {
	res := *c
	res.baseURL = strings.TrimSuffix(baseURL, "/")
	return &res
}

// BaseURL of the server this client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UseClient injects the client into the context.
func UseClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, c)
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// URI returns the full URL of the endpoint path, without the query.
func (c *Client) URI(path string) string {
	return c.baseURL + "/doc/" + path
}

// Dispatch sends a single request to the endpoint path with params in the URL
// query string and returns the response body as text. For any method other
// than MethodGet the request is a POST with an empty body.
//
// The response status is not checked: whatever the server sends back is
// returned. Only transport errors are reported.
func (c *Client) Dispatch(ctx context.Context, path string, params Params, method Method) (string, error) {
	if path == "" {
		return "", errors.Reason("empty endpoint path")
	}
	query := params.Values()
	if _, ok := params[ParamToken]; c.token != "" && !ok {
		query.Set(ParamToken, c.token)
	}
	uri := c.URI(path)
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	verb := method.verb()
	req, err := http.NewRequestWithContext(ctx, verb, uri, nil)
	if err != nil {
		return "", errors.Annotate(err, "failed to create request for %s", path)
	}
	logging.Debugf(ctx, "waizao: %s %s", verb, c.URI(path))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Annotate(err, "failed to %s %s", verb, c.URI(path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Annotate(err, "failed to read response body from %s", path)
	}
	logging.Debugf(ctx, "waizao: %s returned status %d, %d bytes",
		path, resp.StatusCode, len(body))
	return string(body), nil
}

// Call checks that all the params are accepted by the endpoint and dispatches
// the request to its path. The "token" parameter is always accepted.
func (c *Client) Call(ctx context.Context, e *Endpoint, params Params, method Method) (string, error) {
	if err := e.Check(params); err != nil {
		return "", errors.Annotate(err, "invalid parameters for %s", e.Name)
	}
	text, err := c.Dispatch(ctx, e.URLPath(), params, method)
	if err != nil {
		return "", errors.Annotate(err, "failed to call %s", e.Name)
	}
	return text, nil
}

// Dispatch a request using the Client from the context.
func Dispatch(ctx context.Context, path string, params Params, method Method) (string, error) {
	c := GetClient(ctx)
	if c == nil {
		return "", errors.Reason("no client in context")
	}
	return c.Dispatch(ctx, path, params, method)
}

// Call an endpoint using the Client from the context.
func Call(ctx context.Context, e *Endpoint, params Params, method Method) (string, error) {
	c := GetClient(ctx)
	if c == nil {
		return "", errors.Reason("no client in context")
	}
	return c.Call(ctx, e, params, method)
}
