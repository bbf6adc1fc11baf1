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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/waizao/export"
	"github.com/stockparfait/waizao/sina"
	"github.com/stockparfait/waizao/table"
	"github.com/stockparfait/waizao/waizao"

	toml "github.com/pelletier/go-toml/v2"
)

// paramsFlag collects repeated -p key=value flags.
type paramsFlag waizao.Params

var _ flag.Value = paramsFlag{}

func (p paramsFlag) String() string {
	var kv []string
	for _, k := range waizao.Params(p).Names() {
		kv = append(kv, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(kv, " ")
}

func (p paramsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return errors.Reason("expected key=value, got '%s'", s)
	}
	p[k] = v
	return nil
}

type Flags struct {
	DBDir    string // default: ~/.waizao
	LogLevel logging.Level
	Manifest string // endpoint manifest file; default: built-in
	// Exactly one of list, endpoint or pankou must be present.
	List     bool
	Endpoint string
	Pankou   string // comma separated codes, e.g. sz000001,sh600000
	Params   paramsFlag
	Method   string
	Out      string // file to write the raw response to
	Table    bool   // print the response as a table
	Labeled  bool   // print the response as a table with "zh" labels
	Describe bool   // print numeric column statistics instead of the table
	CSV      bool   // print tables in CSV format; default: text
}

func parseFlags(args []string) (*Flags, error) {
	flags := Flags{Params: paramsFlag{}}
	fs := flag.NewFlagSet("waizao", flag.ContinueOnError)
	fs.StringVar(&flags.DBDir, "cache",
		filepath.Join(os.Getenv("HOME"), ".waizao"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Manifest, "manifest", "", "endpoint manifest file (TOML)")
	fs.BoolVar(&flags.List, "list", false, "list known endpoints")
	fs.StringVar(&flags.Endpoint, "endpoint", "", "endpoint to call")
	fs.StringVar(&flags.Pankou, "pankou", "", "comma separated codes to fetch quotes for")
	fs.Var(flags.Params, "p", "endpoint parameter key=value (repeated)")
	fs.StringVar(&flags.Method, "method", "post", "HTTP method: get or post")
	fs.StringVar(&flags.Out, "out", "", "write the raw response to this file")
	fs.BoolVar(&flags.Table, "table", false, "print JSON response as a table")
	fs.BoolVar(&flags.Labeled, "labeled", false,
		"print JSON response as a table with labeled columns")
	fs.BoolVar(&flags.Describe, "describe", false, "print numeric column statistics")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	kinds := 0
	if flags.List {
		kinds++
	}
	if flags.Endpoint != "" {
		kinds++
	}
	if flags.Pankou != "" {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason(
			"expected exactly one of -list, -endpoint or -pankou")
	}
	if flags.Table && flags.Labeled {
		return nil, errors.Reason("-table and -labeled are mutually exclusive")
	}
	if (flags.Table || flags.Labeled) && flags.Endpoint == "" {
		return nil, errors.Reason("-table and -labeled require -endpoint")
	}
	if flags.Describe && !flags.Table && !flags.Labeled {
		return nil, errors.Reason("-describe requires -table or -labeled")
	}
	return &flags, nil
}

type Config struct {
	Token string `toml:"token"` // user token from waizaowang.com
	Host  string `toml:"host"`  // optional server URL
}

func parseConfig(dir string) (*Config, error) {
	filePath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `token = "YourWaizaoToken"
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return &c, nil
}

func loadManifest(fileName string) (*waizao.Manifest, error) {
	if fileName == "" {
		return waizao.DefaultManifest(), nil
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open manifest %s", fileName)
	}
	defer f.Close()
	return waizao.LoadManifest(f)
}

func printTable(tbl *table.Table, flags *Flags, w io.Writer) error {
	if flags.Describe {
		tbl = tbl.Describe()
	}
	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func listEndpoints(m *waizao.Manifest, w io.Writer) error {
	names := m.Names()
	sort.Strings(names)
	for _, n := range names {
		e, err := m.Endpoint(n)
		if err != nil {
			return errors.Annotate(err, "failed to look up %s", n)
		}
		if _, err := fmt.Fprintf(w, "%s(%s)\n", e.Name, strings.Join(e.Params, ", ")); err != nil {
			return errors.Annotate(err, "failed to print endpoint")
		}
		if e.Doc != "" {
			if _, err := fmt.Fprintf(w, "    %s\n", e.Doc); err != nil {
				return errors.Annotate(err, "failed to print endpoint")
			}
		}
	}
	return nil
}

func callEndpoint(ctx context.Context, flags *Flags, hc *http.Client, w io.Writer) error {
	config, err := parseConfig(flags.DBDir)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	m, err := loadManifest(flags.Manifest)
	if err != nil {
		return errors.Annotate(err, "failed to load manifest")
	}
	e, err := m.Endpoint(flags.Endpoint)
	if err != nil {
		return errors.Annotate(err, "failed to find endpoint")
	}
	c := waizao.NewClient(config.Token, hc)
	if config.Host != "" {
		c = c.WithBaseURL(config.Host)
	}
	text, err := c.Call(ctx, e, waizao.Params(flags.Params), waizao.ParseMethod(flags.Method))
	if err != nil {
		return errors.Annotate(err, "request failed")
	}
	if flags.Out != "" {
		if err := export.WriteRaw(flags.Out, text); err != nil {
			return errors.Annotate(err, "failed to save response")
		}
		logging.Infof(ctx, "saved %d bytes to %s", len(text), flags.Out)
	}
	var tbl *table.Table
	switch {
	case flags.Table:
		tbl, err = export.ToTable(text)
	case flags.Labeled:
		tbl, err = export.ToLabeledTable(text)
	default:
		if flags.Out == "" {
			if _, err := io.WriteString(w, text); err != nil {
				return errors.Annotate(err, "failed to print response")
			}
		}
		return nil
	}
	if err != nil {
		return errors.Annotate(err, "failed to convert response to a table")
	}
	return printTable(tbl, flags, w)
}

func printPankou(ctx context.Context, flags *Flags, hc *http.Client, w io.Writer) error {
	rows, err := sina.FetchPankou(ctx, hc, strings.Split(flags.Pankou, ",")...)
	if err != nil {
		return errors.Annotate(err, "failed to fetch quotes")
	}
	return printTable(sina.PankouTable(rows), flags, w)
}

// printData executes the command. A nil hc means http.DefaultClient.
func printData(ctx context.Context, flags *Flags, hc *http.Client, w io.Writer) error {
	switch {
	case flags.List:
		m, err := loadManifest(flags.Manifest)
		if err != nil {
			return errors.Annotate(err, "failed to load manifest")
		}
		return listEndpoints(m, w)
	case flags.Pankou != "":
		return printPankou(ctx, flags, hc, w)
	}
	return callEndpoint(ctx, flags, hc, w)
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := printData(ctx, flags, nil, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
