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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/logging"
	"github.com/stockparfait/testutil"
	"github.com/stockparfait/waizao/sina"
	"github.com/stockparfait/waizao/waizao"
	"golang.org/x/text/encoding/simplifiedchinese"

	. "github.com/smartystreets/goconvey/convey"
)

const labeledJSON = `{"data": [{"code":"000001","close":10.5},{"code":"000002","close":20.1}], "zh": ["股票代码","收盘价"]}`

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_waizao")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("endpoint with parameters", func() {
			flags, err := parseFlags([]string{
				"-cache", "path/to/cache", "-log-level", "warning",
				"-endpoint", "getDayKLine", "-p", "code=000001", "-p", "export=5",
				"-method", "get", "-labeled", "-csv"})
			So(err, ShouldBeNil)
			So(flags.DBDir, ShouldEqual, "path/to/cache")
			So(flags.LogLevel, ShouldEqual, logging.Warning)
			So(flags.Endpoint, ShouldEqual, "getDayKLine")
			So(flags.Params, ShouldResemble, paramsFlag{"code": "000001", "export": "5"})
			So(flags.Method, ShouldEqual, "get")
			So(flags.Labeled, ShouldBeTrue)
			So(flags.CSV, ShouldBeTrue)
		})

		Convey("parameter value may contain '='", func() {
			flags, err := parseFlags([]string{
				"-endpoint", "getDayKLine", "-p", "filter=open>=15"})
			So(err, ShouldBeNil)
			So(flags.Params, ShouldResemble, paramsFlag{"filter": "open>=15"})
		})

		Convey("defaults", func() {
			flags, err := parseFlags([]string{"-list"})
			So(err, ShouldBeNil)
			So(flags.Method, ShouldEqual, "post")
			So(flags.LogLevel, ShouldEqual, logging.Info)
			So(len(flags.Params), ShouldEqual, 0)
		})

		Convey("errors", func() {
			for _, args := range [][]string{
				{},
				{"-list", "-endpoint", "getDayKLine"},
				{"-list", "-table"},
				{"-endpoint", "getDayKLine", "-table", "-labeled"},
				{"-endpoint", "getDayKLine", "-describe"},
				{"-endpoint", "getDayKLine", "-p", "novalue"},
			} {
				_, err := parseFlags(args)
				So(err, ShouldNotBeNil)
			}
		})
	})

	Convey("parseConfig", t, func() {
		Convey("existing config", func() {
			dir := filepath.Join(tmpdir, "config")
			So(os.MkdirAll(dir, 0755), ShouldBeNil)
			So(testutil.WriteFile(filepath.Join(dir, "config.toml"), `token = "testToken"
host = "http://localhost:1234"
`), ShouldBeNil)
			c, err := parseConfig(dir)
			So(err, ShouldBeNil)
			So(c.Token, ShouldEqual, "testToken")
			So(c.Host, ShouldEqual, "http://localhost:1234")
		})

		Convey("missing config", func() {
			_, err := parseConfig(filepath.Join(tmpdir, "nonexistent"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "does not exist")
		})
	})

	Convey("printData works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{labeledJSON}

		ctx := context.Background()
		dir := filepath.Join(tmpdir, "print")
		So(os.MkdirAll(dir, 0755), ShouldBeNil)
		So(testutil.WriteFile(filepath.Join(dir, "config.toml"), fmt.Sprintf(`
token = "testToken"
host = "%s"
`, server.URL())), ShouldBeNil)

		Convey("list", func() {
			flags, err := parseFlags([]string{"-cache", dir, "-list"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, nil, &buf), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "getDayKLine(type, code, ")
		})

		Convey("list a custom manifest", func() {
			manifest := filepath.Join(dir, "manifest.toml")
			So(testutil.WriteFile(manifest, `
[[endpoint]]
name = "b"
params = ["code"]

[[endpoint]]
name = "a"
doc = "The A."
`), ShouldBeNil)
			flags, err := parseFlags([]string{"-cache", dir, "-manifest", manifest, "-list"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, nil, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
a()
    The A.
b(code)
`)
		})

		Convey("raw response", func() {
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-p", "code=000001", "-p", "export=5",
				"-method", "get"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, labeledJSON)
			So(server.RequestPath, ShouldEqual, "/doc/getDayKLine")
			So(server.RequestQuery.Get("code"), ShouldEqual, "000001")
			So(server.RequestQuery.Get("export"), ShouldEqual, "5")
			So(server.RequestQuery.Get("token"), ShouldEqual, "testToken")
			So(waizao.URL, ShouldEqual, "http://api.waizaowang.com")
		})

		Convey("labeled table in CSV", func() {
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-labeled", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
股票代码,收盘价
000001,10.5
000002,20.1
`)
		})

		Convey("labeled table in text", func() {
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-labeled"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
股票代码 | 收盘价
-------- | ------
  000001 |   10.5
  000002 |   20.1
`)
		})

		Convey("plain table in text", func() {
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-table"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
  code | close
------ | -----
000001 |  10.5
000002 |  20.1
`)
		})

		Convey("describe", func() {
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-table", "-describe", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So(buf.String(), ShouldStartWith, ",close\ncount,2\n")
		})

		Convey("save raw response", func() {
			out := filepath.Join(dir, "out.json")
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-out", out})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "")
			b, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, labeledJSON)
		})

		Convey("unknown parameter", func() {
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-p", "bogus=1"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldNotBeNil)
		})

		Convey("unknown endpoint", func() {
			flags, err := parseFlags([]string{"-cache", dir, "-endpoint", "noSuch"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldNotBeNil)
		})

		Convey("server error payload", func() {
			server.ResponseBody = []string{`{"code": 403, "msg": "invalid token"}`}
			flags, err := parseFlags([]string{"-cache", dir,
				"-endpoint", "getDayKLine", "-table"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			err = printData(ctx, flags, server.Client(), &buf)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no 'data' field")
		})

		Convey("pankou", func() {
			body, err := simplifiedchinese.GBK.NewEncoder().String(
				`var hq_str_sz000001="平安银行,10.01,9.98";` + "\n")
			So(err, ShouldBeNil)
			server.ResponseBody = []string{body}
			sina.URL = server.URL()
			flags, err := parseFlags([]string{"-pankou", "sz000001", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, server.Client(), &buf), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "name,open,pre_close,price,")
			So(buf.String(), ShouldContainSubstring, "\n平安银行,10.01,9.98,,")
		})
	})
}
