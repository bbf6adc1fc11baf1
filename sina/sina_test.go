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

package sina

import (
	"context"
	"strings"
	"testing"

	"github.com/stockparfait/testutil"
	"github.com/stockparfait/waizao/table"
	"golang.org/x/text/encoding/simplifiedchinese"

	. "github.com/smartystreets/goconvey/convey"
)

// testQuote creates a quote with n fields: the name followed by numbers.
func testQuote(name string, n int) []string {
	fields := []string{name}
	for i := 1; i < n; i++ {
		fields = append(fields, "1.5")
	}
	return fields
}

func gbk(s string) string {
	res, err := simplifiedchinese.GBK.NewEncoder().String(s)
	if err != nil {
		panic(err)
	}
	return res
}

func TestSina(t *testing.T) {
	t.Parallel()

	long := testQuote("平安银行", 35)
	short := testQuote("浦发银行", 5)
	body := gbk(`var hq_str_sz000001="` + strings.Join(long, ",") + `";
var hq_str_sh600000="` + strings.Join(short, ",") + `";
var hq_str_bj000000="";
`)

	Convey("Header has a name for each field", t, func() {
		So(len(Header), ShouldEqual, NumFields)
	})

	Convey("ParsePankou", t, func() {
		rows, err := ParsePankou([]byte(body))
		So(err, ShouldBeNil)
		So(rows, ShouldResemble, [][]string{long[:NumFields], short})
	})

	Convey("FetchPankou", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{body}
		URL = server.URL()
		ctx := context.Background()

		Convey("sends the codes", func() {
			rows, err := FetchPankou(ctx, server.Client(), "sz000001", "sh600000", "bj000000")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0][0], ShouldEqual, "平安银行")
			So(server.RequestPath, ShouldStartWith, "/rn=")
			So(server.RequestPath, ShouldEndWith, "&list=sz000001,sh600000,bj000000")
		})

		Convey("requires codes", func() {
			_, err := FetchPankou(ctx, server.Client())
			So(err, ShouldNotBeNil)
		})
	})

	Convey("PankouTable pads short quotes", t, func() {
		tbl := PankouTable([][]string{{"浦发银行", "7.1"}})
		So(tbl.Header, ShouldResemble, Header)
		So(len(tbl.Rows), ShouldEqual, 1)
		rec := tbl.Rows[0].(table.Record)
		So(len(rec), ShouldEqual, NumFields)
		So(rec[0], ShouldEqual, "浦发银行")
		So(rec[1], ShouldEqual, "7.1")
		So(rec[NumFields-1], ShouldEqual, "")
	})
}
