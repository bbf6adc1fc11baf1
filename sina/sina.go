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

// Package sina downloads real time quotes with the five best bid and ask
// levels (the "pankou") from the free Sina Finance quote server.
//
// The server responds with one JavaScript statement per code, GBK encoded:
//
//   var hq_str_sz000001="平安银行,10.00,9.98,...,2024-01-02,15:00:00,00";
//
// This package requires no access token and stores nothing.
package sina

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/waizao/table"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// URL of the quote server. It may be overwritten in tests.
var URL = "https://hq.sinajs.cn"

// Request headers the server expects from a browser.
const (
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	Referer   = "https://finance.sina.com.cn/"
)

// NumFields is the number of leading fields kept from each quote.
const NumFields = 33

// Header of the pankou table, one name per field.
var Header = []string{
	"name", "open", "pre_close", "price", "high", "low", "bid", "ask",
	"volume", "amount",
	"bid1_volume", "bid1", "bid2_volume", "bid2", "bid3_volume", "bid3",
	"bid4_volume", "bid4", "bid5_volume", "bid5",
	"ask1_volume", "ask1", "ask2_volume", "ask2", "ask3_volume", "ask3",
	"ask4_volume", "ask4", "ask5_volume", "ask5",
	"date", "time", "status",
}

var quoteRe = regexp.MustCompile(`="(.*?)";`)

// ParsePankou decodes the GBK response body and splits each quote into its
// first NumFields comma separated fields. Empty quotes, as returned for
// unknown codes, are skipped.
func ParsePankou(body []byte) ([][]string, error) {
	r := transform.NewReader(bytes.NewReader(body), simplifiedchinese.GBK.NewDecoder())
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "failed to decode GBK text")
	}
	rows := [][]string{}
	for _, m := range quoteRe.FindAllStringSubmatch(string(text), -1) {
		if len(m[1]) <= 1 {
			continue
		}
		fields := strings.Split(m[1], ",")
		if len(fields) > NumFields {
			fields = fields[:NumFields]
		}
		rows = append(rows, fields)
	}
	return rows, nil
}

// FetchPankou downloads quotes for codes prefixed by the exchange, e.g.
// sz000001, sh600000, bj833171. A nil client means http.DefaultClient.
func FetchPankou(ctx context.Context, client *http.Client, codes ...string) ([][]string, error) {
	if len(codes) == 0 {
		return nil, errors.Reason("no codes to fetch")
	}
	if client == nil {
		client = http.DefaultClient
	}
	uri := fmt.Sprintf("%s/rn=%d&list=%s", URL, time.Now().UnixMilli(),
		strings.Join(codes, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to create request")
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Referer", Referer)
	logging.Debugf(ctx, "sina: fetching %d quotes", len(codes))
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch quotes")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read response body")
	}
	rows, err := ParsePankou(body)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse quotes")
	}
	return rows, nil
}

// PankouTable creates a table of quotes. Short quotes are padded with empty
// cells to the full width of the Header.
func PankouTable(rows [][]string) *table.Table {
	tbl := table.NewTable(Header...)
	for _, r := range rows {
		rec := make(table.Record, len(Header))
		for i := range rec {
			if i < len(r) {
				rec[i] = r[i]
			} else {
				rec[i] = ""
			}
		}
		tbl.AddRow(rec)
	}
	return tbl
}
