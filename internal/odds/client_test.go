package odds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const sheetResponse = `{
  "data": {
    "raceMeetings": [
      {
        "pmPools": [
          {
            "id": "WIN_1",
            "status": "START_SELL",
            "sellStatus": "START_SELL",
            "oddsType": "WIN",
            "lastUpdateTime": "2026-09-06T13:05:00+08:00",
            "oddsNodes": [
              {"combString": "01", "oddsValue": 4.5, "hotFavourite": true, "oddsDropValue": 12},
              {"combString": "02", "oddsValue": "11", "hotFavourite": false, "oddsDropValue": null},
              {"combString": "03", "oddsValue": "SCR", "hotFavourite": false, "oddsDropValue": null}
            ]
          },
          {
            "id": "PLA_1",
            "status": "START_SELL",
            "sellStatus": "START_SELL",
            "oddsType": "PLA",
            "lastUpdateTime": "2026-09-06T13:05:00+08:00",
            "oddsNodes": [
              {"combString": "01", "oddsValue": "1.8", "hotFavourite": false, "oddsDropValue": null},
              {"combString": "02", "oddsValue": 3.2, "hotFavourite": false, "oddsDropValue": null}
            ]
          }
        ]
      }
    ]
  }
}`

func TestFetchSheet(t *testing.T) {
	var captured graphqlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("期望 POST, 实际 %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sheetResponse))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, zerolog.Nop())
	sheet, err := client.FetchSheet(context.Background(), SheetKey{Date: "2026-09-06", VenueCode: "ST", RaceNo: 1})
	if err != nil {
		t.Fatalf("FetchSheet 应成功: %v", err)
	}

	if captured.OperationName != "racing" {
		t.Fatalf("operationName 不正确: %q", captured.OperationName)
	}
	if captured.Variables["venueCode"] != "ST" {
		t.Fatalf("venueCode 不正确: %v", captured.Variables["venueCode"])
	}

	if len(sheet) != 2 {
		t.Fatalf("期望 2 匹马有赔率 (SCR 应跳过), 实际 %d", len(sheet))
	}
	if !sheet[1][PoolWin].Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("1 号 WIN 赔率不正确: %s", sheet[1][PoolWin])
	}
	if !sheet[2][PoolWin].Equal(decimal.RequireFromString("11")) {
		t.Fatalf("2 号 WIN 赔率不正确: %s", sheet[2][PoolWin])
	}
	if !sheet[1][PoolPlace].Equal(decimal.RequireFromString("1.8")) {
		t.Fatalf("1 号 PLACE 赔率不正确: %s", sheet[1][PoolPlace])
	}
	if _, ok := sheet[3]; ok {
		t.Fatal("退出马匹不应出现在赔率表中")
	}
}

func TestFetchSheetEmptyMeeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"raceMeetings":[]}}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, zerolog.Nop())
	sheet, err := client.FetchSheet(context.Background(), SheetKey{Date: "2026-09-06", VenueCode: "HV", RaceNo: 2})
	if err != nil {
		t.Fatalf("空赛日应返回空表而非错误: %v", err)
	}
	if len(sheet) != 0 {
		t.Fatalf("期望空表, 实际 %d", len(sheet))
	}
}

func TestFetchSheetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, zerolog.Nop())
	if _, err := client.FetchSheet(context.Background(), SheetKey{Date: "2026-09-06", VenueCode: "ST", RaceNo: 1}); err == nil {
		t.Fatal("非 200 响应应报错")
	}
}

func TestRunnerNumber(t *testing.T) {
	cases := []struct {
		comb string
		want int
		ok   bool
	}{
		{"01", 1, true},
		{"14", 14, true},
		{"007", 7, true},
		{"00", 0, false},
		{"01,02", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := runnerNumber(tc.comb)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("runnerNumber(%q) = (%d, %v), 期望 (%d, %v)", tc.comb, got, ok, tc.want, tc.ok)
		}
	}
}
