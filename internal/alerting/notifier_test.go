package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func sampleNote() Notification {
	return Notification{
		Date:         "2026-09-06",
		VenueCode:    "ST",
		RaceNo:       3,
		HorseNo:      7,
		Pool:         "WIN",
		Previous:     decimal.RequireFromString("6.5"),
		Current:      decimal.RequireFromString("4.2"),
		DropPct:      decimal.RequireFromString("35.4"),
		ThresholdPct: decimal.NewFromInt(20),
		ObservedAt:   time.Now(),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "ST R3") {
		t.Fatalf("text 应包含赛事信息: %q", received["text"])
	}
	if !strings.Contains(received["text"], "6.50 -> 4.20") {
		t.Fatalf("text 应包含赔率变化: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestDropPercent(t *testing.T) {
	cases := []struct {
		name     string
		prev     string
		cur      string
		expected string
	}{
		{"drop", "10", "8", "20"},
		{"lengthened", "8", "10", "0"},
		{"unchanged", "5", "5", "0"},
		{"zero_previous", "0", "3", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DropPercent(decimal.RequireFromString(tc.prev), decimal.RequireFromString(tc.cur))
			if !got.Equal(decimal.RequireFromString(tc.expected)) {
				t.Fatalf("DropPercent(%s, %s) = %s, 期望 %s", tc.prev, tc.cur, got, tc.expected)
			}
		})
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
