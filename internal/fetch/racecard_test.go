package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// fakeRenderer serves canned pages keyed by URL substring and records every
// request.
type fakeRenderer struct {
	pages    map[string]string
	requests []string
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	f.requests = append(f.requests, url)
	if f.err != nil {
		return "", f.err
	}
	for needle, page := range f.pages {
		if strings.Contains(url, needle) {
			return page, nil
		}
	}
	return "<html><body>not found</body></html>", nil
}

const gridPage = `<html><body><table class="f_fs12"><tr><th>馬名</th><th>騎師</th><th>練馬師</th></tr></table></body></html>`
const enGridPage = `<html><body><table><tr><th>Horse</th><th>Jockey</th><th>Trainer</th></tr></table></body></html>`

func TestRacePagesFirstPermutationHit(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"Chinese": gridPage,
		"English": enGridPage,
	}}
	client := NewClient(renderer, "https://example.test", zerolog.Nop())

	zh, en, err := client.RacePages(context.Background(), "2026-09-06", "ST", 1)
	if err != nil {
		t.Fatalf("RacePages 應成功: %v", err)
	}
	if !strings.Contains(zh, "馬名") {
		t.Fatalf("中文頁不正確: %q", zh)
	}
	if !strings.Contains(en, "Horse") {
		t.Fatalf("英文頁不正確: %q", en)
	}

	// 首個路徑/參數組合即命中, 中文側只應請求一次。
	zhRequests := 0
	for _, u := range renderer.requests {
		if strings.Contains(u, "Chinese") {
			zhRequests++
		}
	}
	if zhRequests != 1 {
		t.Fatalf("中文側應只請求一次, 實際 %d", zhRequests)
	}

	first := renderer.requests[0]
	if !strings.Contains(first, "RaceDate=2026/09/06") {
		t.Fatalf("日期參數格式不正確: %s", first)
	}
	if !strings.Contains(first, "Racecourse=ST") || !strings.Contains(first, "RaceNo=1") {
		t.Fatalf("請求參數不完整: %s", first)
	}
}

func TestRacePagesTriesPermutations(t *testing.T) {
	// 只有第二個路徑加第二個日期鍵能命中。
	renderer := &fakeRenderer{pages: map[string]string{
		"Chinese/racing/RaceCard.aspx?RDate=": gridPage,
	}}
	client := NewClient(renderer, "https://example.test", zerolog.Nop())

	zh, _, err := client.RacePages(context.Background(), "2026-09-06", "HV", 3)
	if err != nil {
		t.Fatalf("RacePages 應成功: %v", err)
	}
	if !strings.Contains(zh, "馬名") {
		t.Fatalf("應拿到含出馬表的頁面: %q", zh)
	}
	if len(renderer.requests) < 2 {
		t.Fatalf("應嘗試多個組合, 實際 %d", len(renderer.requests))
	}
	hit := renderer.requests[len(renderer.requests)-1]
	for _, u := range renderer.requests {
		if strings.Contains(u, "English") {
			hit = u
		}
	}
	if !strings.Contains(hit, "Racecourse=HV") {
		t.Fatalf("跑馬地場次應帶 HV 參數: %s", hit)
	}
}

func TestRacePagesNoGridStillReturnsLastPage(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{}}
	client := NewClient(renderer, "https://example.test", zerolog.Nop())

	zh, _, err := client.RacePages(context.Background(), "2026-09-06", "ST", 12)
	if err != nil {
		t.Fatalf("無出馬表不是抓取錯誤: %v", err)
	}
	if zh == "" {
		t.Fatal("應返回最後看到的頁面供上層判斷")
	}
}

func TestRacePagesRendererFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("browser crashed")}
	client := NewClient(renderer, "https://example.test", zerolog.Nop())

	if _, _, err := client.RacePages(context.Background(), "2026-09-06", "ST", 1); err == nil {
		t.Fatal("渲染全部失敗時應報錯")
	}
}

func TestCardURLVenueNormalization(t *testing.T) {
	client := NewClient(&fakeRenderer{}, "https://example.test", zerolog.Nop())
	u := client.cardURL(zhPaths[0], "RaceDate", "2026/09/06", "hv", 2)
	if !strings.Contains(u, "Racecourse=HV") {
		t.Fatalf("場地代碼應規範為大寫: %s", u)
	}
	u = client.cardURL(zhPaths[0], "RaceDate", "2026/09/06", "XX", 2)
	if !strings.Contains(u, "Racecourse=ST") {
		t.Fatalf("未知場地應回退沙田: %s", u)
	}
}
