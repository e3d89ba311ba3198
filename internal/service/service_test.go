package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"racecard-watcher/internal/alerting"
	"racecard-watcher/internal/config"
	"racecard-watcher/internal/odds"
	"racecard-watcher/internal/racecard"
	"racecard-watcher/internal/storage"
)

const testGridPage = `<html><body>
<table class="f_fs12">
<tr><th>馬號</th><th>馬名</th><th>騎師</th><th>檔位</th><th>練馬師</th></tr>
<tr><td>1</td><td><a href="/horse/H001">金鎗六十</a></td><td>潘頓</td><td>7</td><td>呂健威</td></tr>
<tr><td>2</td><td><a href="/horse/H002">浪漫勇士</a></td><td>麥道朗</td><td>3</td><td>沈集成</td></tr>
</table>
</body></html>`

// fakeCards serves a fixed number of races with grids, then grid-less pages.
type fakeCards struct {
	gridRaces map[int]bool
	requests  []int
}

func (f *fakeCards) RacePages(_ context.Context, _, _ string, raceNo int) (string, string, error) {
	f.requests = append(f.requests, raceNo)
	if f.gridRaces[raceNo] {
		return testGridPage, "", nil
	}
	return "<html><body><p>no card</p></body></html>", "", nil
}

type fakeSheets struct {
	sheet odds.Sheet
	err   error
}

func (f *fakeSheets) FetchSheet(_ context.Context, _ odds.SheetKey) (odds.Sheet, error) {
	return f.sheet, f.err
}

// fakeStore implements RaceCardStore and OddsStore in memory.
type fakeStore struct {
	meetings  int
	races     []int
	entries   int
	latest    map[storage.QuoteKey]storage.LatestOdds
	snapshots map[string][]decimal.Decimal
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		latest:    map[storage.QuoteKey]storage.LatestOdds{},
		snapshots: map[string][]decimal.Decimal{},
	}
}

func (f *fakeStore) UpsertMeeting(context.Context, storage.MeetingKey, string) error {
	f.meetings++
	return nil
}

func (f *fakeStore) UpsertRace(_ context.Context, _ storage.MeetingKey, race racecard.Race) error {
	f.races = append(f.races, race.RaceNo)
	return nil
}

func (f *fakeStore) UpsertEntry(context.Context, storage.MeetingKey, int, racecard.Entry) error {
	f.entries++
	return nil
}

func (f *fakeStore) HasRaceCard(context.Context, storage.MeetingKey) (bool, error) {
	return len(f.races) > 0, nil
}

func (f *fakeStore) UpsertLatestOdds(_ context.Context, key storage.QuoteKey, latest storage.LatestOdds) error {
	f.latest[key] = latest
	return nil
}

func snapKey(key storage.QuoteKey, pool string) string {
	return key.Date + key.VenueCode + pool + string(rune('0'+key.RaceNo)) + string(rune('0'+key.HorseNo))
}

func (f *fakeStore) GetLastSnapshot(_ context.Context, key storage.QuoteKey, pool string) (*decimal.Decimal, error) {
	hist := f.snapshots[snapKey(key, pool)]
	if len(hist) == 0 {
		return nil, nil
	}
	last := hist[len(hist)-1]
	return &last, nil
}

func (f *fakeStore) AppendSnapshot(_ context.Context, key storage.QuoteKey, pool string, v decimal.Decimal, _ time.Time) error {
	k := snapKey(key, pool)
	f.snapshots[k] = append(f.snapshots[k], v)
	return nil
}

type captureNotifier struct {
	notes []alerting.Notification
}

func (c *captureNotifier) Notify(_ context.Context, note alerting.Notification) error {
	c.notes = append(c.notes, note)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Source: config.SourceConfig{MaxRaces: 14},
		Alerting: config.AlertingConfig{
			Enabled: true,
			DropPct: 20,
		},
	}
}

func TestIngestMeetingStopsAfterTwoMisses(t *testing.T) {
	cards := &fakeCards{gridRaces: map[int]bool{1: true, 2: true, 3: true}}
	store := newFakeStore()
	svc := New(testConfig(), cards, nil, store, nil, nil, zerolog.Nop())

	stored, err := svc.IngestMeeting(context.Background(), "2026-09-06", "ST")
	if err != nil {
		t.Fatalf("IngestMeeting 應成功: %v", err)
	}
	if stored != 3 {
		t.Fatalf("期望 3 場入庫, 實際 %d", stored)
	}
	// 第 4、5 場連續無出馬表即停, 不再探測第 6 場。
	want := []int{1, 2, 3, 4, 5}
	if len(cards.requests) != len(want) {
		t.Fatalf("探測場次不正確: %v", cards.requests)
	}
	for i, r := range want {
		if cards.requests[i] != r {
			t.Fatalf("探測順序不正確: %v", cards.requests)
		}
	}
	if store.meetings != 1 {
		t.Fatalf("賽日應登記一次: %d", store.meetings)
	}
	if store.entries != 6 {
		t.Fatalf("期望 6 條出賽記錄, 實際 %d", store.entries)
	}
}

func TestIngestMeetingSingleMissContinues(t *testing.T) {
	// 第 2 場缺卡但第 3 場存在: 單次缺場不終止掃描。
	cards := &fakeCards{gridRaces: map[int]bool{1: true, 3: true}}
	store := newFakeStore()
	svc := New(testConfig(), cards, nil, store, nil, nil, zerolog.Nop())

	stored, err := svc.IngestMeeting(context.Background(), "2026-09-06", "ST")
	if err != nil {
		t.Fatalf("IngestMeeting 應成功: %v", err)
	}
	if stored != 2 {
		t.Fatalf("期望 2 場入庫, 實際 %d", stored)
	}
}

func winPlaceSheet(win, place string) odds.Sheet {
	return odds.Sheet{
		1: {
			odds.PoolWin:   decimal.RequireFromString(win),
			odds.PoolPlace: decimal.RequireFromString(place),
		},
	}
}

func TestIngestOddsSnapshotOnlyOnChange(t *testing.T) {
	store := newFakeStore()
	sheets := &fakeSheets{sheet: winPlaceSheet("6.5", "2.1")}
	svc := New(testConfig(), nil, sheets, nil, store, nil, zerolog.Nop())

	ctx := context.Background()
	if err := svc.IngestOdds(ctx, "2026-09-06", "ST", 1); err != nil {
		t.Fatalf("首輪應成功: %v", err)
	}
	// 同值第二輪: 最新值仍覆寫, 快照不追加。
	if err := svc.IngestOdds(ctx, "2026-09-06", "ST", 1); err != nil {
		t.Fatalf("二輪應成功: %v", err)
	}

	key := storage.QuoteKey{Date: "2026-09-06", VenueCode: "ST", RaceNo: 1, HorseNo: 1}
	winHist := store.snapshots[snapKey(key, "WIN")]
	if len(winHist) != 1 {
		t.Fatalf("同值不應追加快照: %d", len(winHist))
	}

	// 變化後第三輪: 追加一條。
	sheets.sheet = winPlaceSheet("7.0", "2.1")
	if err := svc.IngestOdds(ctx, "2026-09-06", "ST", 1); err != nil {
		t.Fatalf("三輪應成功: %v", err)
	}
	winHist = store.snapshots[snapKey(key, "WIN")]
	if len(winHist) != 2 || !winHist[1].Equal(decimal.RequireFromString("7.0")) {
		t.Fatalf("變化應追加快照: %v", winHist)
	}
	plaHist := store.snapshots[snapKey(key, "PLACE")]
	if len(plaHist) != 1 {
		t.Fatalf("位置賠率未變不應追加: %v", plaHist)
	}

	latest := store.latest[key]
	if latest.Win == nil || !latest.Win.Equal(decimal.RequireFromString("7.0")) {
		t.Fatalf("最新值應無條件覆寫: %+v", latest)
	}
}

func TestIngestOddsDropAlert(t *testing.T) {
	store := newFakeStore()
	sheets := &fakeSheets{sheet: winPlaceSheet("10", "3.0")}
	notifier := &captureNotifier{}
	svc := New(testConfig(), nil, sheets, nil, store, notifier, zerolog.Nop())

	ctx := context.Background()
	if err := svc.IngestOdds(ctx, "2026-09-06", "ST", 1); err != nil {
		t.Fatalf("首輪應成功: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatal("無歷史時不應告警")
	}

	// WIN 10 -> 7 是 30% 跌幅, 超過 20% 門檻。
	sheets.sheet = winPlaceSheet("7", "2.9")
	if err := svc.IngestOdds(ctx, "2026-09-06", "ST", 1); err != nil {
		t.Fatalf("二輪應成功: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("期望 1 條告警, 實際 %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.Pool != "WIN" || note.HorseNo != 1 {
		t.Fatalf("告警目標不正確: %+v", note)
	}
	if !note.DropPct.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("跌幅不正確: %s", note.DropPct)
	}
}

func TestIngestOddsFetchError(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("endpoint down")}
	svc := New(testConfig(), nil, sheets, nil, newFakeStore(), nil, zerolog.Nop())
	if err := svc.IngestOdds(context.Background(), "2026-09-06", "ST", 1); err == nil {
		t.Fatal("抓取失敗應返回錯誤")
	}
}
