package racecard

import (
	"strings"
	"testing"
)

func TestLocateGridPrefersMarkedTable(t *testing.T) {
	page := `<html><body>
<table><tr><td>主頁</td><td>賽馬資訊</td></tr></table>
<table class="f_fs12"><tr><td>馬名</td><td>騎師</td><td>練馬師</td></tr><tr><td>金鎗六十</td><td>潘頓</td><td>呂健威</td></tr></table>
<table><tr><td>頁尾</td></tr></table>
</body></html>`

	doc := mustDoc(t, page)
	grid := LocateGrid(doc)
	if grid == nil {
		t.Fatal("應定位到出馬表格")
	}
	if !grid.HasClass("f_fs12") {
		t.Fatal("應選中帶標記 class 的表格")
	}
}

func TestLocateGridKeywordsWithoutClass(t *testing.T) {
	page := `<html><body>
<table><tr><td>導航</td></tr></table>
<table><tr><td>Horse No.</td><td>Last 6 Runs</td><td>Jockey</td><td>Trainer</td></tr><tr><td>1</td><td>2/3/4</td><td>Z Purton</td><td>F C Lor</td></tr></table>
</body></html>`

	doc := mustDoc(t, page)
	grid := LocateGrid(doc)
	if grid == nil {
		t.Fatal("無 class 但含關鍵詞的表格也應被定位")
	}
	if !strings.Contains(cellText(grid), "Jockey") {
		t.Fatalf("定位到了錯誤的表格: %q", cellText(grid))
	}
}

func TestLocateGridTieFirstWins(t *testing.T) {
	// 兩個同分表格, 文檔順序靠前者勝出。
	page := `<html><body>
<table class="f_fs12"><tr><td>alpha</td></tr></table>
<table class="f_fs12"><tr><td>beta</td></tr></table>
</body></html>`

	doc := mustDoc(t, page)
	grid := LocateGrid(doc)
	if grid == nil {
		t.Fatal("應定位到表格")
	}
	if !strings.Contains(cellText(grid), "alpha") {
		t.Fatalf("並列最高分應取第一個表格: %q", cellText(grid))
	}
}

func TestLocateGridNoTables(t *testing.T) {
	doc := mustDoc(t, "<html><body><p>無表格</p></body></html>")
	if grid := LocateGrid(doc); grid != nil {
		t.Fatal("無表格頁面應返回 nil")
	}
}

func TestHasStarterGrid(t *testing.T) {
	if !HasStarterGrid("<div>馬名 騎師 練馬師</div>") {
		t.Fatal("含中文關鍵詞的頁面應判定為有出馬表")
	}
	if !HasStarterGrid("<div>Horse Wt. and Jockey listing</div>") {
		t.Fatal("含英文關鍵詞的頁面應判定為有出馬表")
	}
	if HasStarterGrid("<div>general navigation page</div>") {
		t.Fatal("無關頁面不應判定為有出馬表")
	}
	if HasStarterGrid("") {
		t.Fatal("空頁面不應判定為有出馬表")
	}
}
