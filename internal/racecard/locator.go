package racecard

import (
	"github.com/PuerkitoBio/goquery"
)

const (
	primaryGridClass   = "f_fs12"
	secondaryGridClass = "table_bd"
)

// zhGridKeywords and enGridKeywords identify starter-grid content in either
// language variant. A table mentioning any of them is almost certainly the
// grid and not a layout or navigation table.
var zhGridKeywords = []string{"近績", "馬名", "排位體重", "負磅", "練馬師", "騎師"}
var enGridKeywords = []string{"Horse No.", "Last 6 Runs", "Horse Wt.", "Trainer", "Jockey", "Draw", "Rtg"}

// LocateGrid picks the table most likely to be the starter grid. Each table
// is scored in isolation: +40 for the primary grid marker class, +30 for the
// secondary one, +25 per language keyword set present, plus up to 40
// proportional to row count. The first maximum in document order wins.
// Returns nil when the page has no tables at all; results are never stitched
// together from several tables.
func LocateGrid(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := -1.0

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		score := scoreGrid(table)
		if score > bestScore {
			bestScore = score
			best = table
		}
	})
	return best
}

func scoreGrid(table *goquery.Selection) float64 {
	score := 0.0
	if table.HasClass(primaryGridClass) || table.Find("."+primaryGridClass).Length() > 0 {
		score += 40
	}
	if table.HasClass(secondaryGridClass) || table.Find("."+secondaryGridClass).Length() > 0 {
		score += 30
	}

	text := cellText(table)
	if containsAny(text, zhGridKeywords) {
		score += 25
	}
	if countKeywordHits(text, enGridKeywords) > 0 {
		score += 25
	}

	rows := float64(table.Find("tr").Length()) * 1.1
	if rows > 40 {
		rows = 40
	}
	score += rows
	return score
}

// HasStarterGrid is the cheap pre-parse probe used by the fetch fallback
// logic: does this page mention starter-grid vocabulary at all? It keeps the
// crawler from feeding navigation-only pages into the full pipeline.
func HasStarterGrid(pageHTML string) bool {
	if pageHTML == "" {
		return false
	}
	if containsAny(pageHTML, []string{"馬號", "馬名", "排位體重", "負磅", "練馬師", "騎師", "出馬表"}) {
		return true
	}
	return countKeywordHits(pageHTML, enGridKeywords) > 0
}
