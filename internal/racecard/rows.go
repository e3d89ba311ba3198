package racecard

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// gridRow is one <tr> of the located grid with its cells pre-rendered.
type gridRow struct {
	sel   *goquery.Selection
	cells []*goquery.Selection
	texts []string
}

func (r gridRow) joinedText() string {
	return strings.Join(r.texts, "|")
}

// tableRows flattens a table fragment into rows. Nested header/data cells
// are taken in document order; <th> and <td> are treated alike because the
// site mixes them freely.
func tableRows(table *goquery.Selection) []gridRow {
	var rows []gridRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := gridRow{sel: tr}
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			row.cells = append(row.cells, cell)
			row.texts = append(row.texts, cellText(cell))
		})
		rows = append(rows, row)
	})
	return rows
}

// isDataRow decides whether a non-header row carries starter data. Everything
// the page interleaves with the grid - card-builder panels, download/stats
// toolbars, weather banners, repeated header strips - is rejected here.
func isDataRow(r gridRow) bool {
	if len(r.cells) == 0 {
		return false
	}

	rowText := cellText(r.sel)
	if containsAny(rowText, controlPhrases) || containsAny(rowText, bannerPhrases) {
		return false
	}
	if r.sel.Find(`input[type="checkbox"]`).Length() > 0 {
		return false
	}

	blank := 0
	for _, t := range r.texts {
		if strings.TrimSpace(t) == "" {
			blank++
		}
	}
	if blank >= max(2, len(r.texts)-2) {
		return false
	}

	// A row repeating three or more column headings is a secondary header
	// strip, not data.
	if countKeywordHits(r.joinedText(), headerKeywords) >= 3 {
		return false
	}
	return true
}
