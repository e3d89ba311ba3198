package racecard

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// reserveMarker heads the standby-horse block on the zh page.
const reserveMarker = "後備馬匹"

// reserveFields is the fixed column layout of the reserve table; it never
// carries a usable header row.
var reserveFields = []Field{
	FieldHorseNo, FieldHorseName, FieldDeclaredWt, FieldWeight, FieldRating,
	FieldAge, FieldLast6, FieldTrainer, FieldPriority, FieldGear,
}

// ParseReserves extracts the standby horses from the zh page. The block is
// optional; most race days have none.
func ParseReserves(doc *goquery.Document, logger zerolog.Logger) []Entry {
	if doc == nil {
		return nil
	}

	table := findReserveTable(doc)
	if table == nil {
		return nil
	}

	var out []Entry
	rows := tableRows(table)
	for i, r := range rows {
		if i == 0 || len(r.texts) == 0 {
			continue
		}
		raw := make(map[Field]string, len(reserveFields))
		for col, f := range reserveFields {
			if col >= len(r.texts) {
				continue
			}
			if f == FieldDeclaredWt {
				raw[f] = pairedNumeric(r.texts[col], false)
				continue
			}
			raw[f] = r.texts[col]
		}
		e := buildEntry(raw, logger)
		e.Reserve = true
		if !letterRe.MatchString(e.HorseName) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// findReserveTable returns the first table following the reserve marker text.
func findReserveTable(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if strings.Contains(cellText(t), reserveMarker) {
			table = t
			return false
		}
		// The marker often sits in a caption just before the table.
		if prev := t.Prev(); prev.Length() > 0 && strings.Contains(cellText(prev), reserveMarker) {
			table = t
			return false
		}
		return true
	})
	return table
}
