package racecard

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// SiteBase qualifies relative image and detail-page references.
const SiteBase = "https://racing.hkjc.com"

var (
	pairedNumericRe = regexp.MustCompile(`(\d{2,4})\s*(?:\(\s*([+-]?\d+)\s*\))?`)
	penaltyNoteRe   = regexp.MustCompile(`\((?:[-+]?\d+)\)`)
	bareNumberRe    = regexp.MustCompile(`^\d+$`)
	nonNumericRe    = regexp.MustCompile(`[^\d-]+`)
)

// extractRow pulls every canonical field of one accepted data row into raw
// string form, applying the per-field-type rules. Fields whose source cell
// cannot be identified stay empty; that is never an error.
func extractRow(r gridRow, res headerResolution) map[Field]string {
	out := make(map[Field]string, len(fieldOrder))
	width := len(r.cells)

	for _, f := range fieldOrder {
		col := res.columnFor(f, width)
		if col < 0 {
			continue
		}
		cell := r.cells[col]
		text := r.texts[col]

		switch f {
		case FieldSilks:
			out[f] = imageRef(cell, text)
		case FieldJockey:
			// Trailing "(n)" is the apprentice weight allowance, not
			// part of the rider's name.
			out[f] = strings.TrimSpace(penaltyNoteRe.ReplaceAllString(text, ""))
		case FieldHorseName:
			out[f] = horseName(r, cell, text)
		case FieldDeclaredWt, FieldDeclaredWtDelta:
			out[f] = pairedNumeric(text, f == FieldDeclaredWtDelta)
		default:
			out[f] = text
		}
	}
	return out
}

// imageRef prefers an embedded image reference (absolute, else joined to the
// site base), then the image's alt text, then the raw cell text.
func imageRef(cell *goquery.Selection, fallback string) string {
	img := cell.Find("img").First()
	if img.Length() > 0 {
		src, ok := img.Attr("data-src")
		if !ok || src == "" {
			src, _ = img.Attr("src")
		}
		if src != "" {
			if strings.HasPrefix(src, "http") {
				return src
			}
			if !strings.HasPrefix(src, "/") {
				src = "/" + src
			}
			return SiteBase + src
		}
		if alt, ok := img.Attr("alt"); ok && collapseSpace(alt) != "" {
			return collapseSpace(alt)
		}
	}
	return fallback
}

// horseName prefers the text of an anchor pointing at the horse detail page.
// When the directly indexed cell only holds a short numeric placeholder the
// whole row is searched for such an anchor before settling for raw text.
func horseName(r gridRow, cell *goquery.Selection, text string) string {
	if name := detailAnchorText(cell); name != "" {
		return name
	}
	if bareNumberRe.MatchString(text) || len([]rune(text)) <= 2 {
		if name := detailAnchorText(r.sel); name != "" {
			return name
		}
	}
	return text
}

func detailAnchorText(scope *goquery.Selection) string {
	name := ""
	scope.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(strings.ToLower(href), "horse") {
			return true
		}
		if t := cellText(a); t != "" {
			name = t
			return false
		}
		return true
	})
	return name
}

// pairedNumeric splits "1042 (+6)" style cells into magnitude and delta.
// Cells that do not match the pattern degrade to raw text in the magnitude
// slot and an empty delta.
func pairedNumeric(text string, wantDelta bool) string {
	m := pairedNumericRe.FindStringSubmatch(text)
	if m == nil {
		if wantDelta {
			return ""
		}
		return text
	}
	if wantDelta {
		return m[2]
	}
	return m[1]
}

// coerceInt strips everything but digits and minus signs and parses the
// remainder. nil on failure; numeric coercion is never fatal.
func coerceInt(s string, f Field, logger zerolog.Logger) *int {
	cleaned := nonNumericRe.ReplaceAllString(s, "")
	if cleaned == "" || cleaned == "-" {
		if collapseSpace(s) != "" {
			logger.Debug().Str("field", string(f)).Str("raw", s).Msg("numeric coercion failed")
		}
		return nil
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		logger.Debug().Str("field", string(f)).Str("raw", s).Msg("numeric coercion failed")
		return nil
	}
	return &v
}

// buildEntry converts a raw row into a typed Entry, running reconciliation
// before numeric coercion so corrected columns coerce like native ones.
func buildEntry(raw map[Field]string, logger zerolog.Logger) Entry {
	reconcile(raw)

	return Entry{
		HorseNo:         coerceInt(raw[FieldHorseNo], FieldHorseNo, logger),
		Last6:           raw[FieldLast6],
		Silks:           raw[FieldSilks],
		HorseName:       raw[FieldHorseName],
		Brand:           raw[FieldBrand],
		WeightLB:        coerceInt(raw[FieldWeight], FieldWeight, logger),
		Jockey:          raw[FieldJockey],
		Draw:            coerceInt(raw[FieldDraw], FieldDraw, logger),
		Trainer:         raw[FieldTrainer],
		Rating:          coerceInt(raw[FieldRating], FieldRating, logger),
		RatingDelta:     raw[FieldRatingDelta],
		DeclaredWt:      coerceInt(raw[FieldDeclaredWt], FieldDeclaredWt, logger),
		DeclaredWtDelta: raw[FieldDeclaredWtDelta],
		Age:             coerceInt(raw[FieldAge], FieldAge, logger),
		WFA:             raw[FieldWFA],
		Sex:             raw[FieldSex],
		SeasonStakes:    raw[FieldSeasonStakes],
		Priority:        raw[FieldPriority],
		DaysSince:       raw[FieldDaysSince],
		Gear:            raw[FieldGear],
		Owner:           raw[FieldOwner],
		Sire:            raw[FieldSire],
		Dam:             raw[FieldDam],
		ImportCat:       raw[FieldImportCat],
	}
}
