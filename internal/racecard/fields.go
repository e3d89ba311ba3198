package racecard

import "strings"

// Field names a canonical column of the starter grid. The site serves the
// grid in Chinese or English with drifting header spellings, so every field
// carries an alias list and a default position for header-less pages.
type Field string

const (
	FieldHorseNo         Field = "horse_no"
	FieldLast6           Field = "last6"
	FieldSilks           Field = "silks"
	FieldHorseName       Field = "horse_name"
	FieldBrand           Field = "brand"
	FieldWeight          Field = "weight_lb"
	FieldJockey          Field = "jockey"
	FieldDraw            Field = "draw"
	FieldTrainer         Field = "trainer"
	FieldRating          Field = "rating"
	FieldRatingDelta     Field = "rating_pm"
	FieldDeclaredWt      Field = "declared_wt"
	FieldDeclaredWtDelta Field = "declared_wt_pm"
	FieldAge             Field = "age"
	FieldWFA             Field = "wfa"
	FieldSex             Field = "sex"
	FieldSeasonStakes    Field = "season_stakes"
	FieldPriority        Field = "priority"
	FieldDaysSince       Field = "days_since"
	FieldGear            Field = "gear"
	FieldOwner           Field = "owner"
	FieldSire            Field = "sire"
	FieldDam             Field = "dam"
	FieldImportCat       Field = "import_cat"
)

// fieldOrder is the canonical column order, which doubles as the positional
// fallback template when no header row can be resolved.
var fieldOrder = []Field{
	FieldHorseNo, FieldLast6, FieldSilks, FieldHorseName, FieldBrand,
	FieldWeight, FieldJockey, FieldDraw, FieldTrainer, FieldRating,
	FieldRatingDelta, FieldDeclaredWt, FieldDeclaredWtDelta, FieldAge,
	FieldWFA, FieldSex, FieldSeasonStakes, FieldPriority, FieldDaysSince,
	FieldGear, FieldOwner, FieldSire, FieldDam, FieldImportCat,
}

// fieldAliases maps each canonical field to the header spellings seen on the
// zh and en page variants. Matching is bidirectional substring on normalized
// text, so short aliases double as prefixes of longer live headers.
var fieldAliases = map[Field][]string{
	FieldHorseNo:         {"馬匹編號", "序號", "馬號", "No", "Number"},
	FieldLast6:           {"6次近績", "近績", "Last 6 Runs", "Form"},
	FieldSilks:           {"綵衣", "Silks", "Colours", "Colors", "Jersey", "絲衣", "絲衫"},
	FieldHorseName:       {"馬名", "Horse", "Horse Name", "馬匹"},
	FieldBrand:           {"烙號", "Brand No.", "Brand No", "編號"},
	FieldWeight:          {"負磅", "Handicap", "Wt", "Weight", "負磅(磅)"},
	FieldJockey:          {"騎師", "Jockey", "騎師(可能超磅)"},
	FieldDraw:            {"檔位", "Draw", "Gate", "Barrier", "檔"},
	FieldTrainer:         {"練馬師", "Trainer", "Trainers"},
	FieldRating:          {"評分", "Rtg", "Rating", "評分(Rtg)"},
	FieldRatingDelta:     {"評分+/-", "Rtg+/-", "+/-", "Rating+/-", "評分變動"},
	FieldDeclaredWt:      {"排位體重", "Horse Wt.", "Declared Wt.", "體重", "宣告體重"},
	FieldDeclaredWtDelta: {"排位體重+/-", "Wt+/-", "體重增減"},
	FieldAge:             {"馬齡", "Age"},
	FieldWFA:             {"分齡讓磅", "WFA", "Weight For Age", "Allow", "Allowance"},
	FieldSex:             {"性別", "Sex", "G"},
	FieldSeasonStakes:    {"今季獎金", "Season Stakes", "季內獎金"},
	FieldPriority:        {"優先參賽次序", "Priority", "優先序"},
	FieldDaysSince:       {"上賽距今日數", "Days Since Last Run", "DSLR", "上次出賽日數"},
	FieldGear:            {"配備", "Gear", "Equip"},
	FieldOwner:           {"馬主", "Owner"},
	FieldSire:            {"父系", "Sire"},
	FieldDam:             {"母系", "Dam"},
	FieldImportCat:       {"進口類別", "Import Cat.", "Import", "Import Category", "來港類別"},
}

// numericFields are coerced to integers after extraction; failures leave the
// field unset rather than erroring.
var numericFields = map[Field]bool{
	FieldHorseNo:    true,
	FieldWeight:     true,
	FieldDraw:       true,
	FieldRating:     true,
	FieldDeclaredWt: true,
	FieldAge:        true,
}

// headerKeywords score header-candidate rows and flag repeated header rows
// embedded in the body of the grid.
var headerKeywords = []string{
	"馬名", "近績", "騎師", "練馬師", "Draw", "Horse", "Jockey", "Trainer", "Rtg", "Horse Wt.",
}

// leafKeywords distinguish a concrete column header from a grouping row that
// only spans categories (e.g. "晨操" over several columns).
var leafKeywords = []string{
	"馬名", "檔位", "排位體重", "評分", "騎師", "練馬師",
	"Horse", "Draw", "Horse Wt.", "Jockey", "Trainer", "Rtg",
}

// controlPhrases mark rows (and horse-name cells) that belong to the page's
// interactive card-builder panel rather than the data grid.
var controlPhrases = []string{"我的排位表", "設定我的排位表"}

// bannerPhrases mark toolbar and banner rows interleaved with the grid.
var bannerPhrases = []string{
	"下載排位資料", "統計資料", "晨操片段", "即時賠率", "貼士指數", "天氣及跑道狀況",
}

// positionalIndex returns the fallback column index for a field, or -1 when
// the row is too narrow to hold it.
func positionalIndex(f Field, width int) int {
	for i, cand := range fieldOrder {
		if cand == f {
			if i < width {
				return i
			}
			return -1
		}
	}
	return -1
}

// normalizeAlias lowers and strips all whitespace so header cells compare
// stably across the two language variants.
func normalizeAlias(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '\r', ' ', '　':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fieldMatches reports whether a header cell's text names the given field.
// Substring matching runs both ways: a live header of "騎師(可能超磅)"
// matches the alias "騎師", and the short header "Wt" matches the longer
// alias "Weight". A single cell may therefore satisfy more than one field;
// the resolver's first-cell-wins rule settles the assignment.
func fieldMatches(headerText string, f Field) bool {
	clean := normalizeAlias(headerText)
	if clean == "" {
		return false
	}
	for _, alias := range fieldAliases[f] {
		a := normalizeAlias(alias)
		if a == "" {
			continue
		}
		if strings.Contains(clean, a) || strings.Contains(a, clean) {
			return true
		}
	}
	return false
}
