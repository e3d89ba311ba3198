package racecard

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	clockRe      = regexp.MustCompile(`(?:^|[^\d])(\d{1,2}:\d{2})(?:[^\d]|$)`)
	zhTitleRe    = regexp.MustCompile(`^第\s*\d+\s*場\s*[-–—]\s*`)
	enTitleRe    = regexp.MustCompile(`(?i)^Race\s*\d+\s*[-–—]\s*`)
	courseLineRe = regexp.MustCompile(`["“]([ABC](?:\+\d)?)["”]\s*賽道`)
	distanceRe   = regexp.MustCompile(`(\d{3,4})\s*米`)
	classRe      = regexp.MustCompile(`(?i)(第[一二三四五六七八九十]+班|Class\s*\d+|Group\s*\d+)`)
)

// surfaceWords and goingWords are scanned in order; the first hit wins.
var surfaceWords = []string{"草地", "全天候", "全天侯", "AWT", "泥地", "All Weather", "Turf"}
var goingWords = []string{
	"好地", "好至快", "快地", "黏地", "軟地", "濕軟",
	"Good to Firm", "Good to Yielding", "Good", "Firm", "Yielding", "Soft", "Sloppy",
}

// ParseRaceMeta reads the race-level attributes from the zh page, with the
// en page contributing only the English race name. Missing pieces stay
// empty; the grid pipeline does not depend on any of them.
func ParseRaceMeta(docZH, docEN *goquery.Document, meetingDate string) Race {
	race := Race{}
	if docZH == nil {
		return race
	}

	pageText := collapseSpace(docZH.Find("body").Text())

	if h1 := docZH.Find("h1").First(); h1.Length() > 0 {
		race.NameZH = zhTitleRe.ReplaceAllString(cellText(h1), "")
	}
	if docEN != nil {
		if h1 := docEN.Find("h1").First(); h1.Length() > 0 {
			race.NameEN = enTitleRe.ReplaceAllString(cellText(h1), "")
		}
	}

	for _, w := range surfaceWords {
		if strings.Contains(pageText, w) {
			if strings.Contains(w, "全天") || w == "AWT" || w == "All Weather" || w == "泥地" {
				race.Surface = "AWT"
			} else {
				race.Surface = "草地"
			}
			break
		}
	}
	if m := courseLineRe.FindStringSubmatch(pageText); m != nil {
		race.CourseLine = m[1]
	}
	if m := distanceRe.FindStringSubmatch(pageText); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			race.DistanceM = &v
		}
	}
	for _, w := range goingWords {
		if strings.Contains(pageText, w) {
			race.Going = w
			break
		}
	}
	if m := classRe.FindStringSubmatch(pageText); m != nil {
		race.ClassText = m[1]
	}
	if strings.Contains(race.NameZH, "讓賽") || strings.Contains(race.NameEN, "Handicap") {
		race.Handicap = "讓賽"
	}

	local := extractOffTimeLocal(docZH)
	race.OffTimeLocal, race.OffTimeZoned, race.OffTimeUTC = ComposeOffTimes(meetingDate, local)
	return race
}

// extractOffTimeLocal finds the advertised local off time: first clock-like
// token in an h1/h2 heading, else the first one in the page text before the
// card-builder panel (whose own controls carry stray times).
func extractOffTimeLocal(doc *goquery.Document) string {
	for _, tag := range []string{"h1", "h2"} {
		heading := doc.Find(tag).First()
		if heading.Length() == 0 {
			continue
		}
		if m := clockRe.FindStringSubmatch(cellText(heading)); m != nil {
			return m[1]
		}
	}

	text := collapseSpace(doc.Find("body").Text())
	for _, marker := range []string{"設定我的排位表", "My Race Card"} {
		if i := strings.Index(text, marker); i >= 0 {
			text = text[:i]
		}
	}
	if m := clockRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
