// Package racecard turns the site's loosely structured, bilingual starter
// pages into canonical Race and Entry records. The pipeline runs leaves
// first: locate the data grid, resolve its header, classify rows, extract
// fields, then reconcile misaligned columns. Parsing the same markup twice
// yields identical records.
package racecard

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// ErrNoGrid reports that a page held no plausible starter grid. Callers
// treat consecutive misses across sequential race numbers as the
// end-of-meeting signal.
var ErrNoGrid = errors.New("racecard: no starter grid located")

// Parser binds the extraction pipeline to a logger; it holds no per-page
// state and is safe to reuse across fixtures.
type Parser struct {
	logger zerolog.Logger
}

// NewParser constructs a Parser.
func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger.With().Str("component", "racecard_parser").Logger()}
}

// ParseRace converts one race's zh and en page variants into a Race record
// with its entries and reserves. Either variant may be empty; the grid is
// taken from whichever variant yields one, zh preferred. Returns ErrNoGrid
// when neither does.
func (p *Parser) ParseRace(htmlZH, htmlEN, meetingDate string, raceNo int) (Race, error) {
	docZH := parseDoc(htmlZH)
	docEN := parseDoc(htmlEN)

	grid, gridDoc := p.locate(docZH, docEN)
	if grid == nil {
		return Race{}, ErrNoGrid
	}

	race := ParseRaceMeta(docZH, docEN, meetingDate)
	race.RaceNo = raceNo
	race.Entries = p.parseGrid(grid)
	if gridDoc == docZH {
		race.Reserves = ParseReserves(docZH, p.logger)
	}

	p.logger.Debug().Int("race_no", raceNo).
		Int("entries", len(race.Entries)).
		Int("reserves", len(race.Reserves)).
		Msg("race parsed")
	return race, nil
}

func (p *Parser) locate(docZH, docEN *goquery.Document) (*goquery.Selection, *goquery.Document) {
	for _, doc := range []*goquery.Document{docZH, docEN} {
		if doc == nil {
			continue
		}
		if grid := LocateGrid(doc); grid != nil {
			return grid, doc
		}
	}
	return nil, nil
}

// parseGrid runs header resolution, row classification, field extraction and
// reconciliation over one located grid.
func (p *Parser) parseGrid(grid *goquery.Selection) []Entry {
	rows := tableRows(grid)
	if len(rows) == 0 {
		return nil
	}
	res := resolveHeader(rows)
	if res.usesPositionalFallback() {
		p.logger.Debug().Msg("header unresolved, using positional template")
	}

	var entries []Entry
	for i, r := range rows {
		if i == res.rowIdx {
			continue
		}
		if !isDataRow(r) {
			continue
		}
		e := buildEntry(extractRow(r, res), p.logger)
		if !letterRe.MatchString(e.HorseName) {
			// No identity survived extraction and reconciliation; the
			// row was spacing or leftover chrome.
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func parseDoc(pageHTML string) *goquery.Document {
	if strings.TrimSpace(pageHTML) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}
	return doc
}
