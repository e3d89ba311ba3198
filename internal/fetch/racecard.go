package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"racecard-watcher/internal/racecard"
)

// The card page has moved between path casings over the years; all known
// spellings are tried in order. The date query key has drifted too.
var (
	zhPaths = []string{
		"/racing/information/Chinese/Racing/RaceCard.aspx",
		"/racing/information/Chinese/racing/RaceCard.aspx",
	}
	enPaths = []string{
		"/racing/information/English/Racing/RaceCard.aspx",
		"/racing/information/English/racing/RaceCard.aspx",
	}
	dateKeys = []string{"RaceDate", "RDate", "racedate"}
)

// Client fetches both language variants of one race's card page.
type Client struct {
	renderer PageRenderer
	baseURL  string
	logger   zerolog.Logger
}

// NewClient wires a renderer into a race-card page client.
func NewClient(renderer PageRenderer, baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = racecard.SiteBase
	}
	return &Client{
		renderer: renderer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With().Str("component", "racecard_fetch").Logger(),
	}
}

// RacePages retrieves the zh and en variants for one race. The zh variant is
// authoritative: every path and date-key permutation is tried until a page
// with a recognizable starter grid appears, and the last page seen is
// returned even without one so the caller can decide how to degrade. The en
// variant is fetched best effort for the English race name; a missing en
// page is not an error.
func (c *Client) RacePages(ctx context.Context, dateISO, venue string, raceNo int) (htmlZH, htmlEN string, err error) {
	dateParam := strings.ReplaceAll(dateISO, "-", "/")

	var lastErr error
	for _, path := range zhPaths {
		for _, key := range dateKeys {
			url := c.cardURL(path, key, dateParam, venue, raceNo)
			page, renderErr := c.renderer.Render(ctx, url)
			if renderErr != nil {
				lastErr = renderErr
				continue
			}
			if page != "" {
				htmlZH = page
			}
			if racecard.HasStarterGrid(page) {
				htmlEN = c.englishPage(ctx, dateParam, venue, raceNo)
				return htmlZH, htmlEN, nil
			}
		}
	}

	if htmlZH == "" && lastErr != nil {
		return "", "", fmt.Errorf("fetch race %d: %w", raceNo, lastErr)
	}
	// No grid anywhere on the zh side: try the en variant as the fallback
	// source before giving up.
	htmlEN = c.englishPage(ctx, dateParam, venue, raceNo)
	return htmlZH, htmlEN, nil
}

func (c *Client) englishPage(ctx context.Context, dateParam, venue string, raceNo int) string {
	for _, path := range enPaths {
		for _, key := range dateKeys {
			page, err := c.renderer.Render(ctx, c.cardURL(path, key, dateParam, venue, raceNo))
			if err != nil {
				continue
			}
			if page != "" {
				return page
			}
		}
	}
	return ""
}

func (c *Client) cardURL(path, dateKey, dateParam, venue string, raceNo int) string {
	v := "ST"
	if strings.EqualFold(venue, "HV") {
		v = "HV"
	}
	return fmt.Sprintf("%s%s?%s=%s&RaceNo=%d&Racecourse=%s", c.baseURL, path, dateKey, dateParam, raceNo, v)
}
