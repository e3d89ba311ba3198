// Package odds retrieves pari-mutuel WIN/PLACE quotes from the operator's
// GraphQL endpoint and flattens them into per-runner decimal values.
package odds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Pool is a wagering category under which a quote is issued.
type Pool string

const (
	PoolWin   Pool = "WIN"
	PoolPlace Pool = "PLACE"
)

// wire names differ from canonical pool names: the endpoint abbreviates
// PLACE as PLA.
const (
	wireWin   = "WIN"
	wirePlace = "PLA"
)

const oddsQuery = `query racing($date: String, $venueCode: String, $oddsTypes: [OddsType], $raceNo: Int) {
  raceMeetings(date: $date, venueCode: $venueCode) {
    pmPools(oddsTypes: $oddsTypes, raceNo: $raceNo) {
      id
      status
      sellStatus
      oddsType
      lastUpdateTime
      oddsNodes {
        combString
        oddsValue
        hotFavourite
        oddsDropValue
      }
    }
  }
}`

// SheetKey is the natural key of one race's odds sheet.
type SheetKey struct {
	Date      string // YYYY-MM-DD
	VenueCode string
	RaceNo    int
}

// Sheet maps horse number to the quotes observed for it.
type Sheet map[int]map[Pool]decimal.Decimal

// Options parameterise the client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client posts the pmPools query and decodes the result.
type Client struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient constructs an odds client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://info.cld.hkjc.com/graphql/base"
	}
	return &Client{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "odds_client").Logger(),
	}
}

// FetchSheet retrieves the WIN and PLACE quotes for one race. An empty sheet
// with a nil error means the meeting exists but no pools are selling yet.
func (c *Client) FetchSheet(ctx context.Context, key SheetKey) (Sheet, error) {
	payload := graphqlRequest{
		OperationName: "racing",
		Query:         oddsQuery,
		Variables: map[string]any{
			"date":      key.Date,
			"venueCode": key.VenueCode,
			"raceNo":    key.RaceNo,
			"oddsTypes": []string{wireWin, wirePlace},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("odds api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded graphqlResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode odds response: %w", err)
	}

	return buildSheet(decoded), nil
}

// buildSheet flattens pmPools oddsNodes into per-runner quotes. combString
// values are zero-padded runner numbers ("01"); combinations that are not a
// single runner are skipped.
func buildSheet(decoded graphqlResponse) Sheet {
	sheet := Sheet{}
	if len(decoded.Data.RaceMeetings) == 0 {
		return sheet
	}
	for _, pool := range decoded.Data.RaceMeetings[0].PMPools {
		var canonical Pool
		switch pool.OddsType {
		case wireWin:
			canonical = PoolWin
		case wirePlace:
			canonical = PoolPlace
		default:
			continue
		}
		for _, node := range pool.OddsNodes {
			no, ok := runnerNumber(node.CombString)
			if !ok {
				continue
			}
			val, err := decimal.NewFromString(node.OddsValue.value)
			if err != nil {
				// Scratched runners come through as "SCR"; their quote
				// is absent, not zero.
				continue
			}
			if sheet[no] == nil {
				sheet[no] = map[Pool]decimal.Decimal{}
			}
			sheet[no][canonical] = val
		}
	}
	return sheet
}

func runnerNumber(comb string) (int, bool) {
	trimmed := strings.TrimLeft(comb, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	n := 0
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

type graphqlResponse struct {
	Data struct {
		RaceMeetings []struct {
			PMPools []struct {
				ID             string     `json:"id"`
				Status         string     `json:"status"`
				SellStatus     string     `json:"sellStatus"`
				OddsType       string     `json:"oddsType"`
				LastUpdateTime string     `json:"lastUpdateTime"`
				OddsNodes      []oddsNode `json:"oddsNodes"`
			} `json:"pmPools"`
		} `json:"raceMeetings"`
	} `json:"data"`
}

type oddsNode struct {
	CombString    string    `json:"combString"`
	OddsValue     flexValue `json:"oddsValue"`
	HotFavourite  bool      `json:"hotFavourite"`
	OddsDropValue flexValue `json:"oddsDropValue"`
}

// flexValue tolerates the endpoint serving odds either as JSON numbers or
// as strings (and "SCR" for scratched runners).
type flexValue struct {
	value string
}

func (f *flexValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		f.value = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		f.value = unquoted
		return nil
	}
	f.value = s
	return nil
}
