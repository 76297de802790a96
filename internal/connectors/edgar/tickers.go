package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// tickerEntry is one row of company_tickers.json, which is an object
// keyed by row number: {"0": {"cik_str": 320193, "ticker": "AAPL", ...}}.
type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

func padCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}

// ResolveCIK maps ticker to its zero-padded CIK. Configured overrides win;
// otherwise the ticker map is downloaded once and cached.
func (c *Client) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", fmt.Errorf("%w: ticker is required", domain.ErrConfig)
	}
	if cik, ok := c.overrides[ticker]; ok {
		return cik, nil
	}

	c.tickersMu.Lock()
	defer c.tickersMu.Unlock()

	if c.tickers == nil {
		tickers, err := c.loadTickers(ctx)
		if err != nil {
			return "", err
		}
		c.tickers = tickers
	}

	cik, ok := c.tickers[ticker]
	if !ok {
		return "", fmt.Errorf("%w: ticker %s is not registered with EDGAR", domain.ErrNotFound, ticker)
	}
	return cik, nil
}

func (c *Client) loadTickers(ctx context.Context) (map[string]string, error) {
	body, _, err := c.get(ctx, c.baseURL+"/files/company_tickers.json")
	if err != nil {
		return nil, fmt.Errorf("fetch company tickers: %w", err)
	}

	var rows map[string]tickerEntry
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: parse company tickers: %v", domain.ErrUnavailable, err)
	}

	tickers := make(map[string]string, len(rows))
	for _, row := range rows {
		tickers[strings.ToUpper(row.Ticker)] = padCIK(row.CIK)
	}
	logger.Debug("edgar: loaded %d tickers", len(tickers))
	return tickers, nil
}
