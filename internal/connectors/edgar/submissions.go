package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// submissions is the subset of data.sec.gov/submissions we read.
// filings.recent holds parallel arrays, newest first.
type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// filing is one row of the recent filings table.
type filing struct {
	CIK             string
	Company         string
	Form            string
	AccessionNumber string
	FilingDate      string
	PrimaryDocument string
}

// folder returns the archive directory of the filing.
func (f filing) folder(baseURL string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s",
		baseURL, strings.TrimLeft(f.CIK, "0"), strings.ReplaceAll(f.AccessionNumber, "-", ""))
}

// documentURL returns the URL of the filing's primary document.
func (f filing) documentURL(baseURL string) string {
	return f.folder(baseURL) + "/" + f.PrimaryDocument
}

// indexURL returns the URL of the filing's index page.
func (f filing) indexURL(baseURL string) string {
	return f.folder(baseURL) + "/" + f.AccessionNumber + "-index.htm"
}

func (c *Client) submissions(ctx context.Context, cik string) (*submissions, error) {
	body, _, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik))
	if err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", cik, err)
	}

	var s submissions
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("%w: parse submissions for CIK %s: %v", domain.ErrUnavailable, cik, err)
	}
	return &s, nil
}

// filingsOf returns the filings whose form is in forms, newest first.
// Rows with missing columns are skipped.
func (s *submissions) filingsOf(cik string, forms []string) []filing {
	r := s.Filings.Recent
	n := min(len(r.Form), len(r.AccessionNumber), len(r.FilingDate), len(r.PrimaryDocument))

	var out []filing
	for i := range n {
		if !slices.Contains(forms, r.Form[i]) {
			continue
		}
		out = append(out, filing{
			CIK:             cik,
			Company:         s.Name,
			Form:            r.Form[i],
			AccessionNumber: r.AccessionNumber[i],
			FilingDate:      r.FilingDate[i],
			PrimaryDocument: r.PrimaryDocument[i],
		})
	}

	// Filing dates are ISO, so string order is date order. Stable keeps
	// the registry's own order among same-day filings.
	slices.SortStableFunc(out, func(a, b filing) int {
		return strings.Compare(b.FilingDate, a.FilingDate)
	})
	return out
}
