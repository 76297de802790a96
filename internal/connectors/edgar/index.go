package edgar

import (
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var (
	underwritingPattern = regexp.MustCompile(`(?i)underwriting\s+agreement`)
	lockUpPattern       = regexp.MustCompile(`(?i)lock[\s-]?up`)
)

// indexEntry is one row of a filing index document table.
type indexEntry struct {
	Description string
	Document    string
	Type        string
	Href        string
}

// parseFilingIndex reads the document rows of a -index.htm page.
// Columns are located by header text.
func parseFilingIndex(r io.Reader) ([]indexEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var entries []indexEntry
	doc.Find("table.tableFile").First().Each(func(_ int, table *goquery.Selection) {
		cols := map[string]int{}
		table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
			cols[strings.ToLower(strings.TrimSpace(th.Text()))] = i
		})
		descCol, docCol, typeCol := column(cols, "description", 1), column(cols, "document", 2), column(cols, "type", 3)

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() == 0 {
				return
			}
			docCell := cells.Eq(docCol)
			href, _ := docCell.Find("a").Attr("href")
			entries = append(entries, indexEntry{
				Description: strings.TrimSpace(cells.Eq(descCol).Text()),
				Document:    strings.TrimSpace(docCell.Find("a").First().Text()),
				Type:        strings.TrimSpace(cells.Eq(typeCol).Text()),
				Href:        strings.TrimPrefix(href, "/ix?doc="),
			})
		})
	})
	return entries, nil
}

func column(cols map[string]int, name string, fallback int) int {
	if i, ok := cols[name]; ok {
		return i
	}
	return fallback
}

// matchExhibit returns the first row carrying the exhibit docType.
func matchExhibit(entries []indexEntry, docType domain.DocumentType) (indexEntry, bool) {
	for _, e := range entries {
		switch docType {
		case domain.DocTypeUnderwriting:
			if strings.EqualFold(e.Type, "EX-1.1") || underwritingPattern.MatchString(e.Description) {
				return e, true
			}
		case domain.DocTypeLockUp:
			if lockUpPattern.MatchString(e.Description) || lockUpPattern.MatchString(e.Type) {
				return e, true
			}
		}
	}
	return indexEntry{}, false
}

// url resolves the row's document against the filing folder.
func (e indexEntry) url(baseURL, folder string) string {
	switch {
	case strings.HasPrefix(e.Href, "http://"), strings.HasPrefix(e.Href, "https://"):
		return e.Href
	case strings.HasPrefix(e.Href, "/"):
		return baseURL + e.Href
	case e.Document != "":
		return folder + "/" + e.Document
	default:
		return folder + "/" + path.Base(e.Href)
	}
}
