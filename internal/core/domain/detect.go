package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// detectContentLimit bounds how much content is inspected for type markers.
const detectContentLimit = 5000

var filenamePatterns = []struct {
	docType  DocumentType
	patterns []string
}{
	{DocTypeLockUp, []string{"LOCK-UP", "LOCKUP", "MARKET_STANDOFF"}},
	{DocTypeUnderwriting, []string{"UNDERWRITING", "PURCHASE_AGREEMENT"}},
	{DocTypeListing, []string{"8-A", "8A_", "FORM_8-A"}},
	{DocTypeProspectus, []string{"424B4", "424B1", "424B3", "PROSPECTUS"}},
	{DocTypeRegistration, []string{"S-1", "S1_", "S1A", "F-1", "REGISTRATION"}},
}

// DetectDocumentType infers a document type from a file name, falling
// back to markers in the first few kilobytes of content.
func DetectDocumentType(filename, content string) (DocumentType, error) {
	name := strings.ToUpper(filepath.Base(filename))
	for _, fp := range filenamePatterns {
		for _, p := range fp.patterns {
			if strings.Contains(name, p) {
				return fp.docType, nil
			}
		}
	}

	if len(content) > detectContentLimit {
		content = content[:detectContentLimit]
	}
	upper := strings.ToUpper(content)

	switch {
	case strings.Contains(upper, "REGISTRATION STATEMENT") && strings.Contains(upper, "S-1"):
		return DocTypeRegistration, nil
	case strings.Contains(upper, "424B4") || strings.Contains(upper, "FINAL PROSPECTUS"):
		return DocTypeProspectus, nil
	case strings.Contains(upper, "LOCK-UP") || strings.Contains(upper, "MARKET STAND-OFF"):
		return DocTypeLockUp, nil
	case strings.Contains(upper, "UNDERWRITING AGREEMENT"):
		return DocTypeUnderwriting, nil
	case strings.Contains(upper, "FORM 8-A"):
		return DocTypeListing, nil
	}

	return "", fmt.Errorf("%w: cannot detect document type of %s", ErrNotFound, filepath.Base(filename))
}
