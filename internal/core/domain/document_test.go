package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		input    string
		expected DocumentType
	}{
		{"registration_statement", DocTypeRegistration},
		{"S-1", DocTypeRegistration},
		{"s-1/a", DocTypeRegistration},
		{"prospectus", DocTypeProspectus},
		{"424B4", DocTypeProspectus},
		{"lock-up", DocTypeLockUp},
		{"lockup_agreement", DocTypeLockUp},
		{"underwriting", DocTypeUnderwriting},
		{"8-A", DocTypeListing},
		{"listing_form", DocTypeListing},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDocumentType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDocumentType_Unknown(t *testing.T) {
	_, err := ParseDocumentType("10-K")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestDocumentType_Forms(t *testing.T) {
	for _, dt := range DocumentTypes() {
		assert.True(t, dt.IsValid())
		assert.NotEmpty(t, dt.Forms(), dt)
	}
	assert.Contains(t, DocTypeListing.Forms(), "8-A12B")
	assert.True(t, DocTypeUnderwriting.IsExhibit())
	assert.False(t, DocTypeProspectus.IsExhibit())
}

func TestNewDocumentRef(t *testing.T) {
	ref, err := NewDocumentRef(" abcd ", DocTypeRegistration)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", ref.Ticker)
	assert.Equal(t, "ABCD/registration_statement", ref.Key())

	_, err = NewDocumentRef("", DocTypeRegistration)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewDocumentRef("ABCD", DocumentType("10-K"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestChunk_NonOverlapping(t *testing.T) {
	c := Chunk{Start: 10, OverlapStart: 14, End: 20, Content: "abcdefghij"}
	assert.Equal(t, "efghij", c.NonOverlapping())

	first := Chunk{Start: 0, OverlapStart: 0, End: 3, Content: "abc"}
	assert.Equal(t, "abc", first.NonOverlapping())
}

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		expected DocumentType
	}{
		{"s1 filename", "abcd_S-1.htm", "", DocTypeRegistration},
		{"prospectus filename", "ABCD_424B4.html", "", DocTypeProspectus},
		{"lockup filename", "abcd_lockup.txt", "", DocTypeLockUp},
		{"underwriting filename", "ABCD_underwriting.htm", "", DocTypeUnderwriting},
		{"8-A filename", "ABCD_8-A.htm", "", DocTypeListing},
		{"registration content", "ABCD_doc.htm", "FORM S-1 REGISTRATION STATEMENT UNDER THE SECURITIES ACT", DocTypeRegistration},
		{"underwriting content", "ABCD_doc.htm", "This Underwriting Agreement is made", DocTypeUnderwriting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectDocumentType(tt.filename, tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := DetectDocumentType("ABCD_notes.txt", "quarterly results")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCitation_Label(t *testing.T) {
	c := Citation{Ticker: "ABCD", DocumentType: DocTypeRegistration, Section: "BUSINESS", Page: 12}
	assert.Equal(t, "ABCD S-1 - BUSINESS - Page 12", c.Label())

	c = Citation{Ticker: "ABCD", DocumentType: DocTypeProspectus}
	assert.Equal(t, "ABCD 424B4", c.Label())
}

func TestFilter_Matches(t *testing.T) {
	assert.True(t, Filter{}.Matches("ABCD", DocTypeProspectus))
	assert.True(t, Filter{Ticker: "abcd"}.Matches("ABCD", DocTypeProspectus))
	assert.False(t, Filter{Ticker: "WXYZ"}.Matches("ABCD", DocTypeProspectus))
	assert.False(t, Filter{Type: DocTypeRegistration}.Matches("ABCD", DocTypeProspectus))
	assert.Equal(t, "ticker=ABCD;type=prospectus", Filter{Ticker: "abcd", Type: DocTypeProspectus}.String())
}
