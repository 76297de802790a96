package html

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/normalisers"
)

func rawHTML(content string) *domain.RawDocument {
	return &domain.RawDocument{
		Document: domain.Document{MIMEType: "text/html"},
		Content:  []byte(content),
	}
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()
	assert.Contains(t, mimeTypes, "text/html")
	assert.Contains(t, mimeTypes, "application/xhtml+xml")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Success(t *testing.T) {
	result, err := New().Normalise(context.Background(), rawHTML(
		"<html><head><title>ACME  Corp S-1</title></head><body><p>Hello World</p></body></html>"))
	require.NoError(t, err)

	assert.Equal(t, "ACME Corp S-1", result.Title)
	assert.Equal(t, "Hello World", result.PlainText)
	assert.Empty(t, result.Pages)
}

func TestNormalise_StripsScriptsStylesAndHiddenXBRL(t *testing.T) {
	content := `<html><body>
<div style="display:none"><ix:header><ix:hidden>dei:EntityRegistrantName</ix:hidden></ix:header></div>
<script>var x = "ignored";</script>
<style>p { color: red; }</style>
<noscript>enable js</noscript>
<p>Visible &amp; decoded&nbsp;text</p>
<!-- a comment -->
</body></html>`

	result, err := New().Normalise(context.Background(), rawHTML(content))
	require.NoError(t, err)
	assert.Equal(t, "Visible & decoded text", result.PlainText)
}

func TestNormalise_BlocksBecomeLines(t *testing.T) {
	content := `<body><h2>ITEM 1. BUSINESS</h2><p>We   make
anvils.</p><div>Second <b>bold</b> line</div>one<br>two
<table><tr><td>Price</td><td>$15.00</td></tr></table></body>`

	result, err := New().Normalise(context.Background(), rawHTML(content))
	require.NoError(t, err)

	assert.Equal(t, "ITEM 1. BUSINESS\nWe make anvils.\nSecond bold line\none\ntwo\nPrice $15.00", result.PlainText)
}

func TestNormalise_PageBreaks(t *testing.T) {
	content := `<body><p>Page one text</p>
<hr style="page-break-after: always">
<p>Page two text</p>
<div style="PAGE-BREAK-BEFORE:always">Page three text</div></body>`

	result, err := New().Normalise(context.Background(), rawHTML(content))
	require.NoError(t, err)

	assert.Equal(t, "Page one text\nPage two text\nPage three text", result.PlainText)
	require.Len(t, result.Pages, 2)
	assert.Equal(t, strings.Index(result.PlainText, "Page two"), result.Pages[0])
	assert.Equal(t, strings.Index(result.PlainText, "Page three"), result.Pages[1])
	assert.Equal(t, 3, normalisers.PageAt(result.Pages, len(result.PlainText)-1))
}

func TestNormalise_Deterministic(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><h1>PROSPECTUS SUMMARY</h1>")
	for i := range 50 {
		fmt.Fprintf(&b, "<p>Paragraph %d with\t tabs &amp; entities &#8212; and  spaces.</p>", i)
	}
	b.WriteString("</body></html>")
	raw := rawHTML(b.String())

	first, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	for range 5 {
		again, err := New().Normalise(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, first.PlainText, again.PlainText)
	}
}

func TestNormalise_SectionsThroughRegistry(t *testing.T) {
	registry := normalisers.NewRegistry(New())
	result, err := registry.Normalise(context.Background(), rawHTML(
		"<body><p>Cover page</p><p>ITEM 1. BUSINESS</p><p>We make anvils.</p><p>ITEM 1A. RISK FACTORS</p><p>Anvils are heavy.</p></body>"))
	require.NoError(t, err)

	sections := normalisers.CollectSections(result.Sections())
	require.Len(t, sections, 2)
	assert.Equal(t, "BUSINESS", sections[0].Label)
	assert.Equal(t, strings.Index(result.PlainText, "ITEM 1."), sections[0].Start)
	assert.Equal(t, "RISK FACTORS", sections[1].Label)
}
