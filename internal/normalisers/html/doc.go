// Package html provides a Normaliser implementation for HTML filings.
// It walks the parsed DOM, drops scripts, styles and hidden inline XBRL
// headers, and records page breaks declared through CSS.
package html
