// Package connectors holds the sources filings are pulled from: the EDGAR
// registry client and the local inbox watcher.
package connectors
