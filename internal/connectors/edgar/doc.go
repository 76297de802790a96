// Package edgar implements a filing registry client for SEC EDGAR.
//
// # Architecture
//
// The client implements [driven.FilingRegistry]. It comprises:
//
//   - Client: HTTP access with identification headers and status mapping
//   - HostLimiter: per-host politeness throttling
//   - ticker lookup: company_tickers.json, loaded once and cached
//   - submissions: the per-company filing history from data.sec.gov
//   - filing index: the per-filing exhibit table, parsed with goquery
//
// # Politeness
//
// EDGAR asks automated clients to declare who they are and to stay under
// ten requests per second. Every request carries the configured
// User-Agent, which must contain a contact email. Each host has its own
// token bucket releasing one request per configured interval (200ms by
// default). A 429 or 403 response blocks that host until Retry-After
// has passed, 10s when the header is absent.
//
// # Filing Selection
//
// Registration statements, prospectuses and listing forms are the
// primary document of the most recent filing whose form belongs to the
// document type. Lock-up and underwriting agreements are exhibits: the
// client walks the filing index of recent registration statements,
// newest first, and picks the first matching exhibit row.
//
// # Error Handling
//
//   - 404: [domain.ErrNotFound]
//   - 429 and 403: [*RateLimitError], which wraps [domain.ErrRateLimited]
//   - 5xx and network failures: [*APIError], which wraps [domain.ErrUnavailable]
//
// Retrying is left to the caller.
package edgar
