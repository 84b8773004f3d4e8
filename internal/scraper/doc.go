// Package scraper fetches and parses SNWK competition pages.
//
// The listing endpoint is an AJAX handler answering a form POST with a JSON
// envelope whose "body" field carries an HTML fragment; competition links are
// anchors inside it. A competition page links its result subpages through
// "Visa ..." buttons whose target URL sits in an inline onclick attribute.
// Subpages carry the actual result tables as <ul> lists of labeled values.
//
// All HTML parsing is done with goquery against io.Readers, so tests feed
// canned fixtures instead of live pages. Site-markup coupling is confined to
// this package.
package scraper
