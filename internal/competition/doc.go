// Package competition provides the data model for SNWK competition results.
//
// A Record holds the metadata and result tables scraped from one competition's
// result pages. The JSON field names match the snapshot files produced by the
// collector (Swedish keys for competition metadata, English keys for
// participant rows), so historical snapshots remain readable. Flatten projects
// a Record into one denormalized row per participant result for analysis and
// the dashboard.
package competition
