// Package cli implements the snwk-stats command line interface.
//
// The root command performs one incremental collection run against the SNWK
// results site; behavior is fully determined by the configuration (years,
// competition types, request delays, data directory). The serve subcommand
// starts the browsing dashboard over the collected snapshots and export
// writes the flattened result rows to a JSON file for external analysis.
package cli
