// Package storage provides JSON snapshot persistence for collected data.
//
// Every collection run appends two timestamped files to the data directory:
// snwk_new_subpages_<ts>.json with the discovered competition subpages and
// snwk_competition_results_<ts>.json with the parsed results. Existing
// snapshots are never modified; the set of competition URLs found across all
// historical result snapshots forms the dedup index that decides which
// competitions are new on the next run.
package storage
