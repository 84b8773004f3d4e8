// Package pipeline orchestrates one incremental collection run: list the
// configured (year, type) pairs, drop competitions already present in the
// snapshot history, fetch subpages and results for the rest, and write the
// two timestamped snapshots. Failures are contained to the item they occur
// on; only the inability to write the results snapshot is fatal.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/lokenilsson/snwk-stats/internal/competition"
	"github.com/lokenilsson/snwk-stats/internal/config"
	"github.com/lokenilsson/snwk-stats/internal/logger"
	"github.com/lokenilsson/snwk-stats/internal/scraper"
	"github.com/lokenilsson/snwk-stats/internal/storage"
)

// Stats summarizes one collection run.
type Stats struct {
	Listed   int // competitions found across all listing pages
	Known    int // URLs already in the snapshot history
	New      int // competitions not seen before
	Fetched  int // competitions whose results were parsed
	Skipped  int // competitions without result subpages (ELITE)
	Failed   int // listing pairs or competitions that errored
	Rows     int // participant rows collected
	Listings string
	Results  string
}

// Runner wires the scraper and storage into the collection flow.
type Runner struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	store   *storage.Storage
	log     *logger.Logger
	metrics *logger.Metrics
}

// NewRunner creates a Runner over the given components.
func NewRunner(cfg *config.Config, sc *scraper.Scraper, store *storage.Storage, log *logger.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		scraper: sc,
		store:   store,
		log:     log,
		metrics: logger.NewMetrics(),
	}
}

// Run performs one collection run and returns its stats. Context
// cancellation stops between items and returns with partial stats.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	known, err := r.store.KnownURLs()
	if err != nil {
		return stats, fmt.Errorf("building dedup index: %w", err)
	}
	knownIDs := make(map[string]struct{}, len(known))
	for u := range known {
		knownIDs[competition.ID(u)] = struct{}{}
	}
	stats.Known = len(knownIDs)
	r.log.Info("dedup index built", logger.Fields{"known_competitions": len(knownIDs)})

	listings, err := r.listAll(ctx, stats)
	if err != nil {
		return stats, err
	}
	stats.Listed = len(listings)

	fresh := filterNew(listings, knownIDs)
	stats.New = len(fresh)
	r.log.Info("listing complete", logger.Fields{
		"total": stats.Listed, "new": stats.New,
	})

	if len(fresh) == 0 {
		r.log.Info("no new competitions, collection is up to date", nil)
		return stats, nil
	}

	pages, err := r.fetchSubpages(ctx, fresh, stats)
	if err != nil {
		return stats, err
	}

	path, err := r.store.WriteListings(pages)
	if err != nil {
		r.log.Error("writing subpages snapshot failed", nil, err)
	} else {
		stats.Listings = path
		r.log.Info("subpages snapshot written", logger.Fields{
			"path": path, "competitions": len(pages),
		})
	}

	records, err := r.fetchResults(ctx, pages, stats)
	if err != nil {
		return stats, err
	}

	path, err = r.store.WriteResults(records)
	if err != nil {
		return stats, fmt.Errorf("writing results snapshot: %w", err)
	}
	stats.Results = path

	r.log.Info("collection finished", logger.Fields{
		"new_competitions": stats.Fetched,
		"rows":             stats.Rows,
		"failed":           stats.Failed,
		"results":          path,
	})
	r.log.Info("run metrics", r.metrics.Snapshot())

	return stats, nil
}

// listAll fetches every configured (year, type) listing pair sequentially
// with the politeness delay between requests. A failed pair is logged and
// skipped.
func (r *Runner) listAll(ctx context.Context, stats *Stats) ([]competition.Listing, error) {
	var all []competition.Listing

	first := true
	for _, year := range r.cfg.Years {
		for _, compType := range r.cfg.Types {
			if err := ctx.Err(); err != nil {
				return all, err
			}
			if !first {
				if err := scraper.Sleep(ctx, r.cfg.RequestDelay); err != nil {
					return all, err
				}
			}
			first = false

			start := time.Now()
			listings, err := r.scraper.ListCompetitions(ctx, year, compType)
			r.metrics.RecordTiming("fetch.listing", time.Since(start))
			if err != nil {
				stats.Failed++
				r.metrics.Incr("errors.listing")
				r.log.Error("listing fetch failed", logger.Fields{
					"year": year, "type": compType,
				}, err)
				continue
			}
			r.metrics.Add("competitions.listed", int64(len(listings)))
			all = append(all, listings...)
		}
	}

	return all, nil
}

// filterNew drops listings whose competition ID is already in the dedup
// index, and collapses duplicate links to the same competition within the
// run.
func filterNew(listings []competition.Listing, knownIDs map[string]struct{}) []competition.Listing {
	var fresh []competition.Listing
	seen := make(map[string]struct{})
	for _, l := range listings {
		id := competition.ID(l.URL)
		if _, known := knownIDs[id]; known {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		fresh = append(fresh, l)
	}
	return fresh
}

// fetchSubpages resolves the result subpages of each new competition. A
// competition whose main page cannot be fetched is dropped from this run;
// since its URL never reaches the results snapshot it is retried next run.
func (r *Runner) fetchSubpages(ctx context.Context, fresh []competition.Listing, stats *Stats) ([]competition.Pages, error) {
	pages := make([]competition.Pages, 0, len(fresh))

	for i, listing := range fresh {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if i > 0 {
			if err := scraper.Sleep(ctx, r.cfg.RequestDelay); err != nil {
				return pages, err
			}
		}

		r.log.Info("fetching subpages", logger.Fields{
			"progress": fmt.Sprintf("%d/%d", i+1, len(fresh)),
			"url":      listing.URL,
		})

		start := time.Now()
		p, err := r.scraper.FetchSubpages(ctx, listing)
		r.metrics.RecordTiming("fetch.subpages", time.Since(start))
		if err != nil {
			stats.Failed++
			r.metrics.Incr("errors.subpages")
			r.log.Error("subpage fetch failed", logger.Fields{
				"url": listing.URL, "year": listing.Year, "type": listing.Type,
			}, err)
			continue
		}
		pages = append(pages, p)
	}

	return pages, nil
}

// fetchResults parses the full record of each competition. Failures exclude
// the competition from the snapshot (so it is retried next run) and never
// abort the remaining ones.
func (r *Runner) fetchResults(ctx context.Context, pages []competition.Pages, stats *Stats) ([]*competition.Record, error) {
	records := make([]*competition.Record, 0, len(pages))

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if i > 0 {
			if err := scraper.Sleep(ctx, r.cfg.RequestDelay); err != nil {
				return records, err
			}
		}

		r.log.Info("fetching results", logger.Fields{
			"progress": fmt.Sprintf("%d/%d", i+1, len(pages)),
			"url":      p.MainURL,
		})

		start := time.Now()
		rec, err := r.scraper.FetchResults(ctx, p)
		r.metrics.RecordTiming("fetch.results", time.Since(start))
		if err != nil {
			stats.Failed++
			r.metrics.Incr("errors.results")
			r.log.Error("result fetch failed", logger.Fields{
				"url": p.MainURL, "year": p.Year, "type": p.Type,
			}, err)
			continue
		}
		if rec == nil {
			stats.Skipped++
			r.log.Debug("competition has no result subpages, skipping", logger.Fields{
				"url": p.MainURL,
			})
			continue
		}

		stats.Fetched++
		for _, g := range rec.Groups {
			stats.Rows += len(g.Rows)
		}
		r.metrics.Incr("competitions.fetched")
		records = append(records, rec)
	}

	return records, nil
}
