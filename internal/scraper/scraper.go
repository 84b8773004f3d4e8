package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lokenilsson/snwk-stats/internal/competition"
	"github.com/lokenilsson/snwk-stats/internal/config"
	"github.com/lokenilsson/snwk-stats/internal/logger"
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Scraper fetches listing, competition and result pages from the source
// site. All requests are sequential; politeness delays between requests are
// the caller's (pipeline's) and FetchResults' responsibility.
type Scraper struct {
	client *http.Client
	cfg    *config.Config
	log    *logger.Logger
	root   string
}

// New creates a Scraper for the configured site.
func New(cfg *config.Config, log *logger.Logger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		log:    log,
		root:   siteRoot(cfg.BaseURL),
	}
}

// siteRoot reduces the listing endpoint to scheme://host for resolving the
// relative URLs the site emits.
func siteRoot(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" {
		return strings.TrimRight(baseURL, "/")
	}
	return u.Scheme + "://" + u.Host
}

// listingEnvelope is the JSON wrapper the AJAX listing endpoint answers
// with; the HTML fragment sits in Body.
type listingEnvelope struct {
	Body string `json:"body"`
}

// ListCompetitions fetches the listing for one (year, type) pair and returns
// the competition links found in it.
func (s *Scraper) ListCompetitions(ctx context.Context, year int, compType string) ([]competition.Listing, error) {
	form := url.Values{}
	form.Set("tavTyp", compType)
	form.Set("klass", "alla")
	form.Set("year", strconv.Itoa(year))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating listing request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: s.cfg.BaseURL, StatusCode: resp.StatusCode}
	}

	var envelope listingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding listing response: %w", err)
	}
	if envelope.Body == "" {
		return nil, fmt.Errorf("listing response has no body fragment")
	}

	listings, err := parseListing(strings.NewReader(envelope.Body), s.root, year, compType)
	if err != nil {
		return nil, err
	}
	s.log.Debug("parsed listing page", logger.Fields{
		"year": year, "type": compType, "competitions": len(listings),
	})
	return listings, nil
}

// FetchSubpages fetches a competition's main page and extracts its result
// subpages. The listing metadata is carried along so the detail parser can
// recover date, location, type, class and organizer from the link text.
func (s *Scraper) FetchSubpages(ctx context.Context, listing competition.Listing) (competition.Pages, error) {
	pages := competition.Pages{
		MainURL:      listing.URL,
		Subpages:     []competition.Subpage{},
		OriginalText: listing.Text,
		Year:         listing.Year,
		Type:         listing.Type,
	}

	doc, err := s.get(ctx, listing.URL)
	if err != nil {
		return pages, err
	}

	pages.Subpages = subpageLinks(doc, s.root)
	return pages, nil
}

// FetchResults fetches every subpage of a competition and assembles the full
// record. Competitions without subpages (ELITE) yield no record. Any failed
// subpage fails the whole competition so it is retried on the next run.
func (s *Scraper) FetchResults(ctx context.Context, pages competition.Pages) (*competition.Record, error) {
	if len(pages.Subpages) == 0 {
		return nil, nil
	}

	rec := &competition.Record{
		URL:    pages.Subpages[0].URL,
		Groups: []competition.ResultGroup{},
	}
	parseMetadata(rec, pages.OriginalText)

	// For TEM competitions the station name is announced on the total page
	// and applies to the moment pages that follow.
	searchType := ""

	for i, page := range pages.Subpages {
		if i > 0 {
			if err := Sleep(ctx, s.cfg.SubpageDelay); err != nil {
				return nil, err
			}
		}

		doc, err := s.get(ctx, page.URL)
		if err != nil {
			return nil, fmt.Errorf("fetching subpage: %w", err)
		}

		group := competition.ResultGroup{}
		total := lastWord(page.Kind) == "total"

		switch rec.Type {
		case "TEM":
			if searchType == "" && total {
				group.Search = "total"
				if name := lastHeadingWord(doc); name != "" && name != "total" {
					searchType = name
				}
			} else if searchType != "" {
				group.Search = searchType
			}
		case "TSM":
			raw := strings.TrimSuffix(lastWord(page.Kind), "sök")
			switch raw {
			case "Behållar":
				searchType = "Behållare"
			case "Fordons":
				searchType = "Fordon"
			default:
				searchType = strings.TrimSpace(raw)
			}
			if searchType != "" {
				group.Search = searchType
			}
		}

		if total {
			group.Judges = parseJudgesTotal(doc)
		} else {
			group.Judges = parseJudgesMoment(doc)
		}

		group.Rows = parseRows(doc)
		if group.Rows == nil {
			// Page had no results list; nothing to record for this moment.
			continue
		}
		rec.Groups = append(rec.Groups, group)
	}

	return rec, nil
}

// get performs one GET and parses the response into a goquery document.
func (s *Scraper) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

func (s *Scraper) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", s.cfg.BaseURL)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")
}

// lastHeadingWord returns the final word of the page's last <h2>, which on
// total pages names the search station.
func lastHeadingWord(doc *goquery.Document) string {
	headings := doc.Find("h2")
	if headings.Length() == 0 {
		return ""
	}
	words := strings.Fields(headings.Last().Text())
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func lastWord(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

// Sleep waits for the politeness delay or until the context is canceled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
