package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lokenilsson/snwk-stats/internal/competition"
)

var (
	onclickTarget = regexp.MustCompile(`location='([^']+)'`)
	datePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	classPattern  = regexp.MustCompile(`^(NW[123]|ELIT)$`)

	placementPattern   = regexp.MustCompile(`Placering:\s*(\d+)`)
	totalPointsPattern = regexp.MustCompile(`Totalpoäng:\s*(\d+)`)
	pointsPattern      = regexp.MustCompile(`Poäng:\s*(\d+)`)
	totalFaultsPattern = regexp.MustCompile(`Totalfel:\s*(\d+)`)
	faultsPattern      = regexp.MustCompile(`Fel:\s*(\d+)`)
	totalTimePattern   = regexp.MustCompile(`Totaltid:\s*([\d:,]+)`)
	timePattern        = regexp.MustCompile(`Tid:\s*([\d:,]+)`)
	startPattern       = regexp.MustCompile(`Startnr:\s*(\d+)`)
	handlerPattern     = regexp.MustCompile(`Förare:\s*([^\n\r]+)`)
	dogPattern         = regexp.MustCompile(`Hund:\s*([^\n\r]+)`)
	breedPattern       = regexp.MustCompile(`Ras:\s*([^\n\r]+)`)
	judgeLinePattern   = regexp.MustCompile(`Domare\s*[^:]*:\s*(.*)`)
)

// listingKeywords mark hrefs that point at competition result pages.
var listingKeywords = []string{"page=showres", "page=", "tavling"}

// parseListing extracts competition links from a listing-page HTML fragment.
func parseListing(r io.Reader, root string, year int, compType string) ([]competition.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing listing HTML: %w", err)
	}

	listings := make([]competition.Listing, 0)
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)

		match := false
		for _, kw := range listingKeywords {
			if strings.Contains(lower, kw) {
				match = true
				break
			}
		}
		if !match {
			return
		}

		listings = append(listings, competition.Listing{
			URL:  absolutize(root, href),
			Text: strings.Join(strings.Fields(sel.Text()), " "),
			Year: year,
			Type: compType,
		})
	})

	return listings, nil
}

// parseSubpages extracts the result-subpage links of a competition page.
// The links are carried by "Visa ..." buttons in onclick attributes rather
// than anchors.
func parseSubpages(r io.Reader, root string) ([]competition.Subpage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing competition HTML: %w", err)
	}
	return subpageLinks(doc, root), nil
}

func subpageLinks(doc *goquery.Document, root string) []competition.Subpage {
	subpages := make([]competition.Subpage, 0)
	doc.Find("button[onclick]").Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		onclick, _ := sel.Attr("onclick")

		if !strings.Contains(text, "Visa") || !strings.Contains(onclick, "location=") {
			return
		}
		m := onclickTarget.FindStringSubmatch(onclick)
		if m == nil {
			return
		}

		id, _ := sel.Attr("id")
		subpages = append(subpages, competition.Subpage{
			URL:     absolutize(root, m[1]),
			Kind:    text,
			Button:  id,
			OnClick: onclick,
		})
	})

	return subpages
}

// absolutize resolves the relative URL forms the site emits against the
// site root.
func absolutize(root, href string) string {
	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "?"):
		return root + "/" + href
	case strings.HasPrefix(href, "/"):
		return root + href
	default:
		return root + "/" + href
	}
}

// metadataTokens that can never be a location name.
var metadataTokens = map[string]bool{
	"TEM": true, "TSM": true,
	"NW1": true, "NW2": true, "NW3": true, "ELIT": true,
	"Arrangör:": true, "Anordnare:": true,
}

// parseMetadata fills a record's metadata fields from the listing link text,
// which concatenates date, location, type, class and organizer info. Every
// field defaults to empty when its token is absent or fails validation.
func parseMetadata(rec *competition.Record, text string) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return
	}

	for _, tok := range tokens {
		if datePattern.MatchString(tok) {
			rec.Date = tok
			break
		}
	}

	if len(tokens) > 1 && !metadataTokens[tokens[1]] {
		rec.Location = tokens[1]
	}

	for _, tok := range tokens {
		if tok == "TEM" || tok == "TSM" {
			rec.Type = tok
			break
		}
	}

	for _, tok := range tokens {
		if classPattern.MatchString(tok) {
			rec.Class = tok
			break
		}
	}

	if start := indexOf(tokens, "Arrangör:"); start >= 0 {
		if end := indexOf(tokens, "Anordnare:"); end > start {
			rec.Organizer = strings.Join(tokens[start+1:end], " ")
		} else {
			// No coordinator marker; cap the organizer at a few words.
			stop := start + 1 + 5
			if stop > len(tokens) {
				stop = len(tokens)
			}
			rec.Organizer = strings.Join(tokens[start+1:stop], " ")
		}
	}
	if start := indexOf(tokens, "Anordnare:"); start >= 0 {
		rec.Coordinator = strings.Join(tokens[start+1:], " ")
	}
}

func indexOf(tokens []string, want string) int {
	for i, tok := range tokens {
		if tok == want {
			return i
		}
	}
	return -1
}

// parseJudgesTotal reads judge names from the domardiv block of a total
// page. The block holds a label and first/last name per judge; the word
// count tells how many judges officiated.
func parseJudgesTotal(doc *goquery.Document) []string {
	div := doc.Find("div.domardiv").First()
	if div.Length() == 0 {
		return nil
	}

	words := strings.Fields(div.Text())
	switch len(words) {
	case 4:
		return []string{words[2] + " " + words[3]}
	case 8:
		return []string{words[2] + " " + words[3], words[6] + " " + words[7]}
	case 12:
		return []string{
			words[2] + " " + words[3],
			words[6] + " " + words[7],
			words[10] + " " + words[11],
		}
	default:
		return []string{"okänd"}
	}
}

// parseJudgesMoment reads the judge name from the "Domare ...: X" paragraph
// of a moment page.
func parseJudgesMoment(doc *goquery.Document) []string {
	var judges []string
	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "Domare") {
			return true
		}
		if m := judgeLinePattern.FindStringSubmatch(text); m != nil {
			judges = []string{strings.TrimSpace(m[1])}
			return false
		}
		return true
	})
	return judges
}

// parseRows reads one ResultRow per list item of the page's results list.
// Each labeled value is optional; an absent label leaves the field zero so
// partial rows survive.
func parseRows(doc *goquery.Document) []competition.ResultRow {
	list := doc.Find("ul").First()
	if list.Length() == 0 {
		return nil
	}

	var rows []competition.ResultRow
	list.Find("li").Each(func(i int, sel *goquery.Selection) {
		text := sel.Text()
		var row competition.ResultRow

		row.Placement = matchInt(placementPattern, text)
		if v := matchInt(totalPointsPattern, text); v != 0 {
			row.Points = v
		} else {
			row.Points = matchInt(pointsPattern, text)
		}
		if v := matchInt(totalFaultsPattern, text); v != 0 {
			row.Faults = v
		} else {
			row.Faults = matchInt(faultsPattern, text)
		}
		if v := matchString(totalTimePattern, text); v != "" {
			row.Time = v
		} else {
			row.Time = matchString(timePattern, text)
		}
		row.StartNumber = matchInt(startPattern, text)
		row.Handler = matchString(handlerPattern, text)
		row.DogFullName = matchString(dogPattern, text)
		row.DogBreed = matchString(breedPattern, text)

		// The "Handler & Dog" heading carries the dog's call name.
		sel.Find("strong").EachWithBreak(func(j int, st *goquery.Selection) bool {
			heading := strings.TrimSpace(st.Text())
			if !strings.Contains(heading, " & ") ||
				strings.Contains(heading, "Placering") ||
				strings.Contains(heading, "Totalpoäng") {
				return true
			}
			_, dog, _ := strings.Cut(heading, " & ")
			row.DogCallName = strings.TrimSpace(dog)
			return false
		})

		rows = append(rows, row)
	})

	return rows
}

func matchInt(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}

func matchString(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
