// Package dashboard serves a browsing UI over the collected snapshots.
//
// All result snapshots in the data directory are loaded and flattened once
// at startup; the dashboard never writes. Besides the HTML overview it
// exposes the flattened rows and per-competition summaries as JSON for
// notebooks and ad-hoc analysis.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lokenilsson/snwk-stats/internal/competition"
	"github.com/lokenilsson/snwk-stats/internal/logger"
	"github.com/lokenilsson/snwk-stats/internal/storage"
)

// Server holds the loaded dataset and the fiber app serving it.
type Server struct {
	app     *fiber.App
	log     *logger.Logger
	records []*competition.Record
	rows    []competition.FlatRow
}

// New loads every results snapshot from store and builds the dashboard app.
func New(store *storage.Storage, log *logger.Logger) (*Server, error) {
	records, err := store.LoadResults()
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}

	var rows []competition.FlatRow
	for _, rec := range records {
		rows = append(rows, competition.Flatten(rec)...)
	}

	s := &Server{
		app:     fiber.New(fiber.Config{AppName: "SNWK Statistics"}),
		log:     log,
		records: records,
		rows:    rows,
	}

	s.app.Use(fiberlogger.New())
	s.app.Get("/", s.handleHome)
	s.app.Get("/api/rows", s.handleRows)
	s.app.Get("/api/competitions", s.handleCompetitions)

	log.Info("dashboard data loaded", logger.Fields{
		"competitions": len(records),
		"rows":         len(rows),
	})
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving the dashboard on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// rowFilter holds the query filters of a rows request. Class and type match
// exactly (case-insensitive); the rest match as case-insensitive substrings.
type rowFilter struct {
	class   string
	typ     string
	search  string
	handler string
	breed   string
}

func filterFromQuery(c *fiber.Ctx) rowFilter {
	return rowFilter{
		class:   c.Query("class"),
		typ:     c.Query("type"),
		search:  c.Query("search"),
		handler: c.Query("handler"),
		breed:   c.Query("breed"),
	}
}

func (f rowFilter) matches(r competition.FlatRow) bool {
	if f.class != "" && !strings.EqualFold(f.class, r.Class) {
		return false
	}
	if f.typ != "" && !strings.EqualFold(f.typ, r.Type) {
		return false
	}
	if f.search != "" && !containsFold(r.Search, f.search) {
		return false
	}
	if f.handler != "" && !containsFold(r.Handler, f.handler) {
		return false
	}
	if f.breed != "" && !containsFold(r.DogBreed, f.breed) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Server) filteredRows(f rowFilter) []competition.FlatRow {
	rows := make([]competition.FlatRow, 0)
	for _, r := range s.rows {
		if f.matches(r) {
			rows = append(rows, r)
		}
	}
	return rows
}

func (s *Server) handleRows(c *fiber.Ctx) error {
	return c.JSON(s.filteredRows(filterFromQuery(c)))
}

// competitionSummary is the /api/competitions row.
type competitionSummary struct {
	URL      string `json:"url"`
	Date     string `json:"datum"`
	Location string `json:"plats"`
	Type     string `json:"typ"`
	Class    string `json:"klass"`
	Groups   int    `json:"groups"`
	Rows     int    `json:"rows"`
}

func (s *Server) handleCompetitions(c *fiber.Ctx) error {
	summaries := make([]competitionSummary, 0, len(s.records))
	for _, rec := range s.records {
		n := 0
		for _, g := range rec.Groups {
			n += len(g.Rows)
		}
		summaries = append(summaries, competitionSummary{
			URL:      rec.URL,
			Date:     rec.Date,
			Location: rec.Location,
			Type:     rec.Type,
			Class:    rec.Class,
			Groups:   len(rec.Groups),
			Rows:     n,
		})
	}
	return c.JSON(summaries)
}

type homeData struct {
	Competitions int
	Rows         int
	ByClass      []classCount
	Filter       filterView
	Filtered     []competition.FlatRow
	Truncated    bool
}

// filterView exposes the active filter to the template.
type filterView struct {
	Class, Type, Search, Handler, Breed string
}

type classCount struct {
	Class string
	Count int
}

const maxTableRows = 200

func (s *Server) handleHome(c *fiber.Ctx) error {
	f := filterFromQuery(c)
	filtered := s.filteredRows(f)

	byClass := make(map[string]int)
	for _, r := range s.rows {
		if r.Class != "" {
			byClass[r.Class]++
		}
	}
	classes := make([]classCount, 0, len(byClass))
	for class, n := range byClass {
		classes = append(classes, classCount{Class: class, Count: n})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Class < classes[j].Class })

	data := homeData{
		Competitions: len(s.records),
		Rows:         len(s.rows),
		ByClass:      classes,
		Filter: filterView{
			Class: f.class, Type: f.typ, Search: f.search,
			Handler: f.handler, Breed: f.breed,
		},
		Filtered: filtered,
	}
	if len(data.Filtered) > maxTableRows {
		data.Filtered = data.Filtered[:maxTableRows]
		data.Truncated = true
	}

	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, data); err != nil {
		s.log.Error("rendering dashboard failed", nil, err)
		return fiber.ErrInternalServerError
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="sv">
<head>
<meta charset="utf-8">
<title>SNWK Statistics</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.25rem 0.5rem; text-align: left; }
th { background: #f0f0f0; }
form input { margin-right: 0.5rem; }
</style>
</head>
<body>
<h1>SNWK Competition Statistics</h1>
<p>{{.Competitions}} competitions, {{.Rows}} results.
{{range .ByClass}} {{.Class}}: {{.Count}}.{{end}}</p>
<form method="get" action="/">
<input name="class" placeholder="Klass" value="{{.Filter.Class}}">
<input name="type" placeholder="Typ" value="{{.Filter.Type}}">
<input name="search" placeholder="Sök" value="{{.Filter.Search}}">
<input name="handler" placeholder="Förare" value="{{.Filter.Handler}}">
<input name="breed" placeholder="Ras" value="{{.Filter.Breed}}">
<button type="submit">Filtrera</button>
</form>
<table>
<tr><th>Datum</th><th>Plats</th><th>Klass</th><th>Sök</th><th>Placering</th>
<th>Förare</th><th>Hund</th><th>Ras</th><th>Poäng</th><th>Fel</th><th>Tid</th></tr>
{{range .Filtered}}
<tr><td>{{.Date}}</td><td>{{.Location}}</td><td>{{.Class}}</td><td>{{.Search}}</td>
<td>{{.Placement}}</td><td>{{.Handler}}</td><td>{{.DogCallName}}</td><td>{{.DogBreed}}</td>
<td>{{.Points}}</td><td>{{.Faults}}</td><td>{{.Time}}</td></tr>
{{end}}
</table>
{{if .Truncated}}<p>Showing first {{len .Filtered}} rows; narrow the filter or use /api/rows.</p>{{end}}
</body>
</html>
`))
