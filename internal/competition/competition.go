package competition

import "strings"

// Listing is one competition link found on a listing page for a (year, type)
// pair. Held in memory only; never persisted on its own.
type Listing struct {
	URL  string `json:"url"`
	Text string `json:"text"`
	Year int    `json:"year"`
	Type string `json:"type"`
}

// Subpage is one result subpage of a competition, discovered through the
// "Visa ..." buttons on the competition's main page.
type Subpage struct {
	URL     string `json:"url"`
	Kind    string `json:"type"` // button text, e.g. "Visa total"
	Button  string `json:"button_id,omitempty"`
	OnClick string `json:"onclick,omitempty"`
}

// Pages groups a competition's main page with its discovered subpages and the
// listing metadata it was found under. Persisted to the subpages snapshot.
type Pages struct {
	MainURL      string    `json:"main_url"`
	Subpages     []Subpage `json:"subpages"`
	OriginalText string    `json:"original_text"`
	Year         int       `json:"year"`
	Type         string    `json:"type"`
}

// Record is the full parsed result of one competition. URL is the unique key:
// a competition is collected once and its record is never updated in place.
type Record struct {
	URL         string        `json:"url"`
	Date        string        `json:"datum"`
	Location    string        `json:"plats"`
	Type        string        `json:"typ"`
	Class       string        `json:"klass"`
	Organizer   string        `json:"arrangör"`
	Coordinator string        `json:"anordnare"`
	Groups      []ResultGroup `json:"resultat"`
}

// ResultGroup is the result table for one search station (or the total).
type ResultGroup struct {
	Search string      `json:"sök,omitempty"`
	Judges []string    `json:"domare,omitempty"`
	Rows   []ResultRow `json:"tabell"`
}

// ResultRow is one participant's result. Fields the page did not provide are
// zero-valued; a sparse row is kept rather than dropped.
type ResultRow struct {
	Placement   int    `json:"placement,omitempty"`
	DogCallName string `json:"dog_call_name,omitempty"`
	Points      int    `json:"points,omitempty"`
	Faults      int    `json:"faults,omitempty"`
	Time        string `json:"time,omitempty"`
	StartNumber int    `json:"start_number,omitempty"`
	Handler     string `json:"handler,omitempty"`
	DogFullName string `json:"dog_full_name,omitempty"`
	DogBreed    string `json:"dog_breed,omitempty"`
}

// ID extracts the stable competition identifier from a result-page URL.
// The site appends extra query parameters to subpage URLs, so two URLs refer
// to the same competition when their arr= parameter matches. URLs without an
// arr= parameter identify themselves.
func ID(url string) string {
	_, after, found := strings.Cut(url, "arr=")
	if !found {
		return url
	}
	id, _, _ := strings.Cut(after, "&")
	return id
}
