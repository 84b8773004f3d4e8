package scraper

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/lokenilsson/snwk-stats/internal/competition"
)

const testRoot = "https://www.snwktavling.se"

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return string(data)
}

func docFromFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(loadFixture(t, name)))
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func TestParseListing(t *testing.T) {
	listings, err := parseListing(strings.NewReader(loadFixture(t, "listing_body.html")), testRoot, 2024, "alla")
	if err != nil {
		t.Fatalf("parseListing failed: %v", err)
	}

	if len(listings) != 3 {
		t.Fatalf("expected 3 competition links, got %d", len(listings))
	}

	first := listings[0]
	if first.URL != testRoot+"/?page=showres&arr=1001" {
		t.Errorf("unexpected first URL: %s", first.URL)
	}
	if first.Year != 2024 || first.Type != "alla" {
		t.Errorf("listing metadata not carried: year=%d type=%s", first.Year, first.Type)
	}
	if !strings.Contains(first.Text, "Strängnäs") {
		t.Errorf("listing text not extracted: %q", first.Text)
	}

	// Absolute URL kept as is.
	if listings[2].URL != "https://www.snwktavling.se/?page=showres&arr=1003" {
		t.Errorf("unexpected third URL: %s", listings[2].URL)
	}
}

func TestParseSubpages(t *testing.T) {
	subpages, err := parseSubpages(strings.NewReader(loadFixture(t, "competition_page.html")), testRoot)
	if err != nil {
		t.Fatalf("parseSubpages failed: %v", err)
	}

	if len(subpages) != 3 {
		t.Fatalf("expected 3 subpages, got %d", len(subpages))
	}

	want := []struct {
		url  string
		kind string
	}{
		{testRoot + "/?page=showres&arr=1001&moment=TOT", "Visa total"},
		{testRoot + "/?page=showres&arr=1001&moment=M1", "Visa moment 1"},
		{testRoot + "/?page=showres&arr=1001&moment=M2", "Visa moment 2"},
	}
	for i, w := range want {
		if subpages[i].URL != w.url {
			t.Errorf("subpage %d URL = %q, want %q", i, subpages[i].URL, w.url)
		}
		if subpages[i].Kind != w.kind {
			t.Errorf("subpage %d kind = %q, want %q", i, subpages[i].Kind, w.kind)
		}
	}
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		text string
		want competition.Record
	}{
		{
			name: "full listing text",
			text: "2024-05-12 Strängnäs - TEM - NW1 - Utomhus Arrangör: Strängnäs Hundklubb Anordnare: SNWK Öst",
			want: competition.Record{
				Date: "2024-05-12", Location: "Strängnäs", Type: "TEM", Class: "NW1",
				Organizer: "Strängnäs Hundklubb", Coordinator: "SNWK Öst",
			},
		},
		{
			name: "no coordinator marker",
			text: "2024-06-15 Visby - TEM - ELIT Arrangör: Gotlands BK",
			want: competition.Record{
				Date: "2024-06-15", Location: "Visby", Type: "TEM", Class: "ELIT",
				Organizer: "Gotlands BK",
			},
		},
		{
			name: "class token in location position",
			text: "2024-01-01 NW2 TSM",
			want: competition.Record{Date: "2024-01-01", Type: "TSM", Class: "NW2"},
		},
		{
			name: "empty text",
			text: "",
			want: competition.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec competition.Record
			parseMetadata(&rec, tt.text)

			if rec.Date != tt.want.Date {
				t.Errorf("Date = %q, want %q", rec.Date, tt.want.Date)
			}
			if rec.Location != tt.want.Location {
				t.Errorf("Location = %q, want %q", rec.Location, tt.want.Location)
			}
			if rec.Type != tt.want.Type {
				t.Errorf("Type = %q, want %q", rec.Type, tt.want.Type)
			}
			if rec.Class != tt.want.Class {
				t.Errorf("Class = %q, want %q", rec.Class, tt.want.Class)
			}
			if rec.Organizer != tt.want.Organizer {
				t.Errorf("Organizer = %q, want %q", rec.Organizer, tt.want.Organizer)
			}
			if rec.Coordinator != tt.want.Coordinator {
				t.Errorf("Coordinator = %q, want %q", rec.Coordinator, tt.want.Coordinator)
			}
		})
	}
}

func TestParseRows(t *testing.T) {
	rows := parseRows(docFromFixture(t, "subpage_total.html"))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Placement != 1 {
		t.Errorf("placement = %d, want 1", first.Placement)
	}
	if first.Points != 100 {
		t.Errorf("points = %d, want 100", first.Points)
	}
	if first.Time != "2:15,32" {
		t.Errorf("time = %q, want 2:15,32", first.Time)
	}
	if first.StartNumber != 5 {
		t.Errorf("start number = %d, want 5", first.StartNumber)
	}
	if first.Handler != "Maria Karlsson" {
		t.Errorf("handler = %q", first.Handler)
	}
	if first.DogCallName != "Ziggy" {
		t.Errorf("dog call name = %q, want Ziggy", first.DogCallName)
	}
	if first.DogFullName != "Ziggy vom Nordhaus" {
		t.Errorf("dog full name = %q", first.DogFullName)
	}
	if first.DogBreed != "Schäfer" {
		t.Errorf("dog breed = %q", first.DogBreed)
	}

	if rows[1].Faults != 2 {
		t.Errorf("second row faults = %d, want 2", rows[1].Faults)
	}
}

func TestParseRowsMissingFieldsDefault(t *testing.T) {
	rows := parseRows(docFromFixture(t, "subpage_moment.html"))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// Second participant has no faults and no breed listed; the row is kept
	// with zero values.
	second := rows[1]
	if second.Placement != 2 || second.Points != 22 {
		t.Errorf("second row = %+v", second)
	}
	if second.Faults != 0 {
		t.Errorf("missing faults should default to 0, got %d", second.Faults)
	}
	if second.DogBreed != "" {
		t.Errorf("missing breed should default to empty, got %q", second.DogBreed)
	}
	if second.DogFullName != "" {
		t.Errorf("missing dog name should default to empty, got %q", second.DogFullName)
	}
}

func TestParseJudgesTotal(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "one judge",
			html: `<div class="domardiv">Domare 1: Anna Svensson</div>`,
			want: []string{"Anna Svensson"},
		},
		{
			name: "two judges",
			html: `<div class="domardiv">Domare 1: Anna Svensson Domare 2: Erik Lindqvist</div>`,
			want: []string{"Anna Svensson", "Erik Lindqvist"},
		},
		{
			name: "unexpected layout",
			html: `<div class="domardiv">Domare meddelas senare</div>`,
			want: []string{"okänd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			got := parseJudgesTotal(doc)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("judge %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseJudgesTotalAbsent(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p>inga domare här</p>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := parseJudgesTotal(doc); got != nil {
		t.Errorf("expected nil judges without domardiv, got %v", got)
	}
}

func TestParseJudgesMoment(t *testing.T) {
	judges := parseJudgesMoment(docFromFixture(t, "subpage_moment.html"))
	if len(judges) != 1 || judges[0] != "Karin Berg" {
		t.Errorf("judges = %v, want [Karin Berg]", judges)
	}
}

func TestAbsolutize(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"?page=showres&arr=1", testRoot + "/?page=showres&arr=1"},
		{"/resultat", testRoot + "/resultat"},
		{"resultat.php", testRoot + "/resultat.php"},
		{"https://other.example/x", "https://other.example/x"},
	}

	for _, tt := range tests {
		if got := absolutize(testRoot, tt.href); got != tt.want {
			t.Errorf("absolutize(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
