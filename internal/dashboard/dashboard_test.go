package dashboard

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lokenilsson/snwk-stats/internal/competition"
	"github.com/lokenilsson/snwk-stats/internal/logger"
	"github.com/lokenilsson/snwk-stats/internal/storage"
)

const snapshotJSON = `[
  {
    "url": "https://x/?page=showres&arr=1&moment=TOT",
    "datum": "2024-05-12",
    "plats": "Strängnäs",
    "typ": "TEM",
    "klass": "NW1",
    "arrangör": "Klubben",
    "anordnare": "SNWK",
    "resultat": [
      {
        "sök": "total",
        "domare": ["Anna Svensson"],
        "tabell": [
          {"placement": 1, "handler": "Maria Karlsson", "dog_call_name": "Ziggy", "dog_breed": "Schäfer", "points": 100, "time": "2:15,32"},
          {"placement": 2, "handler": "Johan Nilsson", "dog_call_name": "Turbo", "dog_breed": "Kelpie", "points": 75, "faults": 2}
        ]
      }
    ]
  },
  {
    "url": "https://x/?page=showres&arr=2&moment=TOT",
    "datum": "2024-06-01",
    "plats": "Uppsala",
    "typ": "TSM",
    "klass": "NW2",
    "resultat": [
      {
        "sök": "Behållare",
        "domare": ["Karin Berg"],
        "tabell": [
          {"placement": 1, "handler": "Maria Karlsson", "dog_call_name": "Ziggy", "dog_breed": "Schäfer", "points": 25}
        ]
      }
    ]
  }
]`

func testServer(t *testing.T) *Server {
	t.Helper()

	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "snwk_competition_results_20240601_120000.json")
	if err := os.WriteFile(path, []byte(snapshotJSON), 0644); err != nil {
		t.Fatal(err)
	}

	log := logger.New(logger.LevelError, io.Discard)
	store, err := storage.New(dataDir, log)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(store, log)
	if err != nil {
		t.Fatalf("failed to create dashboard: %v", err)
	}
	return srv
}

func TestHomePage(t *testing.T) {
	srv := testServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	if !strings.Contains(html, "2 competitions") {
		t.Errorf("overview missing competition count: %s", html)
	}
	if !strings.Contains(html, "Maria Karlsson") {
		t.Error("results table missing handler name")
	}
}

func TestRowsAPI(t *testing.T) {
	srv := testServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/rows", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var rows []competition.FlatRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decoding rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 flat rows, got %d", len(rows))
	}
	if rows[0].Class != "NW1" || rows[0].Search != "total" {
		t.Errorf("first row = %+v", rows[0])
	}
}

func TestRowsAPIFilters(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		query string
		want  int
	}{
		{"class=NW1", 2},
		{"class=nw2", 1},
		{"type=TSM", 1},
		{"handler=johan", 1},
		{"breed=kelpie", 1},
		{"class=NW1&breed=kelpie", 1},
		{"class=NW3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/rows?"+tt.query, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			var rows []competition.FlatRow
			if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
				t.Fatalf("decoding rows: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("got %d rows, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestCompetitionsAPI(t *testing.T) {
	srv := testServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/competitions", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var summaries []competitionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decoding summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Rows != 2 || summaries[0].Class != "NW1" {
		t.Errorf("first summary = %+v", summaries[0])
	}
}
